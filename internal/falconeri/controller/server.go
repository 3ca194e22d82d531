// Package controller wires the REST facade: route table, Basic Auth
// gate, and the HTTP server's lifecycle.
package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"falconeri/internal/falconeri/admission"
	"falconeri/internal/falconeri/controller/handlers"
	"falconeri/internal/falconeri/controller/middleware"
	"falconeri/internal/falconeri/orchestrator"
	"falconeri/internal/falconeri/store"
)

// Server is the HTTP server for the REST facade.
type Server struct {
	httpServer *http.Server
}

// New builds the REST facade's route table and wraps it in an
// http.Server listening on addr. Every route but /version and
// /api-docs/openapi.json requires HTTP Basic auth against adminPassword.
// Every request is tagged with a correlation ID and logged to log (or
// slog.Default() if log is nil) once it completes.
func New(addr string, s store.Store, orch orchestrator.Orchestrator, adminPassword string, log *slog.Logger) *Server {
	admitter := &admission.Admitter{Store: s, Orchestrator: orch}
	h := handlers.New(s, orch, admitter)
	authMW := middleware.RequireBasicAuth(adminPassword)
	requestIDMW := middleware.RequestID(log)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /version", h.VersionHandler)
	mux.HandleFunc("GET /api-docs/openapi.json", h.OpenAPIDocument)
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)

	mux.Handle("POST /jobs", authMW(http.HandlerFunc(h.CreateJob)))
	mux.Handle("GET /jobs/list", authMW(http.HandlerFunc(h.ListJobs)))
	mux.Handle("GET /jobs/{id}", authMW(http.HandlerFunc(h.GetJob)))
	mux.Handle("GET /jobs", authMW(http.HandlerFunc(h.GetJob)))
	mux.Handle("GET /jobs/{id}/describe", authMW(http.HandlerFunc(h.DescribeJob)))
	mux.Handle("POST /jobs/{id}/retry", authMW(http.HandlerFunc(h.RetryJob)))
	mux.Handle("POST /jobs/{id}/reserve_next_datum", authMW(http.HandlerFunc(h.ReserveNextDatum)))

	mux.Handle("PATCH /datums/{id}", authMW(http.HandlerFunc(h.PatchDatum)))
	mux.Handle("GET /datums/{id}/describe", authMW(http.HandlerFunc(h.DescribeDatum)))
	mux.Handle("POST /datums/{id}/output_files", authMW(http.HandlerFunc(h.CreateOutputFiles)))
	mux.Handle("PATCH /datums/{id}/output_files", authMW(http.HandlerFunc(h.PatchOutputFiles)))

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      requestIDMW(mux),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
