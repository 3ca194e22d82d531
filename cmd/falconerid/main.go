// Package main is the entry point for the Falconeri coordinator.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"falconeri/internal/falconeri/babysitter"
	"falconeri/internal/falconeri/config"
	"falconeri/internal/falconeri/controller"
	"falconeri/internal/falconeri/logger"
	"falconeri/internal/falconeri/observability"
	"falconeri/internal/falconeri/orchestrator/kubernetes"
	"falconeri/internal/falconeri/store/postgres"

	// Blank-imported so each backend's init() registers itself with
	// storage.Register; admission.SubmitJob resolves storage.ForURI against
	// whatever schemes have been registered by the time the binary starts.
	_ "falconeri/internal/falconeri/storage/gcs"
	_ "falconeri/internal/falconeri/storage/s3"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "No-op: migrations always run when the database connection opens")
	flag.Parse()

	log := logger.New()
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Warn("unrecognised FALCONERI_LOG_LEVEL, keeping info", "value", cfg.LogLevel)
	} else {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(log)
	}

	ctx := context.Background()

	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if *migrateFlag {
		log.Info("migrations run automatically on connect; -migrate is a no-op")
	}

	shutdownTracer, err := observability.InitTracer(ctx, "falconeri-coordinator", cfg.OTELEndpoint)
	if err != nil {
		log.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Error("failed to shutdown metrics", "error", err)
		}
	}()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metricsHandler)
	metricsServer := &http.Server{Addr: ":9090", Handler: metricsMux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server stopped", "error", err)
		}
	}()

	orch, err := kubernetes.New(kubernetes.Config{Namespace: cfg.Namespace})
	if err != nil {
		log.Error("failed to init kubernetes orchestrator", "error", err)
		os.Exit(1)
	}

	sitter := &babysitter.Babysitter{Store: store, Orchestrator: orch, Logger: log}
	go sitter.Run(ctx)

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(addr, store, orch, cfg.AdminPassword, log)

	go func() {
		log.Info("falconeri coordinator starting", "addr", addr)
		if err := srv.Run(ctx); err != nil {
			log.Error("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down coordinator")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	_ = metricsServer.Shutdown(shutdownCtx)
	log.Info("server exited properly")
}
