package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"falconeri/internal/falconeri/logger"
)

const requestIDHeader = "X-Request-Id"

// responseRecorder captures the status code written by the wrapped
// handler so it can be logged after the request completes.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestID builds middleware that assigns every request a correlation
// ID (reusing one supplied via X-Request-Id, or minting a fresh UUID),
// stashes it in the request context via logger.WithRequestID, echoes it
// back in the response, and logs the request's method, path, status,
// and duration once it completes. base is typically the process logger;
// if nil, slog.Default() is used.
func RequestID(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.New().String()
			}

			ctx := logger.WithRequestID(r.Context(), reqID)
			w.Header().Set(requestIDHeader, reqID)

			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r.WithContext(ctx))

			logger.FromContext(ctx, base).Info("request handled",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
