package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// LoggingMiddleware logs each request once it completes. Handlers get a logger carrying the
// request ID through ctxlog.From(r.Context()).
func LoggingMiddleware(ctx context.Context) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			logger := ctxlog.From(ctx).With("request_id", middleware.GetReqID(r.Context()))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(ctxlog.With(r.Context(), logger)))

			level := logger.Info
			if ww.Status() >= http.StatusInternalServerError {
				level = logger.Warn
			}
			level("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// RecoverMiddleware turns a handler panic into a 500 and reports it to Sentry.
// sentry.CaptureException is a no-op when Sentry is not configured.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			err := goerr.New("panic in HTTP handler", goerr.V("panic", rec), goerr.V("path", r.URL.Path))
			sentry.CaptureException(err)
			writeError(w, r, err, http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		ctxlog.From(r.Context()).Error("Failed to encode response", "error", err)
	}
}

// writeError responds with {"error": "..."}. Server-side failures are logged with their goerr values.
func writeError(w http.ResponseWriter, r *http.Request, err error, status int) {
	if status >= http.StatusInternalServerError {
		ctxlog.From(r.Context()).Error("Request failed", "status", status, "error", err)
	}
	writeJSON(w, r, status, map[string]string{"error": err.Error()})
}
