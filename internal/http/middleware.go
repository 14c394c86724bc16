package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"loanpredictor/internal/logger"
)

// HTTPObserver receives one observation per served request
type HTTPObserver interface {
	ObserveHTTP(method string, status int, d time.Duration)
}

// RequestLogger logs each request once it completes
func RequestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			fields := map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status(ww),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"remote":      ClientIP(r),
			}
			if id := middleware.GetReqID(r.Context()); id != "" {
				fields["request_id"] = id
			}

			switch {
			case status(ww) >= 500:
				log.Error("request completed", fields)
			case status(ww) >= 400:
				log.Warn("request completed", fields)
			default:
				log.Info("request completed", fields)
			}
		})
	}
}

// Metrics reports every request to obs
func Metrics(obs HTTPObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			obs.ObserveHTTP(r.Method, status(ww), time.Since(start))
		})
	}
}

// status treats a handler that never called WriteHeader as 200
func status(ww middleware.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}
