package middleware

import (
	"net/http"
	"time"

	"markethub_api/metrics"
)

// responseWriter wraps http.ResponseWriter to capture the response code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// PrometheusMiddleware wraps an HTTP handler with request metrics collection.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		metrics.RecordRequest(r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}
