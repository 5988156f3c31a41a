// internal/gateway/middleware.go
package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/meridianledger/meridian-go/pkg/logging"
	"github.com/meridianledger/meridian-go/pkg/metrics"
)

// MetricsMiddleware creates middleware that records request metrics.
func MetricsMiddleware(metricsCollector *metrics.Metrics, serviceName string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			metricsCollector.RequestInFlight.WithLabelValues(serviceName).Inc()
			defer metricsCollector.RequestInFlight.WithLabelValues(serviceName).Dec()

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			metricsCollector.RecordRequest(serviceName, r.Method, r.URL.Path, status, duration)
		})
	}
}

// LoggingMiddleware creates middleware that logs requests using structured
// logging.
func LoggingMiddleware(logger *logging.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			requestID := middleware.GetReqID(r.Context())

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			fields := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration_ms", duration.Milliseconds(),
				"request_id", requestID,
			}

			switch {
			case status >= 500:
				logger.Error("Request completed with server error", fields...)
			case status >= 400:
				logger.Warn("Request completed with client error", fields...)
			default:
				logger.Info("Request completed", fields...)
			}
		})
	}
}
