package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/guggeis/chatrelay/internal/observability"
)

// statusRecorder captures the status code and body size written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int64
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.size += int64(n)
	return n, err
}

// knownEndpoints label unrouted requests to paths the relay serves. Anything
// else collapses into "/unknown" to keep label cardinality bounded.
var knownEndpoints = map[string]string{
	"/api/chat": "/api/chat",
	"/version":  "/version",
	"/metrics":  "/metrics",
}

// EndpointPattern returns the chi route pattern for r, or a fixed bucket for
// unrouted paths.
func EndpointPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	if known, ok := knownEndpoints[r.URL.Path]; ok {
		return known
	}
	if r.URL.Path == "/health" || strings.HasPrefix(r.URL.Path, "/health/") {
		return "/health/*"
	}
	return "/unknown"
}

type completedRequest struct {
	Method       string
	Path         string
	Endpoint     string
	Status       int
	Duration     time.Duration
	RequestSize  int64
	ResponseSize int64
	Origin       string
	RequestID    string
}

var logRequest = func(req completedRequest) {
	log := observability.ServerLogger
	if log == nil {
		return
	}
	log.Info("HTTP request completed",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.String("endpoint", req.Endpoint),
		zap.Int("status", req.Status),
		zap.Duration("duration", req.Duration),
		zap.Int64("request_size", req.RequestSize),
		zap.Int64("response_size", req.ResponseSize),
		zap.String("origin", req.Origin),
		zap.String("request_id", req.RequestID),
	)
}

// RequestMetrics logs every request on completion and, while telemetry is
// enabled, emits http_requests_total, http_request_duration_ms,
// http_response_size_bytes and http_errors_total.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		endpoint := EndpointPattern(r)
		emitRequestMetrics(r.Method, endpoint, rec, elapsed)

		logRequest(completedRequest{
			Method:       r.Method,
			Path:         r.URL.Path,
			Endpoint:     endpoint,
			Status:       rec.status,
			Duration:     elapsed,
			RequestSize:  r.ContentLength,
			ResponseSize: rec.size,
			Origin:       r.Header.Get("Origin"),
			RequestID:    GetRequestID(r.Context()),
		})
	})
}

func emitRequestMetrics(method, endpoint string, rec *statusRecorder, elapsed time.Duration) {
	sys := observability.TelemetrySystem
	if sys == nil {
		return
	}

	status := strconv.Itoa(rec.status)
	tags := map[string]string{"method": method, "endpoint": endpoint, "status": status}

	_ = sys.Counter("http_requests_total", 1, tags)
	_ = sys.Histogram("http_request_duration_ms", elapsed, tags)
	_ = sys.Gauge("http_response_size_bytes", float64(rec.size),
		map[string]string{"method": method, "endpoint": endpoint})

	if rec.status >= http.StatusBadRequest {
		class := "client_error"
		if rec.status >= http.StatusInternalServerError {
			class = "server_error"
		}
		_ = sys.Counter("http_errors_total", 1, map[string]string{
			"method":     method,
			"endpoint":   endpoint,
			"status":     status,
			"error_type": class,
		})
	}
}
