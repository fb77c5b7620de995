// Package metrics records relay counters and timings on the global telemetry
// system. Every recorder is a no-op while telemetry is disabled.
package metrics

import (
	"strconv"
	"time"

	"github.com/guggeis/chatrelay/internal/observability"
)

// Metric names
const (
	RateLimitDecisionsTotal = "chat_rate_limit_decisions_total"
	UpstreamRequestsTotal   = "chat_upstream_requests_total"
	UpstreamDuration        = "chat_upstream_duration_ms"

	ErrorsTotal        = "errors_total"
	ErrorsByEndpoint   = "errors_by_endpoint"
	PanicsTotal        = "panics_total"
	HealthCheckTotal   = "app_health_check_total"
	HealthCheckLatency = "app_health_check_duration_ms"
	ServerStartTime    = "app_server_start_time_seconds"
)

// Rate limit decision labels
const (
	DecisionAllowed  = "allowed"
	DecisionDenied   = "denied"
	DecisionFailOpen = "fail_open"
)

type labels = map[string]string

func count(name string, tags labels) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Counter(name, 1, tags)
	}
}

func observe(name string, d time.Duration, tags labels) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Histogram(name, d, tags)
	}
}

// RecordRateLimitDecision counts one limiter outcome.
func RecordRateLimitDecision(decision string) {
	count(RateLimitDecisionsTotal, labels{"decision": decision})
}

// RecordUpstreamRequest records an upstream completion call. status is
// "success", "empty", "error" or the provider HTTP status code.
func RecordUpstreamRequest(provider string, status string, duration time.Duration) {
	count(UpstreamRequestsTotal, labels{"provider": provider, "status": status})
	observe(UpstreamDuration, duration, labels{"provider": provider})
}

// RecordError counts an error response by code and HTTP status.
func RecordError(code string, httpStatus int) {
	count(ErrorsTotal, labels{"error_code": code, "http_status": strconv.Itoa(httpStatus)})
}

// RecordErrorByEndpoint counts an error response by route pattern.
func RecordErrorByEndpoint(endpoint string, code string) {
	count(ErrorsByEndpoint, labels{"endpoint": endpoint, "error_code": code})
}

func RecordPanic() {
	count(PanicsTotal, nil)
}

// RecordHealthCheck records one checker run.
func RecordHealthCheck(check string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	count(HealthCheckTotal, labels{"check": check, "status": status})
	observe(HealthCheckLatency, duration, labels{"check": check})
}

// SetServerStartTime publishes the unix start time of the serve process.
func SetServerStartTime(unix int64) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Gauge(ServerStartTime, float64(unix), nil)
	}
}
