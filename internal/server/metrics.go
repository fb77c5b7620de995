package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/guggeis/chatrelay/internal/errors"
	"github.com/guggeis/chatrelay/internal/observability"
)

// DefaultMetricsPort is scraped when the exporter has not reported its port.
const DefaultMetricsPort = 9090

const prometheusContentType = "text/plain; version=0.0.4"

var metricsProxyClient = &http.Client{Timeout: 5 * time.Second}

var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

func exporterURL() string {
	port := observability.GetMetricsPort()
	if port == 0 {
		port = DefaultMetricsPort
	}
	return fmt.Sprintf("http://127.0.0.1:%d/metrics", port)
}

// MetricsHandler serves /metrics by proxying the loopback Prometheus exporter.
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if observability.PrometheusExporter == nil {
		HandleError(w, r, apperrors.WrapServiceUnavailable(ctx, errors.New("metrics exporter not initialized")))
		return
	}

	target := exporterURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		HandleError(w, r, apperrors.WrapInternal(ctx, fmt.Errorf("build metrics request for %s: %w", target, err)))
		return
	}
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := metricsProxyClient.Do(req)
	if err != nil {
		HandleError(w, r, apperrors.WrapServiceUnavailable(ctx, fmt.Errorf("prometheus exporter at %s: %w", target, err)))
		return
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	for key, values := range resp.Header {
		if _, skip := hopByHopHeaders[http.CanonicalHeaderKey(key)]; skip {
			continue
		}
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", prometheusContentType)
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to write metrics response", zap.Error(err))
	}
}
