package driver

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// TraceEntry is one upstream exchange written as a single NDJSON line.
type TraceEntry struct {
	Timestamp   time.Time       `json:"timestamp"`
	Driver      string          `json:"driver"`
	Endpoint    string          `json:"endpoint"`
	Model       string          `json:"model,omitempty"`
	RequestBody json.RawMessage `json:"request_body,omitempty"`
	StatusCode  int             `json:"status_code,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"`
	Error       string          `json:"error,omitempty"`
	DurationMs  int64           `json:"duration_ms"`
}

// Tracer serializes trace entries to an underlying writer.
type Tracer struct {
	w  io.WriteCloser
	mu sync.Mutex
}

var (
	activeTracer *Tracer
	tracerMu     sync.Mutex
)

// NewTracer wraps w. Closing the tracer closes w.
func NewTracer(w io.WriteCloser) *Tracer {
	return &Tracer{w: w}
}

// EnableTracing starts tracing upstream calls to the file at path.
// The returned cleanup closes the file and disables tracing.
func EnableTracing(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	SetTracer(NewTracer(f))
	return func() { SetTracer(nil) }, nil
}

// SetTracer installs t as the process-wide tracer, closing any previous one.
// A nil tracer disables tracing.
func SetTracer(t *Tracer) {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	if activeTracer != nil {
		_ = activeTracer.Close()
	}
	activeTracer = t
}

// IsTracingEnabled reports whether a tracer is installed.
func IsTracingEnabled() bool {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	return activeTracer != nil
}

// Trace records entry if tracing is enabled.
func Trace(entry TraceEntry) {
	tracerMu.Lock()
	t := activeTracer
	tracerMu.Unlock()

	if t == nil {
		return
	}
	t.Write(entry)
}

// Write appends entry as one JSON line.
func (t *Tracer) Write(entry TraceEntry) {
	if t == nil || t.w == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = t.w.Write(data)
}

// Close closes the underlying writer.
func (t *Tracer) Close() error {
	if t == nil || t.w == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.w.Close()
}
