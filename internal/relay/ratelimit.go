package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/guggeis/chatrelay/internal/store"
)

// KeyPrefix namespaces rate windows in the key-value store.
const KeyPrefix = "rate:"

const (
	defaultMaxRequests = 100
	defaultWindow      = time.Minute
)

// RateWindow is the persisted per-client counter.
type RateWindow struct {
	Count int `json:"count"`
	// WindowStart is unix milliseconds.
	WindowStart int64 `json:"windowStart"`
}

// Decision is the outcome of a limiter check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter enforces a fixed-window request budget per client. Each check
// performs one read and at most one write; concurrent checks for the same
// client are not serialized.
type Limiter struct {
	Store       store.KV
	MaxRequests int
	Window      time.Duration
	Clock       func() time.Time
}

// RateKey returns the store key for a client identifier.
func RateKey(clientID string) string {
	return KeyPrefix + clientID
}

// Check records a request for clientID and reports whether it may proceed.
// On store failure the returned decision allows the request and err is set.
func (l *Limiter) Check(ctx context.Context, clientID string) (Decision, error) {
	now := l.now()
	limit := l.maxRequests()
	window := l.window()

	failOpen := Decision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - 1,
		ResetAt:   now.Add(window),
	}
	if l == nil || l.Store == nil {
		return failOpen, fmt.Errorf("rate limit store not configured")
	}

	key := RateKey(clientID)
	raw, ok, err := l.Store.Get(ctx, key)
	if err != nil {
		return failOpen, fmt.Errorf("read rate window: %w", err)
	}

	var current RateWindow
	if ok && json.Unmarshal(raw, &current) != nil {
		ok = false
	}

	nowMs := now.UnixMilli()
	if !ok || nowMs-current.WindowStart > window.Milliseconds() {
		next := RateWindow{Count: 1, WindowStart: nowMs}
		if err := l.put(ctx, key, next, window); err != nil {
			return failOpen, err
		}
		return Decision{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - 1,
			ResetAt:   now.Add(window),
		}, nil
	}

	resetAt := time.UnixMilli(current.WindowStart).Add(window)
	if current.Count >= limit {
		return Decision{
			Allowed:   false,
			Limit:     limit,
			Remaining: 0,
			ResetAt:   resetAt,
		}, nil
	}

	next := RateWindow{Count: current.Count + 1, WindowStart: current.WindowStart}
	if err := l.put(ctx, key, next, window); err != nil {
		return failOpen, err
	}

	return Decision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - current.Count - 1,
		ResetAt:   resetAt,
	}, nil
}

func (l *Limiter) put(ctx context.Context, key string, w RateWindow, ttl time.Duration) error {
	payload, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode rate window: %w", err)
	}
	if err := l.Store.Put(ctx, key, payload, ttl); err != nil {
		return fmt.Errorf("write rate window: %w", err)
	}
	return nil
}

func (l *Limiter) maxRequests() int {
	if l == nil || l.MaxRequests <= 0 {
		return defaultMaxRequests
	}
	return l.MaxRequests
}

func (l *Limiter) window() time.Duration {
	if l == nil || l.Window <= 0 {
		return defaultWindow
	}
	return l.Window
}

func (l *Limiter) now() time.Time {
	if l != nil && l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}
