package handlers

import (
	"context"
	"fmt"

	"github.com/guggeis/chatrelay/internal/observability"
)

// Pinger is satisfied by the store backends.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker reports the rate-limit store unhealthy when it cannot be reached.
type StoreChecker struct {
	Store Pinger
}

func (c StoreChecker) CheckHealth(ctx context.Context) error {
	if c.Store == nil {
		return fmt.Errorf("store not configured")
	}
	return c.Store.Ping(ctx)
}

// TelemetryChecker reports degraded when metrics are not being collected.
type TelemetryChecker struct{}

func (TelemetryChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil {
		return fmt.Errorf("telemetry not initialized: %w", ErrDegraded)
	}
	return nil
}

// CredentialChecker reports degraded when no upstream API key is configured;
// chat requests then fail with CONFIG_ERROR while the rest of the service works.
type CredentialChecker struct {
	Configured func() bool
}

func (c CredentialChecker) CheckHealth(ctx context.Context) error {
	if c.Configured == nil || !c.Configured() {
		return fmt.Errorf("upstream credential missing: %w", ErrDegraded)
	}
	return nil
}
