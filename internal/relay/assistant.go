package relay

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/guggeis/chatrelay/internal/llm/content"
	"github.com/guggeis/chatrelay/internal/llm/driver"
	"github.com/guggeis/chatrelay/internal/metrics"
	"github.com/guggeis/chatrelay/internal/persona"
)

// maxLoggedBody caps how much of an upstream error body is logged.
const maxLoggedBody = 4096

// Assistant answers single chat messages as a fixed persona. It keeps no
// conversation history.
type Assistant struct {
	Driver  driver.Driver
	Persona *persona.Persona
	Logger  *logging.Logger
}

// Reply sends message to the upstream provider and returns the text of the
// first content segment.
func (a *Assistant) Reply(ctx context.Context, message string) (string, error) {
	if a == nil || a.Driver == nil {
		return "", fmt.Errorf("assistant driver not configured")
	}
	if a.Persona == nil {
		return "", fmt.Errorf("assistant persona not configured")
	}

	maxTokens := a.Persona.MaxTokens
	req := &driver.Request{
		Model:       a.Persona.Model,
		System:      a.Persona.SystemPrompt,
		Messages:    []content.Message{content.UserText(message)},
		Temperature: a.Persona.Temperature,
		MaxTokens:   &maxTokens,
	}

	start := time.Now()
	resp, err := a.Driver.Complete(ctx, req)
	duration := time.Since(start)
	provider := a.Driver.Name()

	if err != nil {
		metrics.RecordUpstreamRequest(provider, upstreamStatus(err), duration)
		a.logFailure(provider, err, duration)
		return "", err
	}

	if resp == nil || len(resp.Content) == 0 {
		metrics.RecordUpstreamRequest(provider, "empty", duration)
		a.logFailure(provider, driver.ErrEmptyResponse, duration)
		return "", driver.ErrEmptyResponse
	}

	metrics.RecordUpstreamRequest(provider, "success", duration)
	if a.Logger != nil {
		fields := []zap.Field{
			zap.String("provider", provider),
			zap.String("model", a.Persona.Model),
			zap.Duration("duration", duration),
			zap.String("stop_reason", resp.StopReason),
		}
		if resp.Usage != nil {
			fields = append(fields,
				zap.Int("input_tokens", resp.Usage.InputTokens),
				zap.Int("output_tokens", resp.Usage.OutputTokens),
			)
		}
		a.Logger.Debug("Upstream completion succeeded", fields...)
	}

	return resp.Content[0].Text, nil
}

// FallbackContact returns the address offered to users when the upstream fails.
func (a *Assistant) FallbackContact() string {
	if a == nil || a.Persona == nil {
		return ""
	}
	return a.Persona.FallbackContact
}

func (a *Assistant) logFailure(provider string, err error, duration time.Duration) {
	if a.Logger == nil {
		return
	}

	fields := []zap.Field{
		zap.String("provider", provider),
		zap.Duration("duration", duration),
		zap.Error(err),
	}

	var providerErr *driver.ProviderError
	if errors.As(err, &providerErr) {
		body := providerErr.RawResponse
		if len(body) > maxLoggedBody {
			body = body[:maxLoggedBody]
		}
		fields = append(fields,
			zap.Int("status", providerErr.StatusCode),
			zap.ByteString("body", body),
		)
	}

	a.Logger.Error("Upstream completion failed", fields...)
}

func upstreamStatus(err error) string {
	var providerErr *driver.ProviderError
	if errors.As(err, &providerErr) && providerErr.StatusCode > 0 {
		return strconv.Itoa(providerErr.StatusCode)
	}
	if errors.Is(err, driver.ErrEmptyResponse) {
		return "empty"
	}
	return "error"
}
