package driver

import (
	"context"
	"errors"

	"github.com/guggeis/chatrelay/internal/llm/content"
)

// ErrEmptyResponse is returned when the provider answers successfully but
// without any content segments.
var ErrEmptyResponse = errors.New("empty response from provider")

// Driver defines the interface for chat completion providers.
type Driver interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Name returns the driver identifier (e.g., "anthropic").
	Name() string
}

// Usage contains token usage statistics.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model       string
	System      string
	Messages    []content.Message
	Temperature *float64
	MaxTokens   *int
}

// Response is a provider-agnostic completion response.
type Response struct {
	Content    []content.ContentBlock
	StopReason string
	Usage      *Usage
}
