// Package anthropic implements the Messages API driver.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/guggeis/chatrelay/internal/llm/driver"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	messagesPath   = "/v1/messages"
	apiVersion     = "2023-06-01"
	providerName   = "anthropic"
)

// Client calls the Messages API over plain HTTP. It holds the API key so
// callers never pass credentials per request.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	// Timeout bounds a single call. Zero relies on the caller's context.
	Timeout time.Duration
}

// NewClient returns a client for baseURL, or the public endpoint when empty.
func NewClient(baseURL, apiKey string) *Client {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{BaseURL: base, APIKey: strings.TrimSpace(apiKey)}
}

func (c *Client) Name() string {
	return providerName
}

// Complete sends one stateless Messages request.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("anthropic client not configured")
	}
	if c.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	payload, err := buildMessagesRequest(req)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	trace := driver.TraceEntry{
		Driver:      providerName,
		Endpoint:    c.endpoint(),
		Model:       payload.Model,
		RequestBody: body,
	}
	status, respBody, err := c.post(ctx, body, &trace)
	driver.Trace(trace)
	if err != nil {
		return nil, err
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, &driver.ProviderError{
			Provider:    providerName,
			StatusCode:  status,
			Message:     errorMessage(respBody),
			RawResponse: respBody,
		}
	}

	var parsed messagesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return toDriverResponse(&parsed)
}

func (c *Client) endpoint() string {
	return strings.TrimRight(c.BaseURL, "/") + messagesPath
}

// post performs the HTTP exchange and fills the status, response and timing
// fields of trace.
func (c *Client) post(ctx context.Context, body []byte, trace *driver.TraceEntry) (int, []byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, trace.Endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.APIKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	trace.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		trace.Error = err.Error()
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	trace.StatusCode = resp.StatusCode
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		trace.Error = err.Error()
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	if json.Valid(respBody) {
		trace.Response = respBody
	} else {
		trace.Error = strings.TrimSpace(string(respBody))
	}
	return resp.StatusCode, respBody, nil
}

// errorMessage pulls error.message out of an API error body, falling back to
// the raw text.
func errorMessage(body []byte) string {
	var apiErr struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		if apiErr.Error.Type != "" {
			return apiErr.Error.Type + ": " + apiErr.Error.Message
		}
		return apiErr.Error.Message
	}
	return strings.TrimSpace(string(body))
}
