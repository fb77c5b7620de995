package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/guggeis/chatrelay/internal/llm/content"
	"github.com/guggeis/chatrelay/internal/llm/driver"
)

func userRequest(text string) *driver.Request {
	return &driver.Request{Model: "test-model", Messages: []content.Message{content.UserText(text)}}
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient("", "")
	_, err := client.Complete(context.Background(), userRequest("hi"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestClientRejectsSystemRoleTurn(t *testing.T) {
	client := NewClient("", "test-key")
	_, err := client.Complete(context.Background(), &driver.Request{
		Model:    "test-model",
		Messages: []content.Message{{Role: "system", Content: []content.ContentBlock{{Type: content.ContentTypeText, Text: "sys"}}}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported message role")
}

func TestClientSendsRequestAndParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Equal(t, "test-model", payload["model"])
		require.Equal(t, float64(120), payload["max_tokens"])
		require.Equal(t, "be brief", payload["system"])

		messages, ok := payload["messages"].([]any)
		require.True(t, ok)
		require.Len(t, messages, 1)
		first := messages[0].(map[string]any)
		require.Equal(t, "user", first["role"])
		require.Equal(t, "Servus!", first["content"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","content":[{"type":"text","text":"Hey, gute Frage!"}],"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":4}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	maxTokens := 120
	resp, err := client.Complete(context.Background(), &driver.Request{
		Model:     "test-model",
		System:    "be brief",
		Messages:  []content.Message{content.UserText("Servus!")},
		MaxTokens: &maxTokens,
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Equal(t, "end_turn", resp.StopReason)
	require.NotNil(t, resp.Usage)
	require.Equal(t, 4, resp.Usage.OutputTokens)
	require.Len(t, resp.Content, 1)
	require.Equal(t, content.ContentTypeText, resp.Content[0].Type)
	require.Equal(t, "Hey, gute Frage!", resp.Content[0].Text)
}

func TestClientDefaultsMaxTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, float64(defaultMaxTokens), payload["max_tokens"])
		_, hasSystem := payload["system"]
		require.False(t, hasSystem)
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"}],"stop_reason":"end_turn"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), userRequest("hi"))
	require.NoError(t, err)
}

func TestClientErrorsOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), userRequest("hi"))
	require.Error(t, err)

	var providerErr *driver.ProviderError
	require.True(t, errors.As(err, &providerErr))
	require.Equal(t, http.StatusUnauthorized, providerErr.StatusCode)
	require.Contains(t, err.Error(), "status 401")
	require.Contains(t, string(providerErr.RawResponse), "authentication_error")
}

func TestClientErrorsOnEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[],"stop_reason":"end_turn"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), userRequest("hi"))
	require.ErrorIs(t, err, driver.ErrEmptyResponse)
}

func TestClientErrorsOnMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), userRequest("hi"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestErrorMessage(t *testing.T) {
	require.Equal(t, "overloaded_error: Overloaded",
		errorMessage([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)))
	require.Equal(t, "bad gateway", errorMessage([]byte(" bad gateway \n")))
}
