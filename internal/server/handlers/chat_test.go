package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guggeis/chatrelay/internal/relay"
)

type stubLimiter struct {
	decision relay.Decision
	err      error
	clientID string
}

func (s *stubLimiter) Check(ctx context.Context, clientID string) (relay.Decision, error) {
	s.clientID = clientID
	return s.decision, s.err
}

type stubReplier struct {
	reply    string
	err      error
	called   bool
	message  string
	deadline bool
}

func (s *stubReplier) Reply(ctx context.Context, message string) (string, error) {
	s.called = true
	s.message = message
	_, s.deadline = ctx.Deadline()
	return s.reply, s.err
}

func (s *stubReplier) FallbackContact() string { return "kontakt@example.org" }

var resetAt = time.UnixMilli(1_700_000_060_500)

func allowAll() *stubLimiter {
	return &stubLimiter{decision: relay.Decision{Allowed: true, Limit: 100, Remaining: 99, ResetAt: resetAt}}
}

func newChatHandler(limiter RateLimiter, replier Replier) *ChatHandler {
	return &ChatHandler{
		Limiter:       limiter,
		Assistant:     replier,
		HasCredential: func() bool { return true },
	}
}

func postChat(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("CF-Connecting-IP", "203.0.113.7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestChatHandlerSuccess(t *testing.T) {
	limiter := allowAll()
	replier := &stubReplier{reply: "Hallo! Ich bin Julian."}
	h := newChatHandler(limiter, replier)
	h.UpstreamTimeout = time.Second

	rec := postChat(t, h, `{"message":"Wer bist du?"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"reply": "Hallo! Ich bin Julian."}, decodeBody(t, rec))
	assert.Equal(t, "203.0.113.7", limiter.clientID)
	assert.Equal(t, "Wer bist du?", replier.message)
	assert.True(t, replier.deadline)

	assert.Equal(t, "100", rec.Header().Get(HeaderRateLimitLimit))
	assert.Equal(t, "99", rec.Header().Get(HeaderRateLimitRemaining))
	assert.Equal(t, "1700000061", rec.Header().Get(HeaderRateLimitReset))
}

func TestChatHandlerRateLimited(t *testing.T) {
	limiter := &stubLimiter{decision: relay.Decision{Allowed: false, Limit: 5, Remaining: 0, ResetAt: resetAt}}
	replier := &stubReplier{}

	rec := postChat(t, newChatHandler(limiter, replier), `{"message":"Hallo"}`)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, map[string]string{"error": "Zu viele Anfragen. Bitte warte kurz.", "code": "RATE_LIMITED"}, decodeBody(t, rec))
	assert.Equal(t, "5", rec.Header().Get(HeaderRateLimitLimit))
	assert.Equal(t, "0", rec.Header().Get(HeaderRateLimitRemaining))
	assert.False(t, replier.called)
}

func TestChatHandlerStoreFailureFailsOpen(t *testing.T) {
	limiter := allowAll()
	limiter.err = errors.New("store down")
	replier := &stubReplier{reply: "ok"}

	rec := postChat(t, newChatHandler(limiter, replier), `{"message":"Hallo"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, replier.called)
	assert.Equal(t, "99", rec.Header().Get(HeaderRateLimitRemaining))
}

func TestChatHandlerRejectsBadBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"NotJSON", `hallo`, "INVALID_JSON"},
		{"Empty", ``, "INVALID_JSON"},
		{"TrailingGarbage", `{"message":"a"} x`, "INVALID_JSON"},
		{"MissingMessage", `{"text":"a"}`, "INVALID_MESSAGE"},
		{"EmptyMessage", `{"message":""}`, "INVALID_MESSAGE"},
		{"TooLong", `{"message":"` + strings.Repeat("x", 1001) + `"}`, "INVALID_MESSAGE"},
		{"WrongType", `{"message":["a"]}`, "INVALID_MESSAGE"},
		{"NotObject", `[1,2]`, "INVALID_MESSAGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			replier := &stubReplier{}
			rec := postChat(t, newChatHandler(allowAll(), replier), tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decodeBody(t, rec)["code"])
			assert.Equal(t, "99", rec.Header().Get(HeaderRateLimitRemaining))
			assert.False(t, replier.called)
		})
	}
}

func TestChatHandlerBodyTooLarge(t *testing.T) {
	h := newChatHandler(allowAll(), &stubReplier{})
	h.MaxBodyBytes = 32

	rec := postChat(t, h, `{"message":"`+strings.Repeat("x", 64)+`"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_JSON", decodeBody(t, rec)["code"])
}

func TestChatHandlerMissingCredential(t *testing.T) {
	replier := &stubReplier{}
	h := newChatHandler(allowAll(), replier)
	h.HasCredential = func() bool { return false }

	rec := postChat(t, h, `{"message":"Hallo"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]string{"error": "Server-Konfigurationsfehler", "code": "CONFIG_ERROR"}, decodeBody(t, rec))
	assert.False(t, replier.called)
}

func TestChatHandlerUpstreamFailure(t *testing.T) {
	replier := &stubReplier{err: errors.New("anthropic request failed: status 500")}

	rec := postChat(t, newChatHandler(allowAll(), replier), `{"message":"Hallo"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]string{
		"error": "Sorry, da ist etwas schiefgelaufen. Probier es nochmal oder schreib mir direkt an kontakt@example.org",
		"code":  "API_ERROR",
	}, decodeBody(t, rec))
	assert.Equal(t, "99", rec.Header().Get(HeaderRateLimitRemaining))
}

func TestResetSecondsRoundsUp(t *testing.T) {
	assert.Equal(t, int64(1_700_000_000), resetSeconds(time.UnixMilli(1_700_000_000_000)))
	assert.Equal(t, int64(1_700_000_001), resetSeconds(time.UnixMilli(1_700_000_000_001)))
	assert.Equal(t, int64(1_700_000_001), resetSeconds(time.UnixMilli(1_700_000_000_999)))
}
