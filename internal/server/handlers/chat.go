package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/guggeis/chatrelay/internal/errors"
	"github.com/guggeis/chatrelay/internal/metrics"
	"github.com/guggeis/chatrelay/internal/observability"
	"github.com/guggeis/chatrelay/internal/relay"
)

// DefaultMaxBodyBytes caps inbound chat bodies.
const DefaultMaxBodyBytes int64 = 64 << 10

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

var errMissingCredential = errors.New("ANTHROPIC_API_KEY not configured")

// RateLimiter decides whether a client may send another message.
type RateLimiter interface {
	Check(ctx context.Context, clientID string) (relay.Decision, error)
}

// Replier produces the assistant's answer to one message.
type Replier interface {
	Reply(ctx context.Context, message string) (string, error)
	FallbackContact() string
}

// ChatResponse is the success body of POST /api/chat.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ChatHandler serves POST /api/chat.
type ChatHandler struct {
	Limiter   RateLimiter
	Assistant Replier

	// HasCredential reports whether an upstream API key is configured.
	HasCredential func() bool

	// UpstreamTimeout bounds the upstream call; zero means the request context only.
	UpstreamTimeout time.Duration
	MaxBodyBytes    int64
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := relay.ClientID(r)

	decision, err := h.Limiter.Check(ctx, clientID)
	if err != nil {
		metrics.RecordRateLimitDecision(metrics.DecisionFailOpen)
		if observability.ServerLogger != nil {
			observability.ServerLogger.Warn("Rate limit store unavailable, allowing request",
				zap.String("client_id", clientID),
				zap.Error(err))
		}
	}
	setRateLimitHeaders(w, decision)

	if !decision.Allowed {
		metrics.RecordRateLimitDecision(metrics.DecisionDenied)
		respondWithError(w, r, apperrors.NewRateLimitedError(ctx, clientID))
		return
	}
	if err == nil {
		metrics.RecordRateLimitDecision(metrics.DecisionAllowed)
	}

	body, err := h.readBody(w, r)
	if err != nil {
		respondWithError(w, r, apperrors.WrapInvalidJSON(ctx, err))
		return
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidJSON(ctx, err))
		return
	}

	message, ok := relay.ChatMessage(payload)
	if !ok {
		respondWithError(w, r, apperrors.NewInvalidMessageError(ctx))
		return
	}

	if h.HasCredential == nil || !h.HasCredential() {
		respondWithError(w, r, apperrors.WrapConfigError(ctx, errMissingCredential))
		return
	}

	upstreamCtx := ctx
	if h.UpstreamTimeout > 0 {
		var cancel context.CancelFunc
		upstreamCtx, cancel = context.WithTimeout(ctx, h.UpstreamTimeout)
		defer cancel()
	}

	reply, err := h.Assistant.Reply(upstreamCtx, message)
	if err != nil {
		respondWithError(w, r, apperrors.WrapAPIError(ctx, err, h.Assistant.FallbackContact()))
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Reply: reply})
}

func (h *ChatHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	return io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
}

func setRateLimitHeaders(w http.ResponseWriter, d relay.Decision) {
	h := w.Header()
	h.Set(HeaderRateLimitLimit, strconv.Itoa(d.Limit))
	h.Set(HeaderRateLimitRemaining, strconv.Itoa(d.Remaining))
	h.Set(HeaderRateLimitReset, strconv.FormatInt(resetSeconds(d.ResetAt), 10))
}

// resetSeconds rounds t up to whole unix seconds.
func resetSeconds(t time.Time) int64 {
	ms := t.UnixMilli()
	sec := ms / 1000
	if ms%1000 > 0 {
		sec++
	}
	return sec
}
