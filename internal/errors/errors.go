// Package errors builds gofulmen error envelopes for the relay's failure
// modes and renders them as the flat {"error","code"} JSON body the chat
// widget expects.
package errors

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/guggeis/chatrelay/internal/metrics"
	"github.com/guggeis/chatrelay/internal/observability"
	"github.com/guggeis/chatrelay/internal/server/middleware"
)

// Error codes returned to clients.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInvalidJSON        = "INVALID_JSON"
	CodeInvalidMessage     = "INVALID_MESSAGE"
	CodeConfigError        = "CONFIG_ERROR"
	CodeAPIError           = "API_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternalError      = "INTERNAL_ERROR"
)

// User-facing messages.
const (
	MessageNotFound           = "Not found"
	MessageRateLimited        = "Zu viele Anfragen. Bitte warte kurz."
	MessageInvalidJSON        = "Ungueltige Anfrage"
	MessageInvalidMessage     = "Nachricht fehlt oder ist zu lang (max 1000 Zeichen)"
	MessageConfigError        = "Server-Konfigurationsfehler"
	MessageAPIErrorPrefix     = "Sorry, da ist etwas schiefgelaufen. Probier es nochmal oder schreib mir direkt an "
	MessageServiceUnavailable = "Der Dienst ist gerade nicht verfuegbar. Bitte versuche es spaeter nochmal."
	MessageInternalError      = "Sorry, da ist etwas schiefgelaufen."

	// DefaultContact is used when no persona contact is configured.
	DefaultContact = "info@guggeis-it.de"
)

func NewNotFoundError(ctx context.Context) *errors.ErrorEnvelope {
	return newEnvelope(ctx, CodeNotFound, MessageNotFound, nil)
}

func NewRateLimitedError(ctx context.Context, clientID string) *errors.ErrorEnvelope {
	env := newEnvelope(ctx, CodeRateLimited, MessageRateLimited, nil)
	env, _ = env.WithSeverity(errors.SeverityMedium)
	return withContext(env, map[string]interface{}{"client_id": clientID})
}

func WrapInvalidJSON(ctx context.Context, err error) *errors.ErrorEnvelope {
	return newEnvelope(ctx, CodeInvalidJSON, MessageInvalidJSON, err)
}

func NewInvalidMessageError(ctx context.Context) *errors.ErrorEnvelope {
	return newEnvelope(ctx, CodeInvalidMessage, MessageInvalidMessage, nil)
}

func WrapConfigError(ctx context.Context, err error) *errors.ErrorEnvelope {
	env := newEnvelope(ctx, CodeConfigError, MessageConfigError, err)
	env, _ = env.WithSeverity(errors.SeverityCritical)
	return env
}

// WrapAPIError reports an upstream failure; contact is appended to the message.
func WrapAPIError(ctx context.Context, err error, contact string) *errors.ErrorEnvelope {
	if contact == "" {
		contact = DefaultContact
	}
	env := newEnvelope(ctx, CodeAPIError, MessageAPIErrorPrefix+contact, err)
	env, _ = env.WithSeverity(errors.SeverityHigh)
	return env
}

func WrapServiceUnavailable(ctx context.Context, err error) *errors.ErrorEnvelope {
	env := newEnvelope(ctx, CodeServiceUnavailable, MessageServiceUnavailable, err)
	env, _ = env.WithSeverity(errors.SeverityHigh)
	return env
}

func WrapInternal(ctx context.Context, err error) *errors.ErrorEnvelope {
	env := newEnvelope(ctx, CodeInternalError, MessageInternalError, err)
	env, _ = env.WithSeverity(errors.SeverityHigh)
	return env
}

func newEnvelope(ctx context.Context, code, message string, err error) *errors.ErrorEnvelope {
	envelope := errors.NewErrorEnvelope(code, message)
	envelope = envelope.WithCorrelationID(extractCorrelationID(ctx))
	envelope = envelope.WithTraceID(extractTraceID(ctx))
	return withWrappedError(envelope, err)
}

// extractCorrelationID gets correlation ID from context, falls back to generating new UUID
func extractCorrelationID(ctx context.Context) string {
	if ctx != nil {
		if requestID := middleware.GetRequestID(ctx); requestID != "" {
			return requestID
		}
	}
	return uuid.New().String()
}

// extractTraceID uses the correlation ID until a tracing system is wired in.
func extractTraceID(ctx context.Context) string {
	return extractCorrelationID(ctx)
}

// EnsureEnvelope normalizes any error into a gofulmen ErrorEnvelope.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	if err == nil {
		env := errors.NewErrorEnvelope(CodeInternalError, MessageInternalError)
		env, _ = env.WithSeverity(errors.SeverityCritical)
		return env
	}

	if envelope, ok := err.(*errors.ErrorEnvelope); ok && envelope != nil {
		return envelope
	}

	env := errors.NewErrorEnvelope(CodeInternalError, MessageInternalError)
	env = withWrappedError(env, err)
	env, _ = env.WithSeverity(errors.SeverityHigh)
	return env
}

// EnsureCorrelationID attaches a correlation ID to the envelope using the context when available.
func EnsureCorrelationID(envelope *errors.ErrorEnvelope, ctx context.Context) *errors.ErrorEnvelope {
	if envelope == nil {
		return nil
	}

	if envelope.CorrelationID != "" {
		return envelope
	}

	var correlationID string
	if ctx != nil {
		correlationID = middleware.GetRequestID(ctx)
	}

	if correlationID == "" {
		correlationID = "fallback-" + errors.GenerateCorrelationID()
	}

	return envelope.WithCorrelationID(correlationID)
}

// HTTPStatusFromEnvelope resolves the HTTP status code corresponding to an error envelope.
func HTTPStatusFromEnvelope(envelope *errors.ErrorEnvelope) int {
	if envelope == nil {
		return http.StatusInternalServerError
	}
	return HTTPStatusFromCode(envelope.Code)
}

// HTTPStatusFromCode resolves the HTTP status code corresponding to an error code.
func HTTPStatusFromCode(code string) int {
	switch code {
	case CodeInvalidJSON, CodeInvalidMessage:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func withWrappedError(envelope *errors.ErrorEnvelope, err error) *errors.ErrorEnvelope {
	if envelope == nil || err == nil {
		return envelope
	}
	return withContext(envelope, map[string]interface{}{
		"wrapped_error": err.Error(),
	})
}

func withContext(envelope *errors.ErrorEnvelope, values map[string]interface{}) *errors.ErrorEnvelope {
	merged := make(map[string]interface{}, len(envelope.Context)+len(values))
	for key, value := range envelope.Context {
		merged[key] = value
	}
	for key, value := range values {
		merged[key] = value
	}

	updated, err := envelope.WithContext(merged)
	if err != nil {
		return envelope
	}
	return updated
}

// HTTPErrorResponse is the body returned for every failed request. Envelope
// context stays in the logs.
type HTTPErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RespondWithError normalizes the supplied error and writes a JSON response.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	RespondWithEnvelope(w, r, EnsureEnvelope(err))
}

// RespondWithEnvelope finalizes the provided envelope, logging and emitting metrics.
func RespondWithEnvelope(w http.ResponseWriter, r *http.Request, envelope *errors.ErrorEnvelope) {
	if w == nil {
		return
	}

	if r != nil {
		envelope = EnsureCorrelationID(envelope, r.Context())
	} else {
		envelope = EnsureCorrelationID(envelope, nil)
	}
	if envelope == nil {
		envelope = EnsureEnvelope(nil)
	}

	statusCode := HTTPStatusFromEnvelope(envelope)

	logHTTPError(envelope, statusCode)
	emitErrorMetrics(r, envelope, statusCode)

	WriteJSON(w, statusCode, HTTPErrorResponse{
		Error: envelope.Message,
		Code:  envelope.Code,
	})
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func logHTTPError(envelope *errors.ErrorEnvelope, statusCode int) {
	if observability.ServerLogger == nil || envelope == nil {
		return
	}

	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.Int("http_status", statusCode),
	}

	if envelope.Severity != "" {
		fields = append(fields, zap.String("severity", string(envelope.Severity)))
	}

	for key, value := range envelope.Context {
		fields = append(fields, zap.Any(key, value))
	}

	if envelope.CorrelationID != "" {
		fields = append(fields, zap.String("request_id", envelope.CorrelationID))
	}

	switch envelope.Severity {
	case errors.SeverityCritical, errors.SeverityHigh:
		observability.ServerLogger.Error(envelope.Message, fields...)
	case errors.SeverityMedium:
		observability.ServerLogger.Warn(envelope.Message, fields...)
	default:
		observability.ServerLogger.Info(envelope.Message, fields...)
	}
}

func emitErrorMetrics(r *http.Request, envelope *errors.ErrorEnvelope, statusCode int) {
	if envelope == nil {
		return
	}

	metrics.RecordError(envelope.Code, statusCode)
	if r != nil {
		metrics.RecordErrorByEndpoint(middleware.EndpointPattern(r), envelope.Code)
	}
}
