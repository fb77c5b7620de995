package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testPolicy() CORSPolicy {
	return CORSPolicy{
		AllowedOrigin: "https://julian.guggeis.org",
		DomainSuffix:  ".guggeis.org",
		DevOrigins:    []string{"http://localhost:4321", "http://localhost:3000"},
	}
}

func TestCORSPolicyAllowOrigin(t *testing.T) {
	policy := testPolicy()

	tests := []struct {
		origin string
		want   string
	}{
		{"https://julian.guggeis.org", "https://julian.guggeis.org"},
		{"http://localhost:4321", "http://localhost:4321"},
		{"http://localhost:3000", "http://localhost:3000"},
		{"https://preview-123.guggeis.org", "https://preview-123.guggeis.org"},
		{"https://evil.example", "https://julian.guggeis.org"},
		{"http://localhost:8080", "https://julian.guggeis.org"},
		{"", "https://julian.guggeis.org"},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.AllowOrigin(tt.origin))
		})
	}
}

func TestCORSPolicyEmptySuffixDisablesMatching(t *testing.T) {
	policy := testPolicy()
	policy.DomainSuffix = ""
	assert.False(t, policy.Allows("https://preview.guggeis.org"))
}

func TestCORSSetsHeaders(t *testing.T) {
	called := false
	handler := CORS(testPolicy())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:4321")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, "http://localhost:4321", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
}

func TestCORSPreflightOnAnyPath(t *testing.T) {
	handler := CORS(testPolicy())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the handler")
	}))

	for _, path := range []string{"/api/chat", "/anything/else"} {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code, path)
		assert.Empty(t, rec.Body.String(), path)
		assert.Equal(t, "https://julian.guggeis.org", rec.Header().Get("Access-Control-Allow-Origin"), path)
	}
}
