package middleware

import (
	"net/http"
	"strings"
)

// CORS headers sent on every response.
const (
	corsAllowMethods = "POST, OPTIONS"
	corsAllowHeaders = "Content-Type"
	corsMaxAge       = "86400"
)

// CORSPolicy decides which Origin values are echoed back.
type CORSPolicy struct {
	// AllowedOrigin is always allowed and is the value sent to disallowed origins.
	AllowedOrigin string
	// DomainSuffix allows any origin ending in it. Empty disables suffix matching.
	DomainSuffix string
	// DevOrigins are allowed verbatim.
	DevOrigins []string
}

// Allows reports whether origin may read responses.
func (p CORSPolicy) Allows(origin string) bool {
	if origin == "" {
		return false
	}
	if origin == p.AllowedOrigin {
		return true
	}
	for _, dev := range p.DevOrigins {
		if origin == dev {
			return true
		}
	}
	return p.DomainSuffix != "" && strings.HasSuffix(origin, p.DomainSuffix)
}

// AllowOrigin returns the Access-Control-Allow-Origin value for origin.
func (p CORSPolicy) AllowOrigin(origin string) string {
	if p.Allows(origin) {
		return origin
	}
	return p.AllowedOrigin
}

// CORS sets the CORS headers on every response and answers preflight
// requests on any path with 204.
func CORS(policy CORSPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", policy.AllowOrigin(r.Header.Get("Origin")))
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Max-Age", corsMaxAge)
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
