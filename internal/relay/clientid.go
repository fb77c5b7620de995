package relay

import (
	"net/http"
	"strings"
)

// UnknownClient is the shared bucket for requests without identifying headers.
const UnknownClient = "unknown"

// ClientID derives the rate-limit partition key from proxy headers:
// CF-Connecting-IP, then the first X-Forwarded-For entry.
func ClientID(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return UnknownClient
}
