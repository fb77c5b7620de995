package relay

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientID(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "CloudflareHeaderWins",
			headers: map[string]string{"CF-Connecting-IP": "1.1.1.1", "X-Forwarded-For": "2.2.2.2"},
			want:    "1.1.1.1",
		},
		{
			name:    "FirstForwardedEntry",
			headers: map[string]string{"X-Forwarded-For": " 2.2.2.2 , 3.3.3.3"},
			want:    "2.2.2.2",
		},
		{
			name:    "EmptyForwardedEntry",
			headers: map[string]string{"X-Forwarded-For": " ,3.3.3.3"},
			want:    UnknownClient,
		},
		{
			name: "NoHeaders",
			want: UnknownClient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/chat", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientID(req))
		})
	}
}
