package cmd

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guggeis/chatrelay/internal/config"
	"github.com/guggeis/chatrelay/internal/output"
	"github.com/guggeis/chatrelay/internal/persona"
	"github.com/guggeis/chatrelay/internal/store"
)

func TestValidateResetFlags(t *testing.T) {
	tests := []struct {
		name    string
		all     bool
		client  string
		prefix  string
		yes     bool
		dryRun  bool
		wantErr string
	}{
		{name: "NoSelector", wantErr: "must specify"},
		{name: "Client", client: "203.0.113.9"},
		{name: "Prefix", prefix: "10."},
		{name: "AllWithoutYes", all: true, wantErr: "requires --yes"},
		{name: "AllWithYes", all: true, yes: true},
		{name: "AllDryRun", all: true, dryRun: true},
		{name: "TwoSelectors", client: "a", prefix: "b", wantErr: "mutually exclusive"},
		{name: "BlankClient", client: "  ", wantErr: "must specify"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResetFlags(tt.all, tt.client, tt.prefix, tt.yes, tt.dryRun)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRateLimitQuery(t *testing.T) {
	assert.Equal(t, store.KeyQuery{Prefix: "rate:"}, rateLimitQuery("", "", false))
	assert.Equal(t, store.KeyQuery{Prefix: "rate:"}, rateLimitQuery("ignored", "", true))
	assert.Equal(t, store.KeyQuery{Key: "rate:203.0.113.9"}, rateLimitQuery(" 203.0.113.9 ", "", false))
	assert.Equal(t, store.KeyQuery{Prefix: "rate:10."}, rateLimitQuery("", "10.", false))
}

func TestResolveOutputPath(t *testing.T) {
	path, err := resolveOutputPath("", "", "rate-limit.list", output.FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = resolveOutputPath("out.txt", "", "rate-limit.list", output.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "out.txt", path)

	dir := t.TempDir()
	path, err = resolveOutputPath("", dir, "rate-limit.list", output.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rate-limit.list.json"), path)

	_, err = resolveOutputPath("a", dir, "x", output.FormatTable)
	require.Error(t, err)
}

func TestRestartRequired(t *testing.T) {
	cur := &config.Config{
		Server:    config.ServerConfig{Host: "localhost", Port: 8080},
		RateLimit: config.RateLimitConfig{Requests: 100, WindowMinutes: 1},
		Upstream:  config.UpstreamConfig{APIKey: "a"},
	}
	next := *cur
	assert.Empty(t, restartRequired(cur, &next))

	next.RateLimit.Requests = 5
	next.Upstream.APIKey = "b"
	next.Store.Driver = store.DriverMemory
	assert.Equal(t, []string{"rate_limit.requests", "upstream.api_key", "store"}, restartRequired(cur, &next))
}

func TestRenderPersona(t *testing.T) {
	p := &persona.Persona{Slug: "julian-guggeis", Model: "m", MaxTokens: 300, SystemPrompt: "Hallo Straubing"}

	rendered, err := renderPersona("yaml", p)
	require.NoError(t, err)
	assert.Contains(t, rendered, "slug: julian-guggeis")
	assert.Contains(t, rendered, "system_prompt: Hallo Straubing")

	rendered, err = renderPersona("json", p)
	require.NoError(t, err)
	assert.Contains(t, rendered, `"slug": "julian-guggeis"`)

	_, err = renderPersona("csv", p)
	require.Error(t, err)
}

func TestWiringUsesConfig(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "0.0.0.0", Port: 9000, ReadTimeout: time.Second, AdminToken: "secret", PublicOnly: true},
		CORS: config.CORSConfig{
			AllowedOrigin: "https://julian.guggeis.org",
			DomainSuffix:  ".guggeis.org",
			DevOrigins:    []string{"http://localhost:3000"},
		},
		RateLimit: config.RateLimitConfig{Requests: 7, WindowMinutes: 2},
		Upstream:  config.UpstreamConfig{BaseURL: "http://upstream.test", Timeout: 3 * time.Second},
	}

	assistant, err := newAssistant(cfg, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, assistant.Persona.Slug)
	assert.Equal(t, "anthropic", assistant.Driver.Name())

	kv := store.NewMemory()
	chat := newChatHandler(cfg, kv, assistant)
	assert.False(t, chat.HasCredential())
	assert.Equal(t, 3*time.Second, chat.UpstreamTimeout)

	limiter := newLimiter(cfg, kv)
	assert.Equal(t, 7, limiter.MaxRequests)
	assert.Equal(t, 2*time.Minute, limiter.Window)

	opts := newServerOptions(cfg, chat, nil, assistant.Persona.Slug)
	assert.Equal(t, "0.0.0.0", opts.Host)
	assert.Equal(t, 9000, opts.Port)
	assert.Equal(t, "secret", opts.AdminToken)
	assert.True(t, opts.PublicOnly)
	assert.Equal(t, ".guggeis.org", opts.CORS.DomainSuffix)
	assert.Equal(t, []string{"http://localhost:3000"}, opts.CORS.DevOrigins)
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.0.0", "abc", "today")
	t.Cleanup(func() { extended = false })

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	require.NoError(t, versionCmd.RunE(versionCmd, nil))
	assert.Equal(t, "chatrelay 1.0.0\n", buf.String())

	buf.Reset()
	extended = true
	require.NoError(t, versionCmd.RunE(versionCmd, nil))
	assert.Contains(t, buf.String(), "Commit: abc")
	assert.Contains(t, buf.String(), "Gofulmen:")
}
