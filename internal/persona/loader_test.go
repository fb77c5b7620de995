package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultPersona(t *testing.T) {
	p, err := Default()
	require.NoError(t, err)
	require.Equal(t, "julian-guggeis", p.Slug)
	require.Equal(t, DefaultModel, p.Model)
	require.Equal(t, 300, p.MaxTokens)
	require.Equal(t, "info@guggeis-it.de", p.FallbackContact)
	require.Contains(t, p.SystemPrompt, "Du bist Julian Guggeis")
	require.Contains(t, p.SystemPrompt, "ich-Form")
	require.NotContains(t, p.SystemPrompt, "---")
}

func TestLoadFrontmatterBody(t *testing.T) {
	data := []byte("---\nslug: test\nmax_tokens: 50\n---\nYou are a test.\nKeep it short.\n")

	p, err := Load("test.md", data)
	require.NoError(t, err)
	require.Equal(t, "test", p.Slug)
	require.Equal(t, 50, p.MaxTokens)
	require.Equal(t, DefaultModel, p.Model)
	require.Equal(t, "You are a test.\nKeep it short.", p.SystemPrompt)
	require.Equal(t, "test.md", p.Source)
}

func TestLoadPlainYAML(t *testing.T) {
	data := []byte("slug: yaml-only\nmodel: custom-model\nsystem_prompt: |\n  Inline prompt.\n")

	p, err := Load("persona.yaml", data)
	require.NoError(t, err)
	require.Equal(t, "custom-model", p.Model)
	require.Equal(t, "Inline prompt.", p.SystemPrompt)
}

func TestLoadRejectsInvalidPersonas(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"empty", "", "empty persona"},
		{"missing slug", "---\nmodel: x\n---\nprompt", "missing slug"},
		{"missing prompt", "---\nslug: x\n---\n", "missing system prompt"},
		{"bad temperature", "---\nslug: x\ntemperature: 1.5\n---\nprompt", "temperature"},
		{"bad yaml", "---\nslug: [x\n---\nprompt", "invalid frontmatter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.name, []byte(tt.data))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestResolve(t *testing.T) {
	t.Run("EmptyPathUsesDefault", func(t *testing.T) {
		p, err := Resolve("")
		require.NoError(t, err)
		require.Equal(t, "julian-guggeis", p.Slug)
	})

	t.Run("FileOverride", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.md")
		require.NoError(t, os.WriteFile(path, []byte("---\nslug: custom\nfallback_contact: team@example.org\n---\nCustom prompt."), 0o600))

		p, err := Resolve(path)
		require.NoError(t, err)
		require.Equal(t, "custom", p.Slug)
		require.Equal(t, "team@example.org", p.FallbackContact)
		require.Equal(t, path, p.Source)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Resolve(filepath.Join(t.TempDir(), "missing.md"))
		require.Error(t, err)
	})
}
