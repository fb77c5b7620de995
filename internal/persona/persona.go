// Package persona holds the fixed assistant persona sent with every upstream
// call: system prompt, model and output budget.
package persona

import (
	"fmt"
	"strings"
)

// Defaults applied when a persona file leaves fields unset.
const (
	DefaultModel     = "claude-3-5-haiku-20241022"
	DefaultMaxTokens = 300
)

// Persona describes the assistant the relay speaks as.
type Persona struct {
	Slug            string   `yaml:"slug" json:"slug"`
	Name            string   `yaml:"name,omitempty" json:"name,omitempty"`
	Model           string   `yaml:"model,omitempty" json:"model,omitempty"`
	MaxTokens       int      `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Temperature     *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	FallbackContact string   `yaml:"fallback_contact,omitempty" json:"fallback_contact,omitempty"`
	SystemPrompt    string   `yaml:"system_prompt,omitempty" json:"system_prompt,omitempty"`

	// Source is where the persona was loaded from.
	Source string `yaml:"-" json:"-"`
}

// Validate checks required fields.
func (p *Persona) Validate() error {
	if p == nil {
		return fmt.Errorf("persona is required")
	}
	if strings.TrimSpace(p.Slug) == "" {
		return fmt.Errorf("persona %s missing slug", p.Source)
	}
	if strings.TrimSpace(p.SystemPrompt) == "" {
		return fmt.Errorf("persona %s missing system prompt", p.Source)
	}
	if p.MaxTokens < 0 {
		return fmt.Errorf("persona %s has negative max_tokens", p.Source)
	}
	if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 1) {
		return fmt.Errorf("persona %s temperature must be within [0, 1]", p.Source)
	}
	return nil
}

func (p *Persona) applyDefaults() {
	if strings.TrimSpace(p.Model) == "" {
		p.Model = DefaultModel
	}
	if p.MaxTokens == 0 {
		p.MaxTokens = DefaultMaxTokens
	}
	p.SystemPrompt = strings.TrimSpace(p.SystemPrompt)
	p.FallbackContact = strings.TrimSpace(p.FallbackContact)
}
