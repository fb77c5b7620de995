package output

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/guggeis/chatrelay/internal/persona"
)

// Persona renders the persona settings. The system prompt is listed by length
// only; use JSON output for the full text.
func Persona(format Format, p *persona.Persona) (string, error) {
	if format == FormatJSON {
		return renderJSON(p)
	}

	temperature := "-"
	if p.Temperature != nil {
		temperature = strconv.FormatFloat(*p.Temperature, 'f', -1, 64)
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"slug", p.Slug},
		{"name", p.Name},
		{"model", p.Model},
		{"max_tokens", p.MaxTokens},
		{"temperature", temperature},
		{"fallback_contact", p.FallbackContact},
		{"system_prompt", strconv.Itoa(len([]rune(p.SystemPrompt))) + " chars"},
		{"source", p.Source},
	})
	return render(format, t), nil
}
