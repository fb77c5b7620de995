package persona

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed personas/*.md
var defaultPersonasFS embed.FS

const defaultPersonaFile = "personas/julian.md"

// Load parses a persona from markdown with YAML frontmatter. The markdown
// body becomes the system prompt unless the frontmatter sets system_prompt.
// Plain YAML without frontmatter markers is accepted too.
func Load(source string, data []byte) (*Persona, error) {
	p, body, err := parseYAMLWithFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("parse persona %s: %w", source, err)
	}
	p.Source = source

	if strings.TrimSpace(p.SystemPrompt) == "" {
		p.SystemPrompt = body
	}

	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadFile reads a persona from disk.
func LoadFile(path string) (*Persona, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- persona path is operator-provided
	if err != nil {
		return nil, fmt.Errorf("read persona %s: %w", path, err)
	}
	return Load(path, data)
}

// Default returns the embedded campaign persona.
func Default() (*Persona, error) {
	data, err := defaultPersonasFS.ReadFile(defaultPersonaFile)
	if err != nil {
		return nil, fmt.Errorf("read embedded persona: %w", err)
	}
	return Load("embedded:"+defaultPersonaFile, data)
}

// Resolve returns the persona at path, or the embedded default when path is empty.
func Resolve(path string) (*Persona, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	return LoadFile(path)
}

func parseYAMLWithFrontmatter(data []byte) (Persona, string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Persona{}, "", fmt.Errorf("empty persona")
	}

	lines := bufio.NewScanner(bytes.NewReader(trimmed))
	lines.Split(bufio.ScanLines)

	var (
		frontmatter []string
		body        []string
		inFront     bool
		headerSeen  bool
	)

	for lines.Scan() {
		line := lines.Text()
		switch {
		case !headerSeen && strings.TrimSpace(line) == "---":
			headerSeen = true
			inFront = true
		case headerSeen && inFront && strings.TrimSpace(line) == "---":
			inFront = false
		default:
			if inFront {
				frontmatter = append(frontmatter, line)
			} else {
				body = append(body, line)
			}
		}
	}
	if err := lines.Err(); err != nil {
		return Persona{}, "", err
	}

	var p Persona
	if headerSeen {
		if err := yaml.Unmarshal([]byte(strings.Join(frontmatter, "\n")), &p); err != nil {
			return Persona{}, "", fmt.Errorf("invalid frontmatter: %w", err)
		}
		return p, strings.Join(body, "\n"), nil
	}

	if err := yaml.Unmarshal(trimmed, &p); err != nil {
		return Persona{}, "", fmt.Errorf("invalid yaml: %w", err)
	}
	return p, "", nil
}
