package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/guggeis/chatrelay/internal/output"
	"github.com/guggeis/chatrelay/internal/persona"
)

var (
	personaShowFormat string
	personaShowFile   string
)

var personaCmd = &cobra.Command{
	Use:   "persona",
	Short: "Inspect the assistant persona",
}

var personaShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the persona the relay sends upstream",
	Long: `Show the active persona. Without --file the configured upstream.persona_file
is used, falling back to the embedded default.

Formats: table, markdown, json, yaml (yaml prints the full system prompt).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := strings.TrimSpace(personaShowFile)
		if path == "" {
			path = loadConfig(cmd).Upstream.PersonaFile
		}

		p, err := persona.Resolve(path)
		if err != nil {
			return err
		}

		rendered, err := renderPersona(personaShowFormat, p)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return err
	},
}

var personaValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a persona file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := persona.LoadFile(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (slug=%s model=%s max_tokens=%d)\n", args[0], p.Slug, p.Model, p.MaxTokens)
		return err
	},
}

func renderPersona(format string, p *persona.Persona) (string, error) {
	if strings.EqualFold(strings.TrimSpace(format), "yaml") {
		data, err := yaml.Marshal(p)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(data), "\n"), nil
	}

	parsed, err := output.ParseFormat(format)
	if err != nil {
		return "", err
	}
	return output.Persona(parsed, p)
}

func init() {
	personaShowCmd.Flags().StringVar(&personaShowFormat, "output-format", string(output.FormatTable), "Output format: table|markdown|json|yaml")
	personaShowCmd.Flags().StringVar(&personaShowFile, "file", "", "Persona file to show instead of the configured one")

	personaCmd.AddCommand(personaShowCmd)
	personaCmd.AddCommand(personaValidateCmd)
	rootCmd.AddCommand(personaCmd)
}
