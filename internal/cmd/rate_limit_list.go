package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/guggeis/chatrelay/internal/output"
	"github.com/guggeis/chatrelay/internal/relay"
	"github.com/guggeis/chatrelay/internal/store"
)

var (
	rateLimitListOutput string
	rateLimitListOut    string
	rateLimitListOutDir string
	rateLimitListClient string
	rateLimitListPrefix string
)

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live rate windows",
	Long: `List the rate windows currently stored for clients.

Examples:
  chatrelay rate-limit list
  chatrelay rate-limit list --prefix 203.0.113.
  chatrelay rate-limit list --client unknown --output-format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(rateLimitListOutput)
		if err != nil {
			return err
		}

		outPath, err := resolveOutputPath(rateLimitListOut, rateLimitListOutDir, "rate-limit.list", format)
		if err != nil {
			return err
		}

		cfg := loadConfig(cmd)
		db, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		entries, err := db.List(cmd.Context(), rateLimitQuery(rateLimitListClient, rateLimitListPrefix, false))
		if err != nil {
			return err
		}

		rendered, err := output.RateLimits(format, relay.WindowStates(entries), cfg.RateLimit.Requests)
		if err != nil {
			return err
		}
		return writeRendered(outPath, rendered)
	},
}

// rateLimitQuery maps client-level flags onto store keys. With neither a
// client nor a prefix every rate window is selected.
func rateLimitQuery(client, prefix string, all bool) store.KeyQuery {
	client = strings.TrimSpace(client)
	prefix = strings.TrimSpace(prefix)

	switch {
	case all:
		return store.KeyQuery{Prefix: relay.KeyPrefix}
	case client != "":
		return store.KeyQuery{Key: relay.RateKey(client)}
	case prefix != "":
		return store.KeyQuery{Prefix: relay.KeyPrefix + prefix}
	default:
		return store.KeyQuery{Prefix: relay.KeyPrefix}
	}
}

func init() {
	rateLimitListCmd.Flags().StringVar(&rateLimitListOutput, "output-format", string(output.FormatTable), "Output format: table|markdown|json")
	rateLimitListCmd.Flags().StringVar(&rateLimitListOut, "out", "", "Write output to a file (default stdout)")
	rateLimitListCmd.Flags().StringVar(&rateLimitListOutDir, "out-dir", "", "Write output to a directory")
	rateLimitListCmd.Flags().StringVar(&rateLimitListClient, "client", "", "Show a single client identifier")
	rateLimitListCmd.Flags().StringVar(&rateLimitListPrefix, "prefix", "", "Show clients whose identifier starts with prefix")
}
