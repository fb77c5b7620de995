package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guggeis/chatrelay/internal/output"
)

var (
	rateLimitResetAll    bool
	rateLimitResetClient string
	rateLimitResetPrefix string
	rateLimitResetYes    bool
	rateLimitResetDryRun bool
	rateLimitResetOutput string
	rateLimitResetOut    string
	rateLimitResetOutDir string
)

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete stored rate windows so clients start a fresh window",
	Long: `Delete stored rate windows.

Examples:
  chatrelay rate-limit reset --client 203.0.113.9
  chatrelay rate-limit reset --prefix 10. --dry-run
  chatrelay rate-limit reset --all --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(rateLimitResetOutput)
		if err != nil {
			return err
		}

		if err := validateResetFlags(rateLimitResetAll, rateLimitResetClient, rateLimitResetPrefix, rateLimitResetYes, rateLimitResetDryRun); err != nil {
			return err
		}

		outPath, err := resolveOutputPath(rateLimitResetOut, rateLimitResetOutDir, "rate-limit.reset", format)
		if err != nil {
			return err
		}

		cfg := loadConfig(cmd)
		db, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		query := rateLimitQuery(rateLimitResetClient, rateLimitResetPrefix, rateLimitResetAll)
		matched, err := db.Count(cmd.Context(), query)
		if err != nil {
			return err
		}

		result := output.ResetResult{Matched: matched, DryRun: rateLimitResetDryRun}
		if !rateLimitResetDryRun {
			result.Deleted, err = db.Delete(cmd.Context(), query)
			if err != nil {
				return err
			}
		}

		rendered, err := output.Reset(format, result)
		if err != nil {
			return err
		}
		return writeRendered(outPath, rendered)
	},
}

func validateResetFlags(all bool, client, prefix string, yes, dryRun bool) error {
	selectors := 0
	for _, set := range []bool{all, strings.TrimSpace(client) != "", strings.TrimSpace(prefix) != ""} {
		if set {
			selectors++
		}
	}

	switch {
	case selectors == 0:
		return errors.New("must specify --all, --client, or --prefix")
	case selectors > 1:
		return errors.New("--all, --client and --prefix are mutually exclusive")
	case all && !yes && !dryRun:
		return errors.New("--all requires --yes (or use --dry-run)")
	}
	return nil
}

func init() {
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetAll, "all", false, "Reset every client")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetClient, "client", "", "Reset a single client identifier (exact match)")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetPrefix, "prefix", "", "Reset clients whose identifier starts with prefix")
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetYes, "yes", false, "Confirm destructive reset")
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetDryRun, "dry-run", false, "Show what would be deleted")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetOutput, "output-format", string(output.FormatTable), "Output format: table|json")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetOut, "out", "", "Write output to a file (default stdout)")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetOutDir, "out-dir", "", "Write output to a directory")
}
