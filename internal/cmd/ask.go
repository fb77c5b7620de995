package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/guggeis/chatrelay/internal/observability"
	"github.com/guggeis/chatrelay/internal/relay"
)

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send one message upstream with the configured persona",
	Long: `Send a single message through the same persona and upstream client the
server uses, bypassing CORS and rate limiting. Useful for checking prompts.

Example:
  chatrelay ask "Was sind deine Ziele fuer Straubing?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := strings.Join(args, " ")
		if _, ok := relay.ChatMessage(map[string]any{"message": message}); !ok {
			return fmt.Errorf("message must be 1-%d characters", relay.MaxMessageChars)
		}

		cfg := loadConfig(cmd)
		if !cfg.Upstream.HasCredential() {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "No upstream API key configured", errors.New("set ANTHROPIC_API_KEY or CHATRELAY_UPSTREAM_API_KEY"))
		}

		assistant, err := newAssistant(cfg, observability.CLILogger)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if cfg.Upstream.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Upstream.Timeout)
			defer cancel()
		}

		reply, err := assistant.Reply(ctx, message)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), reply)
		return err
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
