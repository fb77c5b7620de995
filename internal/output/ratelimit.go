package output

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/guggeis/chatrelay/internal/relay"
)

// ResetResult summarizes a rate-limit reset.
type ResetResult struct {
	Matched int   `json:"matched"`
	Deleted int64 `json:"deleted"`
	DryRun  bool  `json:"dry_run"`
}

// RateLimits renders stored rate windows. limit is the configured budget used
// for the remaining column.
func RateLimits(format Format, states []relay.WindowState, limit int) (string, error) {
	if format == FormatJSON {
		return renderJSON(states)
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Client", "Count", "Remaining", "Window Start", "Expires"})

	for _, s := range states {
		if s.Invalid {
			t.AppendRow(table.Row{s.Client, "-", "-", "(unreadable)", formatTime(s.ExpiresAt)})
			continue
		}
		remaining := limit - s.Count
		if remaining < 0 {
			remaining = 0
		}
		start := s.WindowStart
		t.AppendRow(table.Row{s.Client, s.Count, remaining, formatTime(&start), formatTime(s.ExpiresAt)})
	}

	t.AppendFooter(table.Row{fmt.Sprintf("%d client(s)", len(states)), "", "", "", ""})
	return render(format, t), nil
}

// Reset renders the outcome of a reset.
func Reset(format Format, result ResetResult) (string, error) {
	if format == FormatJSON {
		return renderJSON(result)
	}
	if result.DryRun {
		return fmt.Sprintf("Would delete %d rate limit entr(ies)", result.Matched), nil
	}
	return fmt.Sprintf("Deleted %d/%d rate limit entr(ies)", result.Deleted, result.Matched), nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
