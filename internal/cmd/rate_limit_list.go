package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/namelens/reachlens/internal/core/store"
	"github.com/namelens/reachlens/internal/output"
)

var rateLimitListCmd = &cobra.Command{
	Use:   "list [server]",
	Short: "List stored rate limit state",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := adminFormat(cmd)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		entries, err := db.ListRateLimits(cmd.Context(), serverArg(args))
		if err != nil {
			return storeError(cmd.Context(), err, "failed to list rate limits")
		}

		sink, err := openCommandSink(cmd, format, "rate-limit.list")
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		if format == output.FormatJSON {
			payload, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(sink.writer, string(payload))
			return err
		}

		_, err = fmt.Fprint(sink.writer, ascii.DrawBox(rateLimitLines(entries), 0))
		return err
	},
}

func rateLimitLines(entries []store.RateLimitEntry) string {
	lines := []string{"Rate Limits", ""}
	if len(entries) == 0 {
		lines = append(lines, "(no stored rate limit state)")
		return strings.Join(lines, "\n")
	}

	for _, entry := range entries {
		backoff := "-"
		if entry.State.BackoffUntil != nil {
			backoff = entry.State.BackoffUntil.UTC().Format(time.RFC3339)
		}
		lines = append(lines, fmt.Sprintf("%s: count=%d window_start=%s backoff_until=%s",
			entry.Server,
			entry.State.RequestCount,
			entry.State.WindowStart.UTC().Format(time.RFC3339),
			backoff))
	}
	return strings.Join(lines, "\n")
}

func init() {
	rateLimitListCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json")
	addSinkFlags(rateLimitListCmd)
}
