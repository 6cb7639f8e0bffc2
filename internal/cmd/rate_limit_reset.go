package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/namelens/reachlens/internal/output"
)

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset [server]",
	Short: "Reset stored rate limit state",
	Long:  "Reset the stored state of one WHOIS server, or of every server with --all.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := adminFormat(cmd)
		if err != nil {
			return err
		}
		all, err := cmd.Flags().GetBool("all")
		if err != nil {
			return err
		}
		yes, err := cmd.Flags().GetBool("yes")
		if err != nil {
			return err
		}
		dryRun, err := cmd.Flags().GetBool("dry-run")
		if err != nil {
			return err
		}

		server := serverArg(args)
		switch {
		case server == "" && !all:
			return errors.New("name a server or pass --all")
		case server != "" && all:
			return errors.New("a server name and --all are mutually exclusive")
		case all && !yes && !dryRun:
			return errors.New("--all requires --yes (or use --dry-run)")
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

		entries, err := db.ListRateLimits(cmd.Context(), server)
		if err != nil {
			return storeError(cmd.Context(), err, "failed to list rate limits")
		}

		sink, err := openCommandSink(cmd, format, "rate-limit.reset")
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		if dryRun {
			return writeRateLimitResetResult(format, sink.writer, len(entries), 0, true)
		}

		deleted, err := db.ResetRateLimits(cmd.Context(), server)
		if err != nil {
			return storeError(cmd.Context(), err, "failed to reset rate limits")
		}
		return writeRateLimitResetResult(format, sink.writer, len(entries), deleted, false)
	},
}

func writeRateLimitResetResult(format output.Format, w io.Writer, matched int, deleted int64, dryRun bool) error {
	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(map[string]any{
			"matched": matched,
			"deleted": deleted,
			"dry_run": dryRun,
		}, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	if dryRun {
		_, err := fmt.Fprintf(w, "Would delete %d rate limit entr(ies)\n", matched)
		return err
	}
	_, err := fmt.Fprintf(w, "Deleted %d/%d rate limit entr(ies)\n", deleted, matched)
	return err
}

func init() {
	rateLimitResetCmd.Flags().Bool("all", false, "Reset every server")
	rateLimitResetCmd.Flags().Bool("yes", false, "Confirm destructive reset")
	rateLimitResetCmd.Flags().Bool("dry-run", false, "Show what would be deleted")
	rateLimitResetCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json")
	addSinkFlags(rateLimitResetCmd)
}
