package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/namelens/reachlens/internal/core"
	"github.com/namelens/reachlens/internal/core/engine"
	"github.com/namelens/reachlens/internal/output"
)

var checkCmd = &cobra.Command{
	Use:   "check <subject>...",
	Short: "Check whether subjects are reachable",
	Long: `Resolve the availability of domains, subdomains, IPs, IP ranges and URLs.

Strategies run in the order given by lookup.priority (or --profile) until one
of them concludes; subjects nothing concludes on are INACTIVE.`,
	Args: cobra.MinimumNArgs(1),
	RunE: resolveCommand(engine.ModeAvailability),
}

var syntaxCmd = &cobra.Command{
	Use:   "syntax <subject>...",
	Short: "Check whether subjects are syntactically valid",
	Args:  cobra.MinimumNArgs(1),
	RunE:  resolveCommand(engine.ModeSyntax),
}

var reputationCmd = &cobra.Command{
	Use:   "reputation <subject>...",
	Short: "Classify subjects as SANE or MALICIOUS",
	Long:  "Classify subjects with the reputation service configured under reputation.url.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  resolveCommand(engine.ModeReputation),
}

func init() {
	for _, c := range []*cobra.Command{checkCmd, syntaxCmd, reputationCmd} {
		rootCmd.AddCommand(c)
		addOutputFlags(c)
	}
}

func resolveCommand(mode engine.Mode) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		wanted, err := resolveStatusFilter(cmd)
		if err != nil {
			return err
		}
		subjects, err := resolveSubjects(args, "")
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		set, err := newResolverSet(ctx, cfg)
		if err != nil {
			return err
		}
		defer set.Close() // nolint:errcheck // best-effort cleanup

		resolver, err := set.Resolver("")
		if err != nil {
			return err
		}

		items, err := resolver.RunBatch(ctx, subjects, engine.BatchOptions{
			Mode:        mode,
			Concurrency: cfg.Workers,
		})
		if err != nil {
			return err
		}
		statuses, err := collectStatuses(items)
		if err != nil {
			return err
		}

		sink, err := openCommandSink(cmd, format, string(mode))
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		rendered, err := output.NewFormatter(format).FormatStatuses(output.FilterStatuses(statuses, wanted))
		if err != nil {
			return err
		}
		return writeRendered(sink.writer, rendered)
	}
}

// collectStatuses returns the statuses of items, failing on the first
// subject that could not be resolved.
func collectStatuses(items []engine.BatchItem) ([]*core.Status, error) {
	statuses := make([]*core.Status, 0, len(items))
	for _, item := range items {
		if item.Err != nil {
			return nil, fmt.Errorf("%s: %w", item.Subject, item.Err)
		}
		if item.Status != nil {
			statuses = append(statuses, item.Status)
		}
	}
	return statuses, nil
}

func writeRendered(w io.Writer, rendered string) error {
	if rendered == "" {
		return nil
	}
	if !strings.HasSuffix(rendered, "\n") {
		rendered += "\n"
	}
	_, err := io.WriteString(w, rendered)
	return err
}
