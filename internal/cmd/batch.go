package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"go.uber.org/zap"

	"github.com/namelens/reachlens/internal/core"
	"github.com/namelens/reachlens/internal/core/engine"
	"github.com/namelens/reachlens/internal/dedup"
	"github.com/namelens/reachlens/internal/metrics"
	"github.com/namelens/reachlens/internal/observability"
	"github.com/namelens/reachlens/internal/output"
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Check subjects read from a file",
	Long: `Read subjects from a file (one per line, "-" for stdin) and resolve them on
a pool of workers. Hosts-file lines such as "0.0.0.0 example.com" are accepted.
Repeated subjects are skipped unless --keep-duplicates is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addOutputFlags(batchCmd)

	batchCmd.Flags().String("mode", string(engine.ModeAvailability), "Resolution: availability, syntax, reputation")
	batchCmd.Flags().Int("concurrency", 0, "Concurrent workers (default: workers setting)")
	batchCmd.Flags().Bool("keep-duplicates", false, "Resolve repeated subjects again")
	batchCmd.Flags().Bool("no-progress", false, "Hide the progress bar")
	batchCmd.Flags().Bool("no-summary", false, "Do not print the batch summary")
}

func runBatch(cmd *cobra.Command, args []string) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	wanted, err := resolveStatusFilter(cmd)
	if err != nil {
		return err
	}
	modeValue, err := cmd.Flags().GetString("mode")
	if err != nil {
		return err
	}
	mode, err := engine.ParseMode(strings.ToLower(strings.TrimSpace(modeValue)))
	if err != nil {
		return err
	}
	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}
	if concurrency < 0 {
		return errors.New("concurrency must not be negative")
	}
	keepDuplicates, err := cmd.Flags().GetBool("keep-duplicates")
	if err != nil {
		return err
	}
	noProgress, err := cmd.Flags().GetBool("no-progress")
	if err != nil {
		return err
	}
	noSummary, err := cmd.Flags().GetBool("no-summary")
	if err != nil {
		return err
	}

	subjects, err := resolveSubjects(nil, args[0])
	if err != nil {
		return err
	}
	duplicates := 0
	if !keepDuplicates {
		subjects, duplicates = dedup.Unique(subjects, dedup.DefaultFalsePositiveRate)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency == 0 {
		concurrency = cfg.Workers
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

	observability.CLILogger.Debug("Starting batch",
		zap.String("mode", string(mode)),
		zap.Int("subjects", len(subjects)),
		zap.Int("duplicates", duplicates),
		zap.Int("concurrency", concurrency))

	summary := core.NewBatchSummary(time.Now().UTC())
	summary.Duplicates = duplicates

	progress, bar := newBatchProgress(len(subjects), string(mode), !noProgress)
	last := time.Now()
	items, runErr := resolver.RunBatch(ctx, subjects, engine.BatchOptions{
		Mode:        mode,
		Concurrency: concurrency,
		OnResult: func(item engine.BatchItem) {
			summary.Add(item.Status)
			if item.Err != nil {
				observability.CLILogger.Warn("Subject failed",
					zap.String("subject", item.Subject),
					zap.Error(item.Err))
			}
			if bar != nil {
				bar.EwmaIncrBy(1, time.Since(last))
				last = time.Now()
			}
		},
	})
	if bar != nil {
		bar.SetTotal(-1, true)
		progress.Wait()
	}
	summary.CompletedAt = time.Now().UTC()
	metrics.RecordBatch(summary)
	if runErr != nil {
		return runErr
	}

	statuses := make([]*core.Status, 0, len(items))
	for _, item := range items {
		if item.Status != nil {
			statuses = append(statuses, item.Status)
		}
	}

	sink, err := openCommandSink(cmd, format, "batch."+string(mode))
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	formatter := output.NewFormatter(format)
	rendered, err := formatter.FormatStatuses(output.FilterStatuses(statuses, wanted))
	if err != nil {
		return err
	}
	if err := writeRendered(sink.writer, rendered); err != nil {
		return err
	}

	if noSummary || format == output.FormatHosts {
		return nil
	}
	rendered, err = formatter.FormatSummary(summary)
	if err != nil {
		return err
	}
	// Machine-readable record streams get their summary on stderr.
	if format == output.FormatJSON || format == output.FormatPlain {
		_, err = fmt.Fprintln(os.Stderr, strings.TrimRight(rendered, "\n"))
		return err
	}
	return writeRendered(sink.writer, rendered)
}

func newBatchProgress(total int, name string, enabled bool) (*mpb.Progress, *mpb.Bar) {
	if !enabled || total == 0 {
		return nil, nil
	}
	progress := mpb.New(mpb.WithOutput(os.Stderr), mpb.WithWidth(40))
	bar := progress.AddBar(int64(total),
		mpb.BarRemoveOnComplete(),
		mpb.PrependDecorators(
			decor.Name(name, decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("[%d / %d]", decor.WCSyncWidth),
			decor.Percentage(decor.WCSyncSpace),
			decor.OnComplete(
				decor.EwmaETA(decor.ET_STYLE_GO, 30, decor.WCSyncSpace), "done",
			),
		),
	)
	return progress, bar
}
