package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/namelens/reachlens/internal/core"
)

// Mode selects which resolution a batch runs for every subject.
type Mode string

const (
	ModeAvailability Mode = "availability"
	ModeSyntax       Mode = "syntax"
	ModeReputation   Mode = "reputation"
)

// ParseMode normalizes a batch mode name.
func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case "", ModeAvailability:
		return ModeAvailability, nil
	case ModeSyntax:
		return ModeSyntax, nil
	case ModeReputation:
		return ModeReputation, nil
	}
	return "", fmt.Errorf("unknown batch mode %q", value)
}

// BatchItem is one resolved subject. Status is nil when Err is set.
type BatchItem struct {
	Index   int
	Subject string
	Status  *core.Status
	Err     error
}

// BatchOptions configures a batch run.
type BatchOptions struct {
	Mode        Mode
	Concurrency int
	// OnResult is called once per subject as soon as it resolves. Calls are
	// serialized.
	OnResult func(BatchItem)
}

type batchJob struct {
	index   int
	subject string
}

// RunBatch resolves subjects on a fixed pool of workers sharing r. Results
// are returned in input order. Per-subject contract errors are reported on
// the item; only cancellation aborts the run.
func (r *Resolver) RunBatch(ctx context.Context, subjects []string, opts BatchOptions) ([]BatchItem, error) {
	if len(subjects) == 0 {
		return nil, nil
	}

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(subjects) {
		concurrency = len(subjects)
	}

	items := make([]BatchItem, len(subjects))
	jobs := make(chan batchJob)

	var (
		wg       sync.WaitGroup
		reportMu sync.Mutex
	)

	worker := func() {
		defer wg.Done()
		for job := range jobs {
			if ctx.Err() != nil {
				return
			}
			st, err := r.ResolveMode(ctx, opts.Mode, job.subject)
			item := BatchItem{Index: job.index, Subject: job.subject, Status: st, Err: err}
			items[job.index] = item
			if opts.OnResult != nil {
				reportMu.Lock()
				opts.OnResult(item)
				reportMu.Unlock()
			}
		}
	}

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go worker()
	}

sendLoop:
	for i, subject := range subjects {
		select {
		case <-ctx.Done():
			break sendLoop
		case jobs <- batchJob{index: i, subject: subject}:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return items, err
	}
	return items, nil
}

// ResolveMode runs the resolution selected by mode.
func (r *Resolver) ResolveMode(ctx context.Context, mode Mode, subject string) (*core.Status, error) {
	switch mode {
	case ModeSyntax:
		return r.ResolveSyntax(subject)
	case ModeReputation:
		return r.ResolveReputation(ctx, subject)
	default:
		return r.Resolve(ctx, subject)
	}
}
