package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/namelens/reachlens/internal/core"
)

func TestRunBatchKeepsInputOrder(t *testing.T) {
	records := map[string][]string{}
	subjects := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		subject := fmt.Sprintf("n%d.example.com", i)
		subjects = append(subjects, subject)
		if i%3 == 0 {
			records[subject+"/A"] = []string{"192.0.2.7"}
		}
	}
	subjects = append(subjects, "bad subject")

	opts := DefaultOptions()
	opts.Priority = []Strategy{StrategyDNS}
	resolver := newTestResolver(t, opts, Deps{DNS: &stubDNS{records: records}})

	seen := 0
	items, err := resolver.RunBatch(context.Background(), subjects, BatchOptions{
		Concurrency: 4,
		OnResult:    func(BatchItem) { seen++ },
	})
	require.NoError(t, err)
	require.Len(t, items, len(subjects))
	require.Equal(t, len(subjects), seen)

	for i, item := range items {
		require.Equal(t, i, item.Index)
		require.Equal(t, subjects[i], item.Subject)
		require.NoError(t, item.Err)
	}
	require.Equal(t, core.StatusActive, items[0].Status.Status)
	require.Equal(t, core.StatusInactive, items[1].Status.Status)
	require.Equal(t, core.StatusInvalid, items[len(items)-1].Status.Status)
}

func TestRunBatchModes(t *testing.T) {
	resolver := newTestResolver(t, DefaultOptions(), Deps{})

	items, err := resolver.RunBatch(context.Background(), []string{"example.com", "nope"}, BatchOptions{Mode: ModeSyntax})
	require.NoError(t, err)
	require.Equal(t, core.StatusValid, items[0].Status.Status)
	require.Equal(t, core.StatusInvalid, items[1].Status.Status)

	items, err = resolver.RunBatch(context.Background(), []string{"example.com"}, BatchOptions{Mode: ModeReputation})
	require.NoError(t, err)
	require.Equal(t, core.StatusSane, items[0].Status.Status)
}

func TestRunBatchReportsContractErrorsPerItem(t *testing.T) {
	resolver := newTestResolver(t, DefaultOptions(), Deps{})

	items, err := resolver.RunBatch(context.Background(), []string{" ", "example.com"}, BatchOptions{Mode: ModeSyntax, Concurrency: 2})
	require.NoError(t, err)
	require.ErrorIs(t, items[0].Err, core.ErrEmptySubject)
	require.Nil(t, items[0].Status)
	require.NotNil(t, items[1].Status)
}

func TestRunBatchCancelled(t *testing.T) {
	resolver := newTestResolver(t, DefaultOptions(), Deps{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := resolver.RunBatch(ctx, []string{"example.com", "example.org"}, BatchOptions{Mode: ModeSyntax})
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("")
	require.NoError(t, err)
	require.Equal(t, ModeAvailability, mode)

	mode, err = ParseMode("syntax")
	require.NoError(t, err)
	require.Equal(t, ModeSyntax, mode)

	_, err = ParseMode("vibes")
	require.Error(t, err)
}
