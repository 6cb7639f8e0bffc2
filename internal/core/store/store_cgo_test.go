//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/namelens/reachlens/internal/config"
	"github.com/namelens/reachlens/internal/core"
)

func openMemoryStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenMemoryStore(t *testing.T) {
	ctx := context.Background()
	cfg := config.StoreConfig{
		Driver: "libsql",
		Path:   ":memory:",
	}

	store, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, store)
	require.Equal(t, "libsql", store.Driver())
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Close())
}

func TestWhoisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	store.Clock = func() time.Time { return now }

	missing, err := store.GetWhoisRecord(ctx, "example.com")
	require.NoError(t, err)
	require.Nil(t, missing)

	record := &core.WhoisLookupRecord{
		Server:         "whois.verisign-grs.com",
		Record:         "Registry Expiry Date: 2030-08-13T04:00:00Z",
		ExpirationDate: "13-aug-2030",
		Registrar:      "Example Registrar, Inc.",
		Source:         "whois",
		QueryTimeout:   5 * time.Second,
	}
	require.NoError(t, store.SetWhoisRecord(ctx, "Example.COM.", record, time.Hour))

	cached, err := store.GetWhoisRecord(ctx, "example.com")
	require.NoError(t, err)
	require.NotNil(t, cached)
	require.Equal(t, record.ExpirationDate, cached.ExpirationDate)
	require.Equal(t, record.Server, cached.Server)
	require.Equal(t, 5*time.Second, cached.QueryTimeout)

	now = now.Add(2 * time.Hour)
	expired, err := store.GetWhoisRecord(ctx, "example.com")
	require.NoError(t, err)
	require.Nil(t, expired)

	purged, err := store.PurgeWhoisCache(ctx, false)
	require.NoError(t, err)
	require.Equal(t, int64(1), purged)
}

func TestWhoisCacheZeroTTLIsNoop(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	require.NoError(t, store.SetWhoisRecord(ctx, "example.com", &core.WhoisLookupRecord{Record: "x"}, 0))
	cached, err := store.GetWhoisRecord(ctx, "example.com")
	require.NoError(t, err)
	require.Nil(t, cached)
}

func TestRateLimitPersistence(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	backoff := start.Add(time.Minute)
	require.NoError(t, store.UpdateRateLimit(ctx, "whois.nic.io", &core.RateLimitState{
		RequestCount: 3,
		WindowStart:  start,
		BackoffUntil: &backoff,
		LastRefusal:  &start,
	}))
	require.NoError(t, store.UpdateRateLimit(ctx, "whois.denic.de", &core.RateLimitState{RequestCount: 1, WindowStart: start}))

	state, err := store.GetRateLimit(ctx, "whois.nic.io")
	require.NoError(t, err)
	require.Equal(t, 3, state.RequestCount)
	require.True(t, state.WindowStart.Equal(start))
	require.NotNil(t, state.BackoffUntil)
	require.True(t, state.BackoffUntil.Equal(backoff))

	entries, err := store.ListRateLimits(ctx, "")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "whois.denic.de", entries[0].Server)
	require.Nil(t, entries[0].State.BackoffUntil)

	removed, err := store.ResetRateLimits(ctx, "whois.nic.io")
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	state, err = store.GetRateLimit(ctx, "whois.nic.io")
	require.NoError(t, err)
	require.Nil(t, state)
}
