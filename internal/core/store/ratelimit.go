package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/namelens/reachlens/internal/core"
)

// GetRateLimit returns stored rate limit state for a WHOIS server.
func (s *Store) GetRateLimit(ctx context.Context, server string) (*core.RateLimitState, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	server = strings.TrimSpace(server)
	if server == "" {
		return nil, errors.New("server is required")
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT server, request_count, window_start, backoff_until, last_refusal_at
		FROM rate_limits
		WHERE server = ?
	`, server)

	entry, err := scanRateLimit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch rate limit: %w", err)
	}
	return &entry.State, nil
}

// UpdateRateLimit persists rate limit state for a WHOIS server.
func (s *Store) UpdateRateLimit(ctx context.Context, server string, state *core.RateLimitState) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	server = strings.TrimSpace(server)
	if server == "" {
		return errors.New("server is required")
	}
	if state == nil {
		return errors.New("rate limit state is required")
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO rate_limits (server, request_count, window_start, backoff_until, last_refusal_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(server) DO UPDATE SET
			request_count = excluded.request_count,
			window_start = excluded.window_start,
			backoff_until = excluded.backoff_until,
			last_refusal_at = excluded.last_refusal_at
	`, server, state.RequestCount, state.WindowStart.UTC().Unix(), nullUnix(state.BackoffUntil), nullUnix(state.LastRefusal))
	if err != nil {
		return fmt.Errorf("store rate limit: %w", err)
	}

	return nil
}

// RateLimitEntry is one persisted rate limit row.
type RateLimitEntry struct {
	Server string              `json:"server"`
	State  core.RateLimitState `json:"state"`
}

// ListRateLimits returns every server with stored state, or only server
// when it is non-empty.
func (s *Store) ListRateLimits(ctx context.Context, server string) ([]RateLimitEntry, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args := rateLimitFilter(server)
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT server, request_count, window_start, backoff_until, last_refusal_at
		FROM rate_limits
		%s
		ORDER BY server
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list rate limits: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	entries := []RateLimitEntry{}
	for rows.Next() {
		entry, err := scanRateLimit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rate limits: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rate limits: %w", err)
	}

	return entries, nil
}

// ResetRateLimits deletes stored state for server, or for every server when
// server is empty.
func (s *Store) ResetRateLimits(ctx context.Context, server string) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args := rateLimitFilter(server)
	result, err := s.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM rate_limits %s`, where), args...)
	if err != nil {
		return 0, fmt.Errorf("reset rate limits: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset rate limits: %w", err)
	}
	return affected, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRateLimit(row rowScanner) (RateLimitEntry, error) {
	var (
		server       string
		requestCount int
		windowStart  int64
		backoffUntil sql.NullInt64
		lastRefusal  sql.NullInt64
	)
	if err := row.Scan(&server, &requestCount, &windowStart, &backoffUntil, &lastRefusal); err != nil {
		return RateLimitEntry{}, err
	}

	entry := RateLimitEntry{
		Server: server,
		State: core.RateLimitState{
			RequestCount: requestCount,
			WindowStart:  time.Unix(windowStart, 0).UTC(),
			BackoffUntil: timeFromNull(backoffUntil),
			LastRefusal:  timeFromNull(lastRefusal),
		},
	}
	return entry, nil
}

func rateLimitFilter(server string) (string, []any) {
	server = strings.TrimSpace(server)
	if server == "" {
		return "", nil
	}
	return "WHERE server = ?", []any{server}
}

func nullUnix(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: value.UTC().Unix(), Valid: true}
}

func timeFromNull(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := time.Unix(value.Int64, 0).UTC()
	return &t
}
