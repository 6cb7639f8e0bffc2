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

// GetWhoisRecord returns the cached WHOIS record for subject, or nil when
// there is none or it has expired.
func (s *Store) GetWhoisRecord(ctx context.Context, subject string) (*core.WhoisLookupRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key := normalizeSubject(subject)
	if key == "" {
		return nil, errors.New("cache subject is required")
	}

	var (
		server     sql.NullString
		record     string
		expiration sql.NullString
		registrar  sql.NullString
		source     sql.NullString
		timeoutMS  sql.NullInt64
	)

	row := s.DB.QueryRowContext(ctx, `
		SELECT server, record, expiration_date, registrar, source, query_timeout_ms
		FROM whois_cache
		WHERE subject = ? AND expires_at > ?
	`, key, s.now().Unix())

	if err := row.Scan(&server, &record, &expiration, &registrar, &source, &timeoutMS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch cached whois record: %w", err)
	}

	return &core.WhoisLookupRecord{
		Server:         server.String,
		Record:         record,
		ExpirationDate: expiration.String,
		Registrar:      registrar.String,
		Source:         source.String,
		QueryTimeout:   time.Duration(timeoutMS.Int64) * time.Millisecond,
	}, nil
}

// SetWhoisRecord stores a WHOIS record with a TTL. A non-positive TTL is a
// no-op.
func (s *Store) SetWhoisRecord(ctx context.Context, subject string, record *core.WhoisLookupRecord, ttl time.Duration) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if ttl <= 0 || record == nil {
		return nil
	}

	key := normalizeSubject(subject)
	if key == "" {
		return errors.New("cache subject is required")
	}

	now := s.now()
	expires := now.Add(ttl)

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO whois_cache (subject, server, record, expiration_date, registrar, source, query_timeout_ms, checked_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(subject) DO UPDATE SET
			server = excluded.server,
			record = excluded.record,
			expiration_date = excluded.expiration_date,
			registrar = excluded.registrar,
			source = excluded.source,
			query_timeout_ms = excluded.query_timeout_ms,
			checked_at = excluded.checked_at,
			expires_at = excluded.expires_at
	`, key, record.Server, record.Record, record.ExpirationDate, record.Registrar, record.Source,
		record.QueryTimeout.Milliseconds(), now.Unix(), expires.Unix())
	if err != nil {
		return fmt.Errorf("store cached whois record: %w", err)
	}

	return nil
}

// PurgeWhoisCache deletes expired entries, or every entry when all is set.
func (s *Store) PurgeWhoisCache(ctx context.Context, all bool) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var (
		result sql.Result
		err    error
	)
	if all {
		result, err = s.DB.ExecContext(ctx, `DELETE FROM whois_cache`)
	} else {
		result, err = s.DB.ExecContext(ctx, `DELETE FROM whois_cache WHERE expires_at <= ?`, s.now().Unix())
	}
	if err != nil {
		return 0, fmt.Errorf("purge whois cache: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge whois cache: %w", err)
	}
	return affected, nil
}

func normalizeSubject(subject string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(subject)), ".")
}
