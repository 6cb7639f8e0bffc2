package engine

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/namelens/reachlens/internal/core"
)

// DefaultRefusalBackoff is how long a server is skipped after an exchange
// with it failed, when RateLimiter.Backoff is unset.
const DefaultRefusalBackoff = 30 * time.Second

// RateLimiter enforces per-server query budgets. A RateLimiter must not be
// copied after first use.
type RateLimiter struct {
	Store   RateLimitStore
	Limits  map[string]RateLimit
	Clock   func() time.Time
	Margin  float64
	Backoff time.Duration

	// mu serializes the read-modify-write of a server's window so
	// concurrent lookups cannot overshoot the budget.
	mu sync.Mutex
}

// RateLimit represents a rate limit window.
type RateLimit struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// RateLimitStore stores rate limit state per server.
type RateLimitStore interface {
	GetRateLimit(ctx context.Context, endpoint string) (*core.RateLimitState, error)
	UpdateRateLimit(ctx context.Context, endpoint string, state *core.RateLimitState) error
}

// DefaultLimits provides conservative defaults per WHOIS server. Servers
// not listed fall back to the "whois" entry.
var DefaultLimits = map[string]RateLimit{
	"whois.verisign-grs.com":           {RequestsPerWindow: 60, WindowDuration: time.Minute},
	"whois.publicinterestregistry.org": {RequestsPerWindow: 30, WindowDuration: time.Minute},
	"whois.denic.de":                   {RequestsPerWindow: 10, WindowDuration: time.Minute},
	"whois.nic.uk":                     {RequestsPerWindow: 10, WindowDuration: time.Minute},
	"whois.iana.org":                   {RequestsPerWindow: 30, WindowDuration: time.Minute},
	"whois":                            {RequestsPerWindow: 30, WindowDuration: time.Minute},
}

// Acquire takes one request from the server's budget. When the budget is
// spent, or the server is backing off, it returns false and how long to
// wait. Store errors fail open.
func (r *RateLimiter) Acquire(ctx context.Context, endpoint string) (bool, time.Duration, error) {
	if r == nil || r.Store == nil {
		return true, 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	state, err := r.load(ctx, endpoint)
	if err != nil {
		return true, 0, err
	}

	if state.BackoffUntil != nil && now.Before(*state.BackoffUntil) {
		return false, state.BackoffUntil.Sub(now), nil
	}

	limit := r.getLimit(endpoint)
	windowEnd := state.WindowStart.Add(limit.WindowDuration)
	if state.WindowStart.IsZero() || !now.Before(windowEnd) {
		state.RequestCount = 0
		state.WindowStart = now
		windowEnd = now.Add(limit.WindowDuration)
	}

	if state.RequestCount >= limit.RequestsPerWindow {
		return false, windowEnd.Sub(now), nil
	}

	state.RequestCount++
	if err := r.Store.UpdateRateLimit(ctx, endpoint, state); err != nil {
		return true, 0, err
	}
	return true, 0, nil
}

// RecordRefusal puts the server in backoff after it refused, reset or timed
// out an exchange. A non-positive retryAfter uses Backoff.
func (r *RateLimiter) RecordRefusal(ctx context.Context, endpoint string, retryAfter time.Duration) error {
	if r == nil || r.Store == nil {
		return nil
	}
	if retryAfter <= 0 {
		retryAfter = r.Backoff
	}
	if retryAfter <= 0 {
		retryAfter = DefaultRefusalBackoff
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.load(ctx, endpoint)
	if err != nil {
		return err
	}

	now := r.now()
	until := now.Add(retryAfter)
	state.LastRefusal = &now
	state.BackoffUntil = &until

	return r.Store.UpdateRateLimit(ctx, endpoint, state)
}

func (r *RateLimiter) load(ctx context.Context, endpoint string) (*core.RateLimitState, error) {
	state, err := r.Store.GetRateLimit(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &core.RateLimitState{}
	}
	return state, nil
}

// ApplyOverrides merges per-endpoint request overrides (per minute).
func (r *RateLimiter) ApplyOverrides(overrides map[string]int) {
	if r == nil || len(overrides) == 0 {
		return
	}

	if r.Limits == nil {
		r.Limits = make(map[string]RateLimit, len(DefaultLimits))
		for key, limit := range DefaultLimits {
			r.Limits[key] = limit
		}
	}

	for endpoint, value := range overrides {
		endpoint = strings.TrimSpace(endpoint)
		if endpoint == "" || value <= 0 {
			continue
		}
		r.Limits[endpoint] = RateLimit{
			RequestsPerWindow: value,
			WindowDuration:    time.Minute,
		}
	}
}

// ApplySafetyMargin adjusts the effective request limits by a ratio (0-1].
func (r *RateLimiter) ApplySafetyMargin(margin float64) {
	if r == nil {
		return
	}
	if margin <= 0 || margin > 1 {
		return
	}
	r.Margin = margin
}

func (r *RateLimiter) getLimit(endpoint string) RateLimit {
	if r == nil {
		return RateLimit{RequestsPerWindow: 1, WindowDuration: time.Minute}
	}

	limits := r.Limits
	if limits == nil {
		limits = DefaultLimits
	}

	if limit, ok := limits[endpoint]; ok {
		return r.applyMargin(limit)
	}

	if limit, ok := limits["whois"]; ok {
		return r.applyMargin(limit)
	}

	return r.applyMargin(RateLimit{RequestsPerWindow: 30, WindowDuration: time.Minute})
}

func (r *RateLimiter) now() time.Time {
	if r != nil && r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}

func (r *RateLimiter) applyMargin(limit RateLimit) RateLimit {
	if r == nil || r.Margin <= 0 || r.Margin > 1 {
		return limit
	}
	adjusted := int(math.Floor(float64(limit.RequestsPerWindow) * r.Margin))
	if adjusted < 1 {
		adjusted = 1
	}
	limit.RequestsPerWindow = adjusted
	return limit
}

// MemoryRateStore keeps rate limit state in process memory.
type MemoryRateStore struct {
	mu    sync.Mutex
	state map[string]core.RateLimitState
}

// NewMemoryRateStore returns an empty store.
func NewMemoryRateStore() *MemoryRateStore {
	return &MemoryRateStore{state: make(map[string]core.RateLimitState)}
}

func (m *MemoryRateStore) GetRateLimit(_ context.Context, endpoint string) (*core.RateLimitState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.state[endpoint]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (m *MemoryRateStore) UpdateRateLimit(_ context.Context, endpoint string, state *core.RateLimitState) error {
	if state == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[endpoint] = *state
	return nil
}
