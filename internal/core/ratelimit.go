package core

import "time"

// RateLimitState captures per-server rate limiting state.
type RateLimitState struct {
	RequestCount int        `json:"request_count"`
	WindowStart  time.Time  `json:"window_start"`
	BackoffUntil *time.Time `json:"backoff_until,omitempty"`
	LastRefusal  *time.Time `json:"last_refusal,omitempty"`
}
