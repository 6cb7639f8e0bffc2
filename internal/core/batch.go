package core

import (
	"time"
)

// BatchSummary tallies the statuses produced by one batch run.
type BatchSummary struct {
	Total       int                 `json:"total"`
	Duplicates  int                 `json:"duplicates"`
	Failed      int                 `json:"failed"`
	Counts      map[StatusValue]int `json:"counts"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt time.Time           `json:"completed_at"`
}

// NewBatchSummary starts a summary at the given time.
func NewBatchSummary(startedAt time.Time) *BatchSummary {
	return &BatchSummary{Counts: make(map[StatusValue]int), StartedAt: startedAt}
}

// Add counts one status. A nil status counts as a failure.
func (b *BatchSummary) Add(st *Status) {
	b.Total++
	if st == nil {
		b.Failed++
		return
	}
	b.Counts[st.Status]++
}

// Rate returns subjects resolved per second.
func (b *BatchSummary) Rate() float64 {
	elapsed := b.CompletedAt.Sub(b.StartedAt).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(b.Total) / elapsed
}
