// Package dedup drops repeated batch subjects with a bloom filter.
package dedup

import (
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// DefaultFalsePositiveRate bounds how often a new subject is mistaken for a
// repeat.
const DefaultFalsePositiveRate = 0.0001

// Filter is a concurrency-safe bloom filter over subject keys.
type Filter struct {
	filter *bloom.BloomFilter
	mu     sync.Mutex
}

// NewFilter sizes a filter for n keys at false positive rate fp.
func NewFilter(n uint, fp float64) *Filter {
	if n == 0 {
		n = 1
	}
	if fp <= 0 || fp >= 1 {
		fp = DefaultFalsePositiveRate
	}
	return &Filter{filter: bloom.NewWithEstimates(n, fp)}
}

// Seen reports whether subject was (probably) added before, adding it if not.
// Subjects compare case-insensitively with surrounding space removed.
func (f *Filter) Seen(subject string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter.TestAndAdd([]byte(Key(subject)))
}

// Key normalizes subject for comparison.
func Key(subject string) string {
	return strings.ToLower(strings.TrimSpace(subject))
}

// Unique returns subjects without repeats, in first-seen order, and the
// number of entries dropped.
func Unique(subjects []string, fp float64) ([]string, int) {
	if len(subjects) == 0 {
		return nil, 0
	}
	f := NewFilter(uint(len(subjects)), fp)
	out := make([]string, 0, len(subjects))
	dropped := 0
	for _, subject := range subjects {
		if f.Seen(subject) {
			dropped++
			continue
		}
		out = append(out, subject)
	}
	return out, dropped
}
