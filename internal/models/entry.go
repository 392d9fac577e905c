package models

import (
	"time"
)

// Entry represents one cached question/answer pair. The store is the sole
// owner of entries; the term index and hot cache refer to them by Key only.
type Entry struct {
	Key            string    `json:"key"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	Context        string    `json:"context,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
	AccessCount    int64     `json:"accessCount"`
	NeedsRefresh   bool      `json:"needsRefresh"`
}

// NewEntry creates a new Entry. AccessCount starts at 1: creation counts as
// the first access.
func NewEntry(key, question, answer, context string) *Entry {
	now := time.Now()
	return &Entry{
		Key:            key,
		Question:       question,
		Answer:         answer,
		Context:        context,
		CreatedAt:      now,
		LastAccessedAt: now,
		AccessCount:    1,
	}
}

// Touch records a successful lookup. Concurrent lookups may race on these
// fields; they are approximate statistics, not correctness-critical.
func (e *Entry) Touch() {
	e.AccessCount++
	e.LastAccessedAt = time.Now()
}

// IsStale reports whether the entry's answer has outlived maxAge.
// Staleness is advisory; stale entries are never evicted for it.
func (e *Entry) IsStale(maxAge time.Duration) bool {
	return maxAge > 0 && time.Since(e.CreatedAt) > maxAge
}

// Clone returns a copy of the entry, detached from the store.
func (e *Entry) Clone() *Entry {
	clone := *e
	return &clone
}
