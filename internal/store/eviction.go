package store

import (
	"sort"
	"time"

	"goflare.io/recall/internal/models"
)

// PruneLRU removes entries in ascending LastAccessedAt order until the store
// holds at most target entries, and returns the removed entries so the caller
// can drop index and hot-cache references before its own mutation returns.
// Entries with equal timestamps are removed in sort order; that tie-break is
// not a guaranteed ordering.
func (s *Store) PruneLRU(target int) []*models.Entry {
	if target < 0 {
		target = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	excess := len(s.entries) - target
	if excess <= 0 {
		return nil
	}

	byAge := make([]*models.Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		byAge = append(byAge, entry)
	}
	sort.Slice(byAge, func(i, j int) bool {
		return byAge[i].LastAccessedAt.Before(byAge[j].LastAccessedAt)
	})

	removed := byAge[:excess]
	for _, entry := range removed {
		delete(s.entries, entry.Key)
	}
	s.dirty.Store(true)
	return removed
}

// SweepAged removes entries that are both older than maxAge and accessed
// fewer than minAccess times. Old but frequently accessed entries are
// retained: popularity pins them past max age.
func (s *Store) SweepAged(maxAge time.Duration, minAccess int64) []*models.Entry {
	if maxAge <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []*models.Entry
	for key, entry := range s.entries {
		if entry.CreatedAt.Before(cutoff) && entry.AccessCount < minAccess {
			removed = append(removed, entry)
			delete(s.entries, key)
		}
	}
	if len(removed) > 0 {
		s.dirty.Store(true)
	}
	return removed
}
