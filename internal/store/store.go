// Package store owns the authoritative key -> entry map and its eviction
// policies. All other components hold non-owning references by key.
package store

import (
	"sync"

	"go.uber.org/atomic"

	"goflare.io/recall/internal/models"
)

// Store is the authoritative entry map. Compound mutations are serialized by
// the mutex; entry access bookkeeping (Touch) deliberately happens outside it.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*models.Entry
	dirty   *atomic.Bool
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		entries: make(map[string]*models.Entry),
		dirty:   atomic.NewBool(false),
	}
}

// Get returns the live entry for key.
func (s *Store) Get(key string) (*models.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	return entry, ok
}

// Put stores the entry under its key, replacing any previous entry, and marks
// the store dirty.
func (s *Store) Put(entry *models.Entry) {
	s.mu.Lock()
	s.entries[entry.Key] = entry
	s.mu.Unlock()
	s.dirty.Store(true)
}

// Delete removes the entry for key and reports whether it was present.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	s.mu.Unlock()
	if ok {
		s.dirty.Store(true)
	}
	return ok
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Range calls f for every entry until f returns false.
func (s *Store) Range(f func(*models.Entry) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entry := range s.entries {
		if !f(entry) {
			return
		}
	}
}

// Snapshot returns a deep copy of all entries, detached from the store, for
// persistence to encode without holding the lock.
func (s *Store) Snapshot() map[string]*models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make(map[string]*models.Entry, len(s.entries))
	for key, entry := range s.entries {
		snapshot[key] = entry.Clone()
	}
	return snapshot
}

// ReplaceAll swaps in a freshly loaded entry map. The store is considered
// clean afterwards: it mirrors what was just read from disk.
func (s *Store) ReplaceAll(entries map[string]*models.Entry) {
	if entries == nil {
		entries = make(map[string]*models.Entry)
	}
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	s.dirty.Store(false)
}

// Clear removes all entries and marks the store dirty.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]*models.Entry)
	s.mu.Unlock()
	s.dirty.Store(true)
}

// Dirty reports whether the store has mutations not yet flushed.
func (s *Store) Dirty() bool {
	return s.dirty.Load()
}

// MarkDirty flags the store as having unflushed mutations.
func (s *Store) MarkDirty() {
	s.dirty.Store(true)
}

// ClearDirty marks the store as flushed.
func (s *Store) ClearDirty() {
	s.dirty.Store(false)
}

// Stats aggregates access counters across all entries.
func (s *Store) Stats() models.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.Stats{EntryCount: len(s.entries)}
	for _, entry := range s.entries {
		stats.TotalAccesses += entry.AccessCount
		if entry.AccessCount > stats.MostAccessedCount {
			stats.MostAccessedCount = entry.AccessCount
		}
	}
	return stats
}
