package models

import (
	"time"

	"go.uber.org/atomic"
)

// Metrics stores cache statistics.
type Metrics struct {
	Hits              *atomic.Int64
	Misses            *atomic.Int64
	ExactMatches      *atomic.Int64
	SimilarityMatches *atomic.Int64
	HotCacheHits      *atomic.Int64
	Errors            *atomic.Int64
	LastReset         *atomic.Time
}

// NewMetrics creates a new Metrics instance with LastReset stamped to now.
func NewMetrics() *Metrics {
	return &Metrics{
		Hits:              atomic.NewInt64(0),
		Misses:            atomic.NewInt64(0),
		ExactMatches:      atomic.NewInt64(0),
		SimilarityMatches: atomic.NewInt64(0),
		HotCacheHits:      atomic.NewInt64(0),
		Errors:            atomic.NewInt64(0),
		LastReset:         atomic.NewTime(time.Now()),
	}
}

// Reset zeroes all counters and stamps LastReset.
func (m *Metrics) Reset() {
	m.Hits.Store(0)
	m.Misses.Store(0)
	m.ExactMatches.Store(0)
	m.SimilarityMatches.Store(0)
	m.HotCacheHits.Store(0)
	m.Errors.Store(0)
	m.LastReset.Store(time.Now())
}

// HitRateStats summarizes lookup outcomes since the last reset.
type HitRateStats struct {
	TotalLookups   int64   `json:"totalLookups"`
	HitRate        float64 `json:"hitRate"`
	ExactMatchRate float64 `json:"exactMatchRate"`
	UptimeDays     float64 `json:"uptimeDays"`
}

// HitRateStats derives rates from the current counter values.
func (m *Metrics) HitRateStats() HitRateStats {
	hits := m.Hits.Load()
	total := hits + m.Misses.Load()

	stats := HitRateStats{
		TotalLookups: total,
		UptimeDays:   time.Since(m.LastReset.Load()).Hours() / 24,
	}
	if total > 0 {
		stats.HitRate = float64(hits) / float64(total)
		stats.ExactMatchRate = float64(m.ExactMatches.Load()) / float64(total)
	}
	return stats
}

// Stats summarizes the store contents.
type Stats struct {
	EntryCount        int   `json:"entryCount"`
	TotalAccesses     int64 `json:"totalAccesses"`
	MostAccessedCount int64 `json:"mostAccessedCount"`
}
