// Package recall is a persistent, similarity-aware lookup cache for
// question/answer pairs. Semantically repeated questions are answered from
// the cache instead of re-invoking an expensive upstream generation call:
// exact repeats resolve by content-addressed key, near-repeats by Jaccard
// token overlap against a configurable threshold.
//
// The cache is a pure optimization layer. Every failure mode degrades to a
// miss or an empty in-memory store; it never blocks the caller from
// answering the question by other means.
package recall

import (
	"context"
	"time"

	"go.uber.org/zap"

	"goflare.io/recall/internal/cache/semantic"
	"goflare.io/recall/internal/config"
	"goflare.io/recall/internal/models"
)

// Option configures the cache during construction.
type Option func(*config.Config) error

// WithLogger sets a custom logger.
func WithLogger(logger *zap.Logger) Option {
	return Option(config.WithLogger(logger))
}

// WithEnabled sets the master switch. A disabled cache turns every operation
// into a no-op returning its zero value.
func WithEnabled(enabled bool) Option {
	return Option(config.WithEnabled(enabled))
}

// WithSimilarityThreshold sets the minimum Jaccard score for a fuzzy hit.
func WithSimilarityThreshold(threshold float64) Option {
	return Option(config.WithSimilarityThreshold(threshold))
}

// WithMaxEntries caps the number of stored entries.
func WithMaxEntries(maxEntries int) Option {
	return Option(config.WithMaxEntries(maxEntries))
}

// WithHotCacheCapacity bounds the raw-query hot cache.
func WithHotCacheCapacity(capacity int) Option {
	return Option(config.WithHotCacheCapacity(capacity))
}

// WithMaxEntryAge sets how old an entry may grow before lookups flag it for
// refresh.
func WithMaxEntryAge(age time.Duration) Option {
	return Option(config.WithMaxEntryAge(age))
}

// WithWaterMarks sets the store size that triggers LRU pruning (high) and the
// size pruning stops at (low).
func WithWaterMarks(high, low int) Option {
	return Option(config.WithWaterMarks(high, low))
}

// WithMinAccessCount sets the access count that pins an aged entry against
// the maintenance sweep.
func WithMinAccessCount(minAccess int64) Option {
	return Option(config.WithMinAccessCount(minAccess))
}

// WithPersistPath sets the snapshot file location.
func WithPersistPath(path string) Option {
	return Option(config.WithPersistPath(path))
}

// WithFlushInterval paces the background save-if-dirty loop; zero disables
// it, leaving persistence to RunMaintenance and Close.
func WithFlushInterval(interval time.Duration) Option {
	return Option(config.WithFlushInterval(interval))
}

// WithSerialization selects the snapshot codec by name ("json" or "gob").
func WithSerialization(name string) Option {
	return Option(config.WithSerialization(name))
}

// Cache is the public handle. Construct one instance at process startup and
// pass it to consumers; there is no package-level singleton.
type Cache struct {
	inner  *semantic.Cache
	logger *zap.Logger
}

// New creates a Cache from defaults, RECALL_* environment overrides, and the
// supplied options, then loads the persisted snapshot.
//
// If persistent storage cannot be bootstrapped, New returns the error wrapped
// as ErrInitialization together with a non-nil Cache that serves from an
// empty in-memory store, so the host process keeps running.
func New(ctx context.Context, opts ...Option) (*Cache, error) {
	cfgOpts := make([]config.Option, len(opts))
	for i, opt := range opts {
		cfgOpts[i] = config.Option(opt)
	}

	cfg, err := config.New(cfgOpts...)
	if err != nil {
		return nil, err
	}

	inner, err := semantic.New(ctx, cfg)
	if inner == nil {
		return nil, err
	}
	return &Cache{inner: inner, logger: cfg.Logger}, err
}

// Lookup resolves a question against the cache, fuzzily if necessary, and
// returns nil on a miss. A result read past its max age carries
// Entry.NeedsRefresh; call Refresh after regenerating the answer.
func (c *Cache) Lookup(ctx context.Context, question string) (*models.MatchResult, error) {
	return c.inner.Lookup(ctx, question)
}

// Insert stores a question/answer pair and reports whether the write was
// applied. An insert arriving while another is in progress returns false
// immediately rather than queueing; at most one writer runs at a time.
func (c *Cache) Insert(ctx context.Context, question, answer string, contextTag ...string) (bool, error) {
	tag := ""
	if len(contextTag) > 0 {
		tag = contextTag[0]
	}
	return c.inner.Insert(ctx, question, answer, tag)
}

// Refresh replaces the answer of the entry under key, resets its age, and
// clears its refresh flag. It fails with ErrNotFound for an absent key.
func (c *Cache) Refresh(ctx context.Context, key, newAnswer string) (*models.Entry, error) {
	return c.inner.Refresh(ctx, key, newAnswer)
}

// Stats summarizes the store contents.
func (c *Cache) Stats() models.Stats {
	return c.inner.Stats()
}

// HitRateStats derives lookup rates since the last metrics reset.
func (c *Cache) HitRateStats() models.HitRateStats {
	return c.inner.HitRateStats()
}

// ResetMetrics zeroes all counters and stamps the reset time.
func (c *Cache) ResetMetrics() {
	c.inner.ResetMetrics()
}

// ClearAll empties the cache and persists the empty state.
func (c *Cache) ClearAll(ctx context.Context) error {
	return c.inner.ClearAll(ctx)
}

// RunMaintenance prunes past the high-water mark, sweeps aged unpopular
// entries, and flushes if dirty.
func (c *Cache) RunMaintenance(ctx context.Context) error {
	return c.inner.RunMaintenance(ctx)
}

// Close stops background flushing, writes a final snapshot if dirty, and
// releases resources.
func (c *Cache) Close() error {
	return c.inner.Close()
}
