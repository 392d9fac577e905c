// Package semantic implements the similarity-aware answer cache: exact
// lookups by content-addressed key, fuzzy lookups narrowed by an inverted
// term index and scored with Jaccard similarity, LRU and age-based eviction,
// and crash-safe snapshot persistence.
package semantic

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"goflare.io/recall/internal/config"
	"goflare.io/recall/internal/hasher"
	"goflare.io/recall/internal/hotcache"
	"goflare.io/recall/internal/index"
	"goflare.io/recall/internal/models"
	"goflare.io/recall/internal/store"
)

// Cache orchestrates the store, term index, hot cache, and persistence.
type Cache struct {
	cfg     *config.Config
	store   *store.Store
	index   *index.Index
	hot     *hotcache.HotCache
	metrics *models.Metrics

	persister *Persister
	evictor   *Evictor
	vocab     *VocabFilter

	// writing is the single-writer insert guard: a concurrent insert that
	// loses the CAS returns "not applied" instead of queueing.
	writing *atomic.Bool
	sf      singleflight.Group

	tracer trace.Tracer
	logger *zap.Logger

	flushCancel context.CancelFunc
	flushDone   chan struct{}
	closeOnce   sync.Once
}

// New builds a Cache from cfg and loads the persisted snapshot. If the
// snapshot file cannot be bootstrapped (for example the directory is not
// writable) the returned error wraps models.ErrInitialization, but the
// returned Cache is still usable with an empty in-memory store.
func New(ctx context.Context, cfg *config.Config) (*Cache, error) {
	c := &Cache{
		cfg:     cfg,
		metrics: models.NewMetrics(),
		writing: atomic.NewBool(false),
		tracer:  otel.Tracer("recall"),
		logger:  cfg.Logger,
	}
	if !cfg.Enabled {
		c.logger.Info("recall cache disabled; all operations are no-ops")
		return c, nil
	}

	hot, err := hotcache.New(cfg.HotCacheCapacity, cfg.Logger)
	if err != nil {
		return nil, err
	}

	c.store = store.New()
	c.index = index.New()
	c.hot = hot
	c.vocab = NewVocabFilter(cfg.MaxEntries)
	c.persister = NewPersister(cfg, c.store)
	c.evictor = NewEvictor(c)

	entries, loadErr := c.persister.Load(ctx)
	c.store.ReplaceAll(entries)
	c.reindexAll()

	if cfg.FlushInterval > 0 {
		flushCtx, cancel := context.WithCancel(context.Background())
		c.flushCancel = cancel
		c.flushDone = make(chan struct{})
		go c.flushLoop(flushCtx)
	}

	c.logger.Info("recall cache ready",
		zap.Int("entries", c.store.Len()),
		zap.Float64("threshold", cfg.SimilarityThreshold),
		zap.String("path", cfg.PersistPath))
	return c, loadErr
}

// reindexAll rebuilds the term index and vocabulary filter from the store.
func (c *Cache) reindexAll() {
	c.index.Clear()
	c.vocab.Reset()
	c.store.Range(func(entry *models.Entry) bool {
		normalized := hasher.Normalize(entry.Question)
		c.index.Add(entry.Key, normalized)
		c.vocab.AddTokens(normalized)
		return true
	})
}

// Insert stores a question/answer pair and reports whether the write was
// applied. A second insert arriving while one is in progress is not applied.
// The optional contextTag classifies the entry (domain or topic).
func (c *Cache) Insert(ctx context.Context, question, answer, contextTag string) (bool, error) {
	if !c.cfg.Enabled {
		return false, nil
	}
	_, span := c.tracer.Start(ctx, "Cache.Insert")
	defer span.End()

	key, err := hasher.Key(question)
	if err != nil {
		c.metrics.Errors.Inc()
		return false, err
	}
	if strings.TrimSpace(answer) == "" {
		c.metrics.Errors.Inc()
		return false, fmt.Errorf("%w: answer must be a non-empty string", models.ErrInvalidInput)
	}

	if !c.writing.CompareAndSwap(false, true) {
		c.logger.Debug("insert skipped, writer busy", zap.String("key", key))
		return false, nil
	}
	defer c.writing.Store(false)

	normalized := hasher.Normalize(question)
	entry := models.NewEntry(key, question, answer, contextTag)
	c.store.Put(entry)
	c.index.Add(key, normalized)
	c.vocab.AddTokens(normalized)
	c.hot.Set(question, key)
	span.SetAttributes(attribute.String("key", key))

	if c.store.Len() > c.cfg.HighWaterMark {
		c.evictor.PruneLRU()
	}
	return true, nil
}

// Refresh replaces a stale entry's answer, resets its creation time, and
// clears the refresh flag. It fails with models.ErrNotFound when the key has
// no entry.
func (c *Cache) Refresh(ctx context.Context, key, newAnswer string) (*models.Entry, error) {
	if !c.cfg.Enabled {
		return nil, nil
	}
	_, span := c.tracer.Start(ctx, "Cache.Refresh", trace.WithAttributes(attribute.String("key", key)))
	defer span.End()

	if key == "" || strings.TrimSpace(newAnswer) == "" {
		c.metrics.Errors.Inc()
		return nil, fmt.Errorf("%w: key and answer must be non-empty strings", models.ErrInvalidInput)
	}

	entry, ok := c.store.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, key)
	}

	entry.Answer = newAnswer
	entry.CreatedAt = time.Now()
	entry.NeedsRefresh = false
	c.store.MarkDirty()

	c.logger.Debug("entry refreshed", zap.String("key", key))
	return entry.Clone(), nil
}

// Stats summarizes the store contents.
func (c *Cache) Stats() models.Stats {
	if !c.cfg.Enabled {
		return models.Stats{}
	}
	return c.store.Stats()
}

// HitRateStats derives lookup rates from the metrics counters.
func (c *Cache) HitRateStats() models.HitRateStats {
	if !c.cfg.Enabled {
		return models.HitRateStats{}
	}
	return c.metrics.HitRateStats()
}

// ResetMetrics zeroes all counters and stamps the reset time.
func (c *Cache) ResetMetrics() {
	if !c.cfg.Enabled {
		return
	}
	c.metrics.Reset()
}

// ClearAll empties the store, term index, hot cache, and vocabulary filter,
// then persists the empty state. A failed persist surfaces as ErrSave.
func (c *Cache) ClearAll(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	c.store.Clear()
	c.index.Clear()
	c.hot.Clear()
	c.vocab.Reset()

	if err := c.persister.Save(ctx); err != nil {
		c.metrics.Errors.Inc()
		return err
	}
	c.logger.Info("cache cleared")
	return nil
}

// RunMaintenance prunes past the high-water mark, sweeps aged unpopular
// entries, and flushes the store if dirty.
func (c *Cache) RunMaintenance(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	_, span := c.tracer.Start(ctx, "Cache.RunMaintenance")
	defer span.End()

	if c.store.Len() > c.cfg.HighWaterMark {
		c.evictor.PruneLRU()
	}
	c.evictor.Sweep()

	if err := c.persister.SaveIfDirty(ctx); err != nil {
		c.metrics.Errors.Inc()
		return err
	}
	return nil
}

// Close stops the background flush loop, performs a final flush, and releases
// the hot cache.
func (c *Cache) Close() error {
	if !c.cfg.Enabled {
		return nil
	}

	var err error
	c.closeOnce.Do(func() {
		if c.flushCancel != nil {
			c.flushCancel()
			<-c.flushDone
		}
		if saveErr := c.persister.SaveIfDirty(context.Background()); saveErr != nil {
			c.logger.Error("final flush failed", zap.Error(saveErr))
			err = saveErr
		}
		c.hot.Close()
	})
	return err
}

// flushLoop periodically writes the store to disk when dirty. Persistence
// errors here are logged and counted, never fatal: the cache is an
// optimization layer.
func (c *Cache) flushLoop(ctx context.Context) {
	defer close(c.flushDone)

	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.persister.SaveIfDirty(ctx); err != nil {
				c.metrics.Errors.Inc()
				c.logger.Error("background flush failed", zap.Error(err))
			}
		}
	}
}
