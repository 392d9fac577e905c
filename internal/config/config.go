// Package config holds the cache configuration, its defaults, and the
// environment overrides applied on top of them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"goflare.io/recall/pkg/serialization"
)

// Config configures the recall cache.
type Config struct {
	// Enabled is the master switch. When false every public operation is a
	// no-op returning its zero value.
	Enabled bool

	// SimilarityThreshold is the minimum Jaccard score for a fuzzy hit.
	SimilarityThreshold float64

	// MaxEntries caps the store; it doubles as the eviction high-water mark
	// unless HighWaterMark overrides it.
	MaxEntries int

	// HotCacheCapacity bounds the raw-query hot cache.
	HotCacheCapacity int

	// MaxEntryAge is the staleness threshold for lookups and the age cutoff
	// for the maintenance sweep.
	MaxEntryAge time.Duration

	// HighWaterMark triggers LRU pruning when the store grows past it;
	// pruning stops at LowWaterMark entries.
	HighWaterMark int
	LowWaterMark  int

	// MinAccessCount pins entries during the age sweep: older than
	// MaxEntryAge but accessed at least this often means retained.
	MinAccessCount int64

	// PersistPath is the snapshot file location.
	PersistPath string

	// FlushInterval paces the background save-if-dirty loop. Zero disables
	// the loop; persistence then happens only via maintenance and Close.
	FlushInterval time.Duration

	// SaveRetryBackoff is the retry schedule for persistence writes.
	SaveRetryBackoff []time.Duration

	// Breaker guards persistence writes against a persistently failing disk.
	Breaker gobreaker.Settings

	Serialization serialization.Codec
	Logger        *zap.Logger
}

// Option mutates a Config during construction.
type Option func(*Config) error

var (
	ErrThresholdRange = errors.New("similarity threshold must be within [0, 1]")
	ErrWaterMarks     = errors.New("low water mark must be below high water mark")
)

// New builds a Config from defaults, then environment overrides, then the
// supplied options, and validates the result.
func New(options ...Option) (*Config, error) {
	cfg := &Config{
		Enabled:             true,
		SimilarityThreshold: 0.85,
		MaxEntries:          1000,
		HotCacheCapacity:    100,
		MaxEntryAge:         7 * 24 * time.Hour,
		HighWaterMark:       1000,
		LowWaterMark:        800,
		MinAccessCount:      2,
		PersistPath:         "recall_cache.json",
		FlushInterval:       30 * time.Second,
		SaveRetryBackoff: []time.Duration{
			100 * time.Millisecond,
		},
		Breaker: gobreaker.Settings{
			Name:     "PersistenceBreaker",
			Interval: 60 * time.Second,
			Timeout:  30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		},
	}

	codec, err := serialization.ForType(serialization.JSONType)
	if err != nil {
		return nil, err
	}
	cfg.Serialization = codec

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	for _, option := range options {
		if err := option(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if cfg.Logger == nil {
		logger, err := zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize default logger: %w", err)
		}
		cfg.Logger = logger
	}

	if cfg.SimilarityThreshold < 0 || cfg.SimilarityThreshold > 1 {
		return nil, ErrThresholdRange
	}
	if cfg.LowWaterMark >= cfg.HighWaterMark {
		return nil, ErrWaterMarks
	}
	if cfg.MaxEntries <= 0 {
		return nil, errors.New("max entries must be greater than 0")
	}
	if cfg.HotCacheCapacity <= 0 {
		return nil, errors.New("hot cache capacity must be greater than 0")
	}
	return cfg, nil
}

// applyEnv overrides defaults from RECALL_* environment variables.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("RECALL_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid RECALL_ENABLED %q: %w", v, err)
		}
		cfg.Enabled = enabled
	}
	if v := os.Getenv("RECALL_SIMILARITY_THRESHOLD"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RECALL_SIMILARITY_THRESHOLD %q: %w", v, err)
		}
		cfg.SimilarityThreshold = threshold
	}
	if v := os.Getenv("RECALL_MAX_ENTRIES"); v != "" {
		maxEntries, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RECALL_MAX_ENTRIES %q: %w", v, err)
		}
		cfg.MaxEntries = maxEntries
		cfg.HighWaterMark = maxEntries
		cfg.LowWaterMark = maxEntries * 8 / 10
	}
	if v := os.Getenv("RECALL_HOT_CACHE_SIZE"); v != "" {
		capacity, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RECALL_HOT_CACHE_SIZE %q: %w", v, err)
		}
		cfg.HotCacheCapacity = capacity
	}
	if v := os.Getenv("RECALL_MAX_ENTRY_AGE"); v != "" {
		age, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid RECALL_MAX_ENTRY_AGE %q: %w", v, err)
		}
		cfg.MaxEntryAge = age
	}
	if v := os.Getenv("RECALL_HIGH_WATER_MARK"); v != "" {
		mark, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RECALL_HIGH_WATER_MARK %q: %w", v, err)
		}
		cfg.HighWaterMark = mark
	}
	if v := os.Getenv("RECALL_LOW_WATER_MARK"); v != "" {
		mark, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RECALL_LOW_WATER_MARK %q: %w", v, err)
		}
		cfg.LowWaterMark = mark
	}
	if v := os.Getenv("RECALL_PERSIST_PATH"); v != "" {
		cfg.PersistPath = v
	}
	return nil
}

// WithLogger sets a custom logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) error {
		if logger != nil {
			c.Logger = logger
		}
		return nil
	}
}

// WithEnabled toggles the master switch.
func WithEnabled(enabled bool) Option {
	return func(c *Config) error {
		c.Enabled = enabled
		return nil
	}
}

// WithSimilarityThreshold sets the minimum Jaccard score for a fuzzy hit.
func WithSimilarityThreshold(threshold float64) Option {
	return func(c *Config) error {
		c.SimilarityThreshold = threshold
		return nil
	}
}

// WithMaxEntries caps the store and derives the default water marks.
func WithMaxEntries(maxEntries int) Option {
	return func(c *Config) error {
		if maxEntries <= 0 {
			return errors.New("max entries must be greater than 0")
		}
		c.MaxEntries = maxEntries
		c.HighWaterMark = maxEntries
		c.LowWaterMark = maxEntries * 8 / 10
		return nil
	}
}

// WithHotCacheCapacity bounds the raw-query hot cache.
func WithHotCacheCapacity(capacity int) Option {
	return func(c *Config) error {
		if capacity <= 0 {
			return errors.New("hot cache capacity must be greater than 0")
		}
		c.HotCacheCapacity = capacity
		return nil
	}
}

// WithMaxEntryAge sets the staleness threshold and sweep age cutoff.
func WithMaxEntryAge(age time.Duration) Option {
	return func(c *Config) error {
		c.MaxEntryAge = age
		return nil
	}
}

// WithWaterMarks sets the eviction trigger and target sizes explicitly.
func WithWaterMarks(high, low int) Option {
	return func(c *Config) error {
		if low >= high {
			return ErrWaterMarks
		}
		c.HighWaterMark = high
		c.LowWaterMark = low
		return nil
	}
}

// WithMinAccessCount sets the popularity pin for the age sweep.
func WithMinAccessCount(minAccess int64) Option {
	return func(c *Config) error {
		c.MinAccessCount = minAccess
		return nil
	}
}

// WithPersistPath sets the snapshot file location.
func WithPersistPath(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return errors.New("persist path must not be empty")
		}
		c.PersistPath = path
		return nil
	}
}

// WithFlushInterval paces the background flush loop; zero disables it.
func WithFlushInterval(interval time.Duration) Option {
	return func(c *Config) error {
		c.FlushInterval = interval
		return nil
	}
}

// WithSerialization selects the snapshot codec by name ("json" or "gob").
func WithSerialization(name string) Option {
	return func(c *Config) error {
		codec, err := serialization.ForType(name)
		if err != nil {
			return err
		}
		c.Serialization = codec
		return nil
	}
}
