package semantic

import (
	"go.uber.org/zap"

	"goflare.io/recall/internal/hasher"
)

// Evictor applies the two pruning policies to the store and keeps the term
// index, hot cache, and vocabulary filter consistent with removals before
// returning.
type Evictor struct {
	c *Cache
}

// NewEvictor creates an Evictor bound to the cache.
func NewEvictor(c *Cache) *Evictor {
	return &Evictor{c: c}
}

// PruneLRU removes least-recently-accessed entries until the store reaches
// the low-water mark and returns the removed count.
func (ev *Evictor) PruneLRU() int {
	removed := ev.c.store.PruneLRU(ev.c.cfg.LowWaterMark)
	for _, entry := range removed {
		ev.c.index.Remove(entry.Key, hasher.Normalize(entry.Question))
		ev.c.hot.InvalidateKey(entry.Key)
	}
	if len(removed) > 0 {
		ev.c.logger.Info("pruned cache to low-water mark",
			zap.Int("removed", len(removed)), zap.Int("remaining", ev.c.store.Len()))
	}
	return len(removed)
}

// Sweep removes entries that are both past max age and below the minimum
// access count; old but popular entries stay. Bloom filters cannot forget,
// so the vocabulary filter is rebuilt after removals.
func (ev *Evictor) Sweep() int {
	removed := ev.c.store.SweepAged(ev.c.cfg.MaxEntryAge, ev.c.cfg.MinAccessCount)
	for _, entry := range removed {
		ev.c.index.Remove(entry.Key, hasher.Normalize(entry.Question))
		ev.c.hot.InvalidateKey(entry.Key)
	}
	if len(removed) > 0 {
		ev.c.reindexVocab()
		ev.c.logger.Info("swept aged entries",
			zap.Int("removed", len(removed)), zap.Int("remaining", ev.c.store.Len()))
	}
	return len(removed)
}
