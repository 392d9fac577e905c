// Package hotcache is a small bounded cache in front of the store, mapping
// raw (pre-normalization) query strings to the entry key they last resolved
// to. It only short-circuits repeat lookups; a miss here never changes
// correctness, so ristretto's approximate TinyLFU admission is acceptable.
package hotcache

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"
)

// HotCache maps raw query -> entry key with a bounded ristretto cache.
// A reverse alias map lets eviction drop every raw query pointing at a
// removed entry before the store mutation returns.
type HotCache struct {
	rc     *ristretto.Cache[string, string]
	logger *zap.Logger

	mu      sync.Mutex
	aliases map[string]map[string]struct{} // entry key -> raw queries
}

// New creates a HotCache holding at most capacity mappings.
func New(capacity int, logger *zap.Logger) (*HotCache, error) {
	rc, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: int64(capacity) * 10,
		MaxCost:     int64(capacity),
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create hot cache: %w", err)
	}
	return &HotCache{
		rc:      rc,
		logger:  logger,
		aliases: make(map[string]map[string]struct{}),
	}, nil
}

// Get returns the entry key the raw query last resolved to.
func (h *HotCache) Get(rawQuery string) (string, bool) {
	return h.rc.Get(rawQuery)
}

// Set records that rawQuery resolved to entryKey. Each mapping has cost 1.
func (h *HotCache) Set(rawQuery, entryKey string) {
	if !h.rc.Set(rawQuery, entryKey, 1) {
		h.logger.Debug("hot cache rejected mapping", zap.String("key", entryKey))
		return
	}

	h.mu.Lock()
	raws, ok := h.aliases[entryKey]
	if !ok {
		raws = make(map[string]struct{})
		h.aliases[entryKey] = raws
	}
	raws[rawQuery] = struct{}{}
	h.mu.Unlock()
}

// InvalidateKey removes every raw-query mapping that points at entryKey.
// Called whenever the store drops the entry, so the hot cache never serves a
// dangling key past the mutation that removed it.
func (h *HotCache) InvalidateKey(entryKey string) {
	h.mu.Lock()
	raws := h.aliases[entryKey]
	delete(h.aliases, entryKey)
	h.mu.Unlock()

	for raw := range raws {
		h.rc.Del(raw)
	}
}

// Invalidate removes a single raw-query mapping, e.g. after it was observed
// pointing at a key the store no longer has.
func (h *HotCache) Invalidate(rawQuery, entryKey string) {
	h.rc.Del(rawQuery)

	h.mu.Lock()
	if raws, ok := h.aliases[entryKey]; ok {
		delete(raws, rawQuery)
		if len(raws) == 0 {
			delete(h.aliases, entryKey)
		}
	}
	h.mu.Unlock()
}

// Clear drops all mappings.
func (h *HotCache) Clear() {
	h.rc.Clear()
	h.mu.Lock()
	h.aliases = make(map[string]map[string]struct{})
	h.mu.Unlock()
}

// Wait blocks until buffered sets have been applied. Used by tests that need
// a deterministic view; production lookups tolerate the set buffer.
func (h *HotCache) Wait() {
	h.rc.Wait()
}

// Close releases the underlying cache.
func (h *HotCache) Close() {
	h.rc.Close()
}
