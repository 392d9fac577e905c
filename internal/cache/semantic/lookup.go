package semantic

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"goflare.io/recall/internal/hasher"
	"goflare.io/recall/internal/models"
	"goflare.io/recall/internal/similarity"
)

// fuzzyResult is the outcome of one shared candidate scan.
type fuzzyResult struct {
	key   string
	score float64
	found bool
}

// Lookup resolves a question against the cache: hot cache first, then exact
// key match, then fuzzy matching over index-narrowed candidates. It returns
// nil on a miss. Entries read past their max age come back flagged
// NeedsRefresh; the caller decides whether to regenerate and Refresh.
func (c *Cache) Lookup(ctx context.Context, question string) (*models.MatchResult, error) {
	if !c.cfg.Enabled {
		return nil, nil
	}
	_, span := c.tracer.Start(ctx, "Cache.Lookup")
	defer span.End()

	normalized := hasher.Normalize(question)
	if normalized == "" {
		c.metrics.Errors.Inc()
		return nil, fmt.Errorf("%w: question must be a non-empty string", models.ErrInvalidInput)
	}

	// Hot cache: raw query resolved before, no hashing or scoring needed.
	if key, ok := c.hot.Get(question); ok {
		if entry, ok := c.store.Get(key); ok {
			c.metrics.Hits.Inc()
			c.metrics.HotCacheHits.Inc()
			span.SetAttributes(attribute.String("match", string(models.MatchHotCache)))
			return c.finishHit(entry, models.MatchHotCache, 1), nil
		}
		// The entry was evicted out from under the mapping.
		c.hot.Invalidate(question, key)
	}

	// Exact: the normalized question hashes to a stored key.
	key, err := hasher.Key(question)
	if err != nil {
		c.metrics.Errors.Inc()
		return nil, err
	}
	if entry, ok := c.store.Get(key); ok {
		c.metrics.Hits.Inc()
		c.metrics.ExactMatches.Inc()
		c.hot.Set(question, key)
		span.SetAttributes(attribute.String("match", string(models.MatchExact)))
		return c.finishHit(entry, models.MatchExact, 1), nil
	}

	// Fuzzy: score candidates against the configured threshold.
	queryTokens := similarity.Tokenize(normalized)
	if !c.vocab.MightMatchAny(queryTokens) {
		// None of the query tokens has ever been stored, so every Jaccard
		// score would be zero. Skip the scan.
		c.metrics.Misses.Inc()
		return nil, nil
	}

	best := c.scanShared(normalized, queryTokens)
	if !best.found {
		c.metrics.Misses.Inc()
		return nil, nil
	}
	entry, ok := c.store.Get(best.key)
	if !ok {
		// Evicted between scoring and retrieval.
		c.metrics.Misses.Inc()
		return nil, nil
	}

	c.metrics.Hits.Inc()
	c.metrics.SimilarityMatches.Inc()
	c.hot.Set(question, best.key)
	span.SetAttributes(
		attribute.String("match", string(models.MatchSimilarity)),
		attribute.Float64("similarity", best.score),
	)
	return c.finishHit(entry, models.MatchSimilarity, best.score), nil
}

// scanShared deduplicates concurrent scans for the same normalized query.
// Only the candidate selection is shared; each caller does its own access
// bookkeeping afterwards so hit counters stay per-lookup.
func (c *Cache) scanShared(normalized string, queryTokens map[string]struct{}) fuzzyResult {
	v, _, _ := c.sf.Do(normalized, func() (any, error) {
		return c.scanCandidates(normalized, queryTokens), nil
	})
	return v.(fuzzyResult)
}

// scanCandidates scores index-narrowed candidates, falling back to a full
// store scan when the index yields nothing. Ties above the threshold resolve
// deterministically: higher access count wins, then the smaller key.
func (c *Cache) scanCandidates(normalized string, queryTokens map[string]struct{}) fuzzyResult {
	var (
		best      fuzzyResult
		bestCount int64
	)
	consider := func(entry *models.Entry) {
		score := similarity.JaccardSets(queryTokens, similarity.Tokenize(hasher.Normalize(entry.Question)))
		if score < c.cfg.SimilarityThreshold {
			return
		}
		switch {
		case !best.found || score > best.score:
		case score == best.score && entry.AccessCount > bestCount:
		case score == best.score && entry.AccessCount == bestCount && entry.Key < best.key:
		default:
			return
		}
		best = fuzzyResult{key: entry.Key, score: score, found: true}
		bestCount = entry.AccessCount
	}

	if candidates := c.index.Candidates(normalized); candidates != nil {
		for _, key := range candidates {
			if entry, ok := c.store.Get(key); ok {
				consider(entry)
			}
		}
	} else {
		// Degrade to correctness: scan everything. Bounded because the store
		// is size-capped.
		c.logger.Debug("no index candidates, scanning store", zap.String("query", normalized))
		c.store.Range(func(entry *models.Entry) bool {
			consider(entry)
			return true
		})
	}
	return best
}

// finishHit applies access bookkeeping and the staleness check, then returns
// a detached result.
func (c *Cache) finishHit(entry *models.Entry, matchType models.MatchType, score float64) *models.MatchResult {
	entry.Touch()
	if entry.IsStale(c.cfg.MaxEntryAge) {
		entry.NeedsRefresh = true
	}
	c.store.MarkDirty()

	return &models.MatchResult{
		Entry:      entry.Clone(),
		Type:       matchType,
		Similarity: score,
	}
}
