package semantic

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"goflare.io/recall/internal/hasher"
	"goflare.io/recall/internal/models"
	"goflare.io/recall/internal/similarity"
)

const (
	// tokensPerEntry sizes the vocabulary filter relative to the entry cap.
	tokensPerEntry = 12

	vocabFalsePositiveRate = 0.01
)

// VocabFilter is a bloom filter over every token of every stored question.
// A fuzzy lookup whose tokens are all definitely absent cannot overlap any
// stored token set, so its Jaccard score is zero everywhere and the candidate
// scan can be skipped. False positives only cost a wasted scan.
type VocabFilter struct {
	mu       sync.Mutex
	filter   *bloom.BloomFilter
	expected uint
}

// NewVocabFilter sizes the filter for maxEntries stored questions.
func NewVocabFilter(maxEntries int) *VocabFilter {
	expected := uint(maxEntries) * tokensPerEntry
	return &VocabFilter{
		filter:   bloom.NewWithEstimates(expected, vocabFalsePositiveRate),
		expected: expected,
	}
}

// AddTokens adds every token of the normalized text to the filter.
func (v *VocabFilter) AddTokens(normalized string) {
	tokens := similarity.Tokenize(normalized)
	if len(tokens) == 0 {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for token := range tokens {
		v.filter.AddString(token)
	}
}

// MightMatchAny reports whether any of the tokens may be in the stored
// vocabulary. A false return is definitive: no stored question shares a
// token with the query.
func (v *VocabFilter) MightMatchAny(tokens map[string]struct{}) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for token := range tokens {
		if v.filter.TestString(token) {
			return true
		}
	}
	return false
}

// Reset replaces the filter with an empty one.
func (v *VocabFilter) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = bloom.NewWithEstimates(v.expected, vocabFalsePositiveRate)
}

// reindexVocab rebuilds the vocabulary filter from the store, used after
// sweeps since bloom filters cannot delete.
func (c *Cache) reindexVocab() {
	c.vocab.Reset()
	c.store.Range(func(entry *models.Entry) bool {
		c.vocab.AddTokens(hasher.Normalize(entry.Question))
		return true
	})
}
