package models

// MatchType identifies how a lookup resolved.
type MatchType string

const (
	// MatchExact means the normalized question hashed to a stored key.
	MatchExact MatchType = "exact"
	// MatchSimilarity means a fuzzy match scored at or above the threshold.
	MatchSimilarity MatchType = "similarity"
	// MatchHotCache means the raw query was resolved by the hot cache.
	MatchHotCache MatchType = "hot"
)

// MatchResult is what a successful lookup returns: a detached copy of the
// matched entry plus how it was found. Similarity is 1 for exact and
// hot-cache matches.
type MatchResult struct {
	Entry      *Entry
	Type       MatchType
	Similarity float64
}
