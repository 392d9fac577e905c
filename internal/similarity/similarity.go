// Package similarity scores token-set overlap between two strings using the
// Jaccard coefficient. Scores are symmetric, reflexive, and bounded to [0, 1].
package similarity

import (
	"strings"
	"unicode"
)

// Tokenize lowercases and trims s, then splits it on whitespace into a token
// set. Punctuation at token edges is stripped so "typescript??" and
// "typescript" count as the same token; duplicates collapse into one set
// member.
func Tokenize(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	if len(fields) == 0 {
		return nil
	}

	tokens := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		token := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if token != "" {
			tokens[token] = struct{}{}
		}
	}
	return tokens
}

// Jaccard computes the Jaccard coefficient of the token sets of a and b:
// intersection size over union size. Empty input scores 0.
func Jaccard(a, b string) float64 {
	return JaccardSets(Tokenize(a), Tokenize(b))
}

// JaccardSets computes the Jaccard coefficient of two precomputed token sets.
// Callers scanning many candidates tokenize the query once and reuse the set.
func JaccardSets(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}

	intersection := 0
	for token := range small {
		if _, ok := large[token]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
