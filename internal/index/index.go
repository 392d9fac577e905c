// Package index maintains an inverted term index over stored questions,
// mapping each term to the set of entry keys whose question contains it. It
// narrows fuzzy-lookup candidates before similarity scoring.
package index

import (
	"strings"
	"sync"
)

// minTermLen filters out short connective tokens that would match everything.
const minTermLen = 3

// Index is a mutex-protected inverted index: term -> set of entry keys.
// It holds non-owning references; callers must remove keys synchronously when
// the owning store drops an entry.
type Index struct {
	mu    sync.RWMutex
	terms map[string]map[string]struct{}
}

// New creates an empty Index.
func New() *Index {
	return &Index{terms: make(map[string]map[string]struct{})}
}

// Terms extracts index terms from normalized text: whitespace-delimited
// tokens stripped of non-alphanumeric runes, keeping those longer than two
// characters.
func Terms(s string) []string {
	var terms []string
	for _, field := range strings.Fields(strings.ToLower(s)) {
		term := strings.Map(func(r rune) rune {
			if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, field)
		if len(term) >= minTermLen {
			terms = append(terms, term)
		}
	}
	return terms
}

// Add indexes every term of the normalized question under key.
func (ix *Index) Add(key, question string) {
	terms := Terms(question)
	if len(terms) == 0 {
		return
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, term := range terms {
		keys, ok := ix.terms[term]
		if !ok {
			keys = make(map[string]struct{})
			ix.terms[term] = keys
		}
		keys[key] = struct{}{}
	}
}

// Remove drops key from the posting set of every term of the normalized
// question, deleting term entries that become empty.
func (ix *Index) Remove(key, question string) {
	terms := Terms(question)
	if len(terms) == 0 {
		return
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, term := range terms {
		keys, ok := ix.terms[term]
		if !ok {
			continue
		}
		delete(keys, key)
		if len(keys) == 0 {
			delete(ix.terms, term)
		}
	}
}

// Candidates narrows the key space for a normalized query by intersecting the
// posting sets of its terms (AND semantics). If an intersection would become
// empty, the last non-empty set is retained instead: the index is a heuristic
// narrowing aid, not ground truth. A nil result means the caller must fall
// back to scanning the whole store.
func (ix *Index) Candidates(query string) []string {
	terms := Terms(query)
	if len(terms) == 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var running map[string]struct{}
	for _, term := range terms {
		posting := ix.terms[term]
		if running == nil {
			if len(posting) > 0 {
				running = posting
			}
			continue
		}

		next := make(map[string]struct{})
		for key := range running {
			if _, ok := posting[key]; ok {
				next[key] = struct{}{}
			}
		}
		if len(next) > 0 {
			running = next
		}
	}
	if len(running) == 0 {
		return nil
	}

	keys := make([]string, 0, len(running))
	for key := range running {
		keys = append(keys, key)
	}
	return keys
}

// Clear drops all postings.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.terms = make(map[string]map[string]struct{})
}

// TermCount returns the number of distinct indexed terms.
func (ix *Index) TermCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.terms)
}
