// Package hasher derives stable content-addressed cache keys from question
// text. Two questions that differ only in case or whitespace runs map to the
// same key, across process restarts.
package hasher

import (
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"strings"

	"goflare.io/recall/internal/models"
)

// Normalize lowercases, trims, and collapses internal whitespace runs to a
// single space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Key hashes the normalized question into a fixed-width hex key (128-bit
// FNV-1a, 32 hex characters). An empty or all-whitespace question is
// rejected with ErrInvalidInput.
func Key(question string) (string, error) {
	normalized := Normalize(question)
	if normalized == "" {
		return "", fmt.Errorf("%w: question must be a non-empty string", models.ErrInvalidInput)
	}

	h := fnv.New128a()
	if _, err := h.Write([]byte(normalized)); err != nil {
		return "", fmt.Errorf("failed to hash question: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
