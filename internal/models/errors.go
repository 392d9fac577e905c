package models

import "errors"

// Sentinel errors shared across the cache internals. The root package
// re-exports them so callers can match with errors.Is.
var (
	// ErrInitialization means persistent storage could not be bootstrapped.
	// The cache still comes up with an empty in-memory store.
	ErrInitialization = errors.New("failed to initialize cache storage")

	// ErrSave means a persistence write failed; the in-memory store is
	// unchanged.
	ErrSave = errors.New("failed to save cache")

	// ErrRead means a persisted file was unreadable or corrupt. It is
	// recovered locally (empty store) and normally only logged.
	ErrRead = errors.New("failed to read persisted cache")

	// ErrInvalidInput means a caller passed an empty question, answer, or key.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound means the requested key has no entry in the store.
	ErrNotFound = errors.New("entry not found")
)
