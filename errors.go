package recall

import (
	"goflare.io/recall/internal/models"
)

// Sentinel errors surfaced by the cache. Match with errors.Is.
var (
	// ErrInitialization means persistent storage could not be bootstrapped at
	// startup. The cache still serves from an empty in-memory store.
	ErrInitialization = models.ErrInitialization

	// ErrSave means a persistence write failed. The in-memory store is
	// unchanged and the store stays marked dirty for the next flush.
	ErrSave = models.ErrSave

	// ErrRead means a persisted file was unreadable or corrupt. It is
	// recovered locally (empty store) and normally only appears in logs.
	ErrRead = models.ErrRead

	// ErrInvalidInput means a caller passed an empty question, answer, or key.
	ErrInvalidInput = models.ErrInvalidInput

	// ErrNotFound means Refresh was called for a key with no entry.
	ErrNotFound = models.ErrNotFound
)
