package semantic

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"goflare.io/recall/internal/config"
	"goflare.io/recall/internal/models"
	"goflare.io/recall/internal/store"
	"goflare.io/recall/retrier"
)

// snapshotVersion tags the persisted format so future changes can be migrated
// instead of silently misread.
const snapshotVersion = 1

// snapshot is the persisted file layout: a versioned map of key -> entry.
type snapshot struct {
	Version int                      `json:"version"`
	SavedAt time.Time                `json:"savedAt"`
	Entries map[string]*models.Entry `json:"entries"`
}

// Persister loads and saves store snapshots crash-safely: writes go to a
// temporary file in the target directory followed by an atomic rename, so a
// reader never observes a partial file. Saves run through a circuit breaker
// and a short retry schedule; every failure still surfaces as ErrSave.
type Persister struct {
	cfg     *config.Config
	store   *store.Store
	breaker *gobreaker.CircuitBreaker
	retrier *retrier.Retrier
	logger  *zap.Logger
}

// NewPersister creates a Persister for the configured snapshot path.
func NewPersister(cfg *config.Config, st *store.Store) *Persister {
	return &Persister{
		cfg:     cfg,
		store:   st,
		breaker: gobreaker.NewCircuitBreaker(cfg.Breaker),
		retrier: retrier.New(cfg.SaveRetryBackoff...),
		logger:  cfg.Logger,
	}
}

// Load reads the snapshot file and returns its entries.
//
// An absent file is not an error: an initial empty snapshot is written and an
// empty map returned. A corrupt or wrong-version file is logged and recovered
// as empty. Only a disk-level failure while bootstrapping the initial file
// surfaces, wrapped as ErrInitialization; even then the returned map is
// usable (empty) so the host process keeps running.
func (p *Persister) Load(_ context.Context) (map[string]*models.Entry, error) {
	empty := make(map[string]*models.Entry)

	f, err := os.Open(p.cfg.PersistPath)
	if errors.Is(err, fs.ErrNotExist) {
		if writeErr := p.writeSnapshot(empty); writeErr != nil {
			p.logger.Error("failed to bootstrap cache file",
				zap.String("path", p.cfg.PersistPath), zap.Error(writeErr))
			return empty, fmt.Errorf("%w: %w", models.ErrInitialization, writeErr)
		}
		return empty, nil
	}
	if err != nil {
		p.logger.Error("failed to open cache file",
			zap.String("path", p.cfg.PersistPath), zap.Error(err))
		return empty, fmt.Errorf("%w: %w", models.ErrInitialization, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			p.logger.Warn("failed to close cache file", zap.Error(closeErr))
		}
	}()

	var snap snapshot
	if err := p.cfg.Serialization.NewDecoder(f).Decode(&snap); err != nil {
		p.logger.Warn("cache file unreadable, starting empty",
			zap.String("path", p.cfg.PersistPath),
			zap.Error(fmt.Errorf("%w: %w", models.ErrRead, err)))
		return empty, nil
	}
	if snap.Version != snapshotVersion {
		p.logger.Warn("cache file has unsupported version, starting empty",
			zap.Int("version", snap.Version))
		return empty, nil
	}
	if snap.Entries == nil {
		return empty, nil
	}
	return snap.Entries, nil
}

// Save writes the current store contents to disk. On failure the dirty flag
// is restored and the error wraps ErrSave; the in-memory store is unchanged
// either way.
func (p *Persister) Save(ctx context.Context) error {
	// Clear before snapshotting: a mutation racing with the write either
	// lands in the snapshot or re-marks the store dirty for the next flush.
	p.store.ClearDirty()
	entries := p.store.Snapshot()

	_, err := p.breaker.Execute(func() (any, error) {
		return nil, p.retrier.Run(ctx, func() error {
			return p.writeSnapshot(entries)
		})
	})
	if err != nil {
		p.store.MarkDirty()
		return fmt.Errorf("%w: %w", models.ErrSave, err)
	}

	p.logger.Debug("cache flushed",
		zap.Int("entries", len(entries)), zap.String("path", p.cfg.PersistPath))
	return nil
}

// SaveIfDirty is a no-op when the store has no unflushed mutations.
func (p *Persister) SaveIfDirty(ctx context.Context) error {
	if !p.store.Dirty() {
		return nil
	}
	return p.Save(ctx)
}

// writeSnapshot performs one atomic write: temp file, encode, fsync, rename.
func (p *Persister) writeSnapshot(entries map[string]*models.Entry) error {
	snap := snapshot{
		Version: snapshotVersion,
		SavedAt: time.Now(),
		Entries: entries,
	}

	dir := filepath.Dir(p.cfg.PersistPath)
	tmp, err := os.CreateTemp(dir, ".recall-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := p.cfg.Serialization.NewEncoder(tmp).Encode(&snap); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), p.cfg.PersistPath); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
