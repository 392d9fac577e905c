package semantic

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"goflare.io/recall/internal/config"
	"goflare.io/recall/internal/models"
)

func newTestCache(t *testing.T, options ...config.Option) *Cache {
	t.Helper()

	base := []config.Option{
		config.WithLogger(zap.NewNop()),
		config.WithPersistPath(filepath.Join(t.TempDir(), "recall.json")),
		config.WithFlushInterval(0),
	}
	cfg, err := config.New(append(base, options...)...)
	if err != nil {
		t.Fatalf("config.New error: %v", err)
	}

	c, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func mustInsert(t *testing.T, c *Cache, question, answer string) {
	t.Helper()
	applied, err := c.Insert(context.Background(), question, answer, "")
	if err != nil {
		t.Fatalf("Insert(%q) error: %v", question, err)
	}
	if !applied {
		t.Fatalf("Insert(%q) was not applied", question)
	}
}

func TestLookup_ExactRepeat(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	mustInsert(t, c, "What is TypeScript?", "A typed superset of JavaScript")

	result, err := c.Lookup(ctx, "What is TypeScript?")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if result == nil {
		t.Fatal("expected a hit for an exact repeat")
	}
	if result.Entry.Answer != "A typed superset of JavaScript" {
		t.Errorf("Answer = %q", result.Entry.Answer)
	}
	if result.Entry.AccessCount != 2 {
		t.Errorf("AccessCount = %d, want 2 (1 on create, 1 on lookup)", result.Entry.AccessCount)
	}
	if result.Similarity != 1 {
		t.Errorf("Similarity = %v, want 1", result.Similarity)
	}
	if got := c.metrics.Hits.Load(); got != 1 {
		t.Errorf("Hits = %d, want 1", got)
	}
}

func TestLookup_NormalizationVariants(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	mustInsert(t, c, "What is TypeScript?", "A typed superset of JavaScript")

	// Case/whitespace variants hash to the same key: exact hits.
	result, err := c.Lookup(ctx, "  what IS   typescript?")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if result == nil || result.Type != models.MatchExact {
		t.Fatalf("result = %+v, want an exact match", result)
	}

	// A punctuation variant misses the key but clears the similarity gate.
	result, err = c.Lookup(ctx, "what is typescript??")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if result == nil {
		t.Fatal("expected a fuzzy hit for the punctuation variant")
	}
	if result.Type != models.MatchSimilarity {
		t.Errorf("Type = %s, want similarity", result.Type)
	}
	if result.Similarity < 0.85 {
		t.Errorf("Similarity = %v, want >= 0.85", result.Similarity)
	}
}

func TestLookup_Miss(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	mustInsert(t, c, "What is TypeScript?", "A typed superset of JavaScript")

	result, err := c.Lookup(ctx, "Completely unrelated query")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if result != nil {
		t.Fatalf("result = %+v, want miss", result)
	}
	if got := c.metrics.Misses.Load(); got != 1 {
		t.Errorf("Misses = %d, want 1", got)
	}
}

func TestLookup_ThresholdGate(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	mustInsert(t, c, "how do I configure logging in production", "use a structured logger")

	// Shares tokens, but far below the 0.85 threshold.
	result, err := c.Lookup(ctx, "how do I delete my account")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if result != nil {
		t.Fatalf("similarity below threshold must miss, got %+v", result)
	}
}

func TestLookup_InvalidInput(t *testing.T) {
	c := newTestCache(t)

	for _, input := range []string{"", "   "} {
		if _, err := c.Lookup(context.Background(), input); !errors.Is(err, models.ErrInvalidInput) {
			t.Errorf("Lookup(%q) error = %v, want ErrInvalidInput", input, err)
		}
	}
}

func TestLookup_TieBreakByAccessCount(t *testing.T) {
	c := newTestCache(t, config.WithSimilarityThreshold(0.5))
	ctx := context.Background()

	mustInsert(t, c, "alpha beta gamma", "first")
	mustInsert(t, c, "alpha beta delta", "second")

	// Bump the second entry so it wins the tie deterministically.
	if _, err := c.Lookup(ctx, "alpha beta delta"); err != nil {
		t.Fatalf("Lookup error: %v", err)
	}

	result, err := c.Lookup(ctx, "alpha beta")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if result == nil {
		t.Fatal("expected a fuzzy hit")
	}
	if result.Entry.Answer != "second" {
		t.Errorf("tie resolved to %q, want the more accessed entry", result.Entry.Answer)
	}
}

func TestLookup_Staleness(t *testing.T) {
	c := newTestCache(t, config.WithMaxEntryAge(time.Millisecond))
	ctx := context.Background()

	mustInsert(t, c, "What is Go?", "a language")
	time.Sleep(5 * time.Millisecond)

	result, err := c.Lookup(ctx, "What is Go?")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if result == nil {
		t.Fatal("stale entries must still be returned")
	}
	if !result.Entry.NeedsRefresh {
		t.Error("entry read past max age should be flagged NeedsRefresh")
	}
	if c.Stats().EntryCount != 1 {
		t.Error("staleness must never evict")
	}
}

func TestInsert_Validation(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	tests := []struct {
		name             string
		question, answer string
	}{
		{"empty question", "", "answer"},
		{"blank question", "  ", "answer"},
		{"empty answer", "question", ""},
		{"blank answer", "question", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applied, err := c.Insert(ctx, tt.question, tt.answer, "")
			if !errors.Is(err, models.ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
			if applied {
				t.Error("invalid insert must not be applied")
			}
		})
	}
}

func TestInsert_OverwriteSameQuestion(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	mustInsert(t, c, "What is Go?", "old answer")
	mustInsert(t, c, "what is go?", "new answer")

	if got := c.Stats().EntryCount; got != 1 {
		t.Fatalf("EntryCount = %d, want 1 (same normalized question)", got)
	}
	result, err := c.Lookup(ctx, "What is Go?")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if result.Entry.Answer != "new answer" {
		t.Errorf("Answer = %q, want the overwritten answer", result.Entry.Answer)
	}
}

func TestInsert_TriggersPruning(t *testing.T) {
	c := newTestCache(t, config.WithWaterMarks(10, 5))
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		mustInsert(t, c, fmt.Sprintf("unique question number%03d please", i), "answer")
		time.Sleep(time.Millisecond) // strictly order LastAccessedAt
	}

	if got := c.Stats().EntryCount; got != 5 {
		t.Fatalf("EntryCount = %d, want pruned to low-water mark 5", got)
	}

	// The oldest entries are gone, index and hot cache included.
	result, err := c.Lookup(ctx, "unique question number000 please")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if result != nil {
		t.Errorf("evicted entry still resolves: %+v", result)
	}
	result, err = c.Lookup(ctx, "unique question number010 please")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if result == nil {
		t.Error("most recent entry should survive pruning")
	}
}

func TestRefresh(t *testing.T) {
	c := newTestCache(t, config.WithMaxEntryAge(time.Millisecond))
	ctx := context.Background()

	mustInsert(t, c, "What is Go?", "old answer")
	time.Sleep(5 * time.Millisecond)

	stale, err := c.Lookup(ctx, "What is Go?")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if !stale.Entry.NeedsRefresh {
		t.Fatal("precondition: entry should be stale")
	}

	refreshed, err := c.Refresh(ctx, stale.Entry.Key, "new answer")
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if refreshed.Answer != "new answer" {
		t.Errorf("Answer = %q, want %q", refreshed.Answer, "new answer")
	}
	if refreshed.NeedsRefresh {
		t.Error("Refresh must clear NeedsRefresh")
	}
	if time.Since(refreshed.CreatedAt) > time.Second {
		t.Error("Refresh must reset CreatedAt")
	}
}

func TestRefresh_Errors(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if _, err := c.Refresh(ctx, "no-such-key", "answer"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if _, err := c.Refresh(ctx, "some-key", ""); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestClearAll(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	mustInsert(t, c, "What is Go?", "a language")
	mustInsert(t, c, "What is Rust?", "another language")

	if err := c.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll error: %v", err)
	}
	if got := c.Stats().EntryCount; got != 0 {
		t.Errorf("EntryCount = %d, want 0", got)
	}
	result, err := c.Lookup(ctx, "What is Go?")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if result != nil {
		t.Errorf("lookup after ClearAll = %+v, want miss", result)
	}
	if c.store.Dirty() {
		t.Error("ClearAll should leave the store flushed")
	}
}

func TestRunMaintenance_SweepsAndFlushes(t *testing.T) {
	c := newTestCache(t,
		config.WithMaxEntryAge(time.Millisecond),
		config.WithMinAccessCount(5),
	)
	ctx := context.Background()

	mustInsert(t, c, "old unpopular question here", "answer")
	time.Sleep(5 * time.Millisecond)

	if err := c.RunMaintenance(ctx); err != nil {
		t.Fatalf("RunMaintenance error: %v", err)
	}
	if got := c.Stats().EntryCount; got != 0 {
		t.Errorf("EntryCount = %d, want the aged entry swept", got)
	}
	if c.store.Dirty() {
		t.Error("RunMaintenance should flush the dirty store")
	}
}

func TestSaveFailure_SurfacedAndNonDestructive(t *testing.T) {
	// Pointing the persist path at an existing directory makes the final
	// rename fail deterministically.
	dir := t.TempDir()
	badPath := filepath.Join(dir, "snapshot")
	if err := os.Mkdir(badPath, 0o755); err != nil {
		t.Fatalf("Mkdir error: %v", err)
	}

	cfg, err := config.New(
		config.WithLogger(zap.NewNop()),
		config.WithPersistPath(badPath),
		config.WithFlushInterval(0),
	)
	if err != nil {
		t.Fatalf("config.New error: %v", err)
	}
	c, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	mustInsert(t, c, "What is Go?", "a language")

	if err := c.RunMaintenance(ctx); !errors.Is(err, models.ErrSave) {
		t.Fatalf("RunMaintenance error = %v, want ErrSave", err)
	}

	// The in-memory store is untouched and keeps serving.
	result, err := c.Lookup(ctx, "What is Go?")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if result == nil {
		t.Error("lookup must still hit after a failed save")
	}
	if !c.store.Dirty() {
		t.Error("a failed save must leave the store dirty for the next flush")
	}
}

func TestDisabledMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.json")
	c := newTestCache(t, config.WithEnabled(false), config.WithPersistPath(path))
	ctx := context.Background()

	applied, err := c.Insert(ctx, "question", "answer", "")
	if err != nil || applied {
		t.Errorf("Insert = (%v, %v), want (false, nil)", applied, err)
	}
	result, err := c.Lookup(ctx, "question")
	if err != nil || result != nil {
		t.Errorf("Lookup = (%v, %v), want (nil, nil)", result, err)
	}
	entry, err := c.Refresh(ctx, "key", "answer")
	if err != nil || entry != nil {
		t.Errorf("Refresh = (%v, %v), want (nil, nil)", entry, err)
	}
	if got := c.Stats(); got != (models.Stats{}) {
		t.Errorf("Stats = %+v, want zero", got)
	}
	if err := c.ClearAll(ctx); err != nil {
		t.Errorf("ClearAll = %v, want nil", err)
	}
	if err := c.RunMaintenance(ctx); err != nil {
		t.Errorf("RunMaintenance = %v, want nil", err)
	}

	// Persistence must never have been touched.
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("disabled cache touched the persist path: %v", err)
	}
}

func TestMetrics(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	mustInsert(t, c, "What is Go?", "a language")

	if _, err := c.Lookup(ctx, "what IS go?"); err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if _, err := c.Lookup(ctx, "completely unrelated thing"); err != nil {
		t.Fatalf("Lookup error: %v", err)
	}

	rates := c.HitRateStats()
	if rates.TotalLookups != 2 {
		t.Errorf("TotalLookups = %d, want 2", rates.TotalLookups)
	}
	if rates.HitRate != 0.5 {
		t.Errorf("HitRate = %v, want 0.5", rates.HitRate)
	}

	c.ResetMetrics()
	rates = c.HitRateStats()
	if rates.TotalLookups != 0 || rates.HitRate != 0 {
		t.Errorf("rates after reset = %+v, want zeroes", rates)
	}
}
