package patterns

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/record"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func affinityGroup() []record.TextRecord {
	return []record.TextRecord{
		{
			ID:      "a",
			Title:   "Affinity Studio Goes Free",
			Summary: "Canva makes the Affinity design suite free with a freemium model",
		},
		{
			ID:      "b",
			Title:   "Affinity Software's Freemium Shift",
			Summary: "Canva moves Affinity design software to a freemium model",
		},
	}
}

func rustGroup() []record.TextRecord {
	return []record.TextRecord{
		{ID: "r1", Title: "Rust 1.75 Released", Summary: "The Rust team ships version 1.75 with async fn in traits"},
		{ID: "r2", Title: "Rust 1.75 lands async traits", Summary: "Rust 1.75 is out with async fn in traits for everyone"},
	}
}

func newTestLearner(t *testing.T, store Store) *Learner {
	t.Helper()
	learner := New(store, zerolog.Nop(), Options{Clock: fixedClock})
	if _, err := learner.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return learner
}

func TestLearnFromDuplicatesCreatesPattern(t *testing.T) {
	t.Parallel()

	store := NewFileStore(filepath.Join(t.TempDir(), "patterns.json"))
	learner := newTestLearner(t, store)

	pattern, learned, err := learner.LearnFromDuplicates(context.Background(), affinityGroup())
	if err != nil {
		t.Fatalf("LearnFromDuplicates() error = %v", err)
	}
	if !learned {
		t.Fatalf("expected the group to produce a pattern")
	}
	for _, entity := range []string{"affinity", "canva", "freemium"} {
		if !pattern.Entities.Has(entity) {
			t.Fatalf("expected entity %q in %v", entity, pattern.Entities.Sorted())
		}
	}
	if !pattern.Keywords.Has("design") || pattern.Keywords.Has("studio") {
		t.Fatalf("expected only shared keywords, got %v", pattern.Keywords.Sorted())
	}
	if pattern.Confidence != InitialConfidence || pattern.Frequency != 1 {
		t.Fatalf("unexpected new pattern state: confidence=%v frequency=%d", pattern.Confidence, pattern.Frequency)
	}
	if !pattern.FirstSeen.Equal(fixedNow) || pattern.ID == "" {
		t.Fatalf("unexpected metadata: %+v", pattern)
	}

	reloaded := newTestLearner(t, store)
	if got := reloaded.Patterns(); len(got) != 1 || got[0].ID != pattern.ID {
		t.Fatalf("expected persisted pattern after reload, got %+v", got)
	}
}

func TestLearnFromDuplicatesConfidenceIsMonotoneAndCapped(t *testing.T) {
	t.Parallel()

	learner := newTestLearner(t, NewFileStore(filepath.Join(t.TempDir(), "patterns.json")))

	previous := 0.0
	for i := 0; i < 8; i++ {
		pattern, _, err := learner.LearnFromDuplicates(context.Background(), affinityGroup())
		if err != nil {
			t.Fatalf("LearnFromDuplicates() error = %v", err)
		}
		if pattern.Confidence < previous {
			t.Fatalf("confidence decreased from %v to %v", previous, pattern.Confidence)
		}
		if pattern.Confidence > MaxConfidence {
			t.Fatalf("confidence %v exceeds cap", pattern.Confidence)
		}
		if pattern.Frequency != i+1 {
			t.Fatalf("expected frequency %d, got %d", i+1, pattern.Frequency)
		}
		previous = pattern.Confidence
	}
	if previous != MaxConfidence {
		t.Fatalf("expected confidence to reach cap, got %v", previous)
	}
	if got := learner.Count(); got != 1 {
		t.Fatalf("expected a single reinforced pattern, got %d", got)
	}
}

func TestLearnFromDuplicatesIgnoresGroupsWithoutSharedTerms(t *testing.T) {
	t.Parallel()

	learner := newTestLearner(t, NewFileStore(filepath.Join(t.TempDir(), "patterns.json")))
	group := []record.TextRecord{{Title: "Kernel news"}, {Title: "Garden tips"}}

	_, learned, err := learner.LearnFromDuplicates(context.Background(), group)
	if err != nil || learned {
		t.Fatalf("expected no pattern, got learned=%v err=%v", learned, err)
	}
}

func TestCheckAgainstPatternsThrottlesRareObservations(t *testing.T) {
	t.Parallel()

	learner := newTestLearner(t, NewFileStore(filepath.Join(t.TempDir(), "patterns.json")))
	if _, _, err := learner.LearnFromDuplicates(context.Background(), affinityGroup()); err != nil {
		t.Fatalf("LearnFromDuplicates() error = %v", err)
	}

	title := "Affinity Canva Freemium Design"
	tags := []string{"affinity", "canva"}

	if _, ok := learner.CheckAgainstPatterns(title, tags, DefaultCheckThreshold); ok {
		t.Fatalf("a pattern seen once must not reach the default threshold")
	}
	match, ok := learner.CheckAgainstPatterns(title, tags, 0.1)
	if !ok {
		t.Fatalf("expected a match at a low threshold")
	}
	if match.KeywordOverlap != 1 || match.TagOverlap != 1 {
		t.Fatalf("expected perfect overlap, got %+v", match)
	}
	if match.Score > 1.0/3.0+1e-12 {
		t.Fatalf("frequency-1 pattern scored %v, above 1/3", match.Score)
	}

	for i := 0; i < 2; i++ {
		if _, _, err := learner.LearnFromDuplicates(context.Background(), affinityGroup()); err != nil {
			t.Fatalf("LearnFromDuplicates() error = %v", err)
		}
	}
	match, ok = learner.CheckAgainstPatterns(title, tags, DefaultCheckThreshold)
	if !ok || match.Score != 1 {
		t.Fatalf("expected full-weight match after three observations, got ok=%v %+v", ok, match)
	}
}

func TestCheckAgainstPatternsNoPatterns(t *testing.T) {
	t.Parallel()

	learner := newTestLearner(t, NewFileStore(filepath.Join(t.TempDir(), "patterns.json")))
	if _, ok := learner.CheckAgainstPatterns("Anything at all", nil, 0); ok {
		t.Fatalf("expected no match without patterns")
	}
}

func TestLoadDegradesOnCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "patterns.json")
	mustWriteFile(t, path, "{not json")

	learner := New(NewFileStore(path), zerolog.Nop(), Options{Clock: fixedClock})
	result, err := learner.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if result.State != StateDegraded || result.Cause == nil {
		t.Fatalf("expected degraded state with cause, got %+v", result)
	}
	if learner.Count() != 0 {
		t.Fatalf("expected empty pattern set")
	}
	if learner.Stats().LoadState != "degraded" {
		t.Fatalf("unexpected stats: %+v", learner.Stats())
	}
}

func TestLoadDegradesOnSchemaViolation(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "patterns.json")
	mustWriteFile(t, path, `[{"entities":["rust"],"keywords":[],"confidence":2,"frequency":1}]`)

	result, err := NewFileStore(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if result.State != StateDegraded {
		t.Fatalf("expected degraded state, got %s", result.State)
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	result, err := NewFileStore(filepath.Join(t.TempDir(), "missing.json")).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if result.State != StateEmpty {
		t.Fatalf("expected empty state, got %s", result.State)
	}
}

func TestLoadNormalizesLegacyTimestamps(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "patterns.json")
	mustWriteFile(t, path, `[{"entities":["Rust"],"keywords":["async"],"confidence":0.99,"frequency":4,
		"examples":["Rust 1.75 Released"],"createdAt":"2025-03-01T10:00:00","lastSeen":"2025-03-02"}]`)

	result, err := NewFileStore(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if result.State != StateLoaded || len(result.Patterns) != 1 {
		t.Fatalf("expected one loaded pattern, got %+v", result)
	}
	p := result.Patterns[0]
	if !p.Entities.Has("rust") {
		t.Fatalf("expected lower-cased entities, got %v", p.Entities.Sorted())
	}
	if p.Confidence != MaxConfidence {
		t.Fatalf("expected confidence clamped to %v, got %v", MaxConfidence, p.Confidence)
	}
	if p.FirstSeen.Location() != time.UTC || !p.LastSeen.Equal(time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected timestamps: %v %v", p.FirstSeen, p.LastSeen)
	}
}

func TestFailedSaveKeepsInMemoryState(t *testing.T) {
	t.Parallel()

	store := &failingStore{err: errors.New("disk full")}
	learner := newTestLearner(t, store)

	_, learned, err := learner.LearnFromDuplicates(context.Background(), affinityGroup())
	if err == nil || !errors.Is(err, store.err) {
		t.Fatalf("expected save error, got %v", err)
	}
	if !learned || learner.Count() != 1 {
		t.Fatalf("expected in-memory pattern despite failed save")
	}
}

func TestMergeFoldsDeltasAndSavesOnce(t *testing.T) {
	t.Parallel()

	store := &countingStore{inner: NewFileStore(filepath.Join(t.TempDir(), "patterns.json"))}
	learner := newTestLearner(t, store)
	base, _, err := learner.LearnFromDuplicates(context.Background(), affinityGroup())
	if err != nil {
		t.Fatalf("LearnFromDuplicates() error = %v", err)
	}
	savesBefore := store.count()

	snapshot := learner.Snapshot()
	first := snapshot.NewAccumulator()
	second := snapshot.NewAccumulator()

	if _, ok := first.Observe(affinityGroup()); !ok {
		t.Fatalf("expected first worker to observe the group")
	}
	if _, ok := second.Observe(affinityGroup()); !ok {
		t.Fatalf("expected second worker to observe the group")
	}
	if _, ok := second.Observe(rustGroup()); !ok {
		t.Fatalf("expected second worker to observe the rust group")
	}
	if learner.Patterns()[0].Frequency != 1 {
		t.Fatalf("workers must not touch the shared learner before merge")
	}

	stats, err := learner.Merge(context.Background(), first.Delta(), second.Delta())
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if stats.Created != 1 || stats.Updated != 2 {
		t.Fatalf("unexpected merge stats: %+v", stats)
	}
	if got := store.count() - savesBefore; got != 1 {
		t.Fatalf("expected exactly one save for the merge, got %d", got)
	}

	patterns := learner.Patterns()
	if len(patterns) != 2 {
		t.Fatalf("expected 2 patterns after merge, got %d", len(patterns))
	}
	merged := patterns[0]
	if merged.ID != base.ID {
		t.Fatalf("expected base pattern first, got %s", merged.ID)
	}
	if merged.Frequency != 2 || math.Abs(merged.Confidence-(InitialConfidence+ConfidenceStep)) > 1e-9 {
		t.Fatalf("competing updates should take the maximum, got frequency=%d confidence=%v", merged.Frequency, merged.Confidence)
	}
	if !patterns[1].Entities.Has("rust") {
		t.Fatalf("expected worker-created rust pattern, got %v", patterns[1].Entities.Sorted())
	}
}

func TestDeltaIsImmutable(t *testing.T) {
	t.Parallel()

	learner := newTestLearner(t, NewFileStore(filepath.Join(t.TempDir(), "patterns.json")))
	acc := learner.Snapshot().NewAccumulator()
	acc.Observe(rustGroup())

	delta := acc.Delta()
	acc.Observe(rustGroup())

	if len(delta.Created) != 1 || delta.Created[0].Frequency != 1 {
		t.Fatalf("delta changed after further observations: %+v", delta.Created)
	}
	if delta.Empty() {
		t.Fatalf("expected non-empty delta")
	}
}

func TestMergeWithoutChangesSkipsSave(t *testing.T) {
	t.Parallel()

	store := &countingStore{inner: NewFileStore(filepath.Join(t.TempDir(), "patterns.json"))}
	learner := newTestLearner(t, store)

	if _, err := learner.Merge(context.Background(), Delta{}, Delta{}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if store.count() != 0 {
		t.Fatalf("expected no save for empty deltas")
	}
}

type failingStore struct {
	err error
}

func (s *failingStore) Load(context.Context) (LoadResult, error) {
	return LoadResult{State: StateEmpty}, nil
}

func (s *failingStore) Save(context.Context, []Pattern) error {
	return s.err
}

type countingStore struct {
	inner Store
	mu    sync.Mutex
	saves int
}

func (s *countingStore) Load(ctx context.Context) (LoadResult, error) {
	return s.inner.Load(ctx)
}

func (s *countingStore) Save(ctx context.Context, patterns []Pattern) error {
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	return s.inner.Save(ctx, patterns)
}

func (s *countingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func mustWriteFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file %s: %v", path, err)
	}
}

func TestConcurrentSavesPersistNewestState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "patterns.json"))
	learner := newTestLearner(t, store)

	const writers = 16
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _, err := learner.LearnFromDuplicates(ctx, affinityGroup())
				errs <- err
				return
			}
			acc := learner.Snapshot().NewAccumulator()
			acc.Observe(rustGroup())
			_, err := learner.Merge(ctx, acc.Delta())
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent save error = %v", err)
		}
	}

	result, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := learner.Patterns()
	if len(result.Patterns) != len(want) {
		t.Fatalf("expected %d persisted patterns, got %d", len(want), len(result.Patterns))
	}
	for i := range want {
		if result.Patterns[i].ID != want[i].ID || result.Patterns[i].Frequency != want[i].Frequency {
			t.Fatalf("persisted pattern %d is stale: got %s/%d, want %s/%d",
				i, result.Patterns[i].ID, result.Patterns[i].Frequency, want[i].ID, want[i].Frequency)
		}
	}
	for _, pattern := range want {
		if pattern.Entities.Has("affinity") && pattern.Frequency != writers/2 {
			t.Fatalf("expected affinity frequency %d, got %d", writers/2, pattern.Frequency)
		}
	}
}
