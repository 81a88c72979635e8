package feedback

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/cluster"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/record"
)

type fixedCounter int

func (c fixedCounter) Count() int { return int(c) }

func newTestRecorder(t *testing.T, window int) *Recorder {
	t.Helper()
	clock := func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }
	return NewRecorder(filepath.Join(t.TempDir(), "feedback.json"), zerolog.Nop(), Options{Window: window, Clock: clock})
}

func group(kept string, removed ...string) cluster.Group {
	g := cluster.Group{Kept: record.TextRecord{Title: kept}}
	g.Members = append(g.Members, g.Kept)
	for _, title := range removed {
		rec := record.TextRecord{Title: title}
		g.Members = append(g.Members, rec)
		g.Removed = append(g.Removed, rec)
	}
	return g
}

func TestRecordSessionPersistsAndReloads(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rec := newTestRecorder(t, 0)
	if err := rec.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	groups := []cluster.Group{
		group("a", "a1"),
		group("b", "b1", "b2"),
		group("c", "c1"),
		group("d", "d1"),
	}
	got, err := rec.RecordSession(ctx, Session{Stage: "pre", Before: 20, After: 15, Groups: groups}, fixedCounter(7))
	if err != nil {
		t.Fatalf("RecordSession() error = %v", err)
	}
	if got.ItemsProcessed != 20 || got.DuplicatesFound != 5 || got.PatternsUsed != 7 {
		t.Fatalf("unexpected record %+v", got)
	}
	if len(got.Examples) != MaxExamples {
		t.Fatalf("expected %d examples, got %d", MaxExamples, len(got.Examples))
	}
	if got.Examples[1].GroupSize != 3 || len(got.Examples[1].RemovedSnippets) != 2 {
		t.Fatalf("unexpected example %+v", got.Examples[1])
	}
	if got.ID == "" {
		t.Fatal("expected session id")
	}

	reloaded := NewRecorder(rec.Path(), zerolog.Nop(), Options{})
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("reload error = %v", err)
	}
	records := reloaded.Records()
	if len(records) != 1 {
		t.Fatalf("expected one persisted session, got %d", len(records))
	}
	if records[0].ID != got.ID || !records[0].Timestamp.Equal(got.Timestamp) {
		t.Fatalf("persisted session mismatch: %+v vs %+v", records[0], got)
	}
}

func TestCorruptLogDegradesToEmpty(t *testing.T) {
	t.Parallel()

	rec := newTestRecorder(t, 0)
	if err := os.WriteFile(rec.Path(), []byte(`[{"itemsProcessed": "many"}]`), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	if err := rec.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !rec.Degraded() || len(rec.Records()) != 0 {
		t.Fatalf("expected degraded empty log, degraded=%v records=%d", rec.Degraded(), len(rec.Records()))
	}
}

func TestLegacyNaiveTimestampsLoadAsUTC(t *testing.T) {
	t.Parallel()

	rec := newTestRecorder(t, 0)
	legacy := `[{"itemsProcessed": 10, "duplicatesFound": 1, "patternsUsed": 0, "timestamp": "2025-11-02T08:30:00"}]`
	if err := os.WriteFile(rec.Path(), []byte(legacy), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	if err := rec.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	records := rec.Records()
	if len(records) != 1 {
		t.Fatalf("expected one session, got %d", len(records))
	}
	want := time.Date(2025, 11, 2, 8, 30, 0, 0, time.UTC)
	if !records[0].Timestamp.Equal(want) {
		t.Fatalf("timestamp = %v, want %v", records[0].Timestamp, want)
	}
}

func TestSuggestImprovementsUsesTrailingWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rec := newTestRecorder(t, 3)

	// Old sessions with a high rate fall outside the window.
	for i := 0; i < 5; i++ {
		if _, err := rec.RecordSession(ctx, Session{Before: 10, After: 5}, nil); err != nil {
			t.Fatalf("RecordSession() error = %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		if _, err := rec.RecordSession(ctx, Session{Before: 100, After: 99}, nil); err != nil {
			t.Fatalf("RecordSession() error = %v", err)
		}
	}

	suggestions := rec.SuggestImprovements()
	if len(suggestions) != 1 || !strings.Contains(suggestions[0], "lowering") {
		t.Fatalf("expected a lower-threshold suggestion, got %v", suggestions)
	}

	metrics := rec.GetQualityMetrics()
	if metrics.Sessions != 8 || metrics.RecentSessions != 3 {
		t.Fatalf("unexpected session counts %+v", metrics)
	}
	if metrics.Trend != TrendFalling {
		t.Fatalf("expected falling trend, got %q", metrics.Trend)
	}
}

func TestSuggestImprovementsHighRate(t *testing.T) {
	t.Parallel()

	rec := newTestRecorder(t, 0)
	if _, err := rec.RecordSession(context.Background(), Session{Before: 10, After: 6}, nil); err != nil {
		t.Fatalf("RecordSession() error = %v", err)
	}
	suggestions := rec.SuggestImprovements()
	if len(suggestions) != 1 || !strings.Contains(suggestions[0], "raising") {
		t.Fatalf("expected a raise-threshold suggestion, got %v", suggestions)
	}
}

func TestSuggestImprovementsInBand(t *testing.T) {
	t.Parallel()

	rec := newTestRecorder(t, 0)
	if _, err := rec.RecordSession(context.Background(), Session{Before: 10, After: 9}, nil); err != nil {
		t.Fatalf("RecordSession() error = %v", err)
	}
	if suggestions := rec.SuggestImprovements(); len(suggestions) != 0 {
		t.Fatalf("expected no suggestions for a 10%% rate, got %v", suggestions)
	}
	if metrics := rec.GetQualityMetrics(); metrics.Trend != TrendInsufficient {
		t.Fatalf("expected insufficient data trend, got %q", metrics.Trend)
	}
}

func TestEmptyRecorderMetrics(t *testing.T) {
	t.Parallel()

	rec := newTestRecorder(t, 0)
	if suggestions := rec.SuggestImprovements(); suggestions != nil {
		t.Fatalf("expected no suggestions, got %v", suggestions)
	}
	metrics := rec.GetQualityMetrics()
	if metrics.Sessions != 0 || metrics.AverageRate != 0 {
		t.Fatalf("unexpected metrics %+v", metrics)
	}
}

func TestConcurrentSessionsAreAllPersisted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rec := newTestRecorder(t, 0)
	if err := rec.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	const sessions = 20
	var wg sync.WaitGroup
	errs := make(chan error, sessions)
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := rec.RecordSession(ctx, Session{Stage: "pre", Before: 10 + i, After: 10}, nil)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("RecordSession() error = %v", err)
		}
	}

	reloaded := NewRecorder(rec.Path(), zerolog.Nop(), Options{})
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("reload error = %v", err)
	}
	if got := len(reloaded.Records()); got != sessions {
		t.Fatalf("expected %d persisted sessions, got %d", sessions, got)
	}
}
