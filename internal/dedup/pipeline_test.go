package dedup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	lingua "github.com/pemistahl/lingua-go"
	"github.com/rs/zerolog"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/feedback"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/langdetect"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/patterns"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/recency"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/record"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

type fixture struct {
	dir      string
	learner  *patterns.Learner
	feedback *feedback.Recorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	learner := patterns.New(patterns.NewFileStore(filepath.Join(dir, "patterns.json")), zerolog.Nop(), patterns.Options{Clock: testClock})
	if _, err := learner.Load(context.Background()); err != nil {
		t.Fatalf("learner Load() error = %v", err)
	}
	recorder := feedback.NewRecorder(filepath.Join(dir, "feedback.json"), zerolog.Nop(), feedback.Options{Clock: testClock})
	if err := recorder.Load(context.Background()); err != nil {
		t.Fatalf("feedback Load() error = %v", err)
	}
	return fixture{dir: dir, learner: learner, feedback: recorder}
}

func (f fixture) pipeline(t *testing.T, deps Deps) *Pipeline {
	t.Helper()
	deps.Learner = f.learner
	deps.Feedback = f.feedback
	deps.Logger = zerolog.Nop()
	p, err := New(deps, Options{Workers: 2})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func gptRecords() []record.TextRecord {
	return []record.TextRecord{
		{
			ID:              "a",
			Title:           "OpenAI launches GPT-5 model",
			Summary:         "OpenAI released GPT-5 with better reasoning.",
			Tags:            []string{"ai", "openai"},
			EngagementScore: 10,
		},
		{
			ID:              "b",
			Title:           "OpenAI launches GPT-5 model today",
			Summary:         "OpenAI released GPT-5 with better reasoning today.",
			Tags:            []string{"ai", "openai"},
			EngagementScore: 50,
		},
		{ID: "blank", Title: "   "},
		{
			ID:      "rust",
			Title:   "Rust 2.0 released with new borrow checker",
			Summary: "The Rust team shipped version 2.0 today.",
			Tags:    []string{"rust"},
		},
	}
}

func TestPreGenerationGroupsLearnsAndRecords(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p := f.pipeline(t, Deps{})

	result, err := p.PreGeneration(context.Background(), gptRecords())
	if err != nil {
		t.Fatalf("PreGeneration() error = %v", err)
	}

	if result.Skipped != 1 {
		t.Fatalf("expected one skipped record, got %d", result.Skipped)
	}
	if len(result.Groups) != 1 {
		t.Fatalf("expected one duplicate group, got %d", len(result.Groups))
	}
	if result.Groups[0].Kept.ID != "b" {
		t.Fatalf("expected higher-engagement record kept, got %q", result.Groups[0].Kept.ID)
	}
	if len(result.Accepted) != 2 || result.Accepted[0].ID != "b" || result.Accepted[1].ID != "rust" {
		t.Fatalf("unexpected accepted records %+v", result.Accepted)
	}
	if len(result.Stories) != 2 {
		t.Fatalf("expected two stories, got %d", len(result.Stories))
	}
	if result.Buckets[singleBucket] != 3 {
		t.Fatalf("expected all valid records in one bucket, got %v", result.Buckets)
	}

	if result.Merge.Created != 1 || f.learner.Count() != 1 {
		t.Fatalf("expected one learned pattern, merge=%+v count=%d", result.Merge, f.learner.Count())
	}
	if _, err := os.Stat(filepath.Join(f.dir, "patterns.json")); err != nil {
		t.Fatalf("expected pattern file to be written: %v", err)
	}

	if result.Feedback == nil {
		t.Fatal("expected a feedback session")
	}
	if result.Feedback.ItemsProcessed != 3 || result.Feedback.DuplicatesFound != 1 || result.Feedback.PatternsUsed != 1 {
		t.Fatalf("unexpected feedback record %+v", result.Feedback)
	}
	if len(result.Feedback.Examples) != 1 || result.Feedback.Examples[0].GroupSize != 2 {
		t.Fatalf("unexpected feedback examples %+v", result.Feedback.Examples)
	}

	// A pattern seen once is too weak to reject a candidate on its own.
	if check := p.Check(record.TextRecord{Title: "OpenAI launches GPT-5 model", Tags: []string{"openai"}}); check.Duplicate {
		t.Fatalf("expected a single-observation pattern not to reject, got %+v", check)
	}
}

func TestPreGenerationRejectsLearnedPattern(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.json")
	stored := `[{"id": "p1", "entities": ["openai"], "keywords": ["openai", "launches", "model"], "confidence": 0.9, "frequency": 5, "examples": [], "createdAt": "2026-03-01T00:00:00Z", "lastSeen": "2026-03-10T00:00:00Z"}]`
	if err := os.WriteFile(path, []byte(stored), 0o644); err != nil {
		t.Fatalf("write patterns: %v", err)
	}
	learner := patterns.New(patterns.NewFileStore(path), zerolog.Nop(), patterns.Options{Clock: testClock})
	if _, err := learner.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	p, err := New(Deps{Learner: learner, Logger: zerolog.Nop()}, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	records := []record.TextRecord{
		{ID: "dup", Title: "OpenAI launches new model", Tags: []string{"openai"}},
		{ID: "fresh", Title: "Kubernetes adds sidecar containers", Tags: []string{"kubernetes"}},
	}
	result, err := p.PreGeneration(context.Background(), records)
	if err != nil {
		t.Fatalf("PreGeneration() error = %v", err)
	}
	if len(result.Rejected) != 1 || result.Rejected[0].Reason != ReasonPattern {
		t.Fatalf("expected one pattern rejection, got %+v", result.Rejected)
	}
	if result.Rejected[0].Pattern == nil || result.Rejected[0].Pattern.PatternID != "p1" {
		t.Fatalf("expected pattern evidence, got %+v", result.Rejected[0].Pattern)
	}
	if len(result.Accepted) != 1 || result.Accepted[0].ID != "fresh" {
		t.Fatalf("unexpected accepted records %+v", result.Accepted)
	}
}

func TestPreGenerationRejectsRecentlyAccepted(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	index := filepath.Join(f.dir, "published_index.json")
	published := `[{"title": "Rust 2.0 released with new borrow checker", "summary": "The Rust team shipped version 2.0 today.", "tags": ["rust"], "generatedAt": "2026-03-15T11:00:00Z"}]`
	if err := os.WriteFile(index, []byte(published), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	cache, err := recency.Load(context.Background(), recency.NewFileSource(index), recency.Options{Logger: zerolog.Nop(), Now: testClock})
	if err != nil {
		t.Fatalf("recency Load() error = %v", err)
	}

	p := f.pipeline(t, Deps{Recency: cache})
	result, err := p.PreGeneration(context.Background(), gptRecords())
	if err != nil {
		t.Fatalf("PreGeneration() error = %v", err)
	}
	if len(result.Rejected) != 1 || result.Rejected[0].Reason != ReasonRecency || result.Rejected[0].Record.ID != "rust" {
		t.Fatalf("expected the rust record rejected by recency, got %+v", result.Rejected)
	}
	if result.Rejected[0].Recency.Result.Overall < 0.70 {
		t.Fatalf("expected recency score >= 0.70, got %.3f", result.Rejected[0].Recency.Result.Overall)
	}
	if len(result.Accepted) != 1 || result.Accepted[0].ID != "b" {
		t.Fatalf("unexpected accepted records %+v", result.Accepted)
	}
}

func TestPreGenerationBucketsByLanguage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p := f.pipeline(t, Deps{Detector: langdetect.New(lingua.English, lingua.German)})

	records := []record.TextRecord{
		{ID: "en-1", Title: "OpenAI launches GPT-5 model", Summary: "OpenAI released GPT-5 with better reasoning.", Language: "en"},
		{ID: "de-1", Title: "OpenAI launches GPT-5 model", Summary: "OpenAI released GPT-5 with better reasoning.", Language: "de"},
		{ID: "en-2", Title: "OpenAI launches GPT-5 model today", Summary: "OpenAI released GPT-5 with better reasoning today.", Language: "en"},
	}
	result, err := p.PreGeneration(context.Background(), records)
	if err != nil {
		t.Fatalf("PreGeneration() error = %v", err)
	}
	if result.Buckets["en"] != 2 || result.Buckets["de"] != 1 {
		t.Fatalf("unexpected buckets %v", result.Buckets)
	}
	if len(result.Groups) != 1 || len(result.Groups[0].Members) != 2 {
		t.Fatalf("expected one english group, got %+v", result.Groups)
	}
	if len(result.Accepted) != 2 || result.Accepted[0].ID != "en-1" || result.Accepted[1].ID != "de-1" {
		t.Fatalf("expected input order preserved across buckets, got %+v", result.Accepted)
	}
}

func TestPreGenerationStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p := f.pipeline(t, Deps{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.PreGeneration(ctx, gptRecords())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if f.learner.Count() != 0 {
		t.Fatalf("expected nothing learned from a cancelled run, got %d patterns", f.learner.Count())
	}
}

func TestPreGenerationWithoutCollaborators(t *testing.T) {
	t.Parallel()

	p, err := New(Deps{Logger: zerolog.Nop()}, Options{Workers: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	result, err := p.PreGeneration(context.Background(), gptRecords())
	if err != nil {
		t.Fatalf("PreGeneration() error = %v", err)
	}
	if len(result.Accepted) != 2 || result.Feedback != nil {
		t.Fatalf("unexpected result %+v", result)
	}
}

const rustArticleHTML = `<!doctype html><html><body>
<article>
<h1>Rust 2.0 released</h1>
<p>The Rust team shipped version 2.0 today with a reworked borrow checker that accepts far more programs than before.</p>
<p>Compile times improved across the board, and the new edition keeps source compatibility with existing crates.</p>
</article>
</body></html>`

func TestPostGenerationFlagsDuplicateArticles(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p := f.pipeline(t, Deps{})

	docs := Documents([]Article{
		{ArticleTitle: "Rust 2.0 released with a new borrow checker", ArticleBody: rustArticleHTML, ArticleTags: []string{"rust"}},
		{ArticleTitle: "Rust 2.0 released with a new borrow checker", ArticleBody: rustArticleHTML, ArticleTags: []string{"rust"}},
		{ArticleTitle: "Kubernetes adds native sidecar containers", ArticleBody: "Sidecars are now a first-class feature in Kubernetes.\n\nOperators no longer need init container workarounds.", ArticleTags: []string{"kubernetes"}},
	})

	result, err := p.PostGeneration(context.Background(), docs)
	if err != nil {
		t.Fatalf("PostGeneration() error = %v", err)
	}
	if len(result.Groups) != 1 {
		t.Fatalf("expected one duplicate group, got %d", len(result.Groups))
	}
	if len(result.KeptIndices) != 2 || result.KeptIndices[0] != 0 || result.KeptIndices[1] != 2 {
		t.Fatalf("unexpected kept indices %v", result.KeptIndices)
	}
	if len(result.Review) != 1 || result.Review[0].Result.Overall < 0.7 {
		t.Fatalf("expected one review pair above threshold, got %+v", result.Review)
	}
	if result.Review[0].Result.Profile != "postgen-content" {
		t.Fatalf("expected content profile for bodies on both sides, got %q", result.Review[0].Result.Profile)
	}
	for _, kept := range result.Kept {
		if kept.Content == "" || kept.Content[0] == '<' {
			t.Fatalf("expected plain-text content, got %q", kept.Content)
		}
	}
	if result.Feedback == nil || result.Feedback.Stage != StagePostGeneration {
		t.Fatalf("expected a post-generation feedback session, got %+v", result.Feedback)
	}
}

func TestDecodeBatchSkipsMalformedEntries(t *testing.T) {
	t.Parallel()

	raw := []byte(`[
  {"id": "a", "title": "OpenAI launches GPT-5", "tags": ["ai"], "timestamp": "2026-03-15T10:00:00+02:00", "engagement_score": 12},
  {"id": "b", "title": "Broken timestamp", "timestamp": "last tuesday"},
  {"title": "HTML body", "content_html": "<article><p>The Rust team shipped version 2.0 today with a reworked borrow checker.</p></article>"}
]`)

	records, err := DecodeBatch(raw, zerolog.Nop())
	if err != nil {
		t.Fatalf("DecodeBatch() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected two records, got %d", len(records))
	}
	if !records[0].Timestamp.Equal(time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected UTC timestamp, got %v", records[0].Timestamp)
	}
	if records[1].ID != "record-2" || records[1].Content == "" {
		t.Fatalf("expected html content extracted for positional id, got %+v", records[1])
	}

	if _, err := DecodeBatch([]byte(`[{"title": "x", "score": 3}]`), zerolog.Nop()); err == nil {
		t.Fatal("expected schema error for unknown field")
	}
}
