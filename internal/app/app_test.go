package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/cli"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/cluster"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/dedup"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/recency"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/record"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/similarity"
)

func TestRunUsageErrors(t *testing.T) {
	t.Parallel()

	if code := Run(nil); code != 2 {
		t.Fatalf("expected usage exit code for no args, got %d", code)
	}
	if code := Run([]string{"translate"}); code != 2 {
		t.Fatalf("expected usage exit code for unknown command, got %d", code)
	}
	if code := Run([]string{"check"}); code != 2 {
		t.Fatalf("expected usage exit code for check without --title, got %d", code)
	}
	if code := Run([]string{"validate", "--kind", "stories"}); code != 2 {
		t.Fatalf("expected usage exit code for unknown kind, got %d", code)
	}
}

func TestParseOutputFormat(t *testing.T) {
	t.Parallel()

	if got, err := parseOutputFormat(" JSON ", outputFormatTable); err != nil || got != outputFormatJSON {
		t.Fatalf("expected json, got %q err=%v", got, err)
	}
	if got, err := parseOutputFormat("", outputFormatTable); err != nil || got != outputFormatTable {
		t.Fatalf("expected default table, got %q err=%v", got, err)
	}
	if _, err := parseOutputFormat("yaml", outputFormatTable); err == nil {
		t.Fatal("expected yaml to be rejected")
	}
}

func TestTruncateForTableCountsRunes(t *testing.T) {
	t.Parallel()

	if got := truncateForTable("Zürich über alles", 8); got != "Züric..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncateForTable("  short  ", 10); got != "short" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
}

func TestParseTagsDropsBlanks(t *testing.T) {
	t.Parallel()

	tags := parseTags(" rust, ,wasm ,")
	if len(tags) != 2 || tags[0] != "rust" || tags[1] != "wasm" {
		t.Fatalf("unexpected tags %v", tags)
	}
}

func TestDecodeArticlesAcceptsBothShapes(t *testing.T) {
	t.Parallel()

	bare, err := decodeArticles([]byte(`[{"title":"A","body":"<p>x</p>","tags":["t"]}]`))
	if err != nil || len(bare) != 1 || bare[0].ArticleTitle != "A" {
		t.Fatalf("unexpected bare decode %+v err=%v", bare, err)
	}
	wrapped, err := decodeArticles([]byte(`{"articles":[{"title":"A"},{"title":"B"}]}`))
	if err != nil || len(wrapped) != 2 {
		t.Fatalf("unexpected wrapped decode %+v err=%v", wrapped, err)
	}
	if _, err := decodeArticles([]byte(`{"articles":[]}`)); err == nil {
		t.Fatal("expected empty article list to be rejected")
	}
}

func TestDecisionRowsCoverEveryOutcome(t *testing.T) {
	t.Parallel()

	kept := record.TextRecord{ID: "b", Title: "OpenAI launches GPT-5"}
	result := dedup.PreResult{
		Accepted: []record.TextRecord{kept},
		Groups: []cluster.Group{{
			Kept:    kept,
			Removed: []record.TextRecord{{ID: "a", Title: "OpenAI launches GPT-5 today"}},
		}},
		Rejected: []dedup.Rejection{
			{
				Record:  record.TextRecord{ID: "c", Title: "GPT-5 is here"},
				Reason:  dedup.ReasonPattern,
				Pattern: &dedup.PatternEvidence{PatternID: "p1", Score: 0.8},
			},
			{
				Record: record.TextRecord{ID: "d", Title: "Rust 2.0 released"},
				Reason: dedup.ReasonRecency,
				Recency: &recency.Match{
					Record: recency.CachedRecord{Title: "Rust 2.0 released", SourcePath: "posts/rust.md"},
					Result: similarity.Result{Overall: 0.95},
				},
			},
		},
	}

	rows := decisionRows(result)
	if len(rows) != 4 {
		t.Fatalf("expected four rows, got %d", len(rows))
	}
	want := map[string]string{"b": "accepted", "a": "duplicate", "c": "rejected:pattern", "d": "rejected:recency"}
	for _, row := range rows {
		if want[row[0]] != row[1] {
			t.Fatalf("unexpected decision row %v", row)
		}
	}
	if rows[1][2] != "of b" || rows[2][2] != "p1 0.80" || rows[3][2] != "posts/rust.md 0.95" {
		t.Fatalf("unexpected details %v", rows)
	}
}

func TestFileCheck(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	present := filepath.Join(dir, "patterns.json")
	mustWriteFile(t, present, `[]`)

	if check := fileCheck("pattern_file", present, true); check.Status != "ok" {
		t.Fatalf("expected existing file to pass, got %+v", check)
	}
	if check := fileCheck("feedback_file", filepath.Join(dir, "missing.json"), false); check.Status != "ok" {
		t.Fatalf("expected missing optional file to pass, got %+v", check)
	}
	if check := fileCheck("weights_file", filepath.Join(dir, "missing.yaml"), true); check.Status != "fail" {
		t.Fatalf("expected missing required file to fail, got %+v", check)
	}
	if check := fileCheck("published_index", dir, false); check.Status != "fail" {
		t.Fatalf("expected directory to fail, got %+v", check)
	}
}

func nowRFC3339() string {
	return time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
}

func setTestEnv(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv(cli.EnvFileOverride, "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CURATOR_WEIGHTS_FILE", "")
	t.Setenv("CURATOR_PATTERN_FILE", filepath.Join(dir, "patterns.json"))
	t.Setenv("CURATOR_FEEDBACK_FILE", filepath.Join(dir, "feedback.json"))
	t.Setenv("CURATOR_PUBLISHED_INDEX", filepath.Join(dir, "published.json"))
	t.Setenv("CURATOR_RECENCY_SOURCE", "file")
}

func TestDedupeCommandPersistsLearnedState(t *testing.T) {
	dir := t.TempDir()
	setTestEnv(t, dir)

	input := filepath.Join(dir, "batch.json")
	mustWriteFile(t, input, `[
  {"id": "a", "title": "OpenAI launches GPT-5 model", "summary": "OpenAI released GPT-5 with better reasoning.", "tags": ["ai", "openai"], "engagement_score": 10},
  {"id": "b", "title": "OpenAI launches GPT-5 model today", "summary": "OpenAI released GPT-5 with better reasoning today.", "tags": ["ai", "openai"], "engagement_score": 50},
  {"id": "rust", "title": "Rust 2.0 released with new borrow checker", "tags": ["rust"]}
]`)

	envFile := filepath.Join(dir, "missing.env")
	if code := Run([]string{"dedupe", "--env", envFile, "--input", input, "--format", "json", "--no-lang"}); code != 0 {
		t.Fatalf("expected dedupe to succeed, got exit code %d", code)
	}

	for _, name := range []string{"patterns.json", "feedback.json"} {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("expected %s to be written: %v", name, err)
		}
		if !strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
			t.Fatalf("expected %s to hold a JSON array, got %s", name, raw)
		}
	}

	if code := Run([]string{"validate", "--kind", "patterns", "--file", filepath.Join(dir, "patterns.json")}); code != 0 {
		t.Fatalf("expected persisted patterns to validate, got exit code %d", code)
	}
	if code := Run([]string{"validate", "--kind", "feedback", "--file", filepath.Join(dir, "feedback.json")}); code != 0 {
		t.Fatalf("expected persisted feedback to validate, got exit code %d", code)
	}
	if code := Run([]string{"feedback", "--env", envFile, "--format", "json"}); code != 0 {
		t.Fatalf("expected feedback report to succeed, got exit code %d", code)
	}
}

func TestCheckCommandFlagsRecentArticle(t *testing.T) {
	dir := t.TempDir()
	setTestEnv(t, dir)

	mustWriteFile(t, filepath.Join(dir, "published.json"), `[
  {"title": "Rust 2.0 released with new borrow checker", "summary": "The Rust team shipped version 2.0 today.", "tags": ["rust"], "generatedAt": "`+nowRFC3339()+`"}
]`)

	envFile := filepath.Join(dir, "missing.env")
	code := Run([]string{"check", "--env", envFile, "--title", "Rust 2.0 released with new borrow checker", "--summary", "The Rust team shipped version 2.0 today.", "--tags", "rust"})
	if code != 3 {
		t.Fatalf("expected duplicate exit code 3, got %d", code)
	}

	code = Run([]string{"check", "--env", envFile, "--title", "Kubernetes adds sidecar containers", "--tags", "kubernetes"})
	if code != 0 {
		t.Fatalf("expected unrelated candidate to pass, got %d", code)
	}
}
