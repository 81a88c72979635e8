package record

import "testing"

type article struct {
	title string
	body  string
	tags  []string
}

func (a article) Title() string  { return a.title }
func (a article) Body() string   { return a.body }
func (a article) Tags() []string { return a.tags }

func TestFromDocumentUsesLeadParagraphAsSummary(t *testing.T) {
	t.Parallel()

	doc := article{
		title: "  Rust 1.75 Released ",
		body:  "# Heading\n\nRust 1.75 ships async fn in traits.\n\nMore details follow.",
		tags:  []string{"rust"},
	}

	rec := FromDocument("a-1", doc)
	if rec.Title != "Rust 1.75 Released" {
		t.Fatalf("unexpected title: %q", rec.Title)
	}
	if rec.Summary != "Rust 1.75 ships async fn in traits." {
		t.Fatalf("unexpected summary: %q", rec.Summary)
	}
	if !rec.HasContent() {
		t.Fatalf("expected content to be present")
	}
	if len(rec.Tags) != 1 || rec.Tags[0] != "rust" {
		t.Fatalf("unexpected tags: %v", rec.Tags)
	}
}

func TestFeatureTextJoinsTitleAndSummary(t *testing.T) {
	t.Parallel()

	rec := TextRecord{Title: "Title", Summary: "Summary"}
	if got := rec.FeatureText(); got != "Title Summary" {
		t.Fatalf("unexpected feature text: %q", got)
	}
	if got := (TextRecord{Title: "Only"}).FeatureText(); got != "Only" {
		t.Fatalf("unexpected feature text: %q", got)
	}
}

func TestSnippetTruncates(t *testing.T) {
	t.Parallel()

	rec := TextRecord{Title: "abcdefghijklmnopqrstuvwxyz"}
	if got := rec.Snippet(10); got != "abcdefghi…" {
		t.Fatalf("unexpected snippet: %q", got)
	}
	if got := rec.Snippet(0); got != rec.Title {
		t.Fatalf("expected untruncated snippet, got %q", got)
	}
}

func TestValidRequiresTitle(t *testing.T) {
	t.Parallel()

	if (TextRecord{Title: "   "}).Valid() {
		t.Fatalf("whitespace title should be invalid")
	}
	if !(TextRecord{Title: "x"}).Valid() {
		t.Fatalf("non-empty title should be valid")
	}
}
