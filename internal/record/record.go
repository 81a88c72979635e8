package record

import (
	"strings"
	"time"
)

// Document is the contract for finished articles handed over by the
// generation layer.
type Document interface {
	Title() string
	Body() string
	Tags() []string
}

// TextRecord is the unit being deduplicated. Dedup packages only read it.
type TextRecord struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Summary         string    `json:"summary,omitempty"`
	Content         string    `json:"content,omitempty"`
	Tags            []string  `json:"tags,omitempty"`
	Timestamp       time.Time `json:"timestamp,omitempty"`
	EngagementScore int       `json:"engagement_score,omitempty"`
	SourcePath      string    `json:"source_path,omitempty"`
	Language        string    `json:"language,omitempty"`
}

// FromDocument adapts a generated article to a TextRecord. The first
// paragraph of the body doubles as the summary.
func FromDocument(id string, doc Document) TextRecord {
	if doc == nil {
		return TextRecord{ID: id}
	}
	body := strings.TrimSpace(doc.Body())
	return TextRecord{
		ID:      id,
		Title:   strings.TrimSpace(doc.Title()),
		Summary: leadParagraph(body),
		Content: body,
		Tags:    append([]string(nil), doc.Tags()...),
	}
}

// Valid reports whether the record carries the one required field.
func (r TextRecord) Valid() bool {
	return strings.TrimSpace(r.Title) != ""
}

// FeatureText is the text entity and keyword extraction runs on before
// full bodies exist.
func (r TextRecord) FeatureText() string {
	title := strings.TrimSpace(r.Title)
	summary := strings.TrimSpace(r.Summary)
	switch {
	case summary == "":
		return title
	case title == "":
		return summary
	default:
		return title + " " + summary
	}
}

// HasContent reports whether a full body is available.
func (r TextRecord) HasContent() bool {
	return strings.TrimSpace(r.Content) != ""
}

// Snippet returns a short human-readable label for reports and examples.
func (r TextRecord) Snippet(maxRunes int) string {
	text := strings.Join(strings.Fields(r.Title), " ")
	if text == "" {
		text = strings.Join(strings.Fields(r.Summary), " ")
	}
	if maxRunes <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	if maxRunes == 1 {
		return "…"
	}
	return strings.TrimSpace(string(runes[:maxRunes-1])) + "…"
}

func leadParagraph(body string) string {
	if body == "" {
		return ""
	}
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	for _, para := range strings.Split(normalized, "\n\n") {
		clean := strings.Join(strings.Fields(para), " ")
		if clean == "" || strings.HasPrefix(clean, "#") {
			continue
		}
		return clean
	}
	return ""
}
