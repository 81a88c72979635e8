package dedup

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/reader"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/record"
	payloadschema "github.com/Hardcoreprawn/tech-content-curator-sub000/internal/schema"
)

// DecodeBatch validates a JSON candidate batch and converts it to records.
// Entries that fail conversion are logged and dropped; a batch that fails
// schema validation is an error. HTML bodies become plain content.
func DecodeBatch(raw []byte, logger zerolog.Logger) ([]record.TextRecord, error) {
	payloads, err := payloadschema.DecodeRecordBatch(raw)
	if err != nil {
		return nil, fmt.Errorf("decode record batch: %w", err)
	}

	records := make([]record.TextRecord, 0, len(payloads))
	for i, payload := range payloads {
		rec, err := payload.Record(i)
		if err != nil {
			logger.Warn().Err(err).Int("position", i).Str("id", payload.ID).Msg("malformed record, skipping")
			continue
		}
		if rec.Content == "" && strings.TrimSpace(payload.ContentHTML) != "" {
			text, err := reader.ExtractText(payload.ContentHTML, payload.URL, rec.Title)
			if err != nil {
				logger.Warn().Err(err).Str("id", rec.ID).Msg("could not extract text from html body")
			} else {
				rec.Content = text
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// Article is a generated document as the generation layer hands it over.
type Article struct {
	ArticleTitle string   `json:"title"`
	ArticleBody  string   `json:"body"`
	ArticleTags  []string `json:"tags,omitempty"`
}

func (a Article) Title() string  { return a.ArticleTitle }
func (a Article) Body() string   { return a.ArticleBody }
func (a Article) Tags() []string { return a.ArticleTags }

// Documents adapts articles to the document contract.
func Documents(articles []Article) []record.Document {
	docs := make([]record.Document, 0, len(articles))
	for _, a := range articles {
		docs = append(docs, a)
	}
	return docs
}
