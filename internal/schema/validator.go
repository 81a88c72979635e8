package payloadschema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/globaltime"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/record"
)

//go:embed *.schema.json
var schemaFiles embed.FS

// Document names one of the embedded JSON schemas.
type Document string

const (
	PatternStore   Document = "pattern_store.schema.json"
	FeedbackLog    Document = "feedback_log.schema.json"
	PublishedIndex Document = "published_index.schema.json"
	RecordBatch    Document = "record_batch.schema.json"
)

type compiledDocument struct {
	once   sync.Once
	schema *jsonschema.Schema
	err    error
}

var compiled = map[Document]*compiledDocument{
	PatternStore:   {},
	FeedbackLog:    {},
	PublishedIndex: {},
	RecordBatch:    {},
}

// RecordPayload is one entry of a candidate batch as collectors hand it over.
type RecordPayload struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Summary         string   `json:"summary,omitempty"`
	Content         string   `json:"content,omitempty"`
	ContentHTML     string   `json:"content_html,omitempty"`
	URL             string   `json:"url,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Timestamp       *string  `json:"timestamp,omitempty"`
	EngagementScore int      `json:"engagement_score,omitempty"`
	SourcePath      string   `json:"source_path,omitempty"`
	Language        string   `json:"language,omitempty"`
}

// Validate checks raw against the named schema.
func Validate(doc Document, raw []byte) error {
	value, err := decodeStrictJSON(raw)
	if err != nil {
		return fmt.Errorf("decode %s JSON: %w", doc, err)
	}

	schema, err := loadSchema(doc)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// DecodeRecordBatch validates and decodes a JSON array of candidate records.
func DecodeRecordBatch(raw []byte) ([]RecordPayload, error) {
	if err := Validate(RecordBatch, raw); err != nil {
		return nil, err
	}

	var payloads []RecordPayload
	if err := json.Unmarshal(raw, &payloads); err != nil {
		return nil, fmt.Errorf("unmarshal record batch: %w", err)
	}
	return payloads, nil
}

// Record converts the payload into a TextRecord with a UTC timestamp.
// Records without an id get one derived from their position.
func (p RecordPayload) Record(position int) (record.TextRecord, error) {
	rec := record.TextRecord{
		ID:              strings.TrimSpace(p.ID),
		Title:           strings.TrimSpace(p.Title),
		Summary:         strings.TrimSpace(p.Summary),
		Content:         strings.TrimSpace(p.Content),
		EngagementScore: p.EngagementScore,
		SourcePath:      strings.TrimSpace(p.SourcePath),
		Language:        strings.ToLower(strings.TrimSpace(p.Language)),
	}
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("record-%d", position)
	}

	for i, tag := range p.Tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			return record.TextRecord{}, fmt.Errorf("tags[%d] must not be empty", i)
		}
		rec.Tags = append(rec.Tags, trimmed)
	}

	if p.Timestamp != nil && strings.TrimSpace(*p.Timestamp) != "" {
		ts, err := globaltime.ParseTimestamp(*p.Timestamp)
		if err != nil {
			return record.TextRecord{}, fmt.Errorf("timestamp: %w", err)
		}
		rec.Timestamp = ts
	}
	return rec, nil
}

func loadSchema(doc Document) (*jsonschema.Schema, error) {
	entry, ok := compiled[doc]
	if !ok {
		return nil, fmt.Errorf("unknown schema document %q", doc)
	}

	entry.once.Do(func() {
		source, err := schemaFiles.ReadFile(string(doc))
		if err != nil {
			entry.err = fmt.Errorf("read embedded schema %s: %w", doc, err)
			return
		}

		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource(string(doc), bytes.NewReader(source)); err != nil {
			entry.err = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile(string(doc))
		if err != nil {
			entry.err = fmt.Errorf("compile schema: %w", err)
			return
		}
		entry.schema = schema
	})

	if entry.err != nil {
		return nil, entry.err
	}
	if entry.schema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return entry.schema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}
