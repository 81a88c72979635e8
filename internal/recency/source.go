package recency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/db"
	payloadschema "github.com/Hardcoreprawn/tech-content-curator-sub000/internal/schema"
)

// ErrUnreadableIndex marks a published index that exists but cannot be used.
var ErrUnreadableIndex = errors.New("published index unreadable")

// Entry is accepted-content metadata as a source hands it over. Date and
// GeneratedAt are raw strings from the index; AcceptedAt is set by sources
// that already hold a parsed instant.
type Entry struct {
	Title       string
	Summary     string
	Tags        []string
	Date        string
	GeneratedAt string
	SourcePath  string
	AcceptedAt  time.Time
}

// Source yields recently accepted content. Implementations may return
// entries older than since; Load applies the window itself.
type Source interface {
	LoadAccepted(ctx context.Context, since time.Time) ([]Entry, error)
}

// FileSource reads the JSON index of published article metadata.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Path() string {
	return s.path
}

type indexEntry struct {
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Tags        []string `json:"tags"`
	Date        string   `json:"date"`
	GeneratedAt string   `json:"generatedAt"`
	SourcePath  string   `json:"sourcePath"`
}

// LoadAccepted returns every entry in the index. A missing index is empty.
func (s *FileSource) LoadAccepted(ctx context.Context, _ time.Time) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read published index %s: %w", s.path, err)
	}
	if err := payloadschema.Validate(payloadschema.PublishedIndex, raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableIndex, s.path, err)
	}

	var stored []indexEntry
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableIndex, s.path, err)
	}

	entries := make([]Entry, 0, len(stored))
	for _, item := range stored {
		entries = append(entries, Entry{
			Title:       item.Title,
			Summary:     item.Summary,
			Tags:        item.Tags,
			Date:        item.Date,
			GeneratedAt: item.GeneratedAt,
			SourcePath:  item.SourcePath,
		})
	}
	return entries, nil
}

// PublishedLister is the slice of the database pool DBSource reads through.
type PublishedLister interface {
	ListPublishedSince(ctx context.Context, since time.Time) ([]db.PublishedArticle, error)
}

// DBSource reads accepted content from the publishing database.
type DBSource struct {
	lister PublishedLister
}

func NewDBSource(lister PublishedLister) *DBSource {
	return &DBSource{lister: lister}
}

func (s *DBSource) LoadAccepted(ctx context.Context, since time.Time) ([]Entry, error) {
	rows, err := s.lister.ListPublishedSince(ctx, since)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		accepted := row.PublishedAt.UTC()
		if row.GeneratedAt != nil && !row.GeneratedAt.IsZero() {
			accepted = row.GeneratedAt.UTC()
		}
		entries = append(entries, Entry{
			Title:      row.Title,
			Summary:    row.Summary,
			Tags:       row.Tags,
			Date:       row.PublishedAt.UTC().Format(time.DateOnly),
			SourcePath: row.SourcePath,
			AcceptedAt: accepted,
		})
	}
	return entries, nil
}
