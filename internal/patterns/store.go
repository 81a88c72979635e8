package patterns

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"
	"time"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/features"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/globaltime"
	payloadschema "github.com/Hardcoreprawn/tech-content-curator-sub000/internal/schema"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/statefile"
)

// LoadState distinguishes a healthy load from the fallbacks.
type LoadState int

const (
	StateLoaded LoadState = iota
	StateEmpty
	StateDegraded
)

func (s LoadState) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateEmpty:
		return "empty"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// LoadResult carries the patterns read from a store. A degraded result has
// no patterns and records why in Cause.
type LoadResult struct {
	Patterns []Pattern
	State    LoadState
	Cause    error
}

// Store persists the full pattern set. Save always rewrites everything.
type Store interface {
	Load(ctx context.Context) (LoadResult, error)
	Save(ctx context.Context, patterns []Pattern) error
}

type storedPattern struct {
	ID         string   `json:"id,omitempty"`
	Entities   []string `json:"entities"`
	Keywords   []string `json:"keywords"`
	Confidence float64  `json:"confidence"`
	Examples   []string `json:"examples"`
	CreatedAt  string   `json:"createdAt,omitempty"`
	LastSeen   string   `json:"lastSeen,omitempty"`
	Frequency  int      `json:"frequency"`
}

// FileStore keeps patterns in a single JSON file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

// Load never fails on bad data: a missing or blank file is Empty, an
// unreadable or invalid one is Degraded. Only context errors are returned.
func (s *FileStore) Load(ctx context.Context) (LoadResult, error) {
	if err := ctx.Err(); err != nil {
		return LoadResult{}, err
	}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return LoadResult{State: StateEmpty}, nil
	}
	if err != nil {
		return degraded(fmt.Errorf("read pattern file %s: %w", s.path, err)), nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return LoadResult{State: StateEmpty}, nil
	}

	patterns, err := decodePatterns(raw)
	if err != nil {
		return degraded(fmt.Errorf("pattern file %s: %w", s.path, err)), nil
	}
	if len(patterns) == 0 {
		return LoadResult{State: StateEmpty}, nil
	}
	return LoadResult{Patterns: patterns, State: StateLoaded}, nil
}

// Save writes to a temp file in the same directory and renames it over the
// target so readers never observe a partial file.
func (s *FileStore) Save(ctx context.Context, patterns []Pattern) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodePatterns(patterns)
	if err != nil {
		return err
	}
	return statefile.WriteAtomic(s.path, data)
}

func degraded(cause error) LoadResult {
	return LoadResult{State: StateDegraded, Cause: cause}
}

func decodePatterns(raw []byte) ([]Pattern, error) {
	if err := payloadschema.Validate(payloadschema.PatternStore, raw); err != nil {
		return nil, err
	}

	var stored []storedPattern
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("unmarshal patterns: %w", err)
	}

	out := make([]Pattern, 0, len(stored))
	for i, sp := range stored {
		p := Pattern{
			ID:         strings.TrimSpace(sp.ID),
			Entities:   features.NewSet(normalizeTerms(sp.Entities)...),
			Keywords:   features.NewSet(normalizeTerms(sp.Keywords)...),
			Confidence: math.Min(sp.Confidence, MaxConfidence),
			Frequency:  sp.Frequency,
			Examples:   appendExamples(nil, sp.Examples...),
		}
		if p.ID == "" {
			p.ID = fmt.Sprintf("legacy-%d", i)
		}

		var err error
		if p.FirstSeen, err = parseOptionalTime(sp.CreatedAt); err != nil {
			return nil, fmt.Errorf("pattern %d createdAt: %w", i, err)
		}
		if p.LastSeen, err = parseOptionalTime(sp.LastSeen); err != nil {
			return nil, fmt.Errorf("pattern %d lastSeen: %w", i, err)
		}
		if p.LastSeen.IsZero() {
			p.LastSeen = p.FirstSeen
		}
		out = append(out, p)
	}
	return out, nil
}

func encodePatterns(patterns []Pattern) ([]byte, error) {
	stored := make([]storedPattern, 0, len(patterns))
	for _, p := range patterns {
		stored = append(stored, storedPattern{
			ID:         p.ID,
			Entities:   nonNil(p.Entities.Sorted()),
			Keywords:   nonNil(p.Keywords.Sorted()),
			Confidence: math.Min(p.Confidence, MaxConfidence),
			Examples:   nonNil(p.Examples),
			CreatedAt:  formatTime(p.FirstSeen),
			LastSeen:   formatTime(p.LastSeen),
			Frequency:  max(p.Frequency, 1),
		})
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode patterns: %w", err)
	}
	return append(data, '\n'), nil
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		if normalized := strings.ToLower(strings.TrimSpace(term)); normalized != "" {
			out = append(out, normalized)
		}
	}
	return out
}

func parseOptionalTime(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return globaltime.ParseTimestamp(raw)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
