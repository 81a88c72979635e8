// Package recency rejects candidates that repeat something accepted within
// the recent window.
package recency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/globaltime"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/record"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/similarity"
)

const (
	DefaultWindow    = 14 * 24 * time.Hour
	DefaultThreshold = 0.7
)

// CachedRecord is one accepted item inside the window. AcceptedAt is UTC.
type CachedRecord struct {
	Title      string    `json:"title"`
	Summary    string    `json:"summary,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Date       string    `json:"date,omitempty"`
	SourcePath string    `json:"source_path,omitempty"`
	AcceptedAt time.Time `json:"accepted_at"`
}

type Match struct {
	Record CachedRecord      `json:"record"`
	Result similarity.Result `json:"result"`
}

type Options struct {
	Window    time.Duration
	Threshold float64
	Scorer    *similarity.Scorer
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Cache is built once per run and only read afterwards.
type Cache struct {
	records   []CachedRecord
	prepared  []*similarity.Features
	scorer    *similarity.Scorer
	threshold float64
	window    time.Duration
}

// Load pulls accepted content from src and keeps what falls inside the
// window. A nil source yields an empty cache. An unreadable file index is
// logged and treated as empty.
func Load(ctx context.Context, src Source, opts Options) (*Cache, error) {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Scorer == nil {
		opts.Scorer = similarity.NewScorer(similarity.RecencyWeights())
	}
	if opts.Now == nil {
		opts.Now = globaltime.UTC
	}

	now := opts.Now().UTC()
	cutoff := now.Add(-opts.Window)
	cache := &Cache{
		scorer:    opts.Scorer,
		threshold: opts.Threshold,
		window:    opts.Window,
	}
	if src == nil {
		return cache, nil
	}

	entries, err := src.LoadAccepted(ctx, cutoff)
	if err != nil {
		if errors.Is(err, ErrUnreadableIndex) {
			opts.Logger.Warn().Err(err).Msg("recency index unreadable, continuing without recency check")
			return cache, nil
		}
		return nil, fmt.Errorf("load accepted content: %w", err)
	}

	skipped := 0
	for _, entry := range entries {
		accepted, ok := acceptedAt(entry)
		if !ok {
			skipped++
			opts.Logger.Warn().Str("title", entry.Title).Str("source_path", entry.SourcePath).Msg("accepted entry has no usable timestamp, skipping")
			continue
		}
		if accepted.Before(cutoff) || strings.TrimSpace(entry.Title) == "" {
			continue
		}

		cached := CachedRecord{
			Title:      entry.Title,
			Summary:    entry.Summary,
			Tags:       append([]string(nil), entry.Tags...),
			Date:       entry.Date,
			SourcePath: entry.SourcePath,
			AcceptedAt: accepted,
		}
		cache.records = append(cache.records, cached)
		cache.prepared = append(cache.prepared, opts.Scorer.Prepare(cached.asRecord()))
	}

	opts.Logger.Debug().
		Int("entries", len(entries)).
		Int("cached", len(cache.records)).
		Int("skipped", skipped).
		Time("cutoff", cutoff).
		Msg("recency cache loaded")
	return cache, nil
}

// acceptedAt prefers the generation time and falls back to the date.
func acceptedAt(entry Entry) (time.Time, bool) {
	if !entry.AcceptedAt.IsZero() {
		return entry.AcceptedAt.UTC(), true
	}
	for _, raw := range []string{entry.GeneratedAt, entry.Date} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if parsed, err := globaltime.ParseTimestamp(raw); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func (c CachedRecord) asRecord() record.TextRecord {
	return record.TextRecord{
		ID:         c.SourcePath,
		Title:      c.Title,
		Summary:    c.Summary,
		Tags:       c.Tags,
		Timestamp:  c.AcceptedAt,
		SourcePath: c.SourcePath,
	}
}

// CheckSimilarity returns the closest accepted item scoring at or above the
// cache threshold.
func (c *Cache) CheckSimilarity(title, summary string, tags []string) (Match, bool) {
	if c == nil || len(c.records) == 0 {
		return Match{}, false
	}

	candidate := c.scorer.Prepare(record.TextRecord{Title: title, Summary: summary, Tags: tags})
	best := Match{}
	found := false
	for i, prepared := range c.prepared {
		result := c.scorer.ScoreFeatures(candidate, prepared)
		if result.Overall < c.threshold {
			continue
		}
		if !found || result.Overall > best.Result.Overall {
			best = Match{Record: c.records[i], Result: result}
			found = true
		}
	}
	return best, found
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// Records returns a copy of the cached items.
func (c *Cache) Records() []CachedRecord {
	if c == nil {
		return nil
	}
	return append([]CachedRecord(nil), c.records...)
}

func (c *Cache) Window() time.Duration {
	if c == nil {
		return 0
	}
	return c.window
}
