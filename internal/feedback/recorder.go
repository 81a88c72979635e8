// Package feedback keeps a log of dedup sessions and turns it into quality
// metrics and threshold suggestions for operators. Nothing here changes
// thresholds on its own.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/cluster"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/globaltime"
)

const (
	DefaultWindow   = 10
	MaxExamples     = 3
	snippetRunes    = 80
	lowRateCeiling  = 0.05
	highRateFloor   = 0.30
	stableRateDelta = 0.02
)

type Example struct {
	GroupSize       int      `json:"groupSize"`
	KeptSnippet     string   `json:"keptSnippet"`
	RemovedSnippets []string `json:"removedSnippets,omitempty"`
}

// Record is one logged session.
type Record struct {
	ID              string    `json:"id,omitempty"`
	Stage           string    `json:"stage,omitempty"`
	ItemsProcessed  int       `json:"itemsProcessed"`
	DuplicatesFound int       `json:"duplicatesFound"`
	PatternsUsed    int       `json:"patternsUsed"`
	Timestamp       time.Time `json:"timestamp"`
	Examples        []Example `json:"examples,omitempty"`
}

// Rate is duplicates over items; zero for an empty session.
func (r Record) Rate() float64 {
	if r.ItemsProcessed <= 0 {
		return 0
	}
	return float64(r.DuplicatesFound) / float64(r.ItemsProcessed)
}

// Session describes one dedup pass. Before and After are item counts on
// either side of the pass.
type Session struct {
	Stage  string
	Before int
	After  int
	Groups []cluster.Group
}

// PatternCounter reports how many learned patterns were in play.
type PatternCounter interface {
	Count() int
}

type Options struct {
	Window int
	Clock  func() time.Time
}

type Recorder struct {
	path   string
	logger zerolog.Logger
	window int
	clock  func() time.Time

	// saveMu is taken before mu and held until the log write returns,
	// so the file always holds the newest snapshot.
	saveMu sync.Mutex

	mu       sync.RWMutex
	records  []Record
	degraded bool
}

func NewRecorder(path string, logger zerolog.Logger, opts Options) *Recorder {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Clock == nil {
		opts.Clock = globaltime.UTC
	}
	return &Recorder{
		path:   path,
		logger: logger,
		window: opts.Window,
		clock:  opts.Clock,
	}
}

func (r *Recorder) Path() string {
	return r.path
}

// Load reads the log from disk. A missing log is empty; an unreadable one
// is logged and replaced by an empty log on the next save.
func (r *Recorder) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	records, err := readLog(r.path)
	degraded := false
	switch {
	case errors.Is(err, os.ErrNotExist):
		records = nil
	case errors.Is(err, errCorruptLog):
		r.logger.Warn().Err(err).Str("path", r.path).Msg("feedback log unreadable, starting a fresh log")
		records = nil
		degraded = true
	case err != nil:
		return fmt.Errorf("load feedback log: %w", err)
	}

	r.mu.Lock()
	r.records = records
	r.degraded = degraded
	r.mu.Unlock()
	return nil
}

// Degraded reports whether the last Load discarded an unreadable log.
func (r *Recorder) Degraded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.degraded
}

// RecordSession appends one session and rewrites the log. On a save
// failure the session stays in memory and the error is returned.
func (r *Recorder) RecordSession(ctx context.Context, session Session, counter PatternCounter) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:              uuid.NewString(),
		Stage:           session.Stage,
		ItemsProcessed:  max(session.Before, 0),
		DuplicatesFound: max(session.Before-session.After, 0),
		Timestamp:       r.clock().UTC(),
		Examples:        examplesFrom(session.Groups),
	}
	if counter != nil {
		rec.PatternsUsed = counter.Count()
	}

	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	r.mu.Lock()
	r.records = append(r.records, rec)
	snapshot := append([]Record(nil), r.records...)
	r.mu.Unlock()

	r.logger.Info().
		Str("stage", rec.Stage).
		Int("items", rec.ItemsProcessed).
		Int("duplicates", rec.DuplicatesFound).
		Int("patterns", rec.PatternsUsed).
		Msg("dedup session recorded")

	if err := writeLog(r.path, snapshot); err != nil {
		r.logger.Warn().Err(err).Str("path", r.path).Msg("feedback log save failed, keeping in-memory session")
		return rec, fmt.Errorf("save feedback log: %w", err)
	}
	return rec, nil
}

// Records returns a copy of every logged session, oldest first.
func (r *Recorder) Records() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Record(nil), r.records...)
}

func examplesFrom(groups []cluster.Group) []Example {
	var examples []Example
	for _, group := range groups {
		if len(group.Members) < 2 {
			continue
		}
		example := Example{
			GroupSize:   len(group.Members),
			KeptSnippet: group.Kept.Snippet(snippetRunes),
		}
		for _, removed := range group.Removed {
			example.RemovedSnippets = append(example.RemovedSnippets, removed.Snippet(snippetRunes))
		}
		examples = append(examples, example)
		if len(examples) == MaxExamples {
			break
		}
	}
	return examples
}
