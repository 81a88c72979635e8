package patterns

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/features"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/globaltime"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/record"
)

type Options struct {
	CheckThreshold float64
	Extractor      *features.Extractor
	Clock          func() time.Time
}

// Learner owns the learned pattern set for one process. Construct it once,
// call Load before use and hand it to callers that need it.
type Learner struct {
	store  Store
	logger zerolog.Logger

	extractor      *features.Extractor
	clock          func() time.Time
	checkThreshold float64

	// saveMu is taken before mu and held until the store write returns,
	// so snapshots reach the store in the order they were taken.
	saveMu sync.Mutex

	mu        sync.RWMutex
	patterns  []Pattern
	loadState LoadState
}

type Stats struct {
	Patterns          int       `json:"patterns"`
	TotalFrequency    int       `json:"total_frequency"`
	AverageConfidence float64   `json:"average_confidence"`
	LoadState         string    `json:"load_state"`
	LastSeen          time.Time `json:"last_seen,omitempty"`
}

type MergeStats struct {
	Deltas  int `json:"deltas"`
	Updated int `json:"updated"`
	Created int `json:"created"`
}

func New(store Store, logger zerolog.Logger, opts Options) *Learner {
	if opts.Extractor == nil {
		opts.Extractor = features.Default()
	}
	if opts.Clock == nil {
		opts.Clock = globaltime.UTC
	}
	if opts.CheckThreshold <= 0 {
		opts.CheckThreshold = DefaultCheckThreshold
	}
	return &Learner{
		store:          store,
		logger:         logger,
		extractor:      opts.Extractor,
		clock:          opts.Clock,
		checkThreshold: opts.CheckThreshold,
		loadState:      StateEmpty,
	}
}

// Load replaces the in-memory set with the store's contents. Bad persisted
// data degrades to an empty set with a warning.
func (l *Learner) Load(ctx context.Context) (LoadResult, error) {
	result, err := l.store.Load(ctx)
	if err != nil {
		return LoadResult{}, fmt.Errorf("load patterns: %w", err)
	}

	switch result.State {
	case StateDegraded:
		l.logger.Warn().Err(result.Cause).Msg("pattern store unreadable, continuing without learned patterns")
	case StateLoaded:
		l.logger.Debug().Int("patterns", len(result.Patterns)).Msg("patterns loaded")
	}

	l.mu.Lock()
	l.patterns = clonePatterns(result.Patterns)
	l.loadState = result.State
	l.mu.Unlock()
	return result, nil
}

// Save persists the current set.
func (l *Learner) Save(ctx context.Context) error {
	l.saveMu.Lock()
	defer l.saveMu.Unlock()

	l.mu.RLock()
	snapshot := clonePatterns(l.patterns)
	l.mu.RUnlock()

	if err := l.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save patterns: %w", err)
	}
	return nil
}

// Patterns returns a copy of the current set.
func (l *Learner) Patterns() []Pattern {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return clonePatterns(l.patterns)
}

// LearnFromDuplicates records one confirmed duplicate group and persists
// immediately. It reports false when the group shares no terms. On a save
// failure the in-memory update is kept and the error returned.
func (l *Learner) LearnFromDuplicates(ctx context.Context, group []record.TextRecord) (Pattern, bool, error) {
	obs := observeGroup(l.extractor, group, l.clock())
	if obs.empty() {
		return Pattern{}, false, nil
	}

	l.saveMu.Lock()
	defer l.saveMu.Unlock()

	l.mu.Lock()
	idx, created := absorb(&l.patterns, obs)
	learned := l.patterns[idx].clone()
	snapshot := clonePatterns(l.patterns)
	l.mu.Unlock()

	l.logger.Debug().
		Str("pattern_id", learned.ID).
		Bool("created", created).
		Int("frequency", learned.Frequency).
		Float64("confidence", learned.Confidence).
		Msg("duplicate pattern learned")

	if err := l.store.Save(ctx, snapshot); err != nil {
		l.logger.Warn().Err(err).Str("pattern_id", learned.ID).Msg("pattern save failed, keeping in-memory state")
		return learned, true, fmt.Errorf("save patterns: %w", err)
	}
	return learned, true, nil
}

// CheckAgainstPatterns flags a candidate whose title and tags overlap a
// learned pattern. A threshold <= 0 uses the learner's configured one.
func (l *Learner) CheckAgainstPatterns(title string, tags []string, threshold float64) (Match, bool) {
	if threshold <= 0 {
		threshold = l.checkThreshold
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return bestMatch(l.extractor, l.patterns, title, tags, threshold)
}

// Snapshot freezes the current set for workers.
func (l *Learner) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot{
		patterns:       clonePatterns(l.patterns),
		extractor:      l.extractor,
		clock:          l.clock,
		checkThreshold: l.checkThreshold,
	}
}

// Merge folds worker deltas in order and saves once. Patterns that several
// deltas reinforced get the union of their terms and the maximum of their
// frequency, confidence and last-seen time; patterns created by workers are
// folded through the usual match rule.
func (l *Learner) Merge(ctx context.Context, deltas ...Delta) (MergeStats, error) {
	stats := MergeStats{Deltas: len(deltas)}

	l.saveMu.Lock()
	defer l.saveMu.Unlock()

	l.mu.Lock()
	for _, delta := range deltas {
		for _, updated := range delta.Updated {
			idx := indexByID(l.patterns, updated.ID)
			if idx < 0 {
				if l.fold(updated) {
					stats.Created++
				} else {
					stats.Updated++
				}
				continue
			}
			mergeMax(&l.patterns[idx], updated)
			stats.Updated++
		}
		for _, fresh := range delta.Created {
			if l.fold(fresh) {
				stats.Created++
			} else {
				stats.Updated++
			}
		}
	}
	changed := stats.Updated+stats.Created > 0
	snapshot := clonePatterns(l.patterns)
	l.mu.Unlock()

	if !changed {
		return stats, nil
	}
	if err := l.store.Save(ctx, snapshot); err != nil {
		l.logger.Warn().Err(err).Int("deltas", len(deltas)).Msg("pattern save after merge failed, keeping in-memory state")
		return stats, fmt.Errorf("save patterns: %w", err)
	}
	return stats, nil
}

func (l *Learner) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := Stats{Patterns: len(l.patterns), LoadState: l.loadState.String()}
	if len(l.patterns) == 0 {
		return stats
	}
	total := 0.0
	for _, p := range l.patterns {
		total += p.Confidence
		stats.TotalFrequency += p.Frequency
		if p.LastSeen.After(stats.LastSeen) {
			stats.LastSeen = p.LastSeen
		}
	}
	stats.AverageConfidence = total / float64(len(l.patterns))
	return stats
}

// Count implements the feedback recorder's pattern counter.
func (l *Learner) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.patterns)
}

// fold reinforces the pattern p matches or adds p as-is. Callers hold mu.
func (l *Learner) fold(p Pattern) bool {
	idx, created := absorb(&l.patterns, observationFromPattern(p))
	if created {
		l.patterns[idx] = p.clone()
	}
	return created
}

func indexByID(patterns []Pattern, id string) int {
	for i, p := range patterns {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func mergeMax(target *Pattern, other Pattern) {
	target.Entities.Union(other.Entities)
	target.Keywords.Union(other.Keywords)
	target.Frequency = max(target.Frequency, other.Frequency)
	target.Confidence = math.Min(math.Max(target.Confidence, other.Confidence), MaxConfidence)
	if other.LastSeen.After(target.LastSeen) {
		target.LastSeen = other.LastSeen
	}
	target.Examples = appendExamples(target.Examples, other.Examples...)
}

func observationFromPattern(p Pattern) observation {
	return observation{
		entities:  p.Entities.Clone(),
		keywords:  p.Keywords.Clone(),
		examples:  append([]string(nil), p.Examples...),
		frequency: max(p.Frequency, 1),
		seenAt:    p.LastSeen,
	}
}
