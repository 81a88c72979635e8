package patterns

import (
	"time"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/features"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/record"
)

// Snapshot is a frozen copy of the learned set handed to workers. It is
// safe to read from many goroutines.
type Snapshot struct {
	patterns       []Pattern
	extractor      *features.Extractor
	clock          func() time.Time
	checkThreshold float64
}

func (s Snapshot) Len() int {
	return len(s.patterns)
}

// CheckAgainstPatterns runs the pre-check against the frozen set.
func (s Snapshot) CheckAgainstPatterns(title string, tags []string, threshold float64) (Match, bool) {
	if threshold <= 0 {
		threshold = s.checkThreshold
	}
	return bestMatch(s.extractor, s.patterns, title, tags, threshold)
}

// NewAccumulator starts a worker-local learning session on top of s.
func (s Snapshot) NewAccumulator() *Accumulator {
	return &Accumulator{
		extractor: s.extractor,
		clock:     s.clock,
		base:      clonePatterns(s.patterns),
		touched:   make([]bool, len(s.patterns)),
	}
}

// Accumulator collects learning events for one worker. It is not safe for
// concurrent use; give each worker its own.
type Accumulator struct {
	extractor *features.Extractor
	clock     func() time.Time

	base    []Pattern
	touched []bool
	fresh   []Pattern
}

// Observe records one duplicate group locally. It reports false when the
// group shares no terms.
func (a *Accumulator) Observe(group []record.TextRecord) (Pattern, bool) {
	obs := observeGroup(a.extractor, group, a.clock())
	if obs.empty() {
		return Pattern{}, false
	}

	if idx := findMatch(a.base, obs); idx >= 0 {
		reinforce(&a.base[idx], obs)
		a.touched[idx] = true
		return a.base[idx].clone(), true
	}
	idx, _ := absorb(&a.fresh, obs)
	return a.fresh[idx].clone(), true
}

// Delta returns an immutable copy of what this worker learned.
func (a *Accumulator) Delta() Delta {
	var delta Delta
	for i, touched := range a.touched {
		if touched {
			delta.Updated = append(delta.Updated, a.base[i].clone())
		}
	}
	delta.Created = clonePatterns(a.fresh)
	return delta
}

// Delta is one worker's contribution to the learned set.
type Delta struct {
	Updated []Pattern
	Created []Pattern
}

func (d Delta) Empty() bool {
	return len(d.Updated) == 0 && len(d.Created) == 0
}
