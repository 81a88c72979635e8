package patterns

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/features"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/record"
)

const (
	InitialConfidence     = 0.8
	ConfidenceStep        = 0.05
	MaxConfidence         = 0.95
	MaxExamples           = 5
	DefaultCheckThreshold = 0.6

	// fullWeightFrequency is the observation count at which a pattern's
	// pre-check score is no longer throttled.
	fullWeightFrequency = 3
	minSharedEntities   = 2
	minSharedKeywords   = 3
	exampleSnippetRunes = 120
)

// Pattern is a learned duplicate signature.
type Pattern struct {
	ID         string       `json:"id"`
	Entities   features.Set `json:"entities"`
	Keywords   features.Set `json:"keywords"`
	Confidence float64      `json:"confidence"`
	Frequency  int          `json:"frequency"`
	FirstSeen  time.Time    `json:"first_seen"`
	LastSeen   time.Time    `json:"last_seen"`
	Examples   []string     `json:"examples,omitempty"`
}

// Terms is the union of entities and keywords.
func (p Pattern) Terms() features.Set {
	terms := p.Entities.Clone()
	terms.Union(p.Keywords)
	return terms
}

func (p Pattern) clone() Pattern {
	out := p
	out.Entities = p.Entities.Clone()
	out.Keywords = p.Keywords.Clone()
	out.Examples = append([]string(nil), p.Examples...)
	return out
}

func clonePatterns(in []Pattern) []Pattern {
	out := make([]Pattern, len(in))
	for i, p := range in {
		out[i] = p.clone()
	}
	return out
}

// observation is what one duplicate group (or one folded delta pattern)
// contributes to the pattern set.
type observation struct {
	entities  features.Set
	keywords  features.Set
	examples  []string
	frequency int
	seenAt    time.Time
}

func (o observation) empty() bool {
	return o.entities.Len() == 0 && o.keywords.Len() == 0
}

// observeGroup keeps the terms shared by at least half of the group,
// rounded up, and by at least two members whenever there are two or more.
func observeGroup(extractor *features.Extractor, group []record.TextRecord, seenAt time.Time) observation {
	obs := observation{
		entities:  features.Set{},
		keywords:  features.Set{},
		frequency: 1,
		seenAt:    seenAt.UTC(),
	}
	if len(group) == 0 {
		return obs
	}

	required := int(math.Ceil(float64(len(group)) / 2))
	if len(group) >= 2 && required < 2 {
		required = 2
	}

	entityCounts := map[string]int{}
	keywordCounts := map[string]int{}
	for _, rec := range group {
		text := rec.FeatureText()
		for entity := range extractor.ExtractEntities(text) {
			entityCounts[entity]++
		}
		for keyword := range extractor.ExtractKeywords(text, features.DefaultMinKeywordLength) {
			keywordCounts[keyword]++
		}
	}
	for entity, count := range entityCounts {
		if count >= required {
			obs.entities.Add(entity)
		}
	}
	for keyword, count := range keywordCounts {
		if count >= required {
			obs.keywords.Add(keyword)
		}
	}

	if snippet := group[0].Snippet(exampleSnippetRunes); snippet != "" {
		obs.examples = []string{snippet}
	}
	return obs
}

// findMatch returns the index of the pattern sharing the most entities (then
// keywords) with obs that satisfies the overlap rule, or -1.
func findMatch(patterns []Pattern, obs observation) int {
	best := -1
	bestEntities, bestKeywords := 0, 0
	for i, p := range patterns {
		sharedEntities := features.IntersectionSize(p.Entities, obs.entities)
		sharedKeywords := features.IntersectionSize(p.Keywords, obs.keywords)
		qualifies := sharedEntities >= minSharedEntities ||
			(sharedEntities >= 1 && sharedKeywords >= minSharedKeywords)
		if !qualifies {
			continue
		}
		if best == -1 || sharedEntities > bestEntities ||
			(sharedEntities == bestEntities && sharedKeywords > bestKeywords) {
			best = i
			bestEntities, bestKeywords = sharedEntities, sharedKeywords
		}
	}
	return best
}

// absorb folds obs into patterns, reinforcing a match or appending a new
// pattern. It returns the touched index and whether it was created.
func absorb(patterns *[]Pattern, obs observation) (int, bool) {
	if idx := findMatch(*patterns, obs); idx >= 0 {
		reinforce(&(*patterns)[idx], obs)
		return idx, false
	}
	*patterns = append(*patterns, newPattern(obs))
	return len(*patterns) - 1, true
}

func reinforce(p *Pattern, obs observation) {
	hits := max(obs.frequency, 1)
	p.Entities.Union(obs.entities)
	p.Keywords.Union(obs.keywords)
	p.Frequency += hits
	p.Confidence = math.Min(p.Confidence+ConfidenceStep*float64(hits), MaxConfidence)
	if obs.seenAt.After(p.LastSeen) {
		p.LastSeen = obs.seenAt
	}
	p.Examples = appendExamples(p.Examples, obs.examples...)
}

func newPattern(obs observation) Pattern {
	return Pattern{
		ID:         uuid.NewString(),
		Entities:   obs.entities.Clone(),
		Keywords:   obs.keywords.Clone(),
		Confidence: InitialConfidence,
		Frequency:  max(obs.frequency, 1),
		FirstSeen:  obs.seenAt,
		LastSeen:   obs.seenAt,
		Examples:   appendExamples(nil, obs.examples...),
	}
}

// appendExamples adds unseen examples and keeps only the newest MaxExamples.
func appendExamples(existing []string, additions ...string) []string {
	out := existing
	for _, example := range additions {
		example = strings.TrimSpace(example)
		if example == "" || containsString(out, example) {
			continue
		}
		out = append(out, example)
	}
	if len(out) > MaxExamples {
		out = append([]string(nil), out[len(out)-MaxExamples:]...)
	}
	return out
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
