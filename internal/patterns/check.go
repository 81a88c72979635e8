package patterns

import (
	"math"
	"strings"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/features"
)

// Match explains why a candidate was flagged by a learned pattern.
type Match struct {
	Pattern        Pattern
	Score          float64
	KeywordOverlap float64
	TagOverlap     float64
}

// bestMatch scores title and tags against every pattern. A pattern seen
// fewer than three times contributes proportionally less, so a single
// coincidental overlap cannot suppress new content on its own.
func bestMatch(extractor *features.Extractor, patterns []Pattern, title string, tags []string, threshold float64) (Match, bool) {
	if threshold <= 0 {
		threshold = DefaultCheckThreshold
	}

	titleWords := extractor.ExtractKeywords(title, features.DefaultMinKeywordLength)
	tagSet := features.Set{}
	for _, tag := range tags {
		tagSet.Add(strings.ToLower(strings.TrimSpace(tag)))
	}
	if titleWords.Len() == 0 && tagSet.Len() == 0 {
		return Match{}, false
	}

	var best Match
	found := false
	for _, p := range patterns {
		m := scorePattern(p, titleWords, tagSet)
		if m.Score < threshold {
			continue
		}
		if !found || m.Score > best.Score {
			best = m
			found = true
		}
	}
	if !found {
		return Match{}, false
	}
	best.Pattern = best.Pattern.clone()
	return best, true
}

func scorePattern(p Pattern, titleWords, tags features.Set) Match {
	terms := p.Terms()
	m := Match{Pattern: p}
	if titleWords.Len() > 0 {
		m.KeywordOverlap = float64(features.IntersectionSize(titleWords, terms)) / float64(titleWords.Len())
	}
	if tags.Len() > 0 {
		m.TagOverlap = float64(features.IntersectionSize(tags, terms)) / float64(tags.Len())
	}
	weight := math.Min(float64(p.Frequency)/fullWeightFrequency, 1)
	m.Score = (m.KeywordOverlap*0.5 + m.TagOverlap*0.5) * weight
	return m
}
