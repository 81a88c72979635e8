package dedup

import (
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/patterns"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/recency"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/record"
)

const (
	ReasonPattern = "pattern"
	ReasonRecency = "recency"
)

// Rejection is a candidate dropped before grouping, with the evidence.
type Rejection struct {
	Record  record.TextRecord `json:"record"`
	Reason  string            `json:"reason"`
	Pattern *PatternEvidence  `json:"pattern,omitempty"`
	Recency *recency.Match    `json:"recency,omitempty"`
}

type PatternEvidence struct {
	PatternID      string   `json:"pattern_id"`
	Score          float64  `json:"score"`
	KeywordOverlap float64  `json:"keyword_overlap"`
	TagOverlap     float64  `json:"tag_overlap"`
	Entities       []string `json:"entities"`
	Keywords       []string `json:"keywords"`
	Frequency      int      `json:"frequency"`
}

func evidenceFrom(m patterns.Match) *PatternEvidence {
	return &PatternEvidence{
		PatternID:      m.Pattern.ID,
		Score:          m.Score,
		KeywordOverlap: m.KeywordOverlap,
		TagOverlap:     m.TagOverlap,
		Entities:       m.Pattern.Entities.Sorted(),
		Keywords:       m.Pattern.Keywords.Sorted(),
		Frequency:      m.Pattern.Frequency,
	}
}

// CheckResult answers "should the generation layer skip this candidate".
type CheckResult struct {
	Duplicate bool             `json:"duplicate"`
	Reason    string           `json:"reason,omitempty"`
	Pattern   *PatternEvidence `json:"pattern,omitempty"`
	Recency   *recency.Match   `json:"recency,omitempty"`
}

type patternChecker interface {
	CheckAgainstPatterns(title string, tags []string, threshold float64) (patterns.Match, bool)
}

// Check runs the cheap pre-checks for one candidate against the live
// learned set and the recency cache.
func (p *Pipeline) Check(rec record.TextRecord) CheckResult {
	var checker patternChecker
	if p.learner != nil {
		checker = p.learner
	}
	return p.check(checker, rec)
}

func (p *Pipeline) check(checker patternChecker, rec record.TextRecord) CheckResult {
	if checker != nil {
		if match, ok := checker.CheckAgainstPatterns(rec.Title, rec.Tags, p.thresholds.Pattern); ok {
			return CheckResult{Duplicate: true, Reason: ReasonPattern, Pattern: evidenceFrom(match)}
		}
	}
	if p.recency != nil {
		if match, ok := p.recency.CheckSimilarity(rec.Title, rec.Summary, rec.Tags); ok {
			return CheckResult{Duplicate: true, Reason: ReasonRecency, Recency: &match}
		}
	}
	return CheckResult{}
}
