package similarity

import (
	"math"
	"time"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/features"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/record"
)

const (
	timeProximityWindow = 24 * time.Hour
	timeProximityNear   = 1.0
	timeProximityFar    = 0.5
)

// Result holds every per-signal score plus the weighted overall score.
// Signals that were not computed for the pair stay at zero.
type Result struct {
	Profile        string  `json:"profile"`
	Title          float64 `json:"title"`
	Summary        float64 `json:"summary"`
	Content        float64 `json:"content"`
	Tag            float64 `json:"tag"`
	Entity         float64 `json:"entity"`
	Keyword        float64 `json:"keyword"`
	KeywordOverlap float64 `json:"keyword_overlap"`
	TimeProximity  float64 `json:"time_proximity"`
	Boosted        bool    `json:"boosted"`
	Overall        float64 `json:"overall"`
}

// Features caches the per-record inputs of a comparison so batch callers
// extract once per record instead of once per pair.
type Features struct {
	Record record.TextRecord

	title    []rune
	summary  []rune
	tags     map[string]struct{}
	entities features.Set
	keywords features.Set

	contentWords    []string
	contentEntities features.Set
	contentKeywords features.Set
}

func (f *Features) hasContent() bool {
	return len(f.contentWords) > 0
}

// Scorer computes weighted similarity between two records. A Scorer holds
// no mutable state and may be shared across goroutines.
type Scorer struct {
	weights        Weights
	contentWeights *Weights
	extractor      *features.Extractor
}

func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights, extractor: features.Default()}
}

// NewPostGenerationScorer picks withContent for pairs where both records
// carry a body and withoutContent otherwise.
func NewPostGenerationScorer(withContent, withoutContent Weights) *Scorer {
	s := NewScorer(withoutContent)
	s.contentWeights = &withContent
	return s
}

// WithExtractor swaps the feature extractor, mainly for custom vocabularies.
func (s *Scorer) WithExtractor(extractor *features.Extractor) *Scorer {
	clone := *s
	if extractor != nil {
		clone.extractor = extractor
	}
	return &clone
}

func (s *Scorer) Weights() Weights {
	return s.weights
}

func (s *Scorer) needsFeatures() bool {
	if s.weights.needsFeatures() {
		return true
	}
	return s.contentWeights != nil && s.contentWeights.needsFeatures()
}

func (s *Scorer) needsContent() bool {
	return s.weights.Content > 0 || s.weights.UseContent || s.contentWeights != nil
}

// Prepare extracts everything the scorer's profiles read from rec.
func (s *Scorer) Prepare(rec record.TextRecord) *Features {
	f := &Features{
		Record:  rec,
		title:   []rune(normalizeText(rec.Title)),
		summary: []rune(normalizeText(rec.Summary)),
		tags:    tagSet(rec.Tags),
	}
	if s.needsFeatures() {
		text := rec.FeatureText()
		f.entities = s.extractor.ExtractEntities(text)
		f.keywords = s.extractor.ExtractKeywords(text, features.DefaultMinKeywordLength)
	}
	if s.needsContent() && rec.HasContent() {
		f.contentWords = contentTokens(rec.Content)
		if s.needsFeatures() {
			f.contentEntities = s.extractor.ExtractEntities(rec.Content)
			f.contentKeywords = s.extractor.ExtractKeywords(rec.Content, features.DefaultMinKeywordLength)
		}
	}
	return f
}

// Score compares two records. It is symmetric in its arguments.
func (s *Scorer) Score(a, b record.TextRecord) Result {
	return s.ScoreFeatures(s.Prepare(a), s.Prepare(b))
}

// ScoreFeatures compares two prepared records.
func (s *Scorer) ScoreFeatures(a, b *Features) Result {
	bothContent := a.hasContent() && b.hasContent()
	weights := s.weights
	if s.contentWeights != nil && bothContent {
		weights = *s.contentWeights
	}

	result := Result{
		Profile:       weights.Name,
		Title:         lcsRatio(a.title, b.title),
		Summary:       lcsRatio(a.summary, b.summary),
		Tag:           tagOverlap(a.tags, b.tags),
		TimeProximity: timeProximity(a.Record.Timestamp, b.Record.Timestamp),
	}
	if bothContent {
		result.Content = lcsRatio(a.contentWords, b.contentWords)
	}

	if weights.needsFeatures() {
		entitiesA, entitiesB := a.entities, b.entities
		keywordsA, keywordsB := a.keywords, b.keywords
		if weights.UseContent && bothContent {
			entitiesA, entitiesB = a.contentEntities, b.contentEntities
			keywordsA, keywordsB = a.contentKeywords, b.contentKeywords
		}
		result.Entity = features.Jaccard(entitiesA, entitiesB)
		result.Keyword = features.Jaccard(keywordsA, keywordsB)
		result.KeywordOverlap = features.OverlapRatio(keywordsA, keywordsB)
	}

	result.Overall, result.Boosted = Combine(weights.withoutAbsent(absentSignals(a, b)), result)
	return result
}

// absent marks signals with no input on either side of a pair. Their
// weight is spread over the signals that do have input.
type absent struct {
	title   bool
	summary bool
	content bool
	tag     bool
	entity  bool
	keyword bool
	time    bool
}

func absentSignals(a, b *Features) absent {
	return absent{
		title:   len(a.title) == 0 && len(b.title) == 0,
		summary: len(a.summary) == 0 && len(b.summary) == 0,
		content: !a.hasContent() && !b.hasContent(),
		tag:     len(a.tags) == 0 && len(b.tags) == 0,
		entity:  a.entities.Len() == 0 && b.entities.Len() == 0 && a.contentEntities.Len() == 0 && b.contentEntities.Len() == 0,
		keyword: a.keywords.Len() == 0 && b.keywords.Len() == 0 && a.contentKeywords.Len() == 0 && b.contentKeywords.Len() == 0,
		time:    a.Record.Timestamp.IsZero() && b.Record.Timestamp.IsZero(),
	}
}

// withoutAbsent zeroes the weights of absent signals and scales the rest
// back up to the original total. Boost settings are untouched.
func (w Weights) withoutAbsent(missing absent) Weights {
	total := w.sum()
	out := w
	drop := func(weight *float64, isAbsent bool) {
		if isAbsent {
			*weight = 0
		}
	}
	drop(&out.Title, missing.title)
	drop(&out.Summary, missing.summary)
	drop(&out.Content, missing.content)
	drop(&out.Tag, missing.tag)
	drop(&out.Entity, missing.entity)
	drop(&out.Keyword, missing.keyword)
	drop(&out.KeywordOverlap, missing.keyword)
	drop(&out.Time, missing.time)

	remaining := out.sum()
	if remaining == total || remaining <= 0 {
		return out
	}
	scale := total / remaining
	out.Title *= scale
	out.Summary *= scale
	out.Content *= scale
	out.Tag *= scale
	out.Entity *= scale
	out.Keyword *= scale
	out.KeywordOverlap *= scale
	out.Time *= scale
	return out
}

// Combine applies a profile to per-signal scores as given. The output
// depends on nothing but its arguments; ScoreFeatures first drops the
// weight of signals neither record has input for.
func Combine(weights Weights, r Result) (float64, bool) {
	score := weights.Title*r.Title +
		weights.Summary*r.Summary +
		weights.Content*r.Content +
		weights.Tag*r.Tag +
		weights.Entity*r.Entity +
		weights.Keyword*r.Keyword +
		weights.KeywordOverlap*r.KeywordOverlap +
		weights.Time*r.TimeProximity

	boosted := false
	if weights.BoostAmount > 0 && r.Entity > weights.BoostEntityMin {
		secondary := math.Max(r.Tag, math.Max(r.Keyword, r.KeywordOverlap))
		if secondary > weights.BoostSecondaryMin {
			score += weights.BoostAmount
			boosted = true
		}
	}
	return clamp01(score), boosted
}

func timeProximity(left, right time.Time) float64 {
	if left.IsZero() || right.IsZero() {
		return timeProximityFar
	}
	diff := left.UTC().Sub(right.UTC())
	if diff < 0 {
		diff = -diff
	}
	if diff <= timeProximityWindow {
		return timeProximityNear
	}
	return timeProximityFar
}
