package similarity

import (
	"fmt"
	"math"
	"sort"
)

const (
	ProfileStory          = "story"
	ProfilePreGeneration  = "pregen"
	ProfilePostGenContent = "postgen-content"
	ProfilePostGeneration = "postgen"
	ProfileRecency        = "recency"

	defaultBoostAmount       = 0.10
	defaultBoostEntityMin    = 0.30
	weightSumTolerance       = 1e-9
	storySecondaryBoostMin   = 0.30
	postgenSecondaryBoostMin = 0.50
)

// Weights is a named scoring profile. Signal weights must sum to 1.
type Weights struct {
	Name string `yaml:"-" json:"name"`

	Title          float64 `yaml:"title" json:"title"`
	Summary        float64 `yaml:"summary" json:"summary"`
	Content        float64 `yaml:"content" json:"content"`
	Tag            float64 `yaml:"tag" json:"tag"`
	Entity         float64 `yaml:"entity" json:"entity"`
	Keyword        float64 `yaml:"keyword" json:"keyword"`
	KeywordOverlap float64 `yaml:"keyword_overlap" json:"keyword_overlap"`
	Time           float64 `yaml:"time" json:"time"`

	// BoostAmount of zero disables the same-topic boost.
	BoostAmount       float64 `yaml:"boost_amount" json:"boost_amount"`
	BoostEntityMin    float64 `yaml:"boost_entity_min" json:"boost_entity_min"`
	BoostSecondaryMin float64 `yaml:"boost_secondary_min" json:"boost_secondary_min"`

	// UseContent runs entity and keyword extraction over full bodies when
	// both records carry one.
	UseContent bool `yaml:"use_content" json:"use_content"`
}

func (w Weights) sum() float64 {
	return w.Title + w.Summary + w.Content + w.Tag + w.Entity + w.Keyword + w.KeywordOverlap + w.Time
}

// Validate checks that every weight is within [0,1] and that they add up to 1.
func (w Weights) Validate() error {
	named := map[string]float64{
		"title":           w.Title,
		"summary":         w.Summary,
		"content":         w.Content,
		"tag":             w.Tag,
		"entity":          w.Entity,
		"keyword":         w.Keyword,
		"keyword_overlap": w.KeywordOverlap,
		"time":            w.Time,
		"boost_amount":    w.BoostAmount,
	}
	keys := make([]string, 0, len(named))
	for key := range named {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := named[key]
		if math.IsNaN(value) || value < 0 || value > 1 {
			return fmt.Errorf("profile %q: weight %s must be within [0,1], got %v", w.Name, key, value)
		}
	}
	if sum := w.sum(); math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("profile %q: weights must sum to 1.0, got %.6f", w.Name, sum)
	}
	return nil
}

func (w Weights) needsFeatures() bool {
	return w.Entity > 0 || w.Keyword > 0 || w.KeywordOverlap > 0 || w.BoostAmount > 0
}

// StoryWeights favours entity overlap since different sources phrase the
// same story differently.
func StoryWeights() Weights {
	return Weights{
		Name:              ProfileStory,
		Title:             0.10,
		Summary:           0.30,
		Entity:            0.50,
		Time:              0.10,
		BoostAmount:       defaultBoostAmount,
		BoostEntityMin:    defaultBoostEntityMin,
		BoostSecondaryMin: storySecondaryBoostMin,
	}
}

func PreGenerationWeights() Weights {
	return Weights{
		Name:              ProfilePreGeneration,
		Title:             0.30,
		Summary:           0.20,
		Tag:               0.10,
		Entity:            0.25,
		Keyword:           0.15,
		BoostAmount:       defaultBoostAmount,
		BoostEntityMin:    defaultBoostEntityMin,
		BoostSecondaryMin: storySecondaryBoostMin,
	}
}

func PostGenerationContentWeights() Weights {
	return Weights{
		Name:              ProfilePostGenContent,
		Title:             0.20,
		Summary:           0.12,
		Tag:               0.08,
		Entity:            0.20,
		Content:           0.25,
		KeywordOverlap:    0.15,
		BoostAmount:       defaultBoostAmount,
		BoostEntityMin:    defaultBoostEntityMin,
		BoostSecondaryMin: postgenSecondaryBoostMin,
		UseContent:        true,
	}
}

func PostGenerationWeights() Weights {
	return Weights{
		Name:              ProfilePostGeneration,
		Title:             0.25,
		Summary:           0.15,
		Tag:               0.10,
		Entity:            0.30,
		KeywordOverlap:    0.20,
		BoostAmount:       defaultBoostAmount,
		BoostEntityMin:    defaultBoostEntityMin,
		BoostSecondaryMin: postgenSecondaryBoostMin,
	}
}

// RecencyWeights is the cheap pre-check profile: no extraction, no boost.
func RecencyWeights() Weights {
	return Weights{
		Name:    ProfileRecency,
		Title:   0.40,
		Summary: 0.40,
		Tag:     0.20,
	}
}
