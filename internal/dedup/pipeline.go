// Package dedup wires extraction, scoring, grouping, learning, recency and
// feedback into the two checkpoints content passes through: before
// generation (cheap, recall-biased) and after it (full bodies,
// precision-biased).
package dedup

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/cluster"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/config"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/feedback"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/langdetect"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/patterns"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/recency"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/similarity"
)

const (
	StagePreGeneration  = "pre-generation"
	StagePostGeneration = "post-generation"

	DefaultPostGenThreshold = 0.7
	DefaultWorkers          = 4
)

type Thresholds struct {
	Group            float64
	StoryMin         float64
	ConsolidateAbove float64
	PostGeneration   float64
	Pattern          float64
}

// ThresholdsFromConfig copies the tunables out of the service config.
func ThresholdsFromConfig(cfg *config.Config) Thresholds {
	return Thresholds{
		Group:            cfg.GroupThreshold,
		StoryMin:         cfg.StoryMinSimilarity,
		ConsolidateAbove: cfg.ConsolidateThreshold,
		PostGeneration:   cfg.PostGenThreshold,
		Pattern:          cfg.PatternThreshold,
	}
}

func (t Thresholds) withDefaults() Thresholds {
	if t.Group <= 0 {
		t.Group = cluster.DefaultGroupThreshold
	}
	if t.StoryMin <= 0 {
		t.StoryMin = cluster.DefaultStoryMinSimilarity
	}
	if t.ConsolidateAbove <= 0 {
		t.ConsolidateAbove = cluster.DefaultConsolidateAbove
	}
	if t.PostGeneration <= 0 {
		t.PostGeneration = DefaultPostGenThreshold
	}
	if t.Pattern <= 0 {
		t.Pattern = patterns.DefaultCheckThreshold
	}
	return t
}

// Deps are the collaborators a pipeline runs against. Any of Learner,
// Recency, Feedback and Detector may be nil; the matching stage is then
// skipped.
type Deps struct {
	Learner  *patterns.Learner
	Recency  *recency.Cache
	Feedback *feedback.Recorder
	Detector *langdetect.Detector
	Profiles similarity.Profiles
	Logger   zerolog.Logger
}

type Options struct {
	Thresholds Thresholds
	Workers    int
}

type Pipeline struct {
	learner  *patterns.Learner
	recency  *recency.Cache
	feedback *feedback.Recorder
	detector *langdetect.Detector
	logger   zerolog.Logger

	groupScorer *similarity.Scorer
	storyScorer *similarity.Scorer
	postScorer  *similarity.Scorer

	thresholds Thresholds
	workers    int
}

func New(deps Deps, opts Options) (*Pipeline, error) {
	profiles := deps.Profiles
	if profiles == nil {
		profiles = similarity.DefaultProfiles()
	}

	pregen, err := profiles.Get(similarity.ProfilePreGeneration)
	if err != nil {
		return nil, fmt.Errorf("pre-generation profile: %w", err)
	}
	story, err := profiles.Get(similarity.ProfileStory)
	if err != nil {
		return nil, fmt.Errorf("story profile: %w", err)
	}
	postContent, err := profiles.Get(similarity.ProfilePostGenContent)
	if err != nil {
		return nil, fmt.Errorf("post-generation content profile: %w", err)
	}
	post, err := profiles.Get(similarity.ProfilePostGeneration)
	if err != nil {
		return nil, fmt.Errorf("post-generation profile: %w", err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &Pipeline{
		learner:     deps.Learner,
		recency:     deps.Recency,
		feedback:    deps.Feedback,
		detector:    deps.Detector,
		logger:      deps.Logger,
		groupScorer: similarity.NewScorer(pregen),
		storyScorer: similarity.NewScorer(story),
		postScorer:  similarity.NewPostGenerationScorer(postContent, post),
		thresholds:  opts.Thresholds.withDefaults(),
		workers:     workers,
	}, nil
}

func (p *Pipeline) Thresholds() Thresholds {
	return p.thresholds
}

// patternCount feeds the feedback recorder without handing it a nil
// learner wrapped in an interface.
func (p *Pipeline) patternCount() feedback.PatternCounter {
	if p.learner == nil {
		return nil
	}
	return p.learner
}
