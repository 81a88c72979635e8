package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	RecencySourceFile     = "file"
	RecencySourceDatabase = "db"
	RecencySourceNone     = "none"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"4"`

	PatternFile    string `envconfig:"CURATOR_PATTERN_FILE" default:"data/duplicate_patterns.json"`
	FeedbackFile   string `envconfig:"CURATOR_FEEDBACK_FILE" default:"data/dedup_feedback.json"`
	PublishedIndex string `envconfig:"CURATOR_PUBLISHED_INDEX" default:"data/published_index.json"`
	WeightsFile    string `envconfig:"CURATOR_WEIGHTS_FILE" default:""`
	RecencySource  string `envconfig:"CURATOR_RECENCY_SOURCE" default:"file"`

	GroupThreshold       float64 `envconfig:"CURATOR_GROUP_THRESHOLD" default:"0.6"`
	StoryMinSimilarity   float64 `envconfig:"CURATOR_STORY_MIN_SIMILARITY" default:"0.5"`
	ConsolidateThreshold float64 `envconfig:"CURATOR_CONSOLIDATE_THRESHOLD" default:"0.6"`
	PostGenThreshold     float64 `envconfig:"CURATOR_POSTGEN_THRESHOLD" default:"0.7"`
	RecencyThreshold     float64 `envconfig:"CURATOR_RECENCY_THRESHOLD" default:"0.7"`
	PatternThreshold     float64 `envconfig:"CURATOR_PATTERN_THRESHOLD" default:"0.6"`

	RecencyWindowDays int `envconfig:"CURATOR_RECENCY_WINDOW_DAYS" default:"14"`
	Workers           int `envconfig:"CURATOR_WORKERS" default:"4"`
	FeedbackWindow    int `envconfig:"CURATOR_FEEDBACK_WINDOW" default:"10"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) cannot exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.PatternFile) == "" {
		return fmt.Errorf("CURATOR_PATTERN_FILE is required")
	}
	if strings.TrimSpace(c.FeedbackFile) == "" {
		return fmt.Errorf("CURATOR_FEEDBACK_FILE is required")
	}

	switch c.RecencySourceKind() {
	case RecencySourceFile:
		if strings.TrimSpace(c.PublishedIndex) == "" {
			return fmt.Errorf("CURATOR_PUBLISHED_INDEX is required when CURATOR_RECENCY_SOURCE=file")
		}
	case RecencySourceDatabase:
		if !c.HasDatabase() {
			return fmt.Errorf("DATABASE_URL is required when CURATOR_RECENCY_SOURCE=db")
		}
	case RecencySourceNone:
	default:
		return fmt.Errorf("CURATOR_RECENCY_SOURCE must be one of file, db, none")
	}

	thresholds := []struct {
		name  string
		value float64
	}{
		{"CURATOR_GROUP_THRESHOLD", c.GroupThreshold},
		{"CURATOR_STORY_MIN_SIMILARITY", c.StoryMinSimilarity},
		{"CURATOR_CONSOLIDATE_THRESHOLD", c.ConsolidateThreshold},
		{"CURATOR_POSTGEN_THRESHOLD", c.PostGenThreshold},
		{"CURATOR_RECENCY_THRESHOLD", c.RecencyThreshold},
		{"CURATOR_PATTERN_THRESHOLD", c.PatternThreshold},
	}
	for _, th := range thresholds {
		if th.value <= 0 || th.value > 1 {
			return fmt.Errorf("%s must be within (0,1], got %v", th.name, th.value)
		}
	}

	if c.RecencyWindowDays < 1 {
		return fmt.Errorf("CURATOR_RECENCY_WINDOW_DAYS must be >= 1")
	}
	if c.Workers < 1 {
		return fmt.Errorf("CURATOR_WORKERS must be >= 1")
	}
	if c.FeedbackWindow < 1 {
		return fmt.Errorf("CURATOR_FEEDBACK_WINDOW must be >= 1")
	}
	return nil
}

func (c *Config) HasDatabase() bool {
	return c != nil && strings.TrimSpace(c.DatabaseURL) != ""
}

func (c *Config) RecencySourceKind() string {
	return strings.ToLower(strings.TrimSpace(c.RecencySource))
}

func (c *Config) RecencyWindow() time.Duration {
	return time.Duration(c.RecencyWindowDays) * 24 * time.Hour
}
