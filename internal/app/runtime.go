package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/cli"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/config"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/db"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/dedup"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/feedback"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/langdetect"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/logging"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/patterns"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/recency"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/similarity"
)

const (
	outputFormatTable = "table"
	outputFormatJSON  = "json"
)

// runtime is everything a command needs, built from the environment.
type runtime struct {
	cfg      *config.Config
	logger   zerolog.Logger
	profiles similarity.Profiles
	learner  *patterns.Learner
	feedback *feedback.Recorder
	recency  *recency.Cache
	pool     *db.Pool
	pipeline *dedup.Pipeline
}

type runtimeOptions struct {
	// recency loads the recency cache from the configured source.
	recency bool
	// languages buckets records by detected language.
	languages bool
	// database opens the pool even when recency does not need it.
	database bool
}

func loadConfig(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

func loadRuntime(ctx context.Context, envLoader *cli.EnvLoader, opts runtimeOptions) (*runtime, error) {
	cfg, logger, err := loadConfig(envLoader)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, logger: logger}

	rt.profiles = similarity.DefaultProfiles()
	if path := strings.TrimSpace(cfg.WeightsFile); path != "" {
		rt.profiles, err = similarity.LoadProfiles(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load weight profiles: %w", err)
		}
	}

	rt.learner = patterns.New(patterns.NewFileStore(cfg.PatternFile), logger, patterns.Options{
		CheckThreshold: cfg.PatternThreshold,
	})
	if _, err := rt.learner.Load(ctx); err != nil {
		return nil, err
	}

	rt.feedback = feedback.NewRecorder(cfg.FeedbackFile, logger, feedback.Options{Window: cfg.FeedbackWindow})
	if err := rt.feedback.Load(ctx); err != nil {
		return nil, err
	}

	needsPool := opts.database && cfg.HasDatabase()
	if opts.recency && cfg.RecencySourceKind() == config.RecencySourceDatabase {
		needsPool = true
	}
	if needsPool {
		rt.pool, err = db.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
	}

	if opts.recency {
		var src recency.Source
		switch cfg.RecencySourceKind() {
		case config.RecencySourceFile:
			src = recency.NewFileSource(cfg.PublishedIndex)
		case config.RecencySourceDatabase:
			src = recency.NewDBSource(rt.pool)
		}
		rt.recency, err = recency.Load(ctx, src, recency.Options{
			Window:    cfg.RecencyWindow(),
			Threshold: cfg.RecencyThreshold,
			Logger:    logger,
		})
		if err != nil {
			rt.Close()
			return nil, err
		}
	}

	deps := dedup.Deps{
		Learner:  rt.learner,
		Recency:  rt.recency,
		Feedback: rt.feedback,
		Profiles: rt.profiles,
		Logger:   logger,
	}
	if opts.languages {
		deps.Detector = langdetect.Default()
	}
	rt.pipeline, err = dedup.New(deps, dedup.Options{
		Thresholds: dedup.ThresholdsFromConfig(cfg),
		Workers:    cfg.Workers,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (r *runtime) Close() {
	if r != nil && r.pool != nil {
		_ = r.pool.Close()
	}
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(trimmed)
}

func parseOutputFormat(raw, defaultFormat string) (string, error) {
	format := strings.TrimSpace(strings.ToLower(raw))
	if format == "" {
		format = strings.TrimSpace(strings.ToLower(defaultFormat))
	}
	switch format {
	case outputFormatTable, outputFormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("--format must be table or json")
	}
}

func parseTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}

func truncateForTable(value string, maxLen int) string {
	trimmed := strings.TrimSpace(value)
	if maxLen <= 0 {
		return trimmed
	}
	if utf8.RuneCountInString(trimmed) <= maxLen {
		return trimmed
	}

	runes := []rune(trimmed)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

func formatUTCDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func writeTable(headers []string, rows [][]string) error {
	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	if _, err := fmt.Fprintln(writer, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(writer, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return writer.Flush()
}
