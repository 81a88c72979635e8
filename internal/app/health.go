package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/cli"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/config"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/db"
)

type healthCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// runHealth reports whether the configured state files are usable and, when
// a database is configured, whether it answers a ping.
func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Second, "Database ping timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	cfg, logger, err := loadConfig(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	checks := []healthCheck{
		fileCheck("pattern_file", cfg.PatternFile, false),
		fileCheck("feedback_file", cfg.FeedbackFile, false),
	}
	if cfg.RecencySourceKind() == config.RecencySourceFile {
		checks = append(checks, fileCheck("published_index", cfg.PublishedIndex, false))
	}
	if strings.TrimSpace(cfg.WeightsFile) != "" {
		checks = append(checks, fileCheck("weights_file", cfg.WeightsFile, true))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	checks = append(checks, databaseCheck(ctx, cfg))

	healthy := true
	for _, check := range checks {
		if check.Status == "fail" {
			healthy = false
			logger.Error().Str("check", check.Name).Str("detail", check.Detail).Msg("health check failed")
		}
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(map[string]any{"healthy": healthy, "checks": checks}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
	} else {
		rows := make([][]string, 0, len(checks))
		for _, check := range checks {
			rows = append(rows, []string{check.Name, check.Status, check.Detail})
		}
		if err := writeTable([]string{"check", "status", "detail"}, rows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
			return 1
		}
	}

	if !healthy {
		return 1
	}
	return 0
}

// fileCheck passes for an existing regular file, and for a missing one
// unless required. A missing state file just means first run.
func fileCheck(name, path string, required bool) healthCheck {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return healthCheck{Name: name, Status: "fail", Detail: "path is empty"}
	}
	info, err := os.Stat(trimmed)
	switch {
	case errors.Is(err, os.ErrNotExist) && !required:
		return healthCheck{Name: name, Status: "ok", Detail: trimmed + " (not created yet)"}
	case err != nil:
		return healthCheck{Name: name, Status: "fail", Detail: err.Error()}
	case info.IsDir():
		return healthCheck{Name: name, Status: "fail", Detail: trimmed + " is a directory"}
	default:
		return healthCheck{Name: name, Status: "ok", Detail: trimmed}
	}
}

func databaseCheck(ctx context.Context, cfg *config.Config) healthCheck {
	if !cfg.HasDatabase() {
		return healthCheck{Name: "database", Status: "skip", Detail: "DATABASE_URL not set"}
	}
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return healthCheck{Name: "database", Status: "fail", Detail: err.Error()}
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return healthCheck{Name: "database", Status: "fail", Detail: err.Error()}
	}
	return healthCheck{Name: "database", Status: "ok"}
}
