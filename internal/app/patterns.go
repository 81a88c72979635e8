package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/cli"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/patterns"
)

func runPatterns(args []string) int {
	fs := flag.NewFlagSet("patterns", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	statsOnly := fs.Bool("stats", false, "Print aggregate statistics only")
	limit := fs.Int("limit", 50, "Maximum patterns to list")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *limit <= 0 {
		fmt.Fprintln(os.Stderr, "--limit must be > 0")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel := signalContext(0)
	defer cancel()

	rt, err := loadRuntime(ctx, envLoader, runtimeOptions{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer rt.Close()

	stats := rt.learner.Stats()
	items := rt.learner.Patterns()
	if len(items) > *limit {
		items = items[:*limit]
	}

	if outputFormat == outputFormatJSON {
		payload := map[string]any{"stats": stats}
		if !*statsOnly {
			payload["items"] = items
		}
		if err := printJSON(payload); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	if !*statsOnly {
		if err := writePatternTable(items); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
			return 1
		}
	}
	fmt.Printf(
		"patterns count=%d total_frequency=%d average_confidence=%.2f state=%s file=%s\n",
		stats.Patterns,
		stats.TotalFrequency,
		stats.AverageConfidence,
		stats.LoadState,
		rt.cfg.PatternFile,
	)
	return 0
}

func writePatternTable(items []patterns.Pattern) error {
	rows := make([][]string, 0, len(items))
	for _, p := range items {
		rows = append(rows, []string{
			truncateForTable(p.ID, 12),
			fmt.Sprintf("%d", p.Frequency),
			fmt.Sprintf("%.2f", p.Confidence),
			truncateForTable(strings.Join(p.Entities.Sorted(), ","), 40),
			truncateForTable(strings.Join(p.Keywords.Sorted(), ","), 40),
			formatUTCDate(p.LastSeen),
		})
	}
	return writeTable([]string{"id", "frequency", "confidence", "entities", "keywords", "last_seen"}, rows)
}
