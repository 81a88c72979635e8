package app

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/cli"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/feedback"
)

func runFeedback(args []string) int {
	fs := flag.NewFlagSet("feedback", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	sessions := fs.Int("sessions", 10, "Recent sessions to list")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *sessions < 0 {
		fmt.Fprintln(os.Stderr, "--sessions must be >= 0")
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

	metrics := rt.feedback.GetQualityMetrics()
	suggestions := rt.feedback.SuggestImprovements()
	records := rt.feedback.Records()
	if len(records) > *sessions {
		records = records[len(records)-*sessions:]
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(map[string]any{
			"quality":     metrics,
			"suggestions": suggestions,
			"sessions":    records,
			"degraded":    rt.feedback.Degraded(),
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	if err := writeSessionTable(records); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	fmt.Printf(
		"feedback sessions=%d items=%d duplicates=%d average_rate=%.3f recent_rate=%.3f trend=%s\n",
		metrics.Sessions,
		metrics.TotalItems,
		metrics.TotalDuplicates,
		metrics.AverageRate,
		metrics.RecentRate,
		metrics.Trend,
	)
	if rt.feedback.Degraded() {
		fmt.Fprintf(os.Stderr, "Warning: feedback log %s could not be read; history starts empty\n", rt.feedback.Path())
	}
	for _, suggestion := range suggestions {
		fmt.Printf("suggestion: %s\n", suggestion)
	}
	return 0
}

func writeSessionTable(records []feedback.Record) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Timestamp.UTC().Format("2006-01-02 15:04"),
			r.Stage,
			fmt.Sprintf("%d", r.ItemsProcessed),
			fmt.Sprintf("%d", r.DuplicatesFound),
			fmt.Sprintf("%.3f", r.Rate()),
			fmt.Sprintf("%d", r.PatternsUsed),
		})
	}
	return writeTable([]string{"timestamp", "stage", "items", "duplicates", "rate", "patterns"}, rows)
}
