package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/cli"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/record"
)

// runCheck answers whether one candidate would be skipped by the pre-checks.
// Exit code 3 means duplicate.
func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	title := fs.String("title", "", "Candidate title")
	summary := fs.String("summary", "", "Candidate summary")
	tags := fs.String("tags", "", "Comma-separated candidate tags")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*title) == "" {
		fmt.Fprintln(os.Stderr, "--title is required")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel := signalContext(0)
	defer cancel()

	rt, err := loadRuntime(ctx, envLoader, runtimeOptions{recency: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer rt.Close()

	result := rt.pipeline.Check(record.TextRecord{
		Title:   strings.TrimSpace(*title),
		Summary: strings.TrimSpace(*summary),
		Tags:    parseTags(*tags),
	})

	if outputFormat == outputFormatJSON {
		if err := printJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
	} else {
		detail := ""
		switch {
		case result.Pattern != nil:
			detail = fmt.Sprintf("pattern %s score=%.2f frequency=%d", result.Pattern.PatternID, result.Pattern.Score, result.Pattern.Frequency)
		case result.Recency != nil:
			detail = fmt.Sprintf("recent %q score=%.2f", truncateForTable(result.Recency.Record.Title, 60), result.Recency.Result.Overall)
		}
		if err := writeTable([]string{"duplicate", "reason", "detail"}, [][]string{{
			fmt.Sprintf("%t", result.Duplicate), result.Reason, detail,
		}}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
			return 1
		}
	}

	if result.Duplicate {
		return 3
	}
	return 0
}
