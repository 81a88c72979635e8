package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/cli"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/dedup"
)

func runDedupe(args []string) int {
	fs := flag.NewFlagSet("dedupe", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	input := fs.String("input", "-", "Candidate batch JSON file, or - for stdin")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	noLang := fs.Bool("no-lang", false, "Group all records together instead of per language")
	noRecency := fs.Bool("no-recency", false, "Skip the recently-accepted check")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "dedupe does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	raw, err := readInput(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read input: %v\n", err)
		return 1
	}

	ctx, cancel := signalContext(*timeout)
	defer cancel()

	rt, err := loadRuntime(ctx, envLoader, runtimeOptions{recency: !*noRecency, languages: !*noLang})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer rt.Close()

	records, err := dedup.DecodeBatch(raw, rt.logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid candidate batch: %v\n", err)
		return 1
	}

	result, err := rt.pipeline.PreGeneration(ctx, records)
	if err != nil {
		rt.logger.Error().Err(err).Msg("dedupe failed")
		fmt.Fprintf(os.Stderr, "Dedupe failed: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	if err := writeDecisionTable(result); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	fmt.Printf(
		"dedupe input=%d accepted=%d grouped=%d rejected=%d skipped=%d stories=%d\n",
		len(records),
		len(result.Accepted),
		len(result.Groups),
		len(result.Rejected),
		result.Skipped,
		len(result.Stories),
	)
	return 0
}

// decisionRows lists one row per record: accepted, merged into a group, or
// rejected by a pre-check.
func decisionRows(result dedup.PreResult) [][]string {
	rows := make([][]string, 0, len(result.Accepted)+len(result.Rejected))
	for _, rec := range result.Accepted {
		rows = append(rows, []string{rec.ID, "accepted", "", truncateForTable(rec.Title, 70)})
	}
	for _, group := range result.Groups {
		for _, rec := range group.Removed {
			rows = append(rows, []string{rec.ID, "duplicate", "of " + group.Kept.ID, truncateForTable(rec.Title, 70)})
		}
	}
	for _, rejection := range result.Rejected {
		detail := ""
		switch {
		case rejection.Pattern != nil:
			detail = fmt.Sprintf("%s %.2f", rejection.Pattern.PatternID, rejection.Pattern.Score)
		case rejection.Recency != nil:
			ref := strings.TrimSpace(rejection.Recency.Record.SourcePath)
			if ref == "" {
				ref = truncateForTable(rejection.Recency.Record.Title, 30)
			}
			detail = fmt.Sprintf("%s %.2f", ref, rejection.Recency.Result.Overall)
		}
		rows = append(rows, []string{rejection.Record.ID, "rejected:" + rejection.Reason, detail, truncateForTable(rejection.Record.Title, 70)})
	}
	return rows
}

func writeDecisionTable(result dedup.PreResult) error {
	return writeTable([]string{"id", "decision", "detail", "title"}, decisionRows(result))
}

// signalContext is cancelled on SIGINT/SIGTERM or after timeout.
func signalContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	timed, cancel := context.WithTimeout(ctx, timeout)
	return timed, func() {
		cancel()
		stop()
	}
}
