package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/cli"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/cluster"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/dedup"
)

func runStories(args []string) int {
	fs := flag.NewFlagSet("stories", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	input := fs.String("input", "-", "Candidate batch JSON file, or - for stdin")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stories does not accept positional arguments")
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

	ctx, cancel := signalContext(0)
	defer cancel()

	rt, err := loadRuntime(ctx, envLoader, runtimeOptions{})
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

	stories := rt.pipeline.Stories(records)
	if outputFormat == outputFormatJSON {
		if err := printJSON(stories); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	if err := writeStorySummaryTable(stories); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}

func storyRows(stories []cluster.Story) [][]string {
	rows := make([][]string, 0, len(stories))
	for i, story := range stories {
		memberIDs := make([]string, 0, len(story.Members))
		for _, m := range story.Members {
			memberIDs = append(memberIDs, m.ID)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			truncateForTable(story.Representative.Title, 70),
			fmt.Sprintf("%d", len(story.Members)),
			fmt.Sprintf("%.2f", story.BestScore),
			fmt.Sprintf("%t", story.ShouldConsolidate),
			truncateForTable(strings.Join(memberIDs, ","), 40),
		})
	}
	return rows
}

func writeStorySummaryTable(stories []cluster.Story) error {
	return writeTable(
		[]string{"story", "representative", "members", "best_score", "consolidate", "ids"},
		storyRows(stories),
	)
}
