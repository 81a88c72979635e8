package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/cli"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/dedup"
)

func runPostCheck(args []string) int {
	fs := flag.NewFlagSet("postcheck", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	input := fs.String("input", "-", "Generated articles JSON file, or - for stdin")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "postcheck does not accept positional arguments")
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
	articles, err := decodeArticles(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid articles: %v\n", err)
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

	result, err := rt.pipeline.PostGeneration(ctx, dedup.Documents(articles))
	if err != nil {
		rt.logger.Error().Err(err).Msg("postcheck failed")
		fmt.Fprintf(os.Stderr, "Postcheck failed: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(result.Review))
	for _, pair := range result.Review {
		rows = append(rows, []string{
			pair.LeftID,
			pair.RightID,
			fmt.Sprintf("%.2f", pair.Result.Overall),
			pair.Result.Profile,
		})
	}
	if err := writeTable([]string{"left", "right", "overall", "profile"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	fmt.Printf("postcheck articles=%d kept=%d flagged=%d skipped=%d\n", len(articles), len(result.Kept), len(result.Review), result.Skipped)
	return 0
}

// decodeArticles accepts either a bare array of articles or an object with
// an "articles" array.
func decodeArticles(raw []byte) ([]dedup.Article, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("input is empty")
	}

	var articles []dedup.Article
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &articles); err != nil {
			return nil, fmt.Errorf("decode articles: %w", err)
		}
	} else {
		var wrapped struct {
			Articles []dedup.Article `json:"articles"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("decode articles: %w", err)
		}
		articles = wrapped.Articles
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("no articles found")
	}
	return articles, nil
}
