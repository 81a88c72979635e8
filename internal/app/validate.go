package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	payloadschema "github.com/Hardcoreprawn/tech-content-curator-sub000/internal/schema"
)

type validateResult struct {
	Scanned int
	Valid   int
	Invalid int
}

var validateKinds = map[string]payloadschema.Document{
	"records":   payloadschema.RecordBatch,
	"patterns":  payloadschema.PatternStore,
	"feedback":  payloadschema.FeedbackLog,
	"published": payloadschema.PublishedIndex,
}

func parseValidateKind(raw string) (payloadschema.Document, error) {
	kind := strings.ToLower(strings.TrimSpace(raw))
	doc, ok := validateKinds[kind]
	if !ok {
		return "", fmt.Errorf("--kind must be one of records, patterns, feedback, published")
	}
	return doc, nil
}

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	kind := fs.String("kind", "records", "Document kind: records, patterns, feedback or published")
	file := fs.String("file", "", "Validate a single file instead of a directory")
	dir := fs.String("dir", "testdata/batches", "Directory containing .json files")
	recursive := fs.Bool("recursive", true, "Recursively scan subdirectories")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	doc, err := parseValidateKind(*kind)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	target := strings.TrimSpace(*dir)
	var files []string
	if path := strings.TrimSpace(*file); path != "" {
		target = path
		files = []string{path}
	} else {
		files, err = collectJSONFiles(target, *recursive)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Validation setup failed: %v\n", err)
			return 1
		}
	}

	result := validateFiles(doc, files)

	fmt.Printf(
		"validate kind=%s scanned=%d valid=%d invalid=%d target=%s\n",
		strings.ToLower(strings.TrimSpace(*kind)),
		result.Scanned,
		result.Valid,
		result.Invalid,
		target,
	)

	if result.Scanned == 0 {
		fmt.Fprintf(os.Stderr, "Validation failed: no .json files found under %s\n", target)
		return 1
	}
	if result.Invalid > 0 {
		return 1
	}
	return 0
}

func validateFiles(doc payloadschema.Document, files []string) validateResult {
	result := validateResult{}
	for _, path := range files {
		result.Scanned++

		raw, err := os.ReadFile(path)
		if err != nil {
			result.Invalid++
			fmt.Fprintf(os.Stderr, "INVALID %s: read failed: %v\n", path, err)
			continue
		}

		if !json.Valid(raw) {
			result.Invalid++
			fmt.Fprintf(os.Stderr, "INVALID %s: malformed JSON\n", path)
			continue
		}

		if err := payloadschema.Validate(doc, raw); err != nil {
			result.Invalid++
			fmt.Fprintf(os.Stderr, "INVALID %s: %v\n", path, err)
			continue
		}

		result.Valid++
	}
	return result
}

func collectJSONFiles(root string, recursive bool) ([]string, error) {
	cleanRoot := strings.TrimSpace(root)
	if cleanRoot == "" {
		return nil, fmt.Errorf("directory path is empty")
	}

	info, err := os.Stat(cleanRoot)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", cleanRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", cleanRoot)
	}

	var files []string
	if !recursive {
		entries, err := os.ReadDir(cleanRoot)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", cleanRoot, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			if strings.EqualFold(filepath.Ext(name), ".json") {
				files = append(files, filepath.Join(cleanRoot, name))
			}
		}
		sort.Strings(files)
		return files, nil
	}

	err = filepath.WalkDir(cleanRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != cleanRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory %s: %w", cleanRoot, err)
	}

	sort.Strings(files)
	return files, nil
}
