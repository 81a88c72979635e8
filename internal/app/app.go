package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "dedupe", "dedup":
		return runDedupe(args[1:])
	case "stories":
		return runStories(args[1:])
	case "postcheck":
		return runPostCheck(args[1:])
	case "check":
		return runCheck(args[1:])
	case "patterns":
		return runPatterns(args[1:])
	case "feedback":
		return runFeedback(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "curator-dedup CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  curator-dedup <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health     Check state files and database connectivity")
	fmt.Fprintln(os.Stderr, "  validate   Validate batch, pattern, feedback or published index JSON files")
	fmt.Fprintln(os.Stderr, "  dedupe     Filter a candidate batch before generation")
	fmt.Fprintln(os.Stderr, "  stories    Cluster a candidate batch into stories")
	fmt.Fprintln(os.Stderr, "  postcheck  Find duplicates among generated articles")
	fmt.Fprintln(os.Stderr, "  check      Check one candidate against learned patterns and recent articles")
	fmt.Fprintln(os.Stderr, "  patterns   List learned duplicate patterns")
	fmt.Fprintln(os.Stderr, "  feedback   Show dedup quality metrics and threshold suggestions")
	fmt.Fprintln(os.Stderr, "  serve      Start Echo API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"curator-dedup <command> -h\" for command-specific flags.")
}
