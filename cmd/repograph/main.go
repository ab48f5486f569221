// Package main implements the repograph CLI for mirroring repository file
// trees into a Kuzu property graph.
//
// Usage:
//
//	repograph sync <repo-path>    Scan a repository and sync it into the graph
//	repograph init [dir]          Write a starter repograph.yml
//	repograph schema              Declare the graph schema and exit
//	repograph status [--json]     Show what the graph currently holds
//	repograph export              Dump the containment graph as JSON
//	repograph diagram             Render the containment graph as Mermaid
//	repograph serve               Expose the graph tools over MCP
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

// Version information (set via ldflags during build)
var (
	version = "dev"     // Version string
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// GlobalFlags holds the global CLI flags that apply to all commands.
type GlobalFlags struct {
	ConfigPath string // explicit repograph.yml path, empty for per-repo discovery
	NoColor    bool   // disable color output
	Quiet      bool   // suppress progress and summary output
	Logger     *slog.Logger
}

func main() {
	// Global flags with short forms
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		configPath  = flag.StringP("config", "c", "", "Path to repograph.yml (default: <repo-path>/repograph.yml)")
		logLevel    = flag.String("log-level", "warn", "Log level (debug|info|warn|error)")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress progress and summary output")
	)

	// Stop parsing at the first non-flag argument (the command name) so
	// subcommand flags like "sync --dry-run" reach the subcommand parser
	// instead of being rejected here.
	flag.SetInterspersed(false)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `repograph - repository tree graph builder

repograph scans a repository's file tree and mirrors it into a Kuzu
property graph: one Repository node, Folder and File nodes, and CONTAINS
edges between them. Re-running a sync is incremental; file content
digests decide which files changed since the last run.

Usage:
  repograph <command> [options]

Commands:
  sync      Scan a repository and sync it into the graph database
  init      Write a commented starter repograph.yml
  schema    Declare the graph schema and exit
  status    Show repositories and node counts in the graph
  export    Dump the containment graph as JSON to stdout
  diagram   Render the containment graph as a Mermaid flowchart
  serve     Start the MCP server (streamable HTTP)

Global Options:
  -c, --config      Path to repograph.yml
      --log-level   Log level: debug, info, warn, error (default warn)
      --no-color    Disable color output (respects NO_COLOR env var)
  -q, --quiet       Suppress progress and summary output
  -V, --version     Show version and exit

Examples:
  repograph sync .                   Sync the current repository
  repograph sync --dry-run ~/proj    Report changes without writing
  repograph status --json            Machine-readable graph status
  repograph serve --addr :8391       Serve MCP tools over HTTP

For detailed command help: repograph <command> --help

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("repograph version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	// Check NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}
	if *noColor {
		color.NoColor = true
	}

	globals := GlobalFlags{
		ConfigPath: *configPath,
		NoColor:    *noColor,
		Quiet:      *quiet,
		Logger:     newLogger(*logLevel),
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	var err error
	switch command {
	case "sync":
		err = runSync(cmdArgs, globals)
	case "init":
		err = runInit(cmdArgs, globals)
	case "schema":
		err = runSchema(cmdArgs, globals)
	case "status":
		err = runStatus(cmdArgs, globals)
	case "export":
		err = runExport(cmdArgs, globals)
	case "diagram":
		err = runDiagram(cmdArgs, globals)
	case "serve":
		err = runServe(cmdArgs, globals)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", command)
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the slog logger shared by all commands. Logs go to
// stderr so stdout stays clean for JSON and Mermaid output.
func newLogger(level string) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// requireDatabase fails when no database exists at path. Read-only commands
// call this first so a mistyped path does not create an empty database.
func requireDatabase(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no graph database at %s\nRun 'repograph sync <repo-path>' first to build one", path)
	}
	return nil
}
