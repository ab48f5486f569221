package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"

	"github.com/dusk-indust/repograph/internal/config"
	"github.com/dusk-indust/repograph/internal/ingest"
	"github.com/dusk-indust/repograph/internal/metrics"
	"github.com/dusk-indust/repograph/internal/scan"
)

// runSync executes the 'sync' CLI command: scan a repository tree, hash its
// files, and mirror the result into the graph database in one transaction.
//
// Flags:
//   - -d, --database: Path to the Kuzu database directory (default ./repograph.db)
//   - --workers: Parallel hashing workers (default: number of CPUs)
//   - --ignore: Extra ignore pattern, repeatable
//   - --max-size-mb: Skip files larger than this many megabytes
//   - --no-default-ignores: Disable the built-in ignore patterns
//   - --schema-only: Declare the schema and exit without scanning
//   - --dry-run: Report what would change without writing
//   - --skip-parsing: Skip the changed-file parse handoff
//   - --metrics-addr: HTTP address for Prometheus metrics (default: disabled)
func runSync(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	database := fs.StringP("database", "d", "./repograph.db", "Path to the Kuzu database directory")
	workers := fs.Int("workers", runtime.NumCPU(), "Number of parallel hashing workers")
	ignore := fs.StringArray("ignore", nil, "Extra ignore pattern (repeatable)")
	maxSizeMB := fs.Int("max-size-mb", 0, "Skip files larger than this many megabytes (0 = no limit)")
	noDefaultIgnores := fs.Bool("no-default-ignores", false, "Disable the built-in ignore patterns")
	schemaOnly := fs.Bool("schema-only", false, "Declare the schema and exit without scanning")
	dryRun := fs.Bool("dry-run", false, "Report what would change without writing")
	skipParsing := fs.Bool("skip-parsing", false, "Skip the changed-file parse handoff")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: repograph sync [options] <repo-path>

Description:
  Scan a repository tree and mirror it into the graph database as one
  Repository node plus Folder and File nodes joined by CONTAINS edges.
  All writes happen in a single transaction: a failed sync leaves the
  graph exactly as it was.

  Re-running against the same database is incremental. File nodes keep
  their content digests, and only files whose digest changed since the
  last run are handed to the parser.

  Settings can also come from repograph.yml in the repository root;
  explicit flags win over the config file.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Sync the current repository into ./repograph.db
  repograph sync .

  # Preview what a sync would change
  repograph sync --dry-run ~/projects/app

  # Bigger repos: skip blobs over 10 MB, use 16 hash workers
  repograph sync --max-size-mb 10 --workers 16 ~/projects/app

  # Expose Prometheus metrics while syncing
  repograph sync --metrics-addr :9090 .

`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("missing repository path")
	}
	repoPath := fs.Arg(0)

	cfg, err := loadSyncConfig(globals.ConfigPath, repoPath)
	if err != nil {
		return err
	}

	// Config file fills in whatever the command line left at its default.
	if !fs.Changed("database") && cfg.Database != "" {
		*database = cfg.Database
	}
	if !fs.Changed("workers") && cfg.Workers > 0 {
		*workers = cfg.Workers
	}
	if !fs.Changed("max-size-mb") && cfg.MaxSizeMB > 0 {
		*maxSizeMB = cfg.MaxSizeMB
	}
	if !fs.Changed("metrics-addr") && cfg.MetricsAddr != "" {
		*metricsAddr = cfg.MetricsAddr
	}
	ignorePatterns := append(append([]string{}, cfg.Ignore...), *ignore...)

	logger := globals.Logger
	if cfg.LogLevel != "" && !flag.CommandLine.Changed("log-level") {
		logger = newLogger(cfg.LogLevel)
	}

	store, err := openStore(*database)
	if err != nil {
		return err
	}
	defer store.Close()

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

	// Start Prometheus metrics endpoint (optional)
	if *metricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, *metricsAddr, logger); err != nil {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	matcher, err := scan.LoadIgnore(repoPath, !*noDefaultIgnores, ignorePatterns)
	if err != nil {
		return fmt.Errorf("load ignore rules: %w", err)
	}

	scanner, err := scan.NewScanner(repoPath, scan.Options{
		Ignore:      matcher,
		MaxFileSize: int64(*maxSizeMB) << 20,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	opts := ingest.Options{
		Workers:     *workers,
		DryRun:      *dryRun,
		SchemaOnly:  *schemaOnly,
		SkipParsing: *skipParsing,
		Logger:      logger,
	}

	var bar *progressbar.ProgressBar
	if showProgress(globals) {
		opts.OnProgress = func(done, total int) {
			if bar == nil {
				bar = newProgressBar(int64(total), "Hashing files")
			}
			_ = bar.Set64(int64(done))
		}
	}

	runner := ingest.NewRunner(store, scanner, nil, opts)
	res, err := runner.Run(ctx)

	// Clean up progress bar
	if bar != nil {
		_ = bar.Finish()
	}

	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if *schemaOnly {
		if !globals.Quiet {
			fmt.Println("Schema declared.")
		}
		return nil
	}

	printSyncSummary(res, globals)
	return nil
}

// loadSyncConfig resolves the project config for a sync. An explicit
// --config path wins; otherwise repograph.yml is looked up in the
// repository root.
func loadSyncConfig(explicit, repoPath string) (*config.ProjectConfig, error) {
	if explicit != "" {
		cfg, err := config.LoadFile(explicit)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", explicit, err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(repoPath)
	if err != nil {
		return nil, fmt.Errorf("load config from %s: %w", repoPath, err)
	}
	return cfg, nil
}

func printSyncSummary(res *ingest.Result, globals GlobalFlags) {
	if globals.Quiet {
		return
	}

	titleColor := color.New(color.FgHiCyan, color.Bold)
	successColor := color.New(color.FgHiGreen)
	infoColor := color.New(color.FgHiWhite)
	dimColor := color.New(color.FgHiBlack)

	fmt.Println()
	if res.DryRun {
		titleColor.Printf("  Dry Run (nothing written)\n")
	} else {
		titleColor.Printf("  Sync Complete\n")
	}
	dimColor.Printf("  %s\n\n", res.RootPath)

	dimColor.Printf("  Folders:    ")
	infoColor.Printf("%d\n", res.Folders)
	dimColor.Printf("  Files:      ")
	infoColor.Printf("%d\n", res.Files)
	dimColor.Printf("  Changed:    ")
	infoColor.Printf("%d\n", len(res.ChangedFiles))
	dimColor.Printf("  Unchanged:  ")
	infoColor.Printf("%d\n", res.Unchanged)
	if res.SkippedFiles > 0 {
		dimColor.Printf("  Skipped:    ")
		infoColor.Printf("%d\n", res.SkippedFiles)
	}
	dimColor.Printf("  Edges:      ")
	infoColor.Printf("%d\n", res.Edges)

	successColor.Printf("\n  Done in %s\n\n", res.Duration.Round(time.Millisecond))
}
