package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dusk-indust/repograph/internal/graph"
	"github.com/dusk-indust/repograph/internal/metrics"
	"github.com/dusk-indust/repograph/internal/parse"
	"github.com/dusk-indust/repograph/internal/scan"
)

// Options configure a Runner.
type Options struct {
	// Workers bounds the hashing pool; zero or negative means one worker
	// per CPU.
	Workers int

	// DryRun reports what a sync would change without writing any data.
	DryRun bool

	// SchemaOnly declares the schema and stops before scanning.
	SchemaOnly bool

	// SkipParsing suppresses the changed-file handoff to the parser.
	SkipParsing bool

	// OnProgress, when set, receives hashing progress updates.
	OnProgress scan.Progress

	Logger *slog.Logger
}

// Runner executes one full ingestion run: schema declaration, tree scan,
// content hashing, graph sync, and the parse handoff. Data writes happen
// inside a single transaction; a failed run leaves the graph untouched.
type Runner struct {
	store   graph.Store
	scanner *scan.Scanner
	parser  parse.Parser
	opts    Options
	logger  *slog.Logger
}

// NewRunner wires a Runner. A nil parser defaults to the no-op parser.
func NewRunner(store graph.Store, scanner *scan.Scanner, parser parse.Parser, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if parser == nil {
		parser = parse.NewNoopParser(logger)
	}
	return &Runner{
		store:   store,
		scanner: scanner,
		parser:  parser,
		opts:    opts,
		logger:  logger,
	}
}

// Run executes the pipeline once and returns its summary.
//
// Schema DDL is idempotent and auto-commits statement by statement, so it
// runs before the data transaction opens. Everything the sync writes is
// then committed atomically: any failure rolls the transaction back and the
// run reports the failure that caused it, not the rollback's outcome.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	root := r.scanner.Root()
	name := filepath.Base(root)

	if err := r.store.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	if r.opts.SchemaOnly {
		r.logger.Info("ingest.schema.done", "duration", time.Since(start))
		return &Result{RootPath: root, Name: name, Duration: time.Since(start)}, nil
	}

	r.logger.Info("ingest.run.start",
		"root", root,
		"dry_run", r.opts.DryRun,
		"workers", r.opts.Workers,
	)

	scanRes, err := r.scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}
	folders, files := 0, 0
	for _, e := range scanRes.Entries {
		if e.Kind == scan.KindFolder {
			folders++
		} else {
			files++
		}
	}
	metrics.FilesScanned.Add(float64(files))
	r.logger.Info("ingest.scan.done",
		"folders", folders,
		"files", files,
		"skipped", scanRes.SkippedFiles(),
	)

	failed, err := scan.HashEntries(ctx, scanRes.Entries, r.opts.Workers, r.logger, r.opts.OnProgress)
	if err != nil {
		return nil, err
	}
	metrics.FilesHashed.Add(float64(files - failed))
	r.logger.Info("ingest.hash.done", "hashed", files-failed, "failed", failed)

	sync := NewSynchronizer(r.store, r.logger)

	if r.opts.DryRun {
		res, err := sync.DryRun(ctx, root, name, scanRes.Entries)
		if err != nil {
			return nil, err
		}
		res.SkippedFiles += scanRes.SkippedFiles()
		res.Duration = time.Since(start)
		r.logger.Info("ingest.dryrun.done",
			"changed", len(res.ChangedFiles),
			"unchanged", res.Unchanged,
			"duration", res.Duration,
		)
		return res, nil
	}

	if err := r.store.BeginWrite(ctx); err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	res, err := sync.Sync(ctx, root, name, scanRes.Entries)
	if err != nil {
		r.rollback(ctx, err)
		metrics.Runs.WithLabelValues("error").Inc()
		return nil, err
	}
	if err := r.store.Commit(ctx); err != nil {
		err = fmt.Errorf("commit: %w", err)
		r.rollback(ctx, err)
		metrics.Runs.WithLabelValues("error").Inc()
		return nil, err
	}

	res.SkippedFiles += scanRes.SkippedFiles()
	res.Duration = time.Since(start)
	metrics.FilesChanged.Add(float64(len(res.ChangedFiles)))
	metrics.EdgesMerged.Add(float64(res.Edges))
	metrics.Runs.WithLabelValues("ok").Inc()
	metrics.SyncDuration.Observe(res.Duration.Seconds())
	r.logger.Info("ingest.run.done",
		"repo_id", res.RepoID,
		"folders", res.Folders,
		"files", res.Files,
		"changed", len(res.ChangedFiles),
		"unchanged", res.Unchanged,
		"edges", res.Edges,
		"skipped", res.SkippedFiles,
		"duration", res.Duration,
	)

	// Parsing runs outside the sync transaction: the tree is already
	// committed, so a parser failure degrades the run instead of voiding it.
	if !r.opts.SkipParsing && len(res.ChangedFiles) > 0 {
		if perr := r.parser.ParseFiles(ctx, res.ChangedFiles); perr != nil {
			r.logger.Warn("ingest.parse.failed", "err", perr, "files", len(res.ChangedFiles))
		}
	}

	return res, nil
}

// rollback reverts the open transaction. A rollback failure is logged with
// its cause so the caller still sees the error that triggered it.
func (r *Runner) rollback(ctx context.Context, cause error) {
	if rerr := r.store.Rollback(ctx); rerr != nil {
		r.logger.Error("ingest.rollback.failed", "err", rerr, "cause", cause)
	}
}
