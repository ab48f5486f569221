package mcptools

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/repograph/internal/graph"
	"github.com/dusk-indust/repograph/internal/ingest"
	"github.com/dusk-indust/repograph/internal/scan"
	"github.com/dusk-indust/repograph/internal/status"
)

// RepoGraphService holds the graph store used by the MCP tool handlers.
type RepoGraphService struct {
	store  graph.Store
	logger *slog.Logger
}

// NewRepoGraphService creates a RepoGraphService backed by store.
func NewRepoGraphService(store graph.Store, logger *slog.Logger) *RepoGraphService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepoGraphService{store: store, logger: logger}
}

// checkRepoPath validates that path names an existing directory.
func checkRepoPath(path string) error {
	if path == "" {
		return fmt.Errorf("repoPath is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access repoPath: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("repoPath is not a directory: %s", path)
	}
	return nil
}

// newScanner builds a scanner for path honoring the shared ignore and
// file-size inputs.
func (s *RepoGraphService) newScanner(path string, ignore []string, maxSizeMB int) (*scan.Scanner, error) {
	matcher, err := scan.LoadIgnore(path, true, ignore)
	if err != nil {
		return nil, fmt.Errorf("load ignore rules: %w", err)
	}
	return scan.NewScanner(path, scan.Options{
		Ignore:      matcher,
		MaxFileSize: int64(maxSizeMB) << 20,
		Logger:      s.logger,
	})
}

// SyncRepository walks a repository, hashes its files, and reconciles the
// graph inside one transaction. Returns the run summary.
func (s *RepoGraphService) SyncRepository(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SyncRepositoryInput,
) (*mcp.CallToolResult, SyncRepositoryOutput, error) {
	if err := checkRepoPath(input.RepoPath); err != nil {
		return nil, SyncRepositoryOutput{}, err
	}

	scanner, err := s.newScanner(input.RepoPath, input.Ignore, input.MaxSizeMB)
	if err != nil {
		return nil, SyncRepositoryOutput{}, err
	}

	runner := ingest.NewRunner(s.store, scanner, nil, ingest.Options{
		Workers:     input.Workers,
		DryRun:      input.DryRun,
		SkipParsing: input.SkipParsing,
		Logger:      s.logger,
	})
	res, err := runner.Run(ctx)
	if err != nil {
		return nil, SyncRepositoryOutput{}, err
	}

	return nil, SyncRepositoryOutput{Result: *res}, nil
}

// GraphStats returns graph-wide totals plus per-repository summaries.
func (s *RepoGraphService) GraphStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ GraphStatsInput,
) (*mcp.CallToolResult, GraphStatsOutput, error) {
	st, err := status.Snapshot(ctx, s.store)
	if err != nil {
		return nil, GraphStatsOutput{}, fmt.Errorf("snapshot: %w", err)
	}

	return nil, GraphStatsOutput{
		Stats:        st.Totals,
		Repositories: st.Repositories,
	}, nil
}

// ListChanged diffs a repository against the stored digests and reports the
// files a sync would treat as new or modified. Writes nothing.
func (s *RepoGraphService) ListChanged(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListChangedInput,
) (*mcp.CallToolResult, ListChangedOutput, error) {
	if err := checkRepoPath(input.RepoPath); err != nil {
		return nil, ListChangedOutput{}, err
	}

	scanner, err := s.newScanner(input.RepoPath, input.Ignore, input.MaxSizeMB)
	if err != nil {
		return nil, ListChangedOutput{}, err
	}

	runner := ingest.NewRunner(s.store, scanner, nil, ingest.Options{
		DryRun: true,
		Logger: s.logger,
	})
	res, err := runner.Run(ctx)
	if err != nil {
		return nil, ListChangedOutput{}, err
	}

	return nil, ListChangedOutput{
		ChangedFiles: res.ChangedFiles,
		Unchanged:    res.Unchanged,
		SkippedFiles: res.SkippedFiles,
		Total:        len(res.ChangedFiles),
	}, nil
}
