// Package ingest drives repository sync runs: walking the tree, hashing
// file contents, and reconciling nodes and edges with the graph inside one
// write transaction.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dusk-indust/repograph/internal/graph"
	"github.com/dusk-indust/repograph/internal/scan"
)

// Result summarizes one sync run.
type Result struct {
	RepoID       int64         `json:"repoId"`
	RootPath     string        `json:"rootPath"`
	Name         string        `json:"name"`
	Folders      int           `json:"folders"`
	Files        int           `json:"files"`
	Unchanged    int           `json:"unchanged"`
	SkippedFiles int           `json:"skippedFiles"`
	Edges        int           `json:"edges"`
	ChangedFiles []string      `json:"changedFiles"`
	DryRun       bool          `json:"dryRun,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Synchronizer reconciles scanned entries with the graph. All writes go
// through the Store; transaction boundaries belong to the caller.
type Synchronizer struct {
	store  graph.Store
	logger *slog.Logger
}

// NewSynchronizer returns a Synchronizer writing through store.
func NewSynchronizer(store graph.Store, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{store: store, logger: logger}
}

// syncPlan partitions scan entries and diffs file digests against the
// stored graph state.
type syncPlan struct {
	folders   []scan.Entry
	files     []scan.Entry // files carrying a digest; the rest count as skipped
	skipped   int
	changed   []string
	unchanged int
}

// buildPlan splits entries by kind and classifies each hashed file as
// changed or unchanged against the stored digest map. Files without a
// digest never make it into the plan.
func buildPlan(entries []scan.Entry, stored map[string]string) syncPlan {
	var p syncPlan
	for _, e := range entries {
		switch e.Kind {
		case scan.KindFolder:
			p.folders = append(p.folders, e)
		case scan.KindFile:
			if e.Digest == "" {
				p.skipped++
				continue
			}
			if old, ok := stored[e.Path]; !ok || old != e.Digest {
				p.changed = append(p.changed, e.Path)
			} else {
				p.unchanged++
			}
			p.files = append(p.files, e)
		}
	}
	sort.Strings(p.changed)
	return p
}

// Sync upserts every entry into the graph and merges the containment edges
// between them. All nodes are written before the first edge so every merge
// finds both endpoints. Files without a digest are excluded from the run.
func (s *Synchronizer) Sync(ctx context.Context, rootPath, name string, entries []scan.Entry) (*Result, error) {
	// The digest snapshot must be read before the file upserts below
	// overwrite it.
	stored, err := s.store.FileDigests(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stored digests: %w", err)
	}
	p := buildPlan(entries, stored)

	repoID, err := s.store.UpsertRepo(ctx, rootPath, name)
	if err != nil {
		return nil, fmt.Errorf("upsert repository %s: %w", rootPath, err)
	}
	for _, e := range p.folders {
		node := graph.FolderNode{Path: e.Path, Depth: e.Depth, RepoID: repoID}
		if err := s.store.UpsertFolder(ctx, node); err != nil {
			return nil, fmt.Errorf("upsert folder %s: %w", e.Path, err)
		}
	}
	for _, e := range p.files {
		node := graph.FileNode{
			Path:   e.Path,
			Lang:   e.Lang,
			Digest: e.Digest,
			Size:   e.Size,
			RepoID: repoID,
		}
		if err := s.store.UpsertFile(ctx, node); err != nil {
			return nil, fmt.Errorf("upsert file %s: %w", e.Path, err)
		}
	}
	s.logger.Debug("sync.nodes.done",
		"repo_id", repoID,
		"folders", len(p.folders),
		"files", len(p.files),
	)

	edges := 0
	for _, e := range p.folders {
		if err := s.store.MergeContains(ctx, containsEdgeFor(rootPath, e)); err != nil {
			return nil, fmt.Errorf("merge contains for %s: %w", e.Path, err)
		}
		edges++
	}
	for _, e := range p.files {
		if err := s.store.MergeContains(ctx, containsEdgeFor(rootPath, e)); err != nil {
			return nil, fmt.Errorf("merge contains for %s: %w", e.Path, err)
		}
		edges++
	}
	s.logger.Debug("sync.edges.done", "edges", edges)

	return &Result{
		RepoID:       repoID,
		RootPath:     rootPath,
		Name:         name,
		Folders:      len(p.folders),
		Files:        len(p.files),
		Unchanged:    p.unchanged,
		SkippedFiles: p.skipped,
		Edges:        edges,
		ChangedFiles: p.changed,
	}, nil
}

// DryRun reports what Sync would do for the given entries without writing
// anything. The repository ID is resolved from the graph when the
// repository already exists and is zero otherwise.
func (s *Synchronizer) DryRun(ctx context.Context, rootPath, name string, entries []scan.Entry) (*Result, error) {
	stored, err := s.store.FileDigests(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stored digests: %w", err)
	}
	p := buildPlan(entries, stored)

	var repoID int64
	repo, err := s.store.GetRepo(ctx, rootPath)
	if err != nil {
		return nil, fmt.Errorf("get repository %s: %w", rootPath, err)
	}
	if repo != nil {
		repoID = repo.ID
	}

	return &Result{
		RepoID:       repoID,
		RootPath:     rootPath,
		Name:         name,
		Folders:      len(p.folders),
		Files:        len(p.files),
		Unchanged:    p.unchanged,
		SkippedFiles: p.skipped,
		Edges:        len(p.folders) + len(p.files),
		ChangedFiles: p.changed,
		DryRun:       true,
	}, nil
}

// containsEdgeFor derives the containment edge linking e to its parent.
// Entries directly under the repository root hang off the Repository node;
// everything deeper hangs off its parent Folder.
func containsEdgeFor(rootPath string, e scan.Entry) graph.ContainsEdge {
	underRoot := e.Parent == rootPath
	var kind graph.ContainsKind
	switch {
	case underRoot && e.Kind == scan.KindFolder:
		kind = graph.ContainsRepoFolder
	case underRoot && e.Kind == scan.KindFile:
		kind = graph.ContainsRepoFile
	case e.Kind == scan.KindFolder:
		kind = graph.ContainsFolderFolder
	default:
		kind = graph.ContainsFolderFile
	}
	return graph.ContainsEdge{Kind: kind, ParentPath: e.Parent, ChildPath: e.Path}
}
