// Package status reports what the repository graph currently holds.
package status

import (
	"context"
	"fmt"
	"sort"

	"github.com/dusk-indust/repograph/internal/graph"
)

// RepoStatus summarizes one synced repository.
type RepoStatus struct {
	RepoID   int64  `json:"repoId"`
	Name     string `json:"name"`
	RootPath string `json:"rootPath"`
	Folders  int    `json:"folders"`
	Files    int    `json:"files"`
}

// Status holds per-repository summaries plus graph-wide totals.
type Status struct {
	Repositories []RepoStatus     `json:"repositories"`
	Totals       graph.GraphStats `json:"totals"`
}

// Snapshot reads the current state of the graph. Repositories come back
// sorted by root path.
func Snapshot(ctx context.Context, store graph.Store) (*Status, error) {
	repos, err := store.ListRepos(ctx)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}

	out := &Status{Repositories: make([]RepoStatus, 0, len(repos))}
	for _, repo := range repos {
		folders, err := store.ListFolders(ctx, repo.ID)
		if err != nil {
			return nil, fmt.Errorf("list folders for %s: %w", repo.RootPath, err)
		}
		files, err := store.ListFiles(ctx, repo.ID)
		if err != nil {
			return nil, fmt.Errorf("list files for %s: %w", repo.RootPath, err)
		}
		out.Repositories = append(out.Repositories, RepoStatus{
			RepoID:   repo.ID,
			Name:     repo.Name,
			RootPath: repo.RootPath,
			Folders:  len(folders),
			Files:    len(files),
		})
	}
	sort.Slice(out.Repositories, func(i, j int) bool {
		return out.Repositories[i].RootPath < out.Repositories[j].RootPath
	})

	stats, err := store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph stats: %w", err)
	}
	out.Totals = *stats
	return out, nil
}
