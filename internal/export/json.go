package export

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dusk-indust/repograph/internal/graph"
)

// TreeExport is the top-level JSON export structure.
type TreeExport struct {
	ExportedAt   string               `json:"exportedAt"`
	Repositories []RepoExport         `json:"repositories"`
	Edges        []graph.ContainsEdge `json:"edges,omitempty"`
}

// RepoExport holds one repository with its folder and file nodes.
type RepoExport struct {
	RepoID   int64              `json:"repoId"`
	Name     string             `json:"name"`
	RootPath string             `json:"rootPath"`
	Folders  []graph.FolderNode `json:"folders,omitempty"`
	Files    []graph.FileNode   `json:"files,omitempty"`
}

// ExportTree builds a TreeExport from the graph. An empty root exports
// every repository; otherwise only the repository with that root path.
func ExportTree(ctx context.Context, store graph.Store, root string) (*TreeExport, error) {
	repos, err := reposForExport(ctx, store, root)
	if err != nil {
		return nil, err
	}

	out := &TreeExport{
		ExportedAt:   time.Now().UTC().Format(time.RFC3339),
		Repositories: make([]RepoExport, 0, len(repos)),
	}
	for _, repo := range repos {
		folders, err := store.ListFolders(ctx, repo.ID)
		if err != nil {
			return nil, fmt.Errorf("list folders for %s: %w", repo.RootPath, err)
		}
		files, err := store.ListFiles(ctx, repo.ID)
		if err != nil {
			return nil, fmt.Errorf("list files for %s: %w", repo.RootPath, err)
		}
		sort.Slice(folders, func(i, j int) bool { return folders[i].Path < folders[j].Path })
		sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
		out.Repositories = append(out.Repositories, RepoExport{
			RepoID:   repo.ID,
			Name:     repo.Name,
			RootPath: repo.RootPath,
			Folders:  folders,
			Files:    files,
		})
	}

	edges, err := store.ContainsEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	out.Edges = filterEdges(edges, root)
	return out, nil
}

// reposForExport resolves which repositories an export covers. An empty
// root selects every repository in the graph, sorted by root path.
func reposForExport(ctx context.Context, store graph.Store, root string) ([]graph.RepoNode, error) {
	if root == "" {
		repos, err := store.ListRepos(ctx)
		if err != nil {
			return nil, fmt.Errorf("list repositories: %w", err)
		}
		sort.Slice(repos, func(i, j int) bool { return repos[i].RootPath < repos[j].RootPath })
		return repos, nil
	}
	repo, err := store.GetRepo(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("get repository %s: %w", root, err)
	}
	if repo == nil {
		return nil, fmt.Errorf("repository %s not found in graph", root)
	}
	return []graph.RepoNode{*repo}, nil
}

// filterEdges keeps edges belonging to the exported repository and returns
// them in a stable order. Every edge's child lives under exactly one
// repository root, so the child path decides membership.
func filterEdges(edges []graph.ContainsEdge, root string) []graph.ContainsEdge {
	kept := make([]graph.ContainsEdge, 0, len(edges))
	for _, e := range edges {
		if root != "" && !strings.HasPrefix(e.ChildPath, root+"/") {
			continue
		}
		kept = append(kept, e)
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].ParentPath != kept[j].ParentPath {
			return kept[i].ParentPath < kept[j].ParentPath
		}
		return kept[i].ChildPath < kept[j].ChildPath
	})
	return kept
}
