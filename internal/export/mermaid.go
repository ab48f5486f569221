package export

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dusk-indust/repograph/internal/graph"
)

// GenerateMermaid produces a Mermaid graph TD diagram of the repository
// tree. Each repository becomes a subgraph holding its folder and file
// nodes; containment edges become arrows. An empty root diagrams every
// repository.
func GenerateMermaid(ctx context.Context, store graph.Store, root string) (string, error) {
	repos, err := reposForExport(ctx, store, root)
	if err != nil {
		return "", err
	}

	edges, err := store.ContainsEdges(ctx)
	if err != nil {
		return "", fmt.Errorf("list edges: %w", err)
	}
	edges = filterEdges(edges, root)

	// Build node → ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(path string) string {
		if id, ok := nodeIDs[path]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[path] = id
		return id
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, repo := range repos {
		folders, err := store.ListFolders(ctx, repo.ID)
		if err != nil {
			return "", fmt.Errorf("list folders for %s: %w", repo.RootPath, err)
		}
		files, err := store.ListFiles(ctx, repo.ID)
		if err != nil {
			return "", fmt.Errorf("list files for %s: %w", repo.RootPath, err)
		}
		sort.Slice(folders, func(i, j int) bool { return folders[i].Path < folders[j].Path })
		sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

		sb.WriteString(fmt.Sprintf("  subgraph %s[\"%.40s\"]\n", getID(repo.RootPath+"_cluster"), repo.Name))
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", getID(repo.RootPath), repo.Name))
		for _, f := range folders {
			sb.WriteString(fmt.Sprintf("    %s[\"%s/\"]\n", getID(f.Path), shortPath(f.Path)))
		}
		for _, f := range files {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", getID(f.Path), shortPath(f.Path)))
		}
		sb.WriteString("  end\n")
	}

	for _, e := range edges {
		sb.WriteString(fmt.Sprintf("  %s --> %s\n", getID(e.ParentPath), getID(e.ChildPath)))
	}

	return sb.String(), nil
}

// shortPath returns the last 2 path segments for readability.
func shortPath(path string) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= 2 {
		return path
	}
	return strings.Join(parts[len(parts)-2:], "/")
}
