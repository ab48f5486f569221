package mcptools

import (
	"github.com/dusk-indust/repograph/internal/graph"
	"github.com/dusk-indust/repograph/internal/ingest"
	"github.com/dusk-indust/repograph/internal/status"
)

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// SyncRepositoryInput is the input for the sync_repository MCP tool.
type SyncRepositoryInput struct {
	RepoPath    string   `json:"repoPath" jsonschema:"the absolute path to the repository to sync"`
	Workers     int      `json:"workers,omitempty" jsonschema:"parallel hashing workers (default: one per CPU)"`
	Ignore      []string `json:"ignore,omitempty" jsonschema:"extra gitignore-style patterns to exclude"`
	MaxSizeMB   int      `json:"maxSizeMB,omitempty" jsonschema:"skip files larger than this many megabytes (default: unlimited)"`
	DryRun      bool     `json:"dryRun,omitempty" jsonschema:"report what would change without writing to the graph"`
	SkipParsing bool     `json:"skipParsing,omitempty" jsonschema:"do not hand changed files to the parser"`
}

// SyncRepositoryOutput is the result of the sync_repository MCP tool.
type SyncRepositoryOutput struct {
	Result ingest.Result `json:"result"`
}

// GraphStatsInput is the input for the graph_stats MCP tool.
type GraphStatsInput struct{}

// GraphStatsOutput is the result of the graph_stats MCP tool.
type GraphStatsOutput struct {
	Stats        graph.GraphStats    `json:"stats"`
	Repositories []status.RepoStatus `json:"repositories"`
}

// ListChangedInput is the input for the list_changed MCP tool.
type ListChangedInput struct {
	RepoPath  string   `json:"repoPath" jsonschema:"the absolute path of the repository to diff against the graph"`
	Ignore    []string `json:"ignore,omitempty" jsonschema:"extra gitignore-style patterns to exclude"`
	MaxSizeMB int      `json:"maxSizeMB,omitempty" jsonschema:"skip files larger than this many megabytes (default: unlimited)"`
}

// ListChangedOutput is the result of the list_changed MCP tool.
type ListChangedOutput struct {
	ChangedFiles []string `json:"changedFiles"`
	Unchanged    int      `json:"unchanged"`
	SkippedFiles int      `json:"skippedFiles"`
	Total        int      `json:"total"`
}
