package graph

import (
	"context"
	"io"
)

// Store is the interface for the repository graph backend.
// Implementations: KuzuStore (production), MemStore (testing).
type Store interface {
	io.Closer

	// InitSchema declares every node and relationship table. It is
	// idempotent and must run before any data operation in a session.
	InitSchema(ctx context.Context) error

	// Transaction control. A sync run performs all of its writes inside
	// one write transaction; writes issued outside a transaction
	// auto-commit statement by statement.
	BeginWrite(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	// Upserts keyed by natural key. Existing nodes are updated in place;
	// surrogate IDs are never reassigned.
	UpsertRepo(ctx context.Context, rootPath, name string) (int64, error)
	UpsertFolder(ctx context.Context, node FolderNode) error
	UpsertFile(ctx context.Context, node FileNode) error

	// MergeContains ensures a containment edge exists between the two
	// endpoints, creating it only when absent.
	MergeContains(ctx context.Context, edge ContainsEdge) error

	// FileDigests returns path to stored SHA-256 for every File node.
	FileDigests(ctx context.Context) (map[string]string, error)

	// Read operations.
	GetRepo(ctx context.Context, rootPath string) (*RepoNode, error)
	GetFolder(ctx context.Context, path string) (*FolderNode, error)
	GetFile(ctx context.Context, path string) (*FileNode, error)
	ListRepos(ctx context.Context) ([]RepoNode, error)
	ListFolders(ctx context.Context, repoID int64) ([]FolderNode, error)
	ListFiles(ctx context.Context, repoID int64) ([]FileNode, error)
	ContainsEdges(ctx context.Context) ([]ContainsEdge, error)

	// Stats.
	Stats(ctx context.Context) (*GraphStats, error)
}
