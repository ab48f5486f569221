package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// ErrWriteFault is returned by MemStore writes once an injected fault budget
// is exhausted. Tests use it to exercise rollback paths.
var ErrWriteFault = errors.New("memstore: injected write fault")

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
// Transactions are modeled as a snapshot taken at BeginWrite and restored
// on Rollback.
type MemStore struct {
	mu      sync.RWMutex
	repos   map[string]RepoNode   // key: root path
	folders map[string]FolderNode // key: path
	files   map[string]FileNode   // key: path
	edges   []ContainsEdge
	nextID  int64

	snap *memSnapshot // non-nil while a write transaction is open

	failAfter    int // remaining writes before ErrWriteFault; -1 disables
	failRollback bool
}

// memSnapshot captures the store state at BeginWrite.
type memSnapshot struct {
	repos   map[string]RepoNode
	folders map[string]FolderNode
	files   map[string]FileNode
	edges   []ContainsEdge
	nextID  int64
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		repos:     make(map[string]RepoNode),
		folders:   make(map[string]FolderNode),
		files:     make(map[string]FileNode),
		nextID:    1,
		failAfter: -1,
	}
}

// FailAfterWrites arms fault injection: the first n write calls succeed and
// every later one returns ErrWriteFault. Passing a negative n disarms it.
func (m *MemStore) FailAfterWrites(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
}

// FailRollback makes the next Rollback return an error after restoring
// state, so callers can verify that rollback failures do not mask the
// original error.
func (m *MemStore) FailRollback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRollback = true
}

// writeFault consumes one unit of the fault budget. Caller must hold mu.
func (m *MemStore) writeFault() error {
	if m.failAfter < 0 {
		return nil
	}
	if m.failAfter == 0 {
		return ErrWriteFault
	}
	m.failAfter--
	return nil
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// ---------- Transaction control ----------

// BeginWrite snapshots the current state so Rollback can restore it.
func (m *MemStore) BeginWrite(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap != nil {
		return errors.New("memstore: transaction already open")
	}
	m.snap = &memSnapshot{
		repos:   copyMap(m.repos),
		folders: copyMap(m.folders),
		files:   copyMap(m.files),
		edges:   append([]ContainsEdge(nil), m.edges...),
		nextID:  m.nextID,
	}
	return nil
}

// Commit discards the snapshot, keeping all writes since BeginWrite.
func (m *MemStore) Commit(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return errors.New("memstore: commit without open transaction")
	}
	m.snap = nil
	return nil
}

// Rollback restores the snapshot taken at BeginWrite.
func (m *MemStore) Rollback(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return errors.New("memstore: rollback without open transaction")
	}
	m.repos = m.snap.repos
	m.folders = m.snap.folders
	m.files = m.snap.files
	m.edges = m.snap.edges
	m.nextID = m.snap.nextID
	m.snap = nil
	if m.failRollback {
		m.failRollback = false
		return errors.New("memstore: injected rollback fault")
	}
	return nil
}

// ---------- Write operations ----------

// UpsertRepo stores a repository node keyed by root path. The surrogate ID
// is assigned on first insert and never changes.
func (m *MemStore) UpsertRepo(_ context.Context, rootPath, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeFault(); err != nil {
		return 0, err
	}
	if existing, ok := m.repos[rootPath]; ok {
		existing.Name = name
		m.repos[rootPath] = existing
		return existing.ID, nil
	}
	node := RepoNode{ID: m.nextID, Name: name, RootPath: rootPath}
	m.nextID++
	m.repos[rootPath] = node
	return node.ID, nil
}

// UpsertFolder stores a folder node keyed by path.
func (m *MemStore) UpsertFolder(_ context.Context, node FolderNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeFault(); err != nil {
		return err
	}
	m.folders[node.Path] = node
	return nil
}

// UpsertFile stores a file node keyed by path.
func (m *MemStore) UpsertFile(_ context.Context, node FileNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeFault(); err != nil {
		return err
	}
	m.files[node.Path] = node
	return nil
}

// MergeContains appends the edge unless an identical one already exists.
// Where KuzuDB's MATCH plus MERGE silently creates nothing for a missing
// endpoint, MemStore reports it, so ordering bugs surface in tests.
func (m *MemStore) MergeContains(_ context.Context, edge ContainsEdge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeFault(); err != nil {
		return err
	}
	if err := m.checkEndpoints(edge); err != nil {
		return err
	}
	for _, e := range m.edges {
		if e == edge {
			return nil
		}
	}
	m.edges = append(m.edges, edge)
	return nil
}

// checkEndpoints verifies both edge endpoints exist. Caller must hold mu.
func (m *MemStore) checkEndpoints(edge ContainsEdge) error {
	switch edge.Kind {
	case ContainsRepoFolder, ContainsRepoFile:
		if _, ok := m.repos[edge.ParentPath]; !ok {
			return fmt.Errorf("memstore: merge contains: unknown repository %q", edge.ParentPath)
		}
	case ContainsFolderFolder, ContainsFolderFile:
		if _, ok := m.folders[edge.ParentPath]; !ok {
			return fmt.Errorf("memstore: merge contains: unknown parent folder %q", edge.ParentPath)
		}
	default:
		return fmt.Errorf("memstore: unsupported containment kind: %s", edge.Kind)
	}
	switch edge.Kind {
	case ContainsRepoFolder, ContainsFolderFolder:
		if _, ok := m.folders[edge.ChildPath]; !ok {
			return fmt.Errorf("memstore: merge contains: unknown child folder %q", edge.ChildPath)
		}
	case ContainsRepoFile, ContainsFolderFile:
		if _, ok := m.files[edge.ChildPath]; !ok {
			return fmt.Errorf("memstore: merge contains: unknown child file %q", edge.ChildPath)
		}
	}
	return nil
}

// ---------- Digest snapshot ----------

// FileDigests returns path to stored SHA-256 for every file node.
func (m *MemStore) FileDigests(_ context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	digests := make(map[string]string, len(m.files))
	for path, f := range m.files {
		digests[path] = f.Digest
	}
	return digests, nil
}

// ---------- Read operations ----------

// GetRepo returns the repository node for the given root path, or nil if not
// found.
func (m *MemStore) GetRepo(_ context.Context, rootPath string) (*RepoNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.repos[rootPath]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// GetFolder returns the folder node for the given path, or nil if not found.
func (m *MemStore) GetFolder(_ context.Context, path string) (*FolderNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.folders[path]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

// GetFile returns the file node for the given path, or nil if not found.
func (m *MemStore) GetFile(_ context.Context, path string) (*FileNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[path]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

// ListRepos returns all repository nodes.
func (m *MemStore) ListRepos(_ context.Context) ([]RepoNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RepoNode, 0, len(m.repos))
	for _, r := range m.repos {
		out = append(out, r)
	}
	return out, nil
}

// ListFolders returns all folder nodes belonging to the given repository.
func (m *MemStore) ListFolders(_ context.Context, repoID int64) ([]FolderNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []FolderNode
	for _, f := range m.folders {
		if f.RepoID == repoID {
			out = append(out, f)
		}
	}
	return out, nil
}

// ListFiles returns all file nodes belonging to the given repository.
func (m *MemStore) ListFiles(_ context.Context, repoID int64) ([]FileNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []FileNode
	for _, f := range m.files {
		if f.RepoID == repoID {
			out = append(out, f)
		}
	}
	return out, nil
}

// ContainsEdges returns a copy of all containment edges in the store.
func (m *MemStore) ContainsEdges(_ context.Context) ([]ContainsEdge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ContainsEdge, len(m.edges))
	copy(out, m.edges)
	return out, nil
}

// Stats returns counts of all node and edge types in the graph.
func (m *MemStore) Stats(_ context.Context) (*GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &GraphStats{
		RepositoryCount: len(m.repos),
		FolderCount:     len(m.folders),
		FileCount:       len(m.files),
		EdgeCount:       len(m.edges),
	}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

// copyMap returns a shallow copy of a string-keyed map.
func copyMap[V any](src map[string]V) map[string]V {
	dst := make(map[string]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
