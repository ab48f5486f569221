//go:build cgo

package graph

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a fresh in-memory KuzuStore with an initialized schema.
// It registers a cleanup function to close the store when the test finishes.
func newTestStore(t *testing.T) *KuzuStore {
	t.Helper()
	s, err := NewKuzuStore()
	require.NoError(t, err, "NewKuzuStore should not fail")
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.InitSchema(ctx), "InitSchema should not fail")
	return s
}

// sorted returns a sorted copy of the given string slice so that assertions
// are deterministic regardless of result row order.
func sorted(ss []string) []string {
	out := make([]string, len(ss))
	copy(out, ss)
	sort.Strings(out)
	return out
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestKuzuStore_InitSchema(t *testing.T) {
	s, err := NewKuzuStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()

	// First call creates the tables.
	require.NoError(t, s.InitSchema(ctx))

	// Second call should be idempotent (IF NOT EXISTS).
	require.NoError(t, s.InitSchema(ctx))
}

func TestKuzuStore_UpsertRepo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertRepo(ctx, "/repo", "repo")
	require.NoError(t, err)

	got, err := s.GetRepo(ctx, "/repo")
	require.NoError(t, err)
	require.NotNil(t, got, "GetRepo should return a non-nil result")
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "repo", got.Name)
	assert.Equal(t, "/repo", got.RootPath)

	// Upserting the same root path keeps the surrogate ID and refreshes
	// the name.
	again, err := s.UpsertRepo(ctx, "/repo", "renamed")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	got, err = s.GetRepo(ctx, "/repo")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "renamed", got.Name)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RepositoryCount, "re-upsert must not create a second node")
}

func TestKuzuStore_GetRepo_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetRepo(ctx, "/nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got, "GetRepo should return nil for a missing repository")
}

func TestKuzuStore_FolderRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	repoID, err := s.UpsertRepo(ctx, "/repo", "repo")
	require.NoError(t, err)

	folder := FolderNode{Path: "/repo/sub", Depth: 1, RepoID: repoID}
	require.NoError(t, s.UpsertFolder(ctx, folder))

	got, err := s.GetFolder(ctx, "/repo/sub")
	require.NoError(t, err)
	require.NotNil(t, got, "GetFolder should return a non-nil result")
	assert.Equal(t, folder.Path, got.Path)
	assert.Equal(t, folder.Depth, got.Depth)
	assert.Equal(t, folder.RepoID, got.RepoID)

	// Re-upserting refreshes attributes in place.
	folder.Depth = 3
	require.NoError(t, s.UpsertFolder(ctx, folder))

	got, err = s.GetFolder(ctx, "/repo/sub")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.Depth)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FolderCount, "re-upsert must not create a second node")
}

func TestKuzuStore_FileRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	repoID, err := s.UpsertRepo(ctx, "/repo", "repo")
	require.NoError(t, err)

	file := FileNode{
		Path:   "/repo/main.go",
		Lang:   LangGo,
		Digest: "aaaa1111",
		Size:   420,
		RepoID: repoID,
	}
	require.NoError(t, s.UpsertFile(ctx, file))

	got, err := s.GetFile(ctx, "/repo/main.go")
	require.NoError(t, err)
	require.NotNil(t, got, "GetFile should return a non-nil result")
	assert.Equal(t, file.Path, got.Path)
	assert.Equal(t, file.Lang, got.Lang)
	assert.Equal(t, file.Digest, got.Digest)
	assert.Equal(t, file.Size, got.Size)
	assert.Equal(t, file.RepoID, got.RepoID)

	// A changed digest overwrites the stored one.
	file.Digest = "bbbb2222"
	file.Size = 431
	require.NoError(t, s.UpsertFile(ctx, file))

	got, err = s.GetFile(ctx, "/repo/main.go")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "bbbb2222", got.Digest)
	assert.Equal(t, int64(431), got.Size)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FileCount, "re-upsert must not create a second node")
}

func TestKuzuStore_GetFile_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetFile(ctx, "/repo/nonexistent.go")
	require.NoError(t, err)
	assert.Nil(t, got, "GetFile should return nil for a missing file")
}

func TestKuzuStore_FileDigests(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	digests, err := s.FileDigests(ctx)
	require.NoError(t, err)
	assert.Empty(t, digests, "fresh store should have no digests")

	repoID, err := s.UpsertRepo(ctx, "/repo", "repo")
	require.NoError(t, err)

	require.NoError(t, s.UpsertFile(ctx, FileNode{Path: "/repo/a.txt", Lang: "txt", Digest: "d1", Size: 1, RepoID: repoID}))
	require.NoError(t, s.UpsertFile(ctx, FileNode{Path: "/repo/b.txt", Lang: "txt", Digest: "d2", Size: 2, RepoID: repoID}))

	digests, err = s.FileDigests(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"/repo/a.txt": "d1",
		"/repo/b.txt": "d2",
	}, digests)
}

func TestKuzuStore_MergeContains(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	repoID, err := s.UpsertRepo(ctx, "/repo", "repo")
	require.NoError(t, err)
	require.NoError(t, s.UpsertFolder(ctx, FolderNode{Path: "/repo/sub", Depth: 1, RepoID: repoID}))
	require.NoError(t, s.UpsertFile(ctx, FileNode{Path: "/repo/a.txt", Lang: "txt", Digest: "d1", Size: 5, RepoID: repoID}))
	require.NoError(t, s.UpsertFile(ctx, FileNode{Path: "/repo/sub/b.txt", Lang: "txt", Digest: "d2", Size: 5, RepoID: repoID}))

	edges := []ContainsEdge{
		{Kind: ContainsRepoFolder, ParentPath: "/repo", ChildPath: "/repo/sub"},
		{Kind: ContainsRepoFile, ParentPath: "/repo", ChildPath: "/repo/a.txt"},
		{Kind: ContainsFolderFile, ParentPath: "/repo/sub", ChildPath: "/repo/sub/b.txt"},
	}
	for _, e := range edges {
		require.NoError(t, s.MergeContains(ctx, e))
	}

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.EdgeCount)

	// Re-merging the same edges must not duplicate them.
	for _, e := range edges {
		require.NoError(t, s.MergeContains(ctx, e))
	}

	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.EdgeCount, "MERGE must be idempotent")
}

func TestKuzuStore_MergeContains_MissingEndpoint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertRepo(ctx, "/repo", "repo")
	require.NoError(t, err)

	// MATCH finds no child node, so the MERGE creates nothing and does
	// not error.
	err = s.MergeContains(ctx, ContainsEdge{
		Kind:       ContainsRepoFolder,
		ParentPath: "/repo",
		ChildPath:  "/repo/ghost",
	})
	require.NoError(t, err)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.EdgeCount)
}

func TestKuzuStore_MergeContains_UnknownKind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.MergeContains(ctx, ContainsEdge{Kind: "bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported containment kind")
}

func TestKuzuStore_ListByRepo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	idA, err := s.UpsertRepo(ctx, "/alpha", "alpha")
	require.NoError(t, err)
	idB, err := s.UpsertRepo(ctx, "/beta", "beta")
	require.NoError(t, err)
	require.NotEqual(t, idA, idB)

	require.NoError(t, s.UpsertFolder(ctx, FolderNode{Path: "/alpha/x", Depth: 1, RepoID: idA}))
	require.NoError(t, s.UpsertFolder(ctx, FolderNode{Path: "/beta/y", Depth: 1, RepoID: idB}))
	require.NoError(t, s.UpsertFolder(ctx, FolderNode{Path: "/beta/z", Depth: 1, RepoID: idB}))

	require.NoError(t, s.UpsertFile(ctx, FileNode{Path: "/alpha/x/f.go", Lang: LangGo, Digest: "d", Size: 1, RepoID: idA}))
	require.NoError(t, s.UpsertFile(ctx, FileNode{Path: "/beta/y/g.go", Lang: LangGo, Digest: "d", Size: 1, RepoID: idB}))

	repos, err := s.ListRepos(ctx)
	require.NoError(t, err)
	assert.Len(t, repos, 2)

	folders, err := s.ListFolders(ctx, idB)
	require.NoError(t, err)
	require.Len(t, folders, 2)
	paths := []string{folders[0].Path, folders[1].Path}
	assert.Equal(t, []string{"/beta/y", "/beta/z"}, sorted(paths))

	files, err := s.ListFiles(ctx, idA)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "/alpha/x/f.go", files[0].Path)
}

func TestKuzuStore_ContainsEdges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	repoID, err := s.UpsertRepo(ctx, "/repo", "repo")
	require.NoError(t, err)
	require.NoError(t, s.UpsertFolder(ctx, FolderNode{Path: "/repo/a", Depth: 1, RepoID: repoID}))
	require.NoError(t, s.UpsertFolder(ctx, FolderNode{Path: "/repo/a/b", Depth: 2, RepoID: repoID}))
	require.NoError(t, s.UpsertFile(ctx, FileNode{Path: "/repo/top.txt", Lang: "txt", Digest: "d", Size: 1, RepoID: repoID}))
	require.NoError(t, s.UpsertFile(ctx, FileNode{Path: "/repo/a/b/leaf.txt", Lang: "txt", Digest: "d", Size: 1, RepoID: repoID}))

	want := []ContainsEdge{
		{Kind: ContainsRepoFolder, ParentPath: "/repo", ChildPath: "/repo/a"},
		{Kind: ContainsRepoFile, ParentPath: "/repo", ChildPath: "/repo/top.txt"},
		{Kind: ContainsFolderFolder, ParentPath: "/repo/a", ChildPath: "/repo/a/b"},
		{Kind: ContainsFolderFile, ParentPath: "/repo/a/b", ChildPath: "/repo/a/b/leaf.txt"},
	}
	for _, e := range want {
		require.NoError(t, s.MergeContains(ctx, e))
	}

	got, err := s.ContainsEdges(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, want, got)
}

func TestKuzuStore_Stats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Start with an empty graph.
	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.RepositoryCount)
	assert.Equal(t, 0, stats.FolderCount)
	assert.Equal(t, 0, stats.FileCount)
	assert.Equal(t, 0, stats.EdgeCount)

	repoID, err := s.UpsertRepo(ctx, "/repo", "repo")
	require.NoError(t, err)
	require.NoError(t, s.UpsertFolder(ctx, FolderNode{Path: "/repo/sub", Depth: 1, RepoID: repoID}))
	require.NoError(t, s.UpsertFile(ctx, FileNode{Path: "/repo/a.txt", Lang: "txt", Digest: "d1", Size: 1, RepoID: repoID}))
	require.NoError(t, s.UpsertFile(ctx, FileNode{Path: "/repo/sub/b.txt", Lang: "txt", Digest: "d2", Size: 1, RepoID: repoID}))
	require.NoError(t, s.MergeContains(ctx, ContainsEdge{Kind: ContainsRepoFolder, ParentPath: "/repo", ChildPath: "/repo/sub"}))
	require.NoError(t, s.MergeContains(ctx, ContainsEdge{Kind: ContainsRepoFile, ParentPath: "/repo", ChildPath: "/repo/a.txt"}))
	require.NoError(t, s.MergeContains(ctx, ContainsEdge{Kind: ContainsFolderFile, ParentPath: "/repo/sub", ChildPath: "/repo/sub/b.txt"}))

	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RepositoryCount)
	assert.Equal(t, 1, stats.FolderCount)
	assert.Equal(t, 2, stats.FileCount)
	assert.Equal(t, 3, stats.EdgeCount)
}

func TestKuzuStore_Transactions(t *testing.T) {
	t.Run("rollback discards writes", func(t *testing.T) {
		s := newTestStore(t)
		ctx := context.Background()

		require.NoError(t, s.BeginWrite(ctx))
		_, err := s.UpsertRepo(ctx, "/repo", "repo")
		require.NoError(t, err)
		require.NoError(t, s.Rollback(ctx))

		got, err := s.GetRepo(ctx, "/repo")
		require.NoError(t, err)
		assert.Nil(t, got, "rolled-back repository must not be visible")
	})

	t.Run("commit persists writes", func(t *testing.T) {
		s := newTestStore(t)
		ctx := context.Background()

		require.NoError(t, s.BeginWrite(ctx))
		repoID, err := s.UpsertRepo(ctx, "/repo", "repo")
		require.NoError(t, err)
		require.NoError(t, s.UpsertFile(ctx, FileNode{Path: "/repo/a.txt", Lang: "txt", Digest: "d", Size: 1, RepoID: repoID}))
		require.NoError(t, s.Commit(ctx))

		got, err := s.GetFile(ctx, "/repo/a.txt")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "d", got.Digest)
	})
}

func TestKuzuStore_Close(t *testing.T) {
	s, err := NewKuzuStore()
	require.NoError(t, err)

	// Close should succeed without error.
	require.NoError(t, s.Close())
}

func TestKuzuStore_LanguageTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	repoID, err := s.UpsertRepo(ctx, "/repo", "repo")
	require.NoError(t, err)

	files := []FileNode{
		{Path: "/repo/main.go", Lang: LangGo, Digest: "d", Size: 1, RepoID: repoID},
		{Path: "/repo/app.ts", Lang: LangTypeScript, Digest: "d", Size: 1, RepoID: repoID},
		{Path: "/repo/lib.py", Lang: LangPython, Digest: "d", Size: 1, RepoID: repoID},
		{Path: "/repo/README", Lang: "", Digest: "d", Size: 1, RepoID: repoID},
	}
	for _, f := range files {
		require.NoError(t, s.UpsertFile(ctx, f))
	}

	for _, f := range files {
		got, err := s.GetFile(ctx, f.Path)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, f.Lang, got.Lang, "language mismatch for %s", f.Path)
	}
}
