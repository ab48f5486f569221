package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/repograph/internal/graph"
	"github.com/dusk-indust/repograph/internal/parse"
	"github.com/dusk-indust/repograph/internal/scan"
)

// ---------- Helpers ----------

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

// buildRepo lays out a small repository with one top-level file and one
// nested file, returning a scanner rooted at it.
func buildRepo(t *testing.T) *scan.Scanner {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "a.txt", "alpha")
	writeFile(t, root, filepath.Join("sub", "b.txt"), "beta")

	s, err := scan.NewScanner(root, scan.Options{})
	require.NoError(t, err)
	return s
}

// captureParser records every changed-file handoff it receives.
type captureParser struct {
	calls [][]string
	err   error
}

var _ parse.Parser = (*captureParser)(nil)

func (p *captureParser) ParseFiles(_ context.Context, paths []string) error {
	p.calls = append(p.calls, append([]string(nil), paths...))
	return p.err
}

// ---------- Run ----------

func TestRunner_Run_FullPipeline(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	scanner := buildRepo(t)
	root := scanner.Root()

	res, err := NewRunner(store, scanner, nil, Options{}).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, root, res.RootPath)
	assert.Equal(t, filepath.Base(root), res.Name)
	assert.Equal(t, 1, res.Folders)
	assert.Equal(t, 2, res.Files)
	assert.Equal(t, 0, res.Unchanged)
	assert.Equal(t, 3, res.Edges)
	assert.Equal(t, []string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "sub", "b.txt"),
	}, res.ChangedFiles)
	assert.Positive(t, res.Duration)

	// The stored digest is the real content hash, not a placeholder.
	wantDigest, err := scan.HashFile(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	file, err := store.GetFile(ctx, filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	require.NotNil(t, file)
	assert.Equal(t, wantDigest, file.Digest)
	assert.Equal(t, int64(5), file.Size)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RepositoryCount)
	assert.Equal(t, 1, stats.FolderCount)
	assert.Equal(t, 2, stats.FileCount)
	assert.Equal(t, 3, stats.EdgeCount)
}

func TestRunner_Run_SecondRunUnchanged(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	scanner := buildRepo(t)
	runner := NewRunner(store, scanner, nil, Options{})

	_, err := runner.Run(ctx)
	require.NoError(t, err)

	res, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.ChangedFiles)
	assert.Equal(t, 2, res.Unchanged)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.EdgeCount)
}

func TestRunner_Run_DetectsModifiedFile(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	scanner := buildRepo(t)
	runner := NewRunner(store, scanner, nil, Options{})

	_, err := runner.Run(ctx)
	require.NoError(t, err)

	writeFile(t, scanner.Root(), "a.txt", "alpha changed")

	res, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(scanner.Root(), "a.txt")}, res.ChangedFiles)
	assert.Equal(t, 1, res.Unchanged)
}

func TestRunner_Run_WriteFailureRollsBackEverything(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	scanner := buildRepo(t)

	// Let the repository and folder land, then fail on the first file.
	store.FailAfterWrites(2)

	_, err := NewRunner(store, scanner, nil, Options{}).Run(ctx)
	require.ErrorIs(t, err, graph.ErrWriteFault)

	repo, gerr := store.GetRepo(ctx, scanner.Root())
	require.NoError(t, gerr)
	assert.Nil(t, repo)

	stats, serr := store.Stats(ctx)
	require.NoError(t, serr)
	assert.Equal(t, 0, stats.RepositoryCount)
	assert.Equal(t, 0, stats.FolderCount)
	assert.Equal(t, 0, stats.FileCount)
	assert.Equal(t, 0, stats.EdgeCount)
}

func TestRunner_Run_RollbackFailureDoesNotMaskCause(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	scanner := buildRepo(t)

	store.FailAfterWrites(1)
	store.FailRollback()

	_, err := NewRunner(store, scanner, nil, Options{}).Run(ctx)
	require.ErrorIs(t, err, graph.ErrWriteFault)
	assert.NotContains(t, err.Error(), "rollback")
}

func TestRunner_Run_DryRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	scanner := buildRepo(t)

	res, err := NewRunner(store, scanner, nil, Options{DryRun: true}).Run(ctx)
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.Folders)
	assert.Equal(t, 2, res.Files)
	assert.Len(t, res.ChangedFiles, 2)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.RepositoryCount)
	assert.Equal(t, 0, stats.FileCount)
}

func TestRunner_Run_DryRunAgainstExistingGraph(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	scanner := buildRepo(t)

	_, err := NewRunner(store, scanner, nil, Options{}).Run(ctx)
	require.NoError(t, err)

	writeFile(t, scanner.Root(), filepath.Join("sub", "b.txt"), "beta changed")

	res, err := NewRunner(store, scanner, nil, Options{DryRun: true}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(scanner.Root(), "sub", "b.txt")}, res.ChangedFiles)

	// The real digest in the graph is untouched.
	wantDigest, err := scan.HashFile(filepath.Join(scanner.Root(), "a.txt"))
	require.NoError(t, err)
	file, err := store.GetFile(ctx, filepath.Join(scanner.Root(), "a.txt"))
	require.NoError(t, err)
	require.NotNil(t, file)
	assert.Equal(t, wantDigest, file.Digest)
}

func TestRunner_Run_SchemaOnly(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	scanner := buildRepo(t)
	parser := &captureParser{}

	res, err := NewRunner(store, scanner, parser, Options{SchemaOnly: true}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, scanner.Root(), res.RootPath)
	assert.Equal(t, 0, res.Folders)
	assert.Equal(t, 0, res.Files)
	assert.Empty(t, parser.calls)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.RepositoryCount)
}

func TestRunner_Run_ParserHandoff(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	scanner := buildRepo(t)
	parser := &captureParser{}
	runner := NewRunner(store, scanner, parser, Options{})

	res, err := runner.Run(ctx)
	require.NoError(t, err)
	require.Len(t, parser.calls, 1)
	assert.Equal(t, res.ChangedFiles, parser.calls[0])

	// Nothing changed, so nothing to hand off.
	_, err = runner.Run(ctx)
	require.NoError(t, err)
	assert.Len(t, parser.calls, 1)
}

func TestRunner_Run_SkipParsing(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	scanner := buildRepo(t)
	parser := &captureParser{}

	_, err := NewRunner(store, scanner, parser, Options{SkipParsing: true}).Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, parser.calls)
}

func TestRunner_Run_ParserFailureDegradesGracefully(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	scanner := buildRepo(t)
	parser := &captureParser{err: errors.New("parser exploded")}

	res, err := NewRunner(store, scanner, parser, Options{}).Run(ctx)
	require.NoError(t, err)
	assert.Len(t, parser.calls, 1)

	// The tree sync committed despite the parser failure.
	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.Files, stats.FileCount)
}

func TestRunner_Run_CountsScanSkips(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()

	root := t.TempDir()
	writeFile(t, root, "a.txt", "alpha")
	writeFile(t, root, "big.bin", string(make([]byte, 2048)))

	scanner, err := scan.NewScanner(root, scan.Options{MaxFileSize: 1024})
	require.NoError(t, err)

	res, err := NewRunner(store, scanner, nil, Options{}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Files)
	assert.Equal(t, 1, res.SkippedFiles)

	file, gerr := store.GetFile(ctx, filepath.Join(scanner.Root(), "big.bin"))
	require.NoError(t, gerr)
	assert.Nil(t, file)
}

func TestRunner_Run_Progress(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	scanner := buildRepo(t)

	var events []int
	opts := Options{
		Workers: 1,
		OnProgress: func(done, total int) {
			assert.Equal(t, 2, total)
			events = append(events, done)
		},
	}
	_, err := NewRunner(store, scanner, nil, opts).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, events)
}
