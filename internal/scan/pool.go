package scan

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Progress reports completed units out of a total during a long pass.
// Callbacks may run concurrently from worker goroutines.
type Progress func(done, total int)

// HashEntries computes the SHA-256 digest for every file entry in place,
// using up to workers goroutines. A file whose digest cannot be computed is
// logged, counted in the returned total, and left with an empty digest so
// the synchronizer excludes it from the run. Only context cancellation
// aborts the pass.
func HashEntries(ctx context.Context, entries []Entry, workers int, logger *slog.Logger, onProgress Progress) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	total := 0
	for i := range entries {
		if entries[i].Kind == KindFile {
			total++
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var done, failed atomic.Int64
	for i := range entries {
		if entries[i].Kind != KindFile {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			digest, err := HashFile(entries[i].Path)
			if err != nil {
				logger.Warn("hash.file.failed", "path", entries[i].Path, "err", err)
				failed.Add(1)
			} else {
				entries[i].Digest = digest
			}
			if onProgress != nil {
				onProgress(int(done.Add(1)), total)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(failed.Load()), fmt.Errorf("hash: %w", err)
	}
	return int(failed.Load()), nil
}
