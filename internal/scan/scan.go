package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dusk-indust/repograph/internal/graph"
)

// EntryKind distinguishes folders from files.
type EntryKind string

const (
	KindFolder EntryKind = "folder"
	KindFile   EntryKind = "file"
)

// Entry describes one filesystem entry observed during a scan. Paths are
// canonical absolute paths; Rel is slash-separated and relative to the scan
// root.
type Entry struct {
	Path   string
	Parent string // canonical absolute path of the immediate parent
	Rel    string
	Depth  int // path segments below the scan root
	Kind   EntryKind
	Size   int64          // files only
	Lang   graph.Language // files only
	Digest string         // files only, filled in by the hashing pass
}

// Result holds the entries produced by one scan plus per-reason skip counts.
type Result struct {
	Entries []Entry
	Skipped map[string]int
}

// SkippedFiles returns the number of would-be file entries excluded from the
// scan (symlinks and ignored paths are not counted; they are filtered, not
// failed).
func (r *Result) SkippedFiles() int {
	return r.Skipped["too_large"] + r.Skipped["irregular"] + r.Skipped["error"]
}

// Options configure a Scanner.
type Options struct {
	Ignore      *IgnoreMatcher
	MaxFileSize int64 // bytes; 0 disables the limit
	Logger      *slog.Logger
}

// Scanner walks one repository tree. The root is canonicalized once at
// construction; every path below it is derived by lexical joining, so
// symlinked roots resolve to one stable identity.
type Scanner struct {
	root    string
	ignore  *IgnoreMatcher
	maxSize int64
	logger  *slog.Logger
}

// NewScanner canonicalizes root (absolute, symlinks resolved) and returns a
// scanner for it. The root must be an existing directory.
func NewScanner(root string, opts Options) (*Scanner, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("scan: resolve %s: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("scan: resolve %s: %w", root, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("scan: stat %s: %w", resolved, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan: %s is not a directory", root)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		root:    resolved,
		ignore:  opts.Ignore,
		maxSize: opts.MaxFileSize,
		logger:  logger,
	}, nil
}

// Root returns the canonical scan root.
func (s *Scanner) Root() string {
	return s.root
}

// Scan walks the tree once and returns its entries sorted by path. The root
// itself is not an entry. Unreadable entries are logged and skipped; only an
// unreadable root or a cancelled context aborts the scan.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	result := &Result{Skipped: make(map[string]int)}

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.root {
				return err
			}
			s.logger.Warn("scan.entry.unreadable", "path", path, "err", err)
			result.Skipped["error"]++
			return nil
		}
		if path == s.root {
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		// Symlinks produce no nodes or edges. WalkDir does not follow
		// them, so a symlinked directory cannot smuggle in a cycle.
		if d.Type()&fs.ModeSymlink != 0 {
			s.logger.Debug("scan.symlink.skip", "path", path)
			result.Skipped["symlink"]++
			return nil
		}

		rel, rerr := filepath.Rel(s.root, path)
		if rerr != nil {
			s.logger.Warn("scan.entry.unreadable", "path", path, "err", rerr)
			result.Skipped["error"]++
			return nil
		}
		rel = filepath.ToSlash(rel)
		isDir := d.IsDir()

		if s.ignore != nil && s.ignore.Match(rel, isDir) {
			s.logger.Debug("scan.ignore.skip", "path", path)
			result.Skipped["ignored"]++
			if isDir {
				return fs.SkipDir
			}
			return nil
		}

		entry := Entry{
			Path:   path,
			Parent: filepath.Dir(path),
			Rel:    rel,
			Depth:  1 + strings.Count(rel, "/"),
		}

		if isDir {
			entry.Kind = KindFolder
		} else {
			info, ierr := d.Info()
			if ierr != nil {
				s.logger.Warn("scan.entry.unreadable", "path", path, "err", ierr)
				result.Skipped["error"]++
				return nil
			}
			if !info.Mode().IsRegular() {
				s.logger.Debug("scan.irregular.skip", "path", path, "mode", info.Mode().String())
				result.Skipped["irregular"]++
				return nil
			}
			if s.maxSize > 0 && info.Size() > s.maxSize {
				s.logger.Warn("scan.file.too_large", "path", path, "size", info.Size(), "limit", s.maxSize)
				result.Skipped["too_large"]++
				return nil
			}
			entry.Kind = KindFile
			entry.Size = info.Size()
			entry.Lang = graph.LanguageForPath(path)
		}

		result.Entries = append(result.Entries, entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.root, err)
	}

	sort.Slice(result.Entries, func(i, j int) bool {
		return result.Entries[i].Path < result.Entries[j].Path
	})
	return result, nil
}
