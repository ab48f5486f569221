// Package scan walks repository trees and produces the entry descriptors
// consumed by the graph synchronizer.
package scan

import (
	"bufio"
	_ "embed"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

//go:embed defaultignore.txt
var defaultPatterns string

// ignorePattern is one parsed gitignore-style rule.
type ignorePattern struct {
	pattern  string
	negated  bool
	dirOnly  bool
	anchored bool // pattern started with / and matches from the root only
}

// IgnoreMatcher decides which relative paths a scan skips. Patterns follow
// gitignore semantics: later patterns override earlier ones, "!" negates,
// a trailing "/" restricts to directories, and a leading "/" anchors to the
// scan root.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher returns an empty matcher.
func NewIgnoreMatcher() *IgnoreMatcher {
	return &IgnoreMatcher{}
}

// AddPattern parses and appends a single pattern line. Blank lines and
// comments are skipped.
func (m *IgnoreMatcher) AddPattern(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	p := ignorePattern{}

	if strings.HasPrefix(line, "!") {
		p.negated = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = line[1:]
	}

	// Patterns without a slash match the basename at any level.
	if !p.anchored && !strings.Contains(line, "/") {
		line = "**/" + line
	}

	p.pattern = line
	m.patterns = append(m.patterns, p)
}

// AddPatterns appends multiple pattern lines.
func (m *IgnoreMatcher) AddPatterns(lines []string) {
	for _, line := range lines {
		m.AddPattern(line)
	}
}

// LoadDefaults appends the built-in exclusions (VCS metadata, build output,
// dependency directories, graph databases written by this tool).
func (m *IgnoreMatcher) LoadDefaults() {
	sc := bufio.NewScanner(strings.NewReader(defaultPatterns))
	for sc.Scan() {
		m.AddPattern(sc.Text())
	}
}

// LoadFile appends patterns from a gitignore-style file. A missing file is
// not an error.
func (m *IgnoreMatcher) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		m.AddPattern(sc.Text())
	}
	return sc.Err()
}

// Match reports whether the path should be skipped. The path must be
// relative to the scan root; isDir says whether it names a directory.
func (m *IgnoreMatcher) Match(path string, isDir bool) bool {
	path = strings.TrimPrefix(filepath.ToSlash(path), "./")

	ignored := false
	for _, p := range m.patterns {
		// A dirOnly pattern never matches a file directly, but it does
		// match files inside a matching directory.
		if p.dirOnly && !isDir {
			if m.matchDirPattern(p.pattern, path) {
				ignored = !p.negated
			}
			continue
		}
		if m.matchPattern(p.pattern, path) {
			ignored = !p.negated
		}
	}
	return ignored
}

// matchDirPattern checks whether any strict parent of path matches the
// pattern.
func (m *IgnoreMatcher) matchDirPattern(pattern, path string) bool {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		if m.matchPattern(pattern, strings.Join(parts[:i], "/")) {
			return true
		}
	}
	return false
}

// matchPattern checks path against one compiled pattern, treating a match
// on the pattern itself or on anything beneath it as a hit.
func (m *IgnoreMatcher) matchPattern(pattern, path string) bool {
	if ok, _ := doublestar.Match(pattern, path); ok {
		return true
	}
	if !strings.HasSuffix(pattern, "/**") {
		if ok, _ := doublestar.Match(pattern+"/**", path); ok {
			return true
		}
	}
	return false
}

// LoadIgnore builds the matcher for a scan rooted at root: the defaults
// (unless disabled), then .gitignore and .repographignore from the root,
// then any extra patterns from config or flags.
func LoadIgnore(root string, useDefaults bool, extra []string) (*IgnoreMatcher, error) {
	m := NewIgnoreMatcher()
	if useDefaults {
		m.LoadDefaults()
	}
	for _, name := range []string{".gitignore", ".repographignore"} {
		if err := m.LoadFile(filepath.Join(root, name)); err != nil {
			return nil, err
		}
	}
	m.AddPatterns(extra)
	return m, nil
}
