// Package parse defines the handoff point between tree synchronization and
// code-structure extraction.
package parse

import (
	"context"
	"log/slog"
)

// Parser consumes the changed-file list produced by a sync run and
// populates the code-structure side of the graph (classes, functions,
// calls, imports).
type Parser interface {
	ParseFiles(ctx context.Context, paths []string) error
}

// NoopParser satisfies Parser without doing any parsing. It stands in until
// a language parser is wired up, so the sync pipeline and its changed-file
// contract stay exercised end to end.
type NoopParser struct {
	logger *slog.Logger
}

var _ Parser = (*NoopParser)(nil)

// NewNoopParser returns a NoopParser logging through the given logger.
func NewNoopParser(logger *slog.Logger) *NoopParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopParser{logger: logger}
}

// ParseFiles records how many files would have been parsed and returns nil.
func (p *NoopParser) ParseFiles(_ context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	p.logger.Info("parse.skip", "files", len(paths), "reason", "no parser configured")
	return nil
}
