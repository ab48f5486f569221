//go:build cgo

package main

import (
	"fmt"

	"github.com/dusk-indust/repograph/internal/graph"
)

// openStore opens the Kuzu database at dbPath, creating it if needed.
func openStore(dbPath string) (graph.Store, error) {
	store, err := graph.NewKuzuFileStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open graph database %s: %w", dbPath, err)
	}
	return store, nil
}
