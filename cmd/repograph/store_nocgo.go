//go:build !cgo

package main

import (
	"errors"

	"github.com/dusk-indust/repograph/internal/graph"
)

// openStore is the placeholder for builds without cgo. The Kuzu driver
// needs cgo, so every command that touches the database fails here.
func openStore(string) (graph.Store, error) {
	return nil, errors.New("graph storage requires a cgo build (rebuild with CGO_ENABLED=1)")
}
