package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/dusk-indust/repograph/internal/export"
)

// runExport dumps the containment graph as indented JSON to stdout.
func runExport(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	database := fs.StringP("database", "d", "./repograph.db", "Path to the Kuzu database directory")
	repo := fs.String("repo", "", "Only export the repository with this root path")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: repograph export [options]

Description:
  Dump the stored containment graph as JSON: repositories with their
  folder and file nodes, followed by every CONTAINS edge. Use --repo to
  restrict the export to a single repository root.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := requireDatabase(*database); err != nil {
		return err
	}

	store, err := openStore(*database)
	if err != nil {
		return err
	}
	defer store.Close()

	data, err := export.ExportTree(context.Background(), store, *repo)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	_, err = os.Stdout.Write(append(out, '\n'))
	return err
}
