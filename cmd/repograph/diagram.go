package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/dusk-indust/repograph/internal/export"
)

// runDiagram renders the containment graph as a Mermaid flowchart on stdout.
func runDiagram(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("diagram", flag.ExitOnError)
	database := fs.StringP("database", "d", "./repograph.db", "Path to the Kuzu database directory")
	repo := fs.String("repo", "", "Only render the repository with this root path")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: repograph diagram [options]

Description:
  Render the stored containment graph as a Mermaid 'graph TD' flowchart,
  one subgraph per repository. Pipe the output into a Markdown file or a
  Mermaid renderer.

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

	mermaid, err := export.GenerateMermaid(context.Background(), store, *repo)
	if err != nil {
		return err
	}

	fmt.Print(mermaid)
	return nil
}
