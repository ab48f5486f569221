package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

// runSchema declares the full node and edge schema and exits. Declaration
// is idempotent, so running it against a populated database is safe.
func runSchema(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("schema", flag.ExitOnError)
	database := fs.StringP("database", "d", "./repograph.db", "Path to the Kuzu database directory")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: repograph schema [options]

Description:
  Create the graph database and declare every node and relationship
  table, then exit. 'repograph sync' does this automatically; the
  standalone command exists for provisioning a database ahead of time.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*database)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.InitSchema(context.Background()); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	fmt.Printf("Schema declared in %s\n", *database)
	return nil
}
