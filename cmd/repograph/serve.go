package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/dusk-indust/repograph/internal/mcptools"
)

// runServe starts the MCP server over streamable HTTP, exposing the
// sync_repository, graph_stats, and list_changed tools.
func runServe(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	database := fs.StringP("database", "d", "./repograph.db", "Path to the Kuzu database directory")
	addr := fs.String("addr", ":8391", "HTTP listen address for the MCP server")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: repograph serve [options]

Description:
  Start an MCP server (streamable HTTP) backed by the graph database.
  Exposed tools:

    sync_repository   Scan a repository and sync it into the graph
    graph_stats       Node and edge counts per repository
    list_changed      Dry-run diff of a repository against the graph

  The server shuts down cleanly on SIGINT or SIGTERM.

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := mcptools.NewRepoGraphService(store, globals.Logger)
	globals.Logger.Info("mcp.serve.start", "addr", *addr, "database", *database)

	return mcptools.RunMCPServer(ctx, svc, *addr)
}
