package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewRepoGraphMCPServer creates an MCP server with the repository graph
// tools registered.
func NewRepoGraphMCPServer(svc *RepoGraphService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "repograph",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sync_repository",
		Description: "Sync a repository tree into the graph. Walks the file tree, hashes file contents, and upserts repository, folder, and file nodes plus containment edges inside one transaction.",
	}, svc.SyncRepository)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "graph_stats",
		Description: "Return node and edge counts for the whole graph along with a per-repository breakdown.",
	}, svc.GraphStats)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_changed",
		Description: "Diff a repository against the stored content digests and list the files the next sync would treat as new or modified. Writes nothing.",
	}, svc.ListChanged)

	return server
}

// RunMCPServer starts an HTTP server exposing the repository graph MCP tools.
func RunMCPServer(ctx context.Context, svc *RepoGraphService, addr string) error {
	server := NewRepoGraphMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
