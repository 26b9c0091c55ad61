// Package transport wires the MCP server's dispatch loop to stdio and
// SSE. Grounded on bureau-foundation-bureau/cmd/bureau/mcp/server.go's
// Run() for the stdio framing discipline; the SSE endpoint is sourced
// from the wider pack since neither the teacher nor bureau exposes one.
package transport

import (
	"context"
	"os"

	"github.com/wassette-dev/wassette/internal/application/mcp"
)

// ServeStdio runs srv's JSON-RPC dispatch loop over os.Stdin/os.Stdout
// until stdin reaches EOF or ctx is canceled.
func ServeStdio(ctx context.Context, srv *mcp.Server) error {
	return srv.Run(ctx, os.Stdin, os.Stdout)
}
