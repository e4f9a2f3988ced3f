// ABOUTME: MCP server subcommand
// ABOUTME: Serves the pipeline tools over stdio for desktop assistants
package cli

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/harperreed/agencycrm/handlers"
	"github.com/harperreed/agencycrm/store"
)

// MCPCommand starts the MCP server on stdio and blocks until the client disconnects.
func MCPCommand(ctx context.Context, st *store.Store, log zerolog.Logger, version string) error {
	log.Info().Str("version", version).Msg("starting MCP server")

	server := handlers.NewServer(st, version)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Error().Err(err).Msg("MCP server stopped")
		return err
	}
	return nil
}
