package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/joescharf/crev/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an MCP client run repository reviews as a tool. Configure it
with:

  {
    "mcpServers": {
      "crev": { "command": "crev", "args": ["mcp"] }
    }
  }

Available tools: review_repository`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return newMCPServer().ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// newMCPServer builds the MCP server; stdout belongs to the protocol, so
// problems are only logged.
func newMCPServer() *mcp.Server {
	svc, err := newService()
	if err != nil {
		slog.Warn("review tool disabled", "error", err)
		return mcp.NewServer(nil, buildVersion)
	}
	return mcp.NewServer(svc, buildVersion)
}
