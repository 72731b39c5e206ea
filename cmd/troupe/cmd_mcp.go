package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	troupemcp "github.com/ajitpratap0/troupe/internal/mcp"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server over stdio",
		Long: `Starts an MCP JSON-RPC 2.0 server that reads from stdin and writes to stdout.
All diagnostic logs go to stderr so that stdout remains exclusively MCP protocol traffic.

Tools exposed (all read-only; the knowledge base is reloaded on every call):
  verify               missing units, missing characters and oversized units
  sizes                units over capacity
  one_sided_relations  relations with no reverse
  filter               characters and units passing a set of rules
  get_entity           one character or unit by name
  stats                entity counts and operation counters`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			st := newStore(logger)
			defer func() { _ = st.Close() }()

			srv := troupemcp.NewServer(st, capacity(), logger)

			// mcp-go takes a standard log.Logger.
			errLogger := log.New(os.Stderr, "mcp: ", log.LstdFlags)

			logger.Info("mcp: troupe MCP server starting", "transport", "stdio", "root", cfg.Data.Root)

			return mcpserver.ServeStdio(
				srv.MCPServer(),
				mcpserver.WithErrorLogger(errLogger),
			)
		},
	}

	return cmd
}
