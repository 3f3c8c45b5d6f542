package main

import (
	"briefsearch/internal/mcpserver"

	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the web_summary tool over MCP stdio",
	Long: `Starts a Model Context Protocol server on stdin/stdout exposing a
single tool, web_summary. Logs go to stderr.

Client configuration:
  {
    "mcpServers": {
      "briefsearch": {
        "command": "/path/to/briefsearch",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	server, err := mcpserver.New(a.engine, a.log.With().Str("component", "mcp").Logger())
	if err != nil {
		return err
	}
	return server.Run(cmd.Context())
}
