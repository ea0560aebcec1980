package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"akb/internal/mcp"
	"akb/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Start the AKB MCP server. The server speaks newline-delimited JSON-RPC 2.0
on stdin/stdout and exposes the analysis commands (analyze, definitions,
calls, ns-graph, callers, references, sync, status, invalidate) as tools.
Logs go to stderr.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	p, err := newPipeline()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer p.Close()

	server := mcp.NewServer(version.Version, p.memo, p.cache, p.bridge, p.logger)
	server.SetSyncScope(p.cfg.Sync.DefaultScope)
	return server.Start()
}
