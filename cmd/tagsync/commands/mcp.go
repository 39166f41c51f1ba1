package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tagsync/pkg/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve tagsync tools over the Model Context Protocol",
	Long: `Start an MCP server on stdin/stdout so LLM agents can read and sync the
version header.

Tools:
  sync_version    Rewrite the version macros from the latest tag (dry_run optional)
  check_version   Report whether the header matches the latest tag
  read_header     Return the current values of the version macros

Example client configuration:
  {"command": "tagsync", "args": ["mcp", "--header", "include/version.h"]}`,
	Args: cobra.NoArgs,
	Run:  runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) {
	s, err := newSynchronizer(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the protocol
	s.Out = nil

	logger.Info("serving MCP on stdio", "header", s.Config.Header)
	if err := mcp.NewServer(s).ServeStdio(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
