// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Lets LLM agents like Claude ask election questions via stdio
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harper/electionrag/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs electionrag as an MCP (Model Context Protocol) server, enabling
LLM agents like Claude to ask cited election questions, search
passages and list indexed sources via stdio.

Configure in Claude Desktop's config file to enable the tools.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by Claude Desktop)
  electionrag mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "electionrag": {
  #       "command": "electionrag",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing application", "error", err)
		}
	}()

	server := NewMCPServer()
	mcp.RegisterTools(server, mcp.Deps{
		Asker:    a.Controller,
		Searcher: a.Retriever,
		Lister:   a.Store,
	})

	logger.Info("mcp server starting on stdio")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}
	return nil
}

// NewMCPServer creates the MCP server with the CLI's name and version
func NewMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("electionrag", versionInfo.Version)
}
