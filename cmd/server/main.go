// ABOUTME: Standalone MCP server for electionrag with stdio transport
// ABOUTME: Wires the full pipeline from environment config and registers all tools
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/harper/electionrag/internal/app"
	"github.com/harper/electionrag/internal/config"
	"github.com/harper/electionrag/internal/mcp"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// version is set by goreleaser
var version = "dev"

func main() {
	// stdout carries the protocol, so logs go to stderr
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo, TimeFormat: time.Kitchen}))

	// Load .env file if it exists (for API keys)
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found", "error", err)
	}

	if err := run(logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	server := mcpserver.NewMCPServer("electionrag", version)
	mcp.RegisterTools(server, mcp.Deps{
		Asker:    a.Controller,
		Searcher: a.Retriever,
		Lister:   a.Store,
	})

	logger.Info("electionrag MCP server starting on stdio", "store", cfg.Store, "provider", cfg.LLMProvider)
	return mcpserver.ServeStdio(server)
}
