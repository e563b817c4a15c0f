// ABOUTME: MCP tool definitions and registration for the election question server
// ABOUTME: Defines JSON schemas for ask_question, search_passages and list_sources
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, deps Deps) *Handlers {
	handlers := NewHandlers(deps)

	// 1. ask_question - run the full pipeline
	server.AddTool(mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a question about the election from the indexed documents. Returns the answer with cited sources, the terminal reason and whether confidence is low.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The question to answer",
				},
				"include_trace": map[string]interface{}{
					"type":        "boolean",
					"description": "Include the executed pipeline steps (default: false)",
					"default":     false,
				},
			},
			Required: []string{"question"},
		},
	}, handlers.AskQuestion)

	// 2. search_passages - raw retrieval without grading or generation
	server.AddTool(mcp.Tool{
		Name:        "search_passages",
		Description: "Search indexed passages by semantic similarity, optionally restricted to a scope such as 'constitution'.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
				"scope": map[string]interface{}{
					"type":        "string",
					"description": "Scope label to search within (default: all)",
					"default":     "all",
				},
				"max_results": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of passages to return (default: 6)",
					"default":     6,
				},
			},
			Required: []string{"query"},
		},
	}, handlers.SearchPassages)

	// 3. list_sources - indexed partitions
	server.AddTool(mcp.Tool{
		Name:        "list_sources",
		Description: "List indexed source documents with their passage counts.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.ListSources)

	return handlers
}
