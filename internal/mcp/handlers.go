// ABOUTME: MCP tool handler implementations for the election question server
// ABOUTME: Tool failures are reported as tool errors, never as protocol errors
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harper/electionrag/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// Asker runs one question through the pipeline
type Asker interface {
	Run(ctx context.Context, question string) (*models.Result, error)
}

// Searcher performs raw passage retrieval
type Searcher interface {
	Search(ctx context.Context, question string, scope models.ScopeLabel, topK int) ([]models.Passage, error)
}

// Lister reports indexed partitions
type Lister interface {
	Partitions(ctx context.Context) ([]models.PartitionInfo, error)
}

// Deps are the collaborators the tools call into
type Deps struct {
	Asker    Asker
	Searcher Searcher
	Lister   Lister
}

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	asker    Asker
	searcher Searcher
	lister   Lister
}

// NewHandlers creates handlers over deps
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{
		asker:    deps.Asker,
		searcher: deps.Searcher,
		lister:   deps.Lister,
	}
}

type askResponse struct {
	RunID          string                `json:"run_id"`
	Answer         string                `json:"answer"`
	TerminalReason models.TerminalReason `json:"terminal_reason"`
	LowConfidence  bool                  `json:"low_confidence"`
	Scope          models.ScopeLabel     `json:"scope,omitempty"`
	RetryCount     int                   `json:"retry_count"`
	Sources        []string              `json:"sources"`
	Steps          []models.Step         `json:"steps,omitempty"`
}

// AskQuestion handles the ask_question tool
func (h *Handlers) AskQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question argument is required and must be a string"), nil
	}

	res, err := h.asker.Run(ctx, question)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("pipeline failed: %v", err)), nil
	}

	sources := make([]string, len(res.Passages))
	for i, p := range res.Passages {
		sources[i] = p.SourceID
	}
	response := askResponse{
		RunID:          res.RunID,
		Answer:         res.Answer,
		TerminalReason: res.TerminalReason,
		LowConfidence:  res.LowConfidence,
		Scope:          res.Scope,
		RetryCount:     res.RetryCount,
		Sources:        sources,
	}
	if request.GetBool("include_trace", false) {
		response.Steps = res.Steps
	}

	return jsonResult(response)
}

// SearchPassages handles the search_passages tool
func (h *Handlers) SearchPassages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}

	scope := models.ScopeLabel(models.NormalizeLabel(request.GetString("scope", string(models.ScopeAll))))
	maxResults := request.GetInt("max_results", 6)
	if maxResults <= 0 {
		return mcp.NewToolResultError("max_results must be positive"), nil
	}

	passages, err := h.searcher.Search(ctx, query, scope, maxResults)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("passage search failed: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"scope":    scope,
		"passages": passages,
	})
}

// ListSources handles the list_sources tool
func (h *Handlers) ListSources(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parts, err := h.lister.Partitions(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list sources: %v", err)), nil
	}
	if parts == nil {
		parts = []models.PartitionInfo{}
	}
	return jsonResult(map[string]interface{}{"sources": parts})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}
