// ABOUTME: Tests for MCP tool handlers with stubbed pipeline, search and listing
// ABOUTME: Verifies argument validation, JSON payloads and error reporting
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/harper/electionrag/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDeps struct {
	result   *models.Result
	err      error
	passages []models.Passage
	parts    []models.PartitionInfo

	gotScope models.ScopeLabel
	gotTopK  int
}

func (s *stubDeps) Run(ctx context.Context, question string) (*models.Result, error) {
	return s.result, s.err
}

func (s *stubDeps) Search(ctx context.Context, question string, scope models.ScopeLabel, topK int) ([]models.Passage, error) {
	s.gotScope, s.gotTopK = scope, topK
	return s.passages, s.err
}

func (s *stubDeps) Partitions(ctx context.Context) ([]models.PartitionInfo, error) {
	return s.parts, s.err
}

func newHandlers(s *stubDeps) *Handlers {
	return NewHandlers(Deps{Asker: s, Searcher: s, Lister: s})
}

func call(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestAskQuestion(t *testing.T) {
	s := &stubDeps{result: &models.Result{
		RunID:          "run-9",
		Answer:         "The Electoral Commission.\n\nSource 1: constitution.pdf",
		TerminalReason: models.TerminalSuccess,
		Scope:          models.ScopeConstitution,
		Passages:       []models.Passage{{SourceID: "constitution.pdf"}},
		Steps:          []models.Step{{Name: "route", Outcome: "needs_context"}},
	}}
	h := newHandlers(s)

	res, err := h.AskQuestion(context.Background(), call("ask_question", map[string]any{"question": "Who runs elections?"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var got askResponse
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &got))
	assert.Equal(t, "run-9", got.RunID)
	assert.Equal(t, []string{"constitution.pdf"}, got.Sources)
	assert.Equal(t, models.ScopeConstitution, got.Scope)
	assert.Empty(t, got.Steps, "trace is opt-in")

	res, err = h.AskQuestion(context.Background(), call("ask_question", map[string]any{"question": "q", "include_trace": true}))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &got))
	assert.Len(t, got.Steps, 1)
}

func TestAskQuestion_Errors(t *testing.T) {
	h := newHandlers(&stubDeps{err: errors.New("classification failed: route: boom")})

	res, err := h.AskQuestion(context.Background(), call("ask_question", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = h.AskQuestion(context.Background(), call("ask_question", map[string]any{"question": "q"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "pipeline failed")
}

func TestSearchPassages(t *testing.T) {
	s := &stubDeps{passages: []models.Passage{{Text: "Article 42", SourceID: "constitution.pdf", Score: 0.9}}}
	h := newHandlers(s)

	res, err := h.SearchPassages(context.Background(), call("search_passages", map[string]any{
		"query":       "voting age",
		"scope":       " Constitution ",
		"max_results": float64(3),
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, models.ScopeConstitution, s.gotScope)
	assert.Equal(t, 3, s.gotTopK)
	assert.Contains(t, textOf(t, res), "Article 42")
}

func TestSearchPassages_Defaults(t *testing.T) {
	s := &stubDeps{}
	res, err := newHandlers(s).SearchPassages(context.Background(), call("search_passages", map[string]any{"query": "q"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, models.ScopeAll, s.gotScope)
	assert.Equal(t, 6, s.gotTopK)
}

func TestSearchPassages_RejectsBadArguments(t *testing.T) {
	h := newHandlers(&stubDeps{})

	res, err := h.SearchPassages(context.Background(), call("search_passages", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = h.SearchPassages(context.Background(), call("search_passages", map[string]any{"query": "q", "max_results": float64(0)}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestListSources(t *testing.T) {
	h := newHandlers(&stubDeps{parts: []models.PartitionInfo{{Partition: "npp.pdf", Passages: 12}}})

	res, err := h.ListSources(context.Background(), call("list_sources", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"sources":[{"partition":"npp.pdf","passages":12}]}`, textOf(t, res))

	res, err = newHandlers(&stubDeps{}).ListSources(context.Background(), call("list_sources", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"sources":[]}`, textOf(t, res))
}

func TestRegisterTools(t *testing.T) {
	server := mcpserver.NewMCPServer("electionrag", "test")
	h := RegisterTools(server, Deps{Asker: &stubDeps{}, Searcher: &stubDeps{}, Lister: &stubDeps{}})
	require.NotNil(t, h)

	tools := server.ListTools()
	assert.Len(t, tools, 3)
	for _, name := range []string{"ask_question", "search_passages", "list_sources"} {
		assert.Contains(t, tools, name)
	}
}
