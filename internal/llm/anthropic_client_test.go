// ABOUTME: Tests for the Anthropic client against a local fake Messages API
// ABOUTME: Verifies system prompt folding, few-shot turns and label extraction
package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageResponse(text string) map[string]any {
	return map[string]any{
		"id":            "msg_1",
		"type":          "message",
		"role":          "assistant",
		"model":         "claude-sonnet-4-5",
		"content":       []map[string]any{{"type": "text", "text": text}},
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"usage":         map[string]any{"input_tokens": 10, "output_tokens": 5},
	}
}

func newTestAnthropicClient(t *testing.T, handler http.HandlerFunc) *AnthropicClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewAnthropicClient(AnthropicConfig{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		RetryDelay: time.Millisecond,
		Timeout:    5 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func TestNewAnthropicClient_RequiresKey(t *testing.T) {
	_, err := NewAnthropicClient(AnthropicConfig{})
	assert.Error(t, err)
}

func TestAnthropicClient_Complete(t *testing.T) {
	var got map[string]any
	client := newTestAnthropicClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messageResponse("Hello, I answer election questions."))
	})

	out, err := client.Complete(context.Background(), []Message{
		System("You are neutral."),
		User("Hello!"),
		Assistant("Hi."),
		User("Who are you?"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello, I answer election questions.", out)

	system := got["system"].([]any)
	require.Len(t, system, 1)
	assert.Equal(t, "You are neutral.", system[0].(map[string]any)["text"])

	turns := got["messages"].([]any)
	require.Len(t, turns, 3)
	assert.Equal(t, "assistant", turns[1].(map[string]any)["role"])
}

func TestAnthropicClient_CompleteStructured(t *testing.T) {
	var got map[string]any
	client := newTestAnthropicClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messageResponse("```json\n{\"label\": \"no\"}\n```"))
	})

	label, err := client.CompleteStructured(context.Background(), []Message{User("is it relevant?")}, LabelSchema{
		Name:   "relevance",
		Labels: []string{"yes", "no"},
	})
	require.NoError(t, err)
	assert.Equal(t, "no", label)

	system := got["system"].([]any)
	assert.Contains(t, system[0].(map[string]any)["text"], "yes, no")
}
