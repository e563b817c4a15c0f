// ABOUTME: Completion service abstractions shared by the classifier and generator
// ABOUTME: Defines chat messages, label schemas and the label parsing helpers
package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// Role identifies the author of a chat message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat prompt
type Message struct {
	Role    Role
	Content string
}

// System builds a system message
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User builds a user message
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Assistant builds an assistant message, used for few-shot examples
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// LabelSchema constrains a structured completion to one label from a fixed set
type LabelSchema struct {
	Name        string
	Description string
	Labels      []string
}

// CompletionService produces free text or a single label from a prompt
type CompletionService interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	CompleteStructured(ctx context.Context, messages []Message, schema LabelSchema) (string, error)
}

// Embedder turns text into vectors for similarity search
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type labelEnvelope struct {
	Label string `json:"label"`
}

// ParseLabel pulls the label out of a structured completion.
// Providers that ignore the JSON contract may answer with the bare label, which is returned trimmed.
func ParseLabel(content string) string {
	if raw := extractJSON(content); raw != "" {
		var env labelEnvelope
		if err := json.Unmarshal([]byte(raw), &env); err == nil && env.Label != "" {
			return strings.TrimSpace(env.Label)
		}
	}
	return strings.Trim(strings.TrimSpace(content), `"'.`)
}

// extractJSON returns the outermost JSON object in s, tolerating code fences and chatter
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// labelInstruction tells providers without native schema support how to answer
func labelInstruction(schema LabelSchema) string {
	var b strings.Builder
	b.WriteString("Respond with only a JSON object of the form {\"label\": \"<label>\"} where <label> is exactly one of: ")
	b.WriteString(strings.Join(schema.Labels, ", "))
	b.WriteString(".")
	if schema.Description != "" {
		b.WriteString(" The label means: ")
		b.WriteString(schema.Description)
	}
	return b.String()
}
