// ABOUTME: Classifier maps free text to one label from a fixed set via the completion service
// ABOUTME: Provides routing, scope, passage relevance, answer quality and grounding decisions
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/harper/electionrag/internal/llm"
	"github.com/harper/electionrag/internal/models"
)

// ErrOutOfSchema is returned when the completion service answers with a label outside the offered set
var ErrOutOfSchema = errors.New("label outside schema")

// Config controls prompt content and the scope label set
type Config struct {
	// Domain names the subject area, e.g. "the 2024 Ghana election"
	Domain string
	Scopes []models.ScopePartition
	Logger *slog.Logger
}

// Classifier wraps a completion service with typed decision methods
type Classifier struct {
	svc         llm.CompletionService
	domain      string
	scopes      []models.ScopePartition
	scopeLabels []string
	log         *slog.Logger
}

// New creates a classifier over svc
func New(svc llm.CompletionService, cfg Config) *Classifier {
	domain := cfg.Domain
	if domain == "" {
		domain = "the election"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	labels := []string{string(models.ScopeAll)}
	for _, s := range cfg.Scopes {
		labels = append(labels, string(s.Label))
	}

	return &Classifier{
		svc:         svc,
		domain:      domain,
		scopes:      cfg.Scopes,
		scopeLabels: labels,
		log:         logger,
	}
}

// ScopeLabels returns the labels offered for scope classification, "all" first
func (c *Classifier) ScopeLabels() []string {
	return slices.Clone(c.scopeLabels)
}

// Classify asks for one label from schema.Labels. Matching ignores case and surrounding whitespace.
// The returned label is the canonical spelling from schema.Labels.
func (c *Classifier) Classify(ctx context.Context, messages []llm.Message, schema llm.LabelSchema) (string, error) {
	raw, err := c.svc.CompleteStructured(ctx, messages, schema)
	if err != nil {
		return "", fmt.Errorf("%s: %w", schema.Name, err)
	}

	got := models.NormalizeLabel(raw)
	for _, label := range schema.Labels {
		if models.NormalizeLabel(label) == got {
			c.log.Debug("classified", "schema", schema.Name, "label", label)
			return label, nil
		}
	}

	return "", fmt.Errorf("%s: %w: %q not in %v", schema.Name, ErrOutOfSchema, raw, schema.Labels)
}

// Route decides whether a question needs retrieved context, a generic reply, or nothing
func (c *Classifier) Route(ctx context.Context, question string) (models.RouteDecision, error) {
	label, err := c.Classify(ctx, routeMessages(c.domain, question), llm.LabelSchema{
		Name:        "route",
		Description: "needs_context for questions requiring domain information, generic_response for greetings or questions about the assistant, irrelevant for unrelated questions",
		Labels:      models.RouteLabels(),
	})
	if err != nil {
		return "", err
	}
	return models.RouteDecision(label), nil
}

// Scope picks the corpus partition a question should be answered from
func (c *Classifier) Scope(ctx context.Context, question string) (models.ScopeLabel, error) {
	label, err := c.Classify(ctx, scopeMessages(c.domain, c.scopes, question), llm.LabelSchema{
		Name:        "scope",
		Description: "the document collection that should answer the question",
		Labels:      c.scopeLabels,
	})
	if err != nil {
		return "", err
	}
	return models.ScopeLabel(label), nil
}

// GradePassage reports whether a retrieved passage is relevant to the question
func (c *Classifier) GradePassage(ctx context.Context, question string, passage models.Passage) (bool, error) {
	return c.binary(ctx, "passage_relevance", "whether the document is relevant to the question", relevanceMessages(question, passage))
}

// GradeAnswer reports whether an answer addresses the question
func (c *Classifier) GradeAnswer(ctx context.Context, question, answer string) (bool, error) {
	return c.binary(ctx, "answer_quality", "whether the answer addresses the question", answerMessages(c.domain, question, answer))
}

// CheckGrounding reports whether an answer is supported by the passages
func (c *Classifier) CheckGrounding(ctx context.Context, passages []models.Passage, answer string) (bool, error) {
	return c.binary(ctx, "grounding", "whether the answer is supported by the facts", groundingMessages(passages, answer))
}

func (c *Classifier) binary(ctx context.Context, name, description string, messages []llm.Message) (bool, error) {
	label, err := c.Classify(ctx, messages, llm.LabelSchema{
		Name:        name,
		Description: description,
		Labels:      models.BinaryLabels(),
	})
	if err != nil {
		return false, err
	}
	return label == models.LabelYes, nil
}
