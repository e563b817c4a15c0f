// ABOUTME: Generator produces grounded answers, generic replies and retrieval-friendly rewrites
// ABOUTME: One abstraction covers primary and fallback generation through a mode flag
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/harper/electionrag/internal/llm"
	"github.com/harper/electionrag/internal/models"
)

// DefaultPassageChars bounds each passage in the context block
const DefaultPassageChars = 300

// Config controls prompt content and context size
type Config struct {
	Domain       string
	PassageChars int
	Logger       *slog.Logger
}

// Generator wraps a completion service with answer-producing prompts
type Generator struct {
	svc          llm.CompletionService
	domain       string
	passageChars int
	contextTmpl  *template.Template
	log          *slog.Logger
}

// New creates a generator over svc
func New(svc llm.CompletionService, cfg Config) (*Generator, error) {
	tmpl, err := newContextTemplate()
	if err != nil {
		return nil, fmt.Errorf("parse context template: %w", err)
	}

	domain := cfg.Domain
	if domain == "" {
		domain = "the election"
	}
	chars := cfg.PassageChars
	if chars <= 0 {
		chars = DefaultPassageChars
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Generator{
		svc:          svc,
		domain:       domain,
		passageChars: chars,
		contextTmpl:  tmpl,
		log:          logger,
	}, nil
}

// Generate answers question from passages. Citations follow passage order one to one.
func (g *Generator) Generate(ctx context.Context, question string, passages []models.Passage, mode models.GenerationMode) (models.Answer, error) {
	block, err := g.composeContext(passages)
	if err != nil {
		return models.Answer{}, err
	}

	prose, err := g.svc.Complete(ctx, answerMessages(g.domain, mode, question, block))
	if err != nil {
		return models.Answer{}, fmt.Errorf("generate %s answer: %w", mode, err)
	}

	citations := Citations(passages)
	g.log.Debug("generated answer", "mode", mode, "passages", len(passages), "chars", len(prose))
	return models.Answer{
		Text:      FormatAnswer(prose, citations),
		Citations: citations,
	}, nil
}

// GenerateGeneric answers greetings and questions about the assistant without context
func (g *Generator) GenerateGeneric(ctx context.Context, question string) (string, error) {
	out, err := g.svc.Complete(ctx, genericMessages(g.domain, question))
	if err != nil {
		return "", fmt.Errorf("generate generic answer: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Rewrite rephrases question for better retrieval. A blank rewrite keeps the original.
func (g *Generator) Rewrite(ctx context.Context, question string) (string, error) {
	out, err := g.svc.Complete(ctx, rewriteMessages(question))
	if err != nil {
		return "", fmt.Errorf("rewrite question: %w", err)
	}

	rewritten := strings.Trim(strings.TrimSpace(out), `"`)
	if rewritten == "" {
		return question, nil
	}
	return rewritten, nil
}
