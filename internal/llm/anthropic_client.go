// ABOUTME: Anthropic client implementing the completion service with Claude models
// ABOUTME: Structured labels are requested as JSON in the system prompt and parsed back
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/harper/electionrag/internal/util"
)

// DefaultAnthropicModel is used when no chat model is configured
const DefaultAnthropicModel = "claude-sonnet-4-5"

// AnthropicConfig holds configuration for the Anthropic client
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int64
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
	Logger     *slog.Logger
}

// AnthropicClient implements CompletionService using the Anthropic Messages API
type AnthropicClient struct {
	client     anthropic.Client
	model      anthropic.Model
	maxTokens  int64
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
	log        *slog.Logger
}

// NewAnthropicClient creates a new Anthropic-backed completion service
func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &AnthropicClient{
		client:     anthropic.NewClient(opts...),
		model:      anthropic.Model(model),
		maxTokens:  maxTokens,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		timeout:    timeout,
		log:        logger,
	}, nil
}

// Complete sends the conversation to Claude and returns the response text
func (c *AnthropicClient) Complete(ctx context.Context, messages []Message) (string, error) {
	return c.send(ctx, messages, "")
}

// CompleteStructured asks Claude for a single label as JSON and extracts it
func (c *AnthropicClient) CompleteStructured(ctx context.Context, messages []Message, schema LabelSchema) (string, error) {
	content, err := c.send(ctx, messages, labelInstruction(schema))
	if err != nil {
		return "", err
	}
	return ParseLabel(content), nil
}

func (c *AnthropicClient) send(ctx context.Context, messages []Message, extraSystem string) (string, error) {
	params := c.buildParams(messages, extraSystem)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := util.WaitBackoff(ctx, c.retryDelay, attempt); err != nil {
			return "", fmt.Errorf("anthropic call cancelled: %w", err)
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		start := time.Now()
		msg, err := c.client.Messages.New(callCtx, params)
		cancel()

		duration := time.Since(start)
		if err != nil {
			c.log.Debug("Anthropic API call failed", "attempt", attempt+1, "duration", duration, "error", err)
			lastErr = fmt.Errorf("attempt %d: anthropic API error: %w", attempt+1, err)
			continue
		}
		c.log.Debug("Anthropic API call completed", "model", c.model, "duration", duration, "stopReason", msg.StopReason)

		for _, block := range msg.Content {
			if block.Type == "text" {
				return block.Text, nil
			}
		}
		lastErr = fmt.Errorf("attempt %d: no text content in response", attempt+1)
	}

	return "", fmt.Errorf("anthropic completion failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// buildParams folds system messages into the system prompt and keeps the rest as turns
func (c *AnthropicClient) buildParams(messages []Message, extraSystem string) anthropic.MessageNewParams {
	var system []string
	turns := make([]anthropic.MessageParam, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	if extraSystem != "" {
		system = append(system, extraSystem)
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  turns,
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{
			{Type: "text", Text: strings.Join(system, "\n\n")},
		}
	}
	return params
}
