// ABOUTME: Application wiring from configuration to a ready pipeline, indexer and store
// ABOUTME: Shared by the CLI, the HTTP server and the MCP server
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harper/electionrag/internal/classifier"
	"github.com/harper/electionrag/internal/config"
	"github.com/harper/electionrag/internal/generator"
	"github.com/harper/electionrag/internal/indexer"
	"github.com/harper/electionrag/internal/llm"
	"github.com/harper/electionrag/internal/metrics"
	"github.com/harper/electionrag/internal/pipeline"
	"github.com/harper/electionrag/internal/retriever"
	"github.com/harper/electionrag/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sashabaranov/go-openai"
)

// App holds every long-lived component of a running process
type App struct {
	Config     *config.Config
	Store      storage.Store
	Retriever  *retriever.Retriever
	Classifier *classifier.Classifier
	Generator  *generator.Generator
	Controller *pipeline.Controller
	Indexer    *indexer.Indexer
	Registry   *prometheus.Registry
	Metrics    *metrics.PipelineMetrics
	Logger     *slog.Logger
}

// New opens the configured store and model clients and wires the pipeline
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	completion, err := NewCompletion(cfg, logger)
	if err != nil {
		return nil, err
	}
	embedder, err := NewEmbedder(cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a, err := NewWithServices(cfg, store, completion, embedder, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

// NewWithServices wires the pipeline over already-constructed services. The App takes ownership of store.
func NewWithServices(cfg *config.Config, store storage.Store, completion llm.CompletionService, embedder llm.Embedder, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pm := metrics.NewPipelineMetrics(reg)

	ret := retriever.New(embedder, store, retriever.Config{
		TopK:     cfg.TopK,
		Scopes:   cfg.Scopes,
		CacheTTL: cfg.EmbedCacheTTL,
		Logger:   logger.With("component", "retriever"),
	})

	cls := classifier.New(completion, classifier.Config{
		Domain: cfg.Domain,
		Scopes: cfg.Scopes,
		Logger: logger.With("component", "classifier"),
	})

	gen, err := generator.New(completion, generator.Config{
		Domain:       cfg.Domain,
		PassageChars: cfg.PassageChars,
		Logger:       logger.With("component", "generator"),
	})
	if err != nil {
		ret.Close()
		return nil, err
	}

	ctrl, err := pipeline.New(cls, ret, gen, pipeline.Config{
		MaxRetries:     cfg.PipelineRetries,
		MaxSteps:       cfg.MaxSteps,
		GradeWorkers:   cfg.GradeWorkers,
		CallTimeout:    cfg.CallTimeout,
		GroundingCheck: cfg.GroundingCheck,
		Logger:         logger.With("component", "pipeline"),
		Recorder:       pm,
	})
	if err != nil {
		ret.Close()
		return nil, err
	}

	ix, err := indexer.New(embedder, store, indexer.Config{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		BatchSize:    cfg.EmbedBatchSize,
		Logger:       logger.With("component", "indexer"),
	})
	if err != nil {
		ctrl.Close()
		ret.Close()
		return nil, err
	}

	return &App{
		Config:     cfg,
		Store:      store,
		Retriever:  ret,
		Classifier: cls,
		Generator:  gen,
		Controller: ctrl,
		Indexer:    ix,
		Registry:   reg,
		Metrics:    pm,
		Logger:     logger,
	}, nil
}

// Close stops background workers and closes the store
func (a *App) Close() error {
	a.Controller.Close()
	a.Retriever.Close()
	return a.Store.Close()
}

// NewCompletion builds the completion service for cfg.LLMProvider
func NewCompletion(cfg *config.Config, logger *slog.Logger) (llm.CompletionService, error) {
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		if cfg.AnthropicKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY is required when ELECTIONRAG_LLM_PROVIDER=anthropic")
		}
		return llm.NewAnthropicClient(llm.AnthropicConfig{
			APIKey:     cfg.AnthropicKey,
			Model:      cfg.ChatModel,
			MaxTokens:  int64(cfg.AnthropicMaxTokens),
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
			Timeout:    cfg.CallTimeout,
			Logger:     logger.With("component", "anthropic"),
		})
	case config.ProviderOpenAI:
		return newOpenAI(cfg, logger)
	}
	return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
}

// NewEmbedder builds the embedding client. Embeddings always come from OpenAI.
func NewEmbedder(cfg *config.Config, logger *slog.Logger) (llm.Embedder, error) {
	return newOpenAI(cfg, logger)
}

func newOpenAI(cfg *config.Config, logger *slog.Logger) (*llm.OpenAIClient, error) {
	if cfg.OpenAIKey == "" {
		return nil, errors.New("OPENAI_API_KEY is required")
	}
	return llm.NewOpenAIClientWithConfig(&llm.ClientConfig{
		APIKey:         cfg.OpenAIKey,
		ChatModel:      cfg.ChatModel,
		EmbeddingModel: openai.EmbeddingModel(cfg.EmbeddingModel),
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     cfg.RetryDelay,
		Timeout:        cfg.CallTimeout,
		Logger:         logger.With("component", "openai"),
	})
}
