// ABOUTME: Config, store and embedder seams shared by commands that skip the full pipeline
// ABOUTME: index, search, sources and sync only need some of the application
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harper/electionrag/internal/app"
	"github.com/harper/electionrag/internal/config"
	"github.com/harper/electionrag/internal/llm"
	"github.com/harper/electionrag/internal/storage"
)

var (
	openStore   = storage.Open
	newEmbedder = func(cfg *config.Config, log *slog.Logger) (llm.Embedder, error) {
		return app.NewEmbedder(cfg, log)
	}
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func loadStore(ctx context.Context) (*config.Config, storage.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s store: %w", cfg.Store, err)
	}
	return cfg, store, nil
}
