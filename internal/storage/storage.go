// ABOUTME: Passage store abstraction and backend selection
// ABOUTME: SQLite for local use, Charm KV for cloud sync, Postgres+pgvector for shared deployments
package storage

import (
	"context"
	"fmt"

	"github.com/harper/electionrag/internal/charm"
	"github.com/harper/electionrag/internal/config"
	"github.com/harper/electionrag/internal/models"
	"github.com/harper/electionrag/internal/storage/pgstore"
	"github.com/harper/electionrag/internal/storage/sqlite"
)

// Store persists embedded passages and answers similarity queries.
// Implementations must be safe for concurrent use.
type Store interface {
	Upsert(ctx context.Context, records []models.Record) error
	// Search returns at most opts.TopK results ordered by descending score
	Search(ctx context.Context, vector []float32, opts models.SearchOptions) ([]models.SearchResult, error)
	Partitions(ctx context.Context) ([]models.PartitionInfo, error)
	DeletePartition(ctx context.Context, partition string) error
	Close() error
}

// Open returns the store selected by cfg.Store
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		s, err := sqlite.OpenPassageStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	case config.StoreCharm:
		client, err := charm.NewClient(&charm.Config{
			Host:     cfg.CharmHost,
			DBName:   cfg.CharmDBName,
			AutoSync: cfg.AutoSync,
		})
		if err != nil {
			return nil, fmt.Errorf("open charm store: %w", err)
		}
		return NewCharmStore(client), nil
	case config.StorePGVector:
		s, err := pgstore.Open(ctx, cfg.DatabaseURL, cfg.VectorDimension)
		if err != nil {
			return nil, fmt.Errorf("open pgvector store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
