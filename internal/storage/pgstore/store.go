// ABOUTME: Postgres passage store using the pgvector extension for similarity search
// ABOUTME: Connection pooling via pgx, cosine distance ordering with an optional partition filter
package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/harper/electionrag/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Store is a Postgres-backed passage index
type Store struct {
	pool      *pgxpool.Pool
	dimension int
}

// Open connects to databaseURL and creates the passages table if needed
func Open(ctx context.Context, databaseURL string, dimension int) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the pgvector store")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dimension)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping Postgres: %w", err)
	}

	s := &Store{pool: pool, dimension: dimension}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements(s.dimension) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate passages: %w", err)
		}
	}
	return nil
}

func schemaStatements(dimension int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS passages (
			id TEXT PRIMARY KEY,
			source_id TEXT NOT NULL,
			partition TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			seq BIGSERIAL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, dimension),
		`CREATE INDEX IF NOT EXISTS idx_passages_partition ON passages (partition)`,
	}
}

// Upsert writes records in one batch
func (s *Store) Upsert(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		if len(r.Vector) != s.dimension {
			return fmt.Errorf("record %s has dimension %d, want %d", r.ID, len(r.Vector), s.dimension)
		}
		created := r.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		batch.Queue(`
			INSERT INTO passages (id, source_id, partition, content, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				source_id = EXCLUDED.source_id,
				partition = EXCLUDED.partition,
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding`,
			r.ID, r.SourceID, r.Partition, r.Text, pgvector.NewVector(r.Vector), created)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer func() { _ = br.Close() }()

	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert passages: %w", err)
		}
	}
	return nil
}

// searchQuery orders by cosine distance; seq breaks ties in insertion order
func searchQuery(withPartition bool) string {
	q := `SELECT id, source_id, partition, content, 1 - (embedding <=> $1) AS score FROM passages`
	if withPartition {
		q += ` WHERE partition = $3`
	}
	return q + ` ORDER BY embedding <=> $1, seq LIMIT $2`
}

// Search returns the TopK passages closest to vector
func (s *Store) Search(ctx context.Context, vector []float32, opts models.SearchOptions) ([]models.SearchResult, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = 6
	}

	args := []any{pgvector.NewVector(vector), topK}
	if opts.Partition != "" {
		args = append(args, opts.Partition)
	}

	rows, err := s.pool.Query(ctx, searchQuery(opts.Partition != ""), args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var r models.SearchResult
		if err := rows.Scan(&r.ID, &r.SourceID, &r.Partition, &r.Text, &r.Score); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Partitions lists each indexed partition with its passage count
func (s *Store) Partitions(ctx context.Context) ([]models.PartitionInfo, error) {
	rows, err := s.pool.Query(ctx, `SELECT partition, COUNT(*) FROM passages GROUP BY partition ORDER BY partition`)
	if err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}
	defer rows.Close()

	var out []models.PartitionInfo
	for rows.Next() {
		var (
			p     models.PartitionInfo
			count int64
		)
		if err := rows.Scan(&p.Partition, &count); err != nil {
			return nil, err
		}
		p.Passages = int(count)
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePartition removes every passage of one document
func (s *Store) DeletePartition(ctx context.Context, partition string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM passages WHERE partition = $1`, partition)
	return err
}

// Close releases the connection pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
