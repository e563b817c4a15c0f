// ABOUTME: Passage storage operations for SQLite
// ABOUTME: Stores vectors as float32 BLOBs and ranks them by brute-force cosine similarity
package sqlite

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/harper/electionrag/internal/models"
	"github.com/harper/electionrag/internal/util"
)

// PassageStore persists embedded passages and searches them
type PassageStore struct {
	db *DB
}

// NewPassageStore creates a PassageStore over db
func NewPassageStore(db *DB) *PassageStore {
	return &PassageStore{db: db}
}

// OpenPassageStore opens the database at path and wraps it
func OpenPassageStore(path string) (*PassageStore, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return NewPassageStore(db), nil
}

// Upsert inserts or replaces records in a single transaction
func (s *PassageStore) Upsert(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO passages (id, source_id, partition, content, vector, dimension, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_id = excluded.source_id,
			partition = excluded.partition,
			content = excluded.content,
			vector = excluded.vector,
			dimension = excluded.dimension
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record for %s has no id", r.SourceID)
		}
		created := r.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.SourceID, r.Partition, r.Text, vectorToBlob(r.Vector), len(r.Vector), created); err != nil {
			return fmt.Errorf("upsert %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// Search ranks stored passages by cosine similarity to vector.
// Ties keep insertion order.
func (s *PassageStore) Search(ctx context.Context, vector []float32, opts models.SearchOptions) ([]models.SearchResult, error) {
	query := `SELECT id, source_id, partition, content, vector FROM passages`
	var args []any
	if opts.Partition != "" {
		query += ` WHERE partition = ?`
		args = append(args, opts.Partition)
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search passages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []models.SearchResult
	for rows.Next() {
		var (
			r    models.SearchResult
			blob []byte
		)
		if err := rows.Scan(&r.ID, &r.SourceID, &r.Partition, &r.Text, &blob); err != nil {
			return nil, err
		}
		r.Score = util.CosineSimilarity(vector, blobToVector(blob))
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if opts.TopK > 0 && len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results, nil
}

// Partitions lists each indexed partition with its passage count
func (s *PassageStore) Partitions(ctx context.Context) ([]models.PartitionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT partition, COUNT(*) FROM passages
		GROUP BY partition
		ORDER BY partition
	`)
	if err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.PartitionInfo
	for rows.Next() {
		var p models.PartitionInfo
		if err := rows.Scan(&p.Partition, &p.Passages); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePartition removes every passage of one document, used before re-indexing it
func (s *PassageStore) DeletePartition(ctx context.Context, partition string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM passages WHERE partition = ?", partition)
	return err
}

// Close closes the underlying database
func (s *PassageStore) Close() error {
	return s.db.Close()
}

func vectorToBlob(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

func blobToVector(blob []byte) []float32 {
	count := len(blob) / 4
	vector := make([]float32, count)
	for i := 0; i < count; i++ {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}
