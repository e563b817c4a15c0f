// ABOUTME: Passage store with Charm KV backend and cosine similarity search
// ABOUTME: Records are stored as JSON under partition-scoped keys and ranked in process
package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/harper/electionrag/internal/charm"
	"github.com/harper/electionrag/internal/models"
	"github.com/harper/electionrag/internal/util"
)

// kvClient is the subset of the charm client the store needs
type kvClient interface {
	GetJSON(key string, dest any) error
	SetJSONBatch(values map[string]any) error
	DeleteKeys(keys []string) error
	ListKeys(prefix string) ([]string, error)
	Close() error
}

// CharmStore keeps passages in Charm KV
type CharmStore struct {
	kv kvClient
}

// NewCharmStore creates a CharmStore over an opened client
func NewCharmStore(kv kvClient) *CharmStore {
	return &CharmStore{kv: kv}
}

// Upsert stores every record, syncing once
func (s *CharmStore) Upsert(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}

	values := make(map[string]any, len(records))
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record for %s has no id", r.SourceID)
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now()
		}
		values[charm.PassageKey(r.Partition, r.ID)] = r
	}
	return s.kv.SetJSONBatch(values)
}

// Search performs cosine similarity search across stored passages
func (s *CharmStore) Search(ctx context.Context, vector []float32, opts models.SearchOptions) ([]models.SearchResult, error) {
	prefix := charm.PassagePrefix
	if opts.Partition != "" {
		prefix = charm.PartitionPrefix(opts.Partition)
	}

	keys, err := s.kv.ListKeys(prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list passage keys: %w", err)
	}

	results := make([]models.SearchResult, 0, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var rec models.Record
		if err := s.kv.GetJSON(key, &rec); err != nil {
			// Skip records that vanished or were corrupted mid-sync
			continue
		}
		results = append(results, models.SearchResult{
			ID:        rec.ID,
			SourceID:  rec.SourceID,
			Partition: rec.Partition,
			Text:      rec.Text,
			Score:     util.CosineSimilarity(vector, rec.Vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if opts.TopK > 0 && len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results, nil
}

// Partitions counts passages per partition from the key space
func (s *CharmStore) Partitions(ctx context.Context) ([]models.PartitionInfo, error) {
	keys, err := s.kv.ListKeys(charm.PassagePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list passage keys: %w", err)
	}

	counts := make(map[string]int)
	for _, key := range keys {
		counts[charm.PartitionFromKey(key)]++
	}

	out := make([]models.PartitionInfo, 0, len(counts))
	for p, n := range counts {
		out = append(out, models.PartitionInfo{Partition: p, Passages: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Partition < out[j].Partition })
	return out, nil
}

// DeletePartition removes every passage of one document
func (s *CharmStore) DeletePartition(ctx context.Context, partition string) error {
	keys, err := s.kv.ListKeys(charm.PartitionPrefix(partition))
	if err != nil {
		return fmt.Errorf("failed to list passage keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return s.kv.DeleteKeys(keys)
}

// Close closes the underlying client
func (s *CharmStore) Close() error {
	return s.kv.Close()
}
