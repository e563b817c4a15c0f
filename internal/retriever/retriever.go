// ABOUTME: Retriever embeds a question and searches the passage store within a scope
// ABOUTME: Query embeddings are cached with a TTL so rewrites and repeat questions skip the API
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harper/electionrag/internal/llm"
	"github.com/harper/electionrag/internal/models"
	"github.com/jellydator/ttlcache/v3"
)

// Searcher is the part of a passage store the retriever reads from
type Searcher interface {
	Search(ctx context.Context, vector []float32, opts models.SearchOptions) ([]models.SearchResult, error)
}

// Config controls retrieval depth, scope partitions and caching
type Config struct {
	TopK     int
	Scopes   []models.ScopePartition
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// Retriever returns top-K passages for a question
type Retriever struct {
	embedder   llm.Embedder
	store      Searcher
	topK       int
	partitions map[models.ScopeLabel]string
	cache      *ttlcache.Cache[string, []float32]
	log        *slog.Logger
}

// New creates a retriever and starts its cache janitor. Call Close when done.
func New(embedder llm.Embedder, store Searcher, cfg Config) *Retriever {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 6
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	partitions := make(map[models.ScopeLabel]string, len(cfg.Scopes))
	for _, s := range cfg.Scopes {
		partitions[s.Label] = s.Title
	}

	cache := ttlcache.New(
		ttlcache.WithTTL[string, []float32](ttl),
		ttlcache.WithCapacity[string, []float32](4096),
	)
	go cache.Start()

	return &Retriever{
		embedder:   embedder,
		store:      store,
		topK:       topK,
		partitions: partitions,
		cache:      cache,
		log:        logger,
	}
}

// Close stops the cache janitor
func (r *Retriever) Close() {
	r.cache.Stop()
}

// Partition maps a scope to the document title it filters on.
// "all" and the empty scope map to no filter.
func (r *Retriever) Partition(scope models.ScopeLabel) (string, error) {
	if scope.IsAll() {
		return "", nil
	}
	title, ok := r.partitions[scope]
	if !ok {
		return "", fmt.Errorf("no partition configured for scope %q", scope)
	}
	return title, nil
}

// Retrieve returns at most TopK passages for question within scope, best first
func (r *Retriever) Retrieve(ctx context.Context, question string, scope models.ScopeLabel) ([]models.Passage, error) {
	return r.Search(ctx, question, scope, r.topK)
}

// Search is Retrieve with an explicit result count
func (r *Retriever) Search(ctx context.Context, question string, scope models.ScopeLabel, topK int) ([]models.Passage, error) {
	partition, err := r.Partition(scope)
	if err != nil {
		return nil, err
	}

	vector, err := r.embed(ctx, question)
	if err != nil {
		return nil, err
	}

	results, err := r.store.Search(ctx, vector, models.SearchOptions{TopK: topK, Partition: partition})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	if len(results) > topK {
		results = results[:topK]
	}
	passages := make([]models.Passage, len(results))
	for i, res := range results {
		passages[i] = res.Passage()
	}

	r.log.Debug("retrieved passages", "scope", scope, "partition", partition, "count", len(passages))
	return passages, nil
}

func (r *Retriever) embed(ctx context.Context, question string) ([]float32, error) {
	key := strings.TrimSpace(question)
	if item := r.cache.Get(key); item != nil {
		return item.Value(), nil
	}

	vectors, err := r.embedder.Embed(ctx, []string{key})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed question: got %d vectors", len(vectors))
	}

	r.cache.Set(key, vectors[0], ttlcache.DefaultTTL)
	return vectors[0], nil
}
