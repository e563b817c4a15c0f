// ABOUTME: Indexer turns a directory of documents into embedded passage records
// ABOUTME: Each file becomes one partition titled by its base name and is replaced on re-index
package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/harper/electionrag/internal/llm"
	"github.com/harper/electionrag/internal/models"
)

// Writer is the part of a passage store the indexer writes to
type Writer interface {
	Upsert(ctx context.Context, records []models.Record) error
	DeletePartition(ctx context.Context, partition string) error
}

// Config controls chunking and embedding batch size
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
	Logger       *slog.Logger
}

// FileReport describes one indexed document
type FileReport struct {
	Path      string `json:"path"`
	Partition string `json:"partition"`
	Chunks    int    `json:"chunks"`
}

// Report summarizes an IndexDir call
type Report struct {
	Files   []FileReport `json:"files"`
	Skipped []string     `json:"skipped,omitempty"`
}

// Chunks totals the chunks written across all files
func (r Report) Chunks() int {
	n := 0
	for _, f := range r.Files {
		n += f.Chunks
	}
	return n
}

// Indexer chunks, embeds and stores documents
type Indexer struct {
	embedder  llm.Embedder
	store     Writer
	engine    *ChunkEngine
	batchSize int
	log       *slog.Logger
}

// New creates an indexer writing to store
func New(embedder llm.Embedder, store Writer, cfg Config) (*Indexer, error) {
	size := cfg.ChunkSize
	if size == 0 {
		size = 1000
	}
	engine, err := NewChunkEngine(size, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 64
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		embedder:  embedder,
		store:     store,
		engine:    engine,
		batchSize: batch,
		log:       logger,
	}, nil
}

// IndexDir indexes every supported file under dir, in lexical path order
func (ix *Indexer) IndexDir(ctx context.Context, dir string) (Report, error) {
	var paths []string
	var report Report
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !Supported(path) {
			report.Skipped = append(report.Skipped, path)
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)

	for _, path := range paths {
		n, err := ix.IndexFile(ctx, path)
		if err != nil {
			return report, err
		}
		report.Files = append(report.Files, FileReport{
			Path:      path,
			Partition: filepath.Base(path),
			Chunks:    n,
		})
	}
	return report, nil
}

// IndexFile indexes one document, replacing any earlier copy of its partition
func (ix *Indexer) IndexFile(ctx context.Context, path string) (int, error) {
	text, err := ExtractText(path)
	if err != nil {
		return 0, err
	}
	return ix.IndexText(ctx, filepath.Base(path), text)
}

// IndexText chunks and embeds text under the partition title
func (ix *Indexer) IndexText(ctx context.Context, title, text string) (int, error) {
	chunks, err := ix.engine.ChunkDocument(text, title)
	if err != nil {
		return 0, fmt.Errorf("chunk %s: %w", title, err)
	}

	records := make([]models.Record, 0, len(chunks))
	now := time.Now()
	for start := 0; start < len(chunks); start += ix.batchSize {
		end := min(start+ix.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		vectors, err := ix.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed %s chunks %d-%d: %w", title, start, end, err)
		}
		if len(vectors) != len(batch) {
			return 0, fmt.Errorf("embed %s: got %d vectors for %d chunks", title, len(vectors), len(batch))
		}

		for i, c := range batch {
			records = append(records, models.Record{
				ID:        c.ChunkID,
				SourceID:  c.SourceID,
				Partition: c.Partition,
				Text:      c.Content,
				Vector:    vectors[i],
				CreatedAt: now,
			})
		}
		ix.log.Debug("embedded batch", "partition", title, "from", start, "to", end)
	}

	if err := ix.store.DeletePartition(ctx, title); err != nil {
		return 0, fmt.Errorf("clear partition %s: %w", title, err)
	}
	if err := ix.store.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("store %s: %w", title, err)
	}

	ix.log.Info("indexed document", "partition", title, "chunks", len(records))
	return len(records), nil
}
