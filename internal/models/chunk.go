// ABOUTME: Chunk represents an indexed text fragment of a source document
// ABOUTME: Chunks are produced by the indexer and embedded into records
package models

// Chunk is a piece of a source document ready to embed
type Chunk struct {
	ChunkID   string `json:"chunk_id"`
	SourceID  string `json:"source_id"`
	Partition string `json:"partition"`
	Ordinal   int    `json:"ordinal"`
	Content   string `json:"content"`
}
