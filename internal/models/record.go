// ABOUTME: Record models for vector storage and similarity search
// ABOUTME: Defines Record, SearchOptions, SearchResult and PartitionInfo
package models

import "time"

// Record is a stored chunk together with its embedding vector
type Record struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"source_id"`
	Partition string    `json:"partition"`
	Text      string    `json:"text"`
	Vector    []float32 `json:"vector"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchOptions restricts a similarity search
type SearchOptions struct {
	TopK int
	// Partition limits results to one document title; empty searches everything
	Partition string
}

// SearchResult is a record match with its similarity score
type SearchResult struct {
	ID        string  `json:"id"`
	SourceID  string  `json:"source_id"`
	Partition string  `json:"partition"`
	Text      string  `json:"text"`
	Score     float64 `json:"score"`
}

// Passage converts a search result to a pipeline passage
func (r SearchResult) Passage() Passage {
	return Passage{Text: r.Text, SourceID: r.SourceID, Partition: r.Partition, Score: r.Score}
}

// PartitionInfo summarizes one indexed partition
type PartitionInfo struct {
	Partition string `json:"partition"`
	Passages  int    `json:"passages"`
}
