// ABOUTME: Passage and scope types shared by retrieval, generation and the pipeline
// ABOUTME: A passage is a retrieved unit of source text with its provenance
package models

// Passage is a retrieved fragment of an indexed document
type Passage struct {
	Text      string  `json:"text"`
	SourceID  string  `json:"source_id"`
	Partition string  `json:"partition,omitempty"`
	Score     float64 `json:"score,omitempty"`
}

// ScopeLabel narrows retrieval to part of the corpus
type ScopeLabel string

const (
	// ScopeAll searches every partition
	ScopeAll ScopeLabel = "all"

	// ScopeConstitution searches the constitution document only
	ScopeConstitution ScopeLabel = "constitution"
)

// IsAll reports whether the scope searches the whole corpus
func (s ScopeLabel) IsAll() bool {
	return s == "" || s == ScopeAll
}

// ScopePartition maps a scope label to the document title it filters on
type ScopePartition struct {
	Label ScopeLabel `json:"label"`
	Title string     `json:"title"`
}

// Citation points at a passage supplied to the generator
type Citation struct {
	Index    int    `json:"index"`
	SourceID string `json:"source_id"`
}

// Answer is generated prose plus the citations it was produced from
type Answer struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations,omitempty"`
}
