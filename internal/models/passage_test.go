// ABOUTME: Tests for passage, scope and search result helpers
// ABOUTME: Verifies scope semantics and result conversion
package models

import "testing"

func TestScopeLabel_IsAll(t *testing.T) {
	tests := []struct {
		scope ScopeLabel
		want  bool
	}{
		{ScopeAll, true},
		{ScopeLabel(""), true},
		{ScopeConstitution, false},
		{ScopeLabel("npp"), false},
	}

	for _, tt := range tests {
		if got := tt.scope.IsAll(); got != tt.want {
			t.Errorf("ScopeLabel(%q).IsAll() = %v, want %v", tt.scope, got, tt.want)
		}
	}
}

func TestSearchResult_Passage(t *testing.T) {
	r := SearchResult{ID: "c1", SourceID: "constitution.pdf", Partition: "constitution.pdf", Text: "Article 1", Score: 0.9}

	p := r.Passage()
	if p.Text != "Article 1" {
		t.Errorf("Text = %q, want %q", p.Text, "Article 1")
	}
	if p.SourceID != "constitution.pdf" {
		t.Errorf("SourceID = %q, want %q", p.SourceID, "constitution.pdf")
	}
	if p.Score != 0.9 {
		t.Errorf("Score = %f, want 0.9", p.Score)
	}
}
