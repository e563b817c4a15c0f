// ABOUTME: Tests for charm key helpers
// ABOUTME: Verifies partition-scoped passage keys round trip
package charm

import (
	"strings"
	"testing"
)

func TestPassageKey(t *testing.T) {
	key := PassageKey("constitution.pdf", "abc-123")
	if key != "passage:constitution.pdf:abc-123" {
		t.Errorf("PassageKey() = %q", key)
	}
	if !strings.HasPrefix(key, PartitionPrefix("constitution.pdf")) {
		t.Error("PassageKey should start with its PartitionPrefix")
	}
}

func TestPartitionFromKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{PassageKey("npp.pdf", "id1"), "npp.pdf"},
		{PassageKey("2024:manifesto.pdf", "id2"), "2024:manifesto.pdf"},
		{"passage:", ""},
	}

	for _, tt := range tests {
		if got := PartitionFromKey(tt.key); got != tt.want {
			t.Errorf("PartitionFromKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
