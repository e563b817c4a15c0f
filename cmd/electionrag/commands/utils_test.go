// ABOUTME: Tests for shared utility functions used by CLI commands
// ABOUTME: Verifies truncate, formatDuration, normalizePreview and validation helpers

package commands

import (
	"testing"
	"time"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"long string truncated", "hello world", 8, "hello..."},
		{"very short maxLen", "hello", 2, "he"},
		{"maxLen equals 3", "hello", 3, "hel"},
		{"empty string", "", 10, ""},
		{"unicode keeps whole runes", "Ɔman Ghana mu", 6, "Ɔma..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{250 * time.Microsecond, "250µs"},
		{42 * time.Millisecond, "42ms"},
		{1500 * time.Millisecond, "1.5s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidatePositiveInt(t *testing.T) {
	if err := validatePositiveInt(1, "limit"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, n := range []int{0, -3} {
		if err := validatePositiveInt(n, "limit"); err == nil {
			t.Errorf("validatePositiveInt(%d) should fail", n)
		}
	}
}

func TestNormalizePreview(t *testing.T) {
	got := normalizePreview("Article 42.\n\n  Every citizen\tof Ghana ")
	want := "Article 42. Every citizen of Ghana"
	if got != want {
		t.Errorf("normalizePreview() = %q, want %q", got, want)
	}
}
