// ABOUTME: Run result and step trace structures returned by the pipeline
// ABOUTME: A Result is the frozen form of one run's state
package models

import "time"

// Step records one executed pipeline step
type Step struct {
	Name       string        `json:"name"`
	Outcome    string        `json:"outcome"`
	RetryCount int           `json:"retry_count"`
	Duration   time.Duration `json:"duration"`
}

// Result is what a caller receives once a run reaches a terminal state
type Result struct {
	RunID            string         `json:"run_id"`
	Answer           string         `json:"answer"`
	TerminalReason   TerminalReason `json:"terminal_reason"`
	Passages         []Passage      `json:"passages"`
	Scope            ScopeLabel     `json:"scope,omitempty"`
	RetryCount       int            `json:"retry_count"`
	Question         string         `json:"question"`
	OriginalQuestion string         `json:"original_question"`
	LowConfidence    bool           `json:"low_confidence"`
	Steps            []Step         `json:"steps"`
}
