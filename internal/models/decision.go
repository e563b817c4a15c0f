// ABOUTME: Decision types produced by the classifier and consumed by the pipeline
// ABOUTME: Each decision is a closed string enum with an explicit label set
package models

import "strings"

// RouteDecision is the first branch taken for a question
type RouteDecision string

const (
	// RouteNeedsContext sends the question down the retrieval path
	RouteNeedsContext RouteDecision = "needs_context"

	// RouteGeneric answers without any retrieved context
	RouteGeneric RouteDecision = "generic_response"

	// RouteIrrelevant ends the run with an empty answer
	RouteIrrelevant RouteDecision = "irrelevant"
)

// RouteLabels returns the label set offered to the classifier for routing
func RouteLabels() []string {
	return []string{string(RouteNeedsContext), string(RouteGeneric), string(RouteIrrelevant)}
}

// IsValid reports whether d is one of the known routing decisions
func (d RouteDecision) IsValid() bool {
	switch d {
	case RouteNeedsContext, RouteGeneric, RouteIrrelevant:
		return true
	}
	return false
}

// Binary labels used by relevance, answer and grounding grades
const (
	LabelYes = "yes"
	LabelNo  = "no"
)

// BinaryLabels returns the yes/no label set
func BinaryLabels() []string {
	return []string{LabelYes, LabelNo}
}

// NormalizeLabel lowercases and trims a label for comparison
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// GenerationMode selects how confident the generator is asked to sound
type GenerationMode string

const (
	// ModePrimary is the normal grounded answer
	ModePrimary GenerationMode = "primary"

	// ModeFallback is used once the retry budget is spent
	ModeFallback GenerationMode = "fallback"
)

// TerminalReason records why a run stopped
type TerminalReason string

const (
	TerminalSuccess         TerminalReason = "success"
	TerminalGeneric         TerminalReason = "generic"
	TerminalIrrelevant      TerminalReason = "irrelevant"
	TerminalBudgetExhausted TerminalReason = "budget_exhausted"
	TerminalStepLimit       TerminalReason = "step_limit"
)

// IsValid reports whether r is a known terminal reason
func (r TerminalReason) IsValid() bool {
	switch r {
	case TerminalSuccess, TerminalGeneric, TerminalIrrelevant, TerminalBudgetExhausted, TerminalStepLimit:
		return true
	}
	return false
}

// LowConfidence reports whether answers ending with r must carry the low-confidence marker
func (r TerminalReason) LowConfidence() bool {
	return r == TerminalBudgetExhausted || r == TerminalStepLimit
}
