// ABOUTME: RAGAS-style metrics for faithfulness, context recall and source recall
// ABOUTME: Deterministic scoring by comparing a pipeline result with ground truth

package ragas

import (
	"fmt"
	"strings"

	"github.com/harper/electionrag/internal/models"
)

// PassThreshold is the minimum score on each metric for a scenario to pass
const PassThreshold = 0.9

// TestResult represents the outcome of a benchmark scenario
type TestResult struct {
	TestID             string         `json:"test_id"`
	TestName           string         `json:"test_name"`
	FaithfulnessScore  float64        `json:"faithfulness"`
	ContextRecallScore float64        `json:"context_recall"`
	SourceRecallScore  float64        `json:"source_recall"`
	OverallScore       float64        `json:"overall"`
	Status             string         `json:"status"` // "PASS" or "FAIL"
	Details            map[string]any `json:"details,omitempty"`
	ErrorMessage       string         `json:"error,omitempty"`
}

// Passed reports whether the scenario passed
func (r TestResult) Passed() bool {
	return r.Status == "PASS"
}

// MetricsCalculator computes RAGAS scores for benchmark scenarios
type MetricsCalculator struct{}

// NewMetricsCalculator creates a new metrics calculator
func NewMetricsCalculator() *MetricsCalculator {
	return &MetricsCalculator{}
}

// CalculateFaithfulness scores the answer against expected and forbidden phrases.
// 1.0 needs every expected phrase and no forbidden one; one kind of miss scores 0.5.
func (m *MetricsCalculator) CalculateFaithfulness(response string, expected, forbidden []string) (float64, string) {
	missing := missingFrom(response, expected)

	var found []string
	upper := strings.ToUpper(response)
	for _, f := range forbidden {
		if strings.Contains(upper, strings.ToUpper(f)) {
			found = append(found, f)
		}
	}

	switch {
	case len(missing) == 0 && len(found) == 0:
		return 1.0, "Perfect faithfulness - response matches expected ground truth"
	case len(missing) > 0 && len(found) > 0:
		return 0.0, fmt.Sprintf("Faithfulness failure - missing expected items: %v, forbidden items found: %v", missing, found)
	case len(missing) > 0:
		return 0.5, fmt.Sprintf("Partial faithfulness - missing expected items: %v", missing)
	default:
		return 0.5, fmt.Sprintf("Partial faithfulness - forbidden items found: %v", found)
	}
}

// CalculateContextRecall is the share of expected items present in the retrieved passages
func (m *MetricsCalculator) CalculateContextRecall(passages []models.Passage, expected []string) (float64, string) {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	return recall(strings.Join(texts, " "), expected, "context")
}

// CalculateSourceRecall is the share of expected source ids among the kept passages
func (m *MetricsCalculator) CalculateSourceRecall(passages []models.Passage, expected []string) (float64, string) {
	ids := make([]string, len(passages))
	for i, p := range passages {
		ids[i] = p.SourceID
	}
	return recall(strings.Join(ids, " "), expected, "source")
}

// EvaluateTest scores one pipeline result against its scenario
func (m *MetricsCalculator) EvaluateTest(scenario TestScenario, res *models.Result) TestResult {
	gt := scenario.GroundTruth

	faithfulness, faithfulnessDetail := m.CalculateFaithfulness(res.Answer, gt.ExpectedInResponse, gt.ForbiddenInResponse)
	contextRecall, contextDetail := m.CalculateContextRecall(res.Passages, gt.ExpectedContextItems)
	sourceRecall, sourceDetail := m.CalculateSourceRecall(res.Passages, gt.ExpectedSources)

	overall := (faithfulness + contextRecall + sourceRecall) / 3.0

	terminalOK := gt.TerminalReason == "" || gt.TerminalReason == res.TerminalReason
	status := "FAIL"
	if terminalOK && faithfulness >= PassThreshold && contextRecall >= PassThreshold && sourceRecall >= PassThreshold {
		status = "PASS"
	}

	return TestResult{
		TestID:             scenario.ID,
		TestName:           scenario.Name,
		FaithfulnessScore:  faithfulness,
		ContextRecallScore: contextRecall,
		SourceRecallScore:  sourceRecall,
		OverallScore:       overall,
		Status:             status,
		Details: map[string]any{
			"faithfulness_detail":   faithfulnessDetail,
			"context_recall_detail": contextDetail,
			"source_recall_detail":  sourceDetail,
			"terminal_reason":       res.TerminalReason,
			"terminal_reason_ok":    terminalOK,
			"retry_count":           res.RetryCount,
			"final_response":        preview(res.Answer, 200),
			"context_items":         len(res.Passages),
		},
	}
}

func recall(haystack string, expected []string, kind string) (float64, string) {
	if len(expected) == 0 {
		return 1.0, "No " + kind + " required"
	}
	missing := missingFrom(haystack, expected)
	score := float64(len(expected)-len(missing)) / float64(len(expected))
	if len(missing) == 0 {
		return 1.0, "Perfect " + kind + " recall - all expected items retrieved"
	}
	return score, fmt.Sprintf("Partial %s recall (%.2f) - missing items: %v", kind, score, missing)
}

func missingFrom(haystack string, items []string) []string {
	upper := strings.ToUpper(haystack)
	var missing []string
	for _, item := range items {
		if !strings.Contains(upper, strings.ToUpper(item)) {
			missing = append(missing, item)
		}
	}
	return missing
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
