// ABOUTME: Test runner for RAGAS benchmarks - asks each scenario's question and scores the result
// ABOUTME: Pipeline errors fail the scenario without stopping the run

package ragas

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/harper/electionrag/internal/models"
)

// Asker answers one question. *pipeline.Controller satisfies it.
type Asker interface {
	Run(ctx context.Context, question string) (*models.Result, error)
}

// BenchmarkRunner executes RAGAS benchmark scenarios
type BenchmarkRunner struct {
	asker   Asker
	metrics *MetricsCalculator
	logger  *slog.Logger
}

// NewBenchmarkRunner creates a new benchmark runner
func NewBenchmarkRunner(asker Asker, logger *slog.Logger) *BenchmarkRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &BenchmarkRunner{
		asker:   asker,
		metrics: NewMetricsCalculator(),
		logger:  logger,
	}
}

// RunTest asks one scenario's question and scores the result
func (r *BenchmarkRunner) RunTest(ctx context.Context, scenario TestScenario) TestResult {
	r.logger.Info("running scenario", "id", scenario.ID, "question", scenario.Question)

	start := time.Now()
	res, err := r.asker.Run(ctx, scenario.Question)
	if err != nil {
		r.logger.Error("scenario failed", "id", scenario.ID, "error", err)
		return TestResult{
			TestID:       scenario.ID,
			TestName:     scenario.Name,
			Status:       "FAIL",
			ErrorMessage: err.Error(),
		}
	}

	result := r.metrics.EvaluateTest(scenario, res)
	result.Details["duration_ms"] = time.Since(start).Milliseconds()
	r.logger.Debug("scenario scored",
		"id", scenario.ID,
		"status", result.Status,
		"faithfulness", result.FaithfulnessScore,
		"context_recall", result.ContextRecallScore,
	)
	return result
}

// RunAllTests executes scenarios in order, stopping early only when ctx is done
func (r *BenchmarkRunner) RunAllTests(ctx context.Context, scenarios []TestScenario) ([]TestResult, error) {
	results := make([]TestResult, 0, len(scenarios))
	for _, scenario := range scenarios {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, r.RunTest(ctx, scenario))
	}
	return results, nil
}

// Summary aggregates a run
type Summary struct {
	Timestamp  string       `json:"timestamp"`
	TotalTests int          `json:"total_tests"`
	Passed     int          `json:"passed"`
	Failed     int          `json:"failed"`
	Results    []TestResult `json:"results"`
}

// Summarize counts passes and failures
func Summarize(results []TestResult) Summary {
	s := Summary{
		Timestamp:  time.Now().Format(time.RFC3339),
		TotalTests: len(results),
		Results:    results,
	}
	for _, result := range results {
		if result.Passed() {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// ExportResults writes the run summary as JSON
func ExportResults(results []TestResult, outputPath string) error {
	jsonData, err := json.MarshalIndent(Summarize(results), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	if err := os.WriteFile(outputPath, jsonData, 0o644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}
