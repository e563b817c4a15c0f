// ABOUTME: Command-line benchmark runner for RAGAS scenarios against the indexed documents
// ABOUTME: Asks each scenario's question through the full pipeline and writes JSON results

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/harper/electionrag/benchmarks/ragas"
	"github.com/harper/electionrag/internal/app"
	"github.com/harper/electionrag/internal/config"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
)

func main() {
	casesPath := flag.String("cases", "benchmarks/ragas/cases.yaml", "YAML file of benchmark scenarios")
	testID := flag.String("test", "", "Run one scenario by id. If empty, runs all scenarios.")
	outputPath := flag.String("output", "benchmark_results.json", "Output path for JSON results")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.Kitchen}))

	_ = godotenv.Load()

	if err := run(logger, *casesPath, *testID, *outputPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, casesPath, testID, outputPath string) error {
	scenarios, err := ragas.LoadScenarios(casesPath)
	if err != nil {
		return err
	}
	if testID != "" {
		s, ok := ragas.FindScenario(scenarios, testID)
		if !ok {
			return fmt.Errorf("unknown scenario id: %s", testID)
		}
		scenarios = []ragas.TestScenario{s}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	fmt.Println("========================================")
	fmt.Println("electionrag RAGAS Benchmarks")
	fmt.Println("========================================")
	fmt.Printf("Running %d scenario(s) from %s\n", len(scenarios), casesPath)

	results, err := ragas.NewBenchmarkRunner(a.Controller, logger).RunAllTests(ctx, scenarios)
	if err != nil {
		return fmt.Errorf("benchmark interrupted: %w", err)
	}

	summary := ragas.Summarize(results)
	for _, result := range results {
		fmt.Printf("\n%s: %s\n", result.TestID, result.TestName)
		if result.ErrorMessage != "" {
			fmt.Printf("  Error: %s\n", result.ErrorMessage)
		} else {
			fmt.Printf("  Faithfulness: %.2f\n", result.FaithfulnessScore)
			fmt.Printf("  Context Recall: %.2f\n", result.ContextRecallScore)
			fmt.Printf("  Source Recall: %.2f\n", result.SourceRecallScore)
			fmt.Printf("  Overall: %.2f\n", result.OverallScore)
		}
		fmt.Printf("  Status: %s\n", result.Status)
	}

	fmt.Println("\n========================================")
	fmt.Printf("Total: %d  Passed: %d  Failed: %d\n", summary.TotalTests, summary.Passed, summary.Failed)
	fmt.Println("========================================")

	if err := ragas.ExportResults(results, outputPath); err != nil {
		return err
	}
	fmt.Printf("Results exported to: %s\n", outputPath)

	if summary.Failed > 0 {
		return fmt.Errorf("%d scenario(s) failed", summary.Failed)
	}
	return nil
}
