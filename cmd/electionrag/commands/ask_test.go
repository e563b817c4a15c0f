// ABOUTME: Tests for the ask command over a scripted pipeline
// ABOUTME: Covers answers with sources, traces, JSON output and irrelevant questions

package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harper/electionrag/internal/llm/llmtest"
	"github.com/harper/electionrag/internal/models"
)

// indexFixture writes a constitution file and indexes it through the CLI
func indexFixture(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	text := "Article 42. Every citizen of Ghana of eighteen years of age or above and of sound mind has the right to vote."
	if err := os.WriteFile(filepath.Join(dir, "constitution.pdf.txt"), []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "index", dir); err != nil {
		t.Fatalf("index failed: %v", err)
	}
}

func answeringService() *llmtest.FakeCompletion {
	return llmtest.NewFakeCompletion().
		Label("route", "needs_context").
		Label("scope", "all").
		Label("passage_relevance", "yes").
		Label("answer_quality", "yes").
		Text("Citizens aged eighteen or above may vote.")
}

func TestAskCmd_PrintsAnswerWithSources(t *testing.T) {
	useTestApp(t, answeringService())
	indexFixture(t)

	out, err := execute(t, "ask", "Who", "can", "vote?")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if !strings.Contains(out, "Citizens aged eighteen or above may vote.") {
		t.Errorf("missing answer in output:\n%s", out)
	}
	if !strings.Contains(out, "Source 1: constitution.pdf.txt") {
		t.Errorf("missing source line in output:\n%s", out)
	}
}

func TestAskCmd_Trace(t *testing.T) {
	useTestApp(t, answeringService())
	indexFixture(t)

	out, err := execute(t, "ask", "--trace", "Who can vote?")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	for _, step := range []string{"STEP", "route", "retrieve", "grade", "generate", "grade_answer"} {
		if !strings.Contains(out, step) {
			t.Errorf("trace missing %q:\n%s", step, out)
		}
	}
}

func TestAskCmd_JSON(t *testing.T) {
	useTestApp(t, answeringService())
	indexFixture(t)

	out, err := execute(t, "--format", "json", "ask", "Who can vote?")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}

	var res models.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not a JSON result: %v\n%s", err, out)
	}
	if res.TerminalReason != models.TerminalSuccess {
		t.Errorf("terminal reason = %q, want success", res.TerminalReason)
	}
	if len(res.Passages) != 1 {
		t.Errorf("passages = %d, want 1", len(res.Passages))
	}
}

func TestAskCmd_Irrelevant(t *testing.T) {
	useTestApp(t, llmtest.NewFakeCompletion().Label("route", "irrelevant"))

	out, err := execute(t, "ask", "What is the weather like in Argentina?")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if !strings.Contains(out, "outside what I can answer") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestAskCmd_LowConfidenceNote(t *testing.T) {
	svc := llmtest.NewFakeCompletion().
		Label("route", "needs_context").
		Label("scope", "all").
		Text("rewritten", "Best effort answer.")
	useTestApp(t, svc)

	out, err := execute(t, "ask", "Who can vote?")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if !strings.Contains(out, "low confidence") {
		t.Errorf("expected low confidence note:\n%s", out)
	}
}

func TestAskCmd_ClassificationFailure(t *testing.T) {
	useTestApp(t, llmtest.NewFakeCompletion().Label("route", "banana"))

	_, err := execute(t, "ask", "Who can vote?")
	if err == nil {
		t.Fatal("expected error for out-of-schema route label")
	}
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	if _, err := execute(t, "ask"); err == nil {
		t.Error("expected error when no question given")
	}
}
