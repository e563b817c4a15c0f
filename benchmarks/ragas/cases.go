// ABOUTME: Benchmark cases for the question pipeline, loaded from YAML
// ABOUTME: Each case pairs a question with ground truth about the answer and retrieved context

package ragas

import (
	"fmt"
	"os"
	"strings"

	"github.com/harper/electionrag/internal/models"
	"gopkg.in/yaml.v3"
)

// TestScenario is one benchmark question with its ground truth
type TestScenario struct {
	ID          string      `yaml:"id" json:"id"`
	Name        string      `yaml:"name" json:"name"`
	Question    string      `yaml:"question" json:"question"`
	GroundTruth GroundTruth `yaml:"ground_truth" json:"ground_truth"`
}

// GroundTruth describes what a correct run looks like
type GroundTruth struct {
	// TerminalReason, when set, must match the run's terminal reason
	TerminalReason       models.TerminalReason `yaml:"terminal_reason,omitempty" json:"terminal_reason,omitempty"`
	ExpectedInResponse   []string              `yaml:"expected_in_response,omitempty" json:"expected_in_response,omitempty"`
	ForbiddenInResponse  []string              `yaml:"forbidden_in_response,omitempty" json:"forbidden_in_response,omitempty"`
	ExpectedContextItems []string              `yaml:"expected_context_items,omitempty" json:"expected_context_items,omitempty"`
	ExpectedSources      []string              `yaml:"expected_sources,omitempty" json:"expected_sources,omitempty"`
}

// Suite is the top-level shape of a cases file
type Suite struct {
	Scenarios []TestScenario `yaml:"scenarios"`
}

// LoadScenarios reads and validates a YAML cases file
func LoadScenarios(path string) ([]TestScenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cases file: %w", err)
	}
	return ParseScenarios(data)
}

// ParseScenarios decodes YAML cases and rejects duplicates or blank questions
func ParseScenarios(data []byte) ([]TestScenario, error) {
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("failed to parse cases: %w", err)
	}
	if len(suite.Scenarios) == 0 {
		return nil, fmt.Errorf("cases file has no scenarios")
	}

	seen := make(map[string]bool, len(suite.Scenarios))
	for i, s := range suite.Scenarios {
		if s.ID == "" {
			return nil, fmt.Errorf("scenario %d has no id", i+1)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate scenario id %q", s.ID)
		}
		seen[s.ID] = true
		if strings.TrimSpace(s.Question) == "" {
			return nil, fmt.Errorf("scenario %q has no question", s.ID)
		}
		if tr := s.GroundTruth.TerminalReason; tr != "" && !tr.IsValid() {
			return nil, fmt.Errorf("scenario %q has unknown terminal_reason %q", s.ID, tr)
		}
	}
	return suite.Scenarios, nil
}

// FindScenario returns the scenario with the given id
func FindScenario(scenarios []TestScenario, id string) (TestScenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return TestScenario{}, false
}
