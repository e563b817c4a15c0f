// ABOUTME: Per-run mutable state owned by a single pipeline invocation
// ABOUTME: Frozen into a models.Result once a terminal reason is set
package pipeline

import (
	"github.com/google/uuid"
	"github.com/harper/electionrag/internal/models"
)

// RunState is created per Run and never shared between runs
type RunState struct {
	RunID            string
	Question         string
	OriginalQuestion string
	Scope            models.ScopeLabel
	Passages         []models.Passage
	Answer           string
	RetryCount       int
	Steps            []models.Step
	TerminalReason   models.TerminalReason
}

func newRunState(question string) *RunState {
	return &RunState{
		RunID:            uuid.New().String(),
		Question:         question,
		OriginalQuestion: question,
	}
}

func (s *RunState) result() *models.Result {
	passages := s.Passages
	if passages == nil {
		passages = []models.Passage{}
	}
	return &models.Result{
		RunID:            s.RunID,
		Answer:           s.Answer,
		TerminalReason:   s.TerminalReason,
		Passages:         passages,
		Scope:            s.Scope,
		RetryCount:       s.RetryCount,
		Question:         s.Question,
		OriginalQuestion: s.OriginalQuestion,
		LowConfidence:    s.TerminalReason.LowConfidence(),
		Steps:            s.Steps,
	}
}
