// ABOUTME: State machine describing the legal transitions between pipeline steps
// ABOUTME: Built on looplab/fsm; the controller drives it one event per executed step
package pipeline

import (
	"context"
	"log/slog"

	"github.com/looplab/fsm"
)

const (
	StateRoute            = "route"
	StateScope            = "scope"
	StateRetrieve         = "retrieve"
	StateGrade            = "grade"
	StateTransform        = "transform"
	StateGenerate         = "generate"
	StateGradeAnswer      = "grade_answer"
	StateFallbackGenerate = "fallback_generate"
	StateGeneric          = "generic"
	StateEnd              = "end"
)

const (
	EventNeedsContext       = "needs_context"
	EventGenericResponse    = "generic_response"
	EventIrrelevant         = "irrelevant"
	EventScoped             = "scoped"
	EventRetrieved          = "retrieved"
	EventRelevantFound      = "relevant_found"
	EventNoneRelevant       = "none_relevant"
	EventRewritten          = "rewritten"
	EventBudgetExhausted    = "budget_exhausted"
	EventGenerated          = "generated"
	EventUseful             = "useful"
	EventNotUseful          = "not_useful"
	EventNotGrounded        = "not_grounded"
	EventGroundingExhausted = "grounding_exhausted"
	EventFallbackDone       = "fallback_done"
	EventGenericDone        = "generic_done"
)

func pipelineEvents() fsm.Events {
	return fsm.Events{
		{Name: EventNeedsContext, Src: []string{StateRoute}, Dst: StateScope},
		{Name: EventGenericResponse, Src: []string{StateRoute}, Dst: StateGeneric},
		{Name: EventIrrelevant, Src: []string{StateRoute}, Dst: StateEnd},
		{Name: EventScoped, Src: []string{StateScope}, Dst: StateRetrieve},
		{Name: EventRetrieved, Src: []string{StateRetrieve}, Dst: StateGrade},
		{Name: EventRelevantFound, Src: []string{StateGrade}, Dst: StateGenerate},
		{Name: EventNoneRelevant, Src: []string{StateGrade}, Dst: StateTransform},
		{Name: EventRewritten, Src: []string{StateTransform}, Dst: StateRetrieve},
		{Name: EventBudgetExhausted, Src: []string{StateTransform}, Dst: StateFallbackGenerate},
		{Name: EventGenerated, Src: []string{StateGenerate}, Dst: StateGradeAnswer},
		{Name: EventUseful, Src: []string{StateGradeAnswer}, Dst: StateEnd},
		{Name: EventNotUseful, Src: []string{StateGradeAnswer}, Dst: StateTransform},
		{Name: EventNotGrounded, Src: []string{StateGradeAnswer}, Dst: StateGenerate},
		{Name: EventGroundingExhausted, Src: []string{StateGradeAnswer}, Dst: StateFallbackGenerate},
		{Name: EventFallbackDone, Src: []string{StateFallbackGenerate}, Dst: StateEnd},
		{Name: EventGenericDone, Src: []string{StateGeneric}, Dst: StateEnd},
	}
}

func newMachine(log *slog.Logger) *fsm.FSM {
	return fsm.NewFSM(
		StateRoute,
		pipelineEvents(),
		fsm.Callbacks{
			"after_event": func(_ context.Context, e *fsm.Event) {
				log.Debug("transition", "event", e.Event, "from", e.Src, "to", e.Dst)
			},
		},
	)
}
