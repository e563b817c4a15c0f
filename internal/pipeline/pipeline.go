// ABOUTME: Pipeline controller driving a question through routing, retrieval, grading and generation
// ABOUTME: Enforces the shared retry budget and the step ceiling so every run terminates
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/harper/electionrag/internal/models"
)

// StepLimitPreamble prefixes the best-effort answer when a run hits the step ceiling
const StepLimitPreamble = "Our algorithm has reached its self-imposed step limit. " +
	"We are not confident enough that the data in the context is sufficient to answer your question, " +
	"but we will still provide the best possible answer given the data:\n\n"

const noAnswerYet = "No answer could be generated before the step limit was reached."

// Classifier makes the model-driven branching decisions
type Classifier interface {
	Route(ctx context.Context, question string) (models.RouteDecision, error)
	Scope(ctx context.Context, question string) (models.ScopeLabel, error)
	GradePassage(ctx context.Context, question string, passage models.Passage) (bool, error)
	GradeAnswer(ctx context.Context, question, answer string) (bool, error)
	CheckGrounding(ctx context.Context, passages []models.Passage, answer string) (bool, error)
}

// Retriever returns candidate passages for a question within a scope
type Retriever interface {
	Retrieve(ctx context.Context, question string, scope models.ScopeLabel) ([]models.Passage, error)
}

// Generator writes answers and rewrites questions
type Generator interface {
	Generate(ctx context.Context, question string, passages []models.Passage, mode models.GenerationMode) (models.Answer, error)
	GenerateGeneric(ctx context.Context, question string) (string, error)
	Rewrite(ctx context.Context, question string) (string, error)
}

// Recorder observes step and run outcomes
type Recorder interface {
	ObserveStep(step, outcome string, d time.Duration)
	ObserveClassification(schema, label string)
	ObserveRun(reason string, retries int, d time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) ObserveStep(string, string, time.Duration) {}
func (noopRecorder) ObserveClassification(string, string)      {}
func (noopRecorder) ObserveRun(string, int, time.Duration)     {}

// Config controls the retry budget, step ceiling and call behavior
type Config struct {
	// MaxRetries bounds rewrites and regenerations across all loops of a run
	MaxRetries int
	// MaxSteps is the hard ceiling on executed steps per run
	MaxSteps       int
	GradeWorkers   int
	CallTimeout    time.Duration
	GroundingCheck bool
	Logger         *slog.Logger
	Recorder       Recorder
}

// DefaultConfig returns the standard budget: 3 retries, 25 steps
func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		MaxSteps:     25,
		GradeWorkers: defaultGradeWorkers,
		CallTimeout:  60 * time.Second,
	}
}

// WorstCaseSteps is the most steps a run can take with the given retry budget.
// Each retry costs at most transform, retrieve, grade, generate and grade_answer.
func WorstCaseSteps(maxRetries int) int {
	return 5*maxRetries + 8
}

// Controller runs questions through the pipeline. It is safe for concurrent use.
type Controller struct {
	classifier Classifier
	retriever  Retriever
	generator  Generator
	cfg        Config
	pool       pond.ResultPool[bool]
	recorder   Recorder
	log        *slog.Logger
}

// New creates a controller. Call Close to stop the grading pool.
func New(c Classifier, r Retriever, g Generator, cfg Config) (*Controller, error) {
	if c == nil || r == nil || g == nil {
		return nil, errors.New("pipeline: classifier, retriever and generator are required")
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("pipeline: max retries must not be negative, got %d", cfg.MaxRetries)
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 25
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = noopRecorder{}
	}

	return &Controller{
		classifier: c,
		retriever:  r,
		generator:  g,
		cfg:        cfg,
		pool:       newGradePool(cfg.GradeWorkers),
		recorder:   cfg.Recorder,
		log:        cfg.Logger,
	}, nil
}

// Close waits for in-flight grading and stops the pool
func (c *Controller) Close() {
	c.pool.StopAndWait()
}

// Run answers one question. The returned Result always carries a terminal reason;
// an error means a collaborator failed and no Result was produced.
func (c *Controller) Run(ctx context.Context, question string) (*models.Result, error) {
	start := time.Now()
	state := newRunState(question)
	log := c.log.With("run_id", state.RunID)
	machine := newMachine(log)

	log.Info("run started", "question", question)

	for executed := 0; machine.Current() != StateEnd; executed++ {
		if executed >= c.cfg.MaxSteps {
			c.stepLimit(state)
			log.Warn("step limit reached", "max_steps", c.cfg.MaxSteps, "retry_count", state.RetryCount)
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := machine.Current()
		stepStart := time.Now()
		event, err := c.step(ctx, current, state)
		elapsed := time.Since(stepStart)
		if err != nil {
			c.recorder.ObserveStep(current, "error", elapsed)
			log.Error("step failed", "step", current, "retry_count", state.RetryCount, "error", err)
			return nil, err
		}

		c.recorder.ObserveStep(current, event, elapsed)
		state.Steps = append(state.Steps, models.Step{
			Name:       current,
			Outcome:    event,
			RetryCount: state.RetryCount,
			Duration:   elapsed,
		})
		log.Info("step", "step", current, "outcome", event, "retry_count", state.RetryCount)

		if err := machine.Event(ctx, event); err != nil {
			return nil, fmt.Errorf("pipeline: %s from %s: %w", event, current, err)
		}
	}

	c.recorder.ObserveRun(string(state.TerminalReason), state.RetryCount, time.Since(start))
	log.Info("run finished", "terminal_reason", state.TerminalReason, "retry_count", state.RetryCount, "steps", len(state.Steps))
	return state.result(), nil
}

func (c *Controller) step(ctx context.Context, current string, state *RunState) (string, error) {
	switch current {
	case StateRoute:
		return c.route(ctx, state)
	case StateScope:
		return c.scope(ctx, state)
	case StateRetrieve:
		return c.retrieve(ctx, state)
	case StateGrade:
		return c.grade(ctx, state)
	case StateTransform:
		return c.transform(ctx, state)
	case StateGenerate:
		return c.generate(ctx, state)
	case StateGradeAnswer:
		return c.gradeAnswer(ctx, state)
	case StateFallbackGenerate:
		return c.fallback(ctx, state)
	case StateGeneric:
		return c.generic(ctx, state)
	}
	return "", fmt.Errorf("pipeline: no handler for state %q", current)
}

func (c *Controller) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.CallTimeout)
}

func (c *Controller) route(ctx context.Context, state *RunState) (string, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	decision, err := c.classifier.Route(callCtx, state.OriginalQuestion)
	if err != nil {
		return "", stepError(ErrClassification, StateRoute, err)
	}
	c.recorder.ObserveClassification("route", string(decision))

	switch decision {
	case models.RouteNeedsContext:
		return EventNeedsContext, nil
	case models.RouteGeneric:
		return EventGenericResponse, nil
	case models.RouteIrrelevant:
		state.Answer = ""
		state.TerminalReason = models.TerminalIrrelevant
		return EventIrrelevant, nil
	}
	return "", stepError(ErrClassification, StateRoute, fmt.Errorf("unknown route %q", decision))
}

func (c *Controller) scope(ctx context.Context, state *RunState) (string, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	scope, err := c.classifier.Scope(callCtx, state.OriginalQuestion)
	if err != nil {
		return "", stepError(ErrClassification, StateScope, err)
	}
	c.recorder.ObserveClassification("scope", string(scope))
	state.Scope = scope
	return EventScoped, nil
}

func (c *Controller) retrieve(ctx context.Context, state *RunState) (string, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	passages, err := c.retriever.Retrieve(callCtx, state.Question, state.Scope)
	if err != nil {
		return "", stepError(ErrRetrieval, StateRetrieve, err)
	}
	state.Passages = passages
	return EventRetrieved, nil
}

func (c *Controller) grade(ctx context.Context, state *RunState) (string, error) {
	relevant, err := c.gradePassages(ctx, state.Question, state.Passages)
	if err != nil {
		return "", stepError(ErrClassification, StateGrade, err)
	}
	c.log.Debug("graded passages", "retrieved", len(state.Passages), "relevant", len(relevant))
	state.Passages = relevant
	return decideToGenerate(relevant), nil
}

// decideToGenerate picks the branch after grading from the filtered passages alone
func decideToGenerate(relevant []models.Passage) string {
	if len(relevant) == 0 {
		return EventNoneRelevant
	}
	return EventRelevantFound
}

func (c *Controller) budgetLeft(state *RunState) bool {
	return state.RetryCount+1 <= c.cfg.MaxRetries
}

func (c *Controller) transform(ctx context.Context, state *RunState) (string, error) {
	if !c.budgetLeft(state) {
		return EventBudgetExhausted, nil
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	rewritten, err := c.generator.Rewrite(callCtx, state.Question)
	if err != nil {
		return "", stepError(ErrGeneration, StateTransform, err)
	}
	c.log.Debug("rewrote question", "from", state.Question, "to", rewritten)
	state.Question = rewritten
	state.RetryCount++
	return EventRewritten, nil
}

func (c *Controller) generate(ctx context.Context, state *RunState) (string, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	answer, err := c.generator.Generate(callCtx, state.OriginalQuestion, state.Passages, models.ModePrimary)
	if err != nil {
		return "", stepError(ErrGeneration, StateGenerate, err)
	}
	state.Answer = answer.Text
	return EventGenerated, nil
}

func (c *Controller) gradeAnswer(ctx context.Context, state *RunState) (string, error) {
	if c.cfg.GroundingCheck {
		grounded, err := c.checkGrounding(ctx, state)
		if err != nil {
			return "", stepError(ErrClassification, StateGradeAnswer, err)
		}
		if !grounded {
			if !c.budgetLeft(state) {
				return EventGroundingExhausted, nil
			}
			state.RetryCount++
			return EventNotGrounded, nil
		}
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	useful, err := c.classifier.GradeAnswer(callCtx, state.OriginalQuestion, state.Answer)
	if err != nil {
		return "", stepError(ErrClassification, StateGradeAnswer, err)
	}
	c.recorder.ObserveClassification("answer_quality", yesNo(useful))

	if !useful {
		return EventNotUseful, nil
	}
	state.TerminalReason = models.TerminalSuccess
	return EventUseful, nil
}

func (c *Controller) checkGrounding(ctx context.Context, state *RunState) (bool, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	grounded, err := c.classifier.CheckGrounding(callCtx, state.Passages, state.Answer)
	if err != nil {
		return false, err
	}
	c.recorder.ObserveClassification("grounding", yesNo(grounded))
	return grounded, nil
}

func (c *Controller) fallback(ctx context.Context, state *RunState) (string, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	answer, err := c.generator.Generate(callCtx, state.OriginalQuestion, state.Passages, models.ModeFallback)
	if err != nil {
		return "", stepError(ErrGeneration, StateFallbackGenerate, err)
	}
	state.Answer = answer.Text
	state.TerminalReason = models.TerminalBudgetExhausted
	return EventFallbackDone, nil
}

func (c *Controller) generic(ctx context.Context, state *RunState) (string, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	answer, err := c.generator.GenerateGeneric(callCtx, state.OriginalQuestion)
	if err != nil {
		return "", stepError(ErrGeneration, StateGeneric, err)
	}
	state.Answer = answer
	state.TerminalReason = models.TerminalGeneric
	return EventGenericDone, nil
}

func (c *Controller) stepLimit(state *RunState) {
	best := state.Answer
	if best == "" {
		best = noAnswerYet
	}
	state.Answer = StepLimitPreamble + best
	state.TerminalReason = models.TerminalStepLimit
}
