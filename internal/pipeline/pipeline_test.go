// ABOUTME: Tests for the pipeline controller's branching, budget and termination behavior
// ABOUTME: Collaborators are scripted fakes so each scenario is deterministic
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harper/electionrag/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClassifier struct {
	mu sync.Mutex

	route     models.RouteDecision
	routeErr  error
	scope     models.ScopeLabel
	relevant  func(question string, p models.Passage) bool
	gradeErr  error
	useful    []bool
	grounded  []bool
	routeSeen []string
	answerQs  []string
	gradeQs   []string
}

func (f *fakeClassifier) Route(ctx context.Context, question string) (models.RouteDecision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routeSeen = append(f.routeSeen, question)
	if f.routeErr != nil {
		return "", f.routeErr
	}
	return f.route, nil
}

func (f *fakeClassifier) Scope(ctx context.Context, question string) (models.ScopeLabel, error) {
	return f.scope, nil
}

func (f *fakeClassifier) GradePassage(ctx context.Context, question string, p models.Passage) (bool, error) {
	f.mu.Lock()
	f.gradeQs = append(f.gradeQs, question)
	f.mu.Unlock()
	if f.gradeErr != nil {
		return false, f.gradeErr
	}
	if f.relevant == nil {
		return true, nil
	}
	return f.relevant(question, p), nil
}

func (f *fakeClassifier) GradeAnswer(ctx context.Context, question, answer string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answerQs = append(f.answerQs, question)
	return popBool(&f.useful, true), nil
}

func (f *fakeClassifier) CheckGrounding(ctx context.Context, passages []models.Passage, answer string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return popBool(&f.grounded, true), nil
}

// popBool returns the head of queue; the last value repeats once drained
func popBool(queue *[]bool, fallback bool) bool {
	q := *queue
	if len(q) == 0 {
		return fallback
	}
	head := q[0]
	if len(q) > 1 {
		*queue = q[1:]
	}
	return head
}

type fakeRetriever struct {
	mu       sync.Mutex
	passages func(question string) []models.Passage
	err      error
	calls    []string
	scopes   []models.ScopeLabel
}

func (f *fakeRetriever) Retrieve(ctx context.Context, question string, scope models.ScopeLabel) ([]models.Passage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, question)
	f.scopes = append(f.scopes, scope)
	if f.err != nil {
		return nil, f.err
	}
	if f.passages == nil {
		return nil, nil
	}
	return f.passages(question), nil
}

type fakeGenerator struct {
	mu        sync.Mutex
	rewrites  int
	modes     []models.GenerationMode
	generated [][]models.Passage
	genErr    error
}

func (f *fakeGenerator) Generate(ctx context.Context, question string, passages []models.Passage, mode models.GenerationMode) (models.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.genErr != nil {
		return models.Answer{}, f.genErr
	}
	f.modes = append(f.modes, mode)
	f.generated = append(f.generated, passages)
	return models.Answer{Text: fmt.Sprintf("%s answer %d to %s", mode, len(f.modes), question)}, nil
}

func (f *fakeGenerator) GenerateGeneric(ctx context.Context, question string) (string, error) {
	return "I answer questions about the election.", nil
}

func (f *fakeGenerator) Rewrite(ctx context.Context, question string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rewrites++
	return fmt.Sprintf("%s (rewrite %d)", question, f.rewrites), nil
}

type recordingRecorder struct {
	mu     sync.Mutex
	steps  []string
	labels []string
	runs   []string
}

func (r *recordingRecorder) ObserveStep(step, outcome string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step+":"+outcome)
}

func (r *recordingRecorder) ObserveClassification(schema, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labels = append(r.labels, schema+":"+label)
}

func (r *recordingRecorder) ObserveRun(reason string, retries int, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, fmt.Sprintf("%s:%d", reason, retries))
}

func passages(ids ...string) []models.Passage {
	out := make([]models.Passage, len(ids))
	for i, id := range ids {
		out[i] = models.Passage{Text: "text of " + id, SourceID: id}
	}
	return out
}

func newController(t *testing.T, c Classifier, r Retriever, g Generator, mutate func(*Config)) *Controller {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	ctrl, err := New(c, r, g, cfg)
	require.NoError(t, err)
	t.Cleanup(ctrl.Close)
	return ctrl
}

func stepNames(res *models.Result) []string {
	names := make([]string, len(res.Steps))
	for i, s := range res.Steps {
		names[i] = s.Name
	}
	return names
}

func countSteps(res *models.Result, name string) int {
	n := 0
	for _, s := range res.Steps {
		if s.Name == name {
			n++
		}
	}
	return n
}

func TestRun_GreetingTakesGenericPath(t *testing.T) {
	cls := &fakeClassifier{route: models.RouteGeneric}
	ret := &fakeRetriever{}
	ctrl := newController(t, cls, ret, &fakeGenerator{}, nil)

	res, err := ctrl.Run(context.Background(), "Hello")
	require.NoError(t, err)

	assert.Equal(t, models.TerminalGeneric, res.TerminalReason)
	assert.Equal(t, "I answer questions about the election.", res.Answer)
	assert.Empty(t, res.Scope)
	assert.Empty(t, res.Passages)
	assert.False(t, res.LowConfidence)
	assert.Equal(t, []string{StateRoute, StateGeneric}, stepNames(res))
	assert.Empty(t, ret.calls, "generic path must not retrieve")
}

func TestRun_IrrelevantEndsWithEmptyAnswer(t *testing.T) {
	cls := &fakeClassifier{route: models.RouteIrrelevant}
	ret := &fakeRetriever{}
	gen := &fakeGenerator{}
	ctrl := newController(t, cls, ret, gen, nil)

	res, err := ctrl.Run(context.Background(), "What is the weather like in Argentina?")
	require.NoError(t, err)

	assert.Equal(t, models.TerminalIrrelevant, res.TerminalReason)
	assert.Empty(t, res.Answer)
	assert.Empty(t, res.Passages)
	assert.Equal(t, 0, res.RetryCount)
	assert.Equal(t, []string{StateRoute}, stepNames(res))
	assert.Empty(t, ret.calls)
	assert.Empty(t, gen.modes)
}

func TestRun_OneRewriteThenSuccess(t *testing.T) {
	cls := &fakeClassifier{
		route: models.RouteNeedsContext,
		scope: models.ScopeAll,
		relevant: func(question string, p models.Passage) bool {
			return strings.Contains(question, "rewrite")
		},
		useful: []bool{true},
	}
	ret := &fakeRetriever{passages: func(string) []models.Passage { return passages("a", "b") }}
	gen := &fakeGenerator{}
	ctrl := newController(t, cls, ret, gen, nil)

	res, err := ctrl.Run(context.Background(), "What is the economic policy approach of the CDU?")
	require.NoError(t, err)

	assert.Equal(t, models.TerminalSuccess, res.TerminalReason)
	assert.Equal(t, 1, res.RetryCount)
	assert.False(t, res.LowConfidence)
	assert.Equal(t, "What is the economic policy approach of the CDU?", res.OriginalQuestion)
	assert.Equal(t, "What is the economic policy approach of the CDU? (rewrite 1)", res.Question)
	assert.Equal(t, passages("a", "b"), res.Passages)
	assert.Equal(t, []string{
		StateRoute, StateScope, StateRetrieve, StateGrade, StateTransform,
		StateRetrieve, StateGrade, StateGenerate, StateGradeAnswer,
	}, stepNames(res))
	assert.Equal(t, []models.GenerationMode{models.ModePrimary}, gen.modes)
	assert.Equal(t, []string{res.OriginalQuestion}, cls.answerQs, "answer graded against the original question")
}

func TestRun_AlwaysEmptyRetrievalFallsBack(t *testing.T) {
	for _, maxRetries := range []int{0, 1, 3, 5} {
		t.Run(fmt.Sprintf("max_retries=%d", maxRetries), func(t *testing.T) {
			cls := &fakeClassifier{route: models.RouteNeedsContext, scope: models.ScopeConstitution}
			ret := &fakeRetriever{}
			gen := &fakeGenerator{}
			ctrl := newController(t, cls, ret, gen, func(c *Config) { c.MaxRetries = maxRetries })

			res, err := ctrl.Run(context.Background(), "Who counts the ballots?")
			require.NoError(t, err)

			assert.Equal(t, models.TerminalBudgetExhausted, res.TerminalReason)
			assert.True(t, res.LowConfidence)
			assert.Equal(t, maxRetries, res.RetryCount)
			assert.Equal(t, maxRetries, gen.rewrites, "one rewrite per budget unit")
			assert.Equal(t, maxRetries+1, countSteps(res, StateTransform), "final transform takes the fallback branch")
			assert.Equal(t, maxRetries+1, len(ret.calls))
			assert.Equal(t, []models.GenerationMode{models.ModeFallback}, gen.modes)
			assert.Equal(t, StateFallbackGenerate, res.Steps[len(res.Steps)-1].Name)
			assert.Equal(t, EventBudgetExhausted, res.Steps[len(res.Steps)-2].Outcome)
			assert.Empty(t, res.Passages)
		})
	}
}

func TestRun_RetrievalUsesRewrittenQuestionAndScope(t *testing.T) {
	cls := &fakeClassifier{route: models.RouteNeedsContext, scope: models.ScopeConstitution}
	ret := &fakeRetriever{}
	ctrl := newController(t, cls, ret, &fakeGenerator{}, func(c *Config) { c.MaxRetries = 2 })

	_, err := ctrl.Run(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, []string{"q", "q (rewrite 1)", "q (rewrite 1) (rewrite 2)"}, ret.calls)
	for _, s := range ret.scopes {
		assert.Equal(t, models.ScopeConstitution, s)
	}
}

func TestRun_GradingPreservesRetrievalOrder(t *testing.T) {
	ids := []string{"p0", "p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8", "p9"}
	keep := map[string]bool{"p1": true, "p4": true, "p5": true, "p8": true}

	cls := &fakeClassifier{
		route: models.RouteNeedsContext,
		scope: models.ScopeAll,
		relevant: func(_ string, p models.Passage) bool {
			// Earlier passages finish later so completion order differs from input order.
			time.Sleep(time.Duration(len(ids)-int(p.SourceID[1]-'0')) * time.Millisecond)
			return keep[p.SourceID]
		},
		useful: []bool{true},
	}
	ret := &fakeRetriever{passages: func(string) []models.Passage { return passages(ids...) }}
	gen := &fakeGenerator{}
	ctrl := newController(t, cls, ret, gen, func(c *Config) { c.GradeWorkers = 4 })

	res, err := ctrl.Run(context.Background(), "order?")
	require.NoError(t, err)

	assert.Equal(t, passages("p1", "p4", "p5", "p8"), res.Passages)
	require.Len(t, gen.generated, 1)
	assert.Equal(t, passages("p1", "p4", "p5", "p8"), gen.generated[0])
}

func TestRun_NotUsefulConsumesBudget(t *testing.T) {
	cls := &fakeClassifier{
		route:  models.RouteNeedsContext,
		scope:  models.ScopeAll,
		useful: []bool{false},
	}
	ret := &fakeRetriever{passages: func(string) []models.Passage { return passages("a") }}
	gen := &fakeGenerator{}
	ctrl := newController(t, cls, ret, gen, func(c *Config) { c.MaxRetries = 2 })

	res, err := ctrl.Run(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, models.TerminalBudgetExhausted, res.TerminalReason)
	assert.Equal(t, 2, res.RetryCount)
	assert.Equal(t, 3, countSteps(res, StateGradeAnswer))
	assert.Equal(t, []models.GenerationMode{
		models.ModePrimary, models.ModePrimary, models.ModePrimary, models.ModeFallback,
	}, gen.modes)
}

func TestRun_GroundingRegeneratesWithoutRewrite(t *testing.T) {
	cls := &fakeClassifier{
		route:    models.RouteNeedsContext,
		scope:    models.ScopeAll,
		grounded: []bool{false, true},
		useful:   []bool{true},
	}
	ret := &fakeRetriever{passages: func(string) []models.Passage { return passages("a") }}
	gen := &fakeGenerator{}
	ctrl := newController(t, cls, ret, gen, func(c *Config) { c.GroundingCheck = true })

	res, err := ctrl.Run(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, models.TerminalSuccess, res.TerminalReason)
	assert.Equal(t, 1, res.RetryCount)
	assert.Equal(t, 0, gen.rewrites)
	assert.Equal(t, "q", res.Question)
	assert.Equal(t, 2, countSteps(res, StateGenerate))
	assert.Equal(t, 1, len(ret.calls), "regeneration must not retrieve again")
}

func TestRun_GroundingExhaustionFallsBack(t *testing.T) {
	cls := &fakeClassifier{
		route:    models.RouteNeedsContext,
		scope:    models.ScopeAll,
		grounded: []bool{false},
	}
	ret := &fakeRetriever{passages: func(string) []models.Passage { return passages("a") }}
	gen := &fakeGenerator{}
	ctrl := newController(t, cls, ret, gen, func(c *Config) {
		c.GroundingCheck = true
		c.MaxRetries = 2
	})

	res, err := ctrl.Run(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, models.TerminalBudgetExhausted, res.TerminalReason)
	assert.True(t, res.LowConfidence)
	assert.Equal(t, 2, res.RetryCount)
	assert.Equal(t, EventGroundingExhausted, res.Steps[len(res.Steps)-2].Outcome)
	assert.Empty(t, cls.answerQs, "ungrounded answers are never quality graded")
}

func TestRun_GroundingOffByDefault(t *testing.T) {
	cls := &fakeClassifier{
		route:    models.RouteNeedsContext,
		scope:    models.ScopeAll,
		grounded: []bool{false},
		useful:   []bool{true},
	}
	ret := &fakeRetriever{passages: func(string) []models.Passage { return passages("a") }}
	ctrl := newController(t, cls, ret, &fakeGenerator{}, nil)

	res, err := ctrl.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, models.TerminalSuccess, res.TerminalReason)
	assert.Equal(t, 0, res.RetryCount)
}

func TestRun_RetryCountNeverDecreases(t *testing.T) {
	cls := &fakeClassifier{
		route:    models.RouteNeedsContext,
		scope:    models.ScopeAll,
		grounded: []bool{false, true, true},
		useful:   []bool{false, true},
	}
	ret := &fakeRetriever{passages: func(string) []models.Passage { return passages("a") }}
	ctrl := newController(t, cls, ret, &fakeGenerator{}, func(c *Config) { c.GroundingCheck = true })

	res, err := ctrl.Run(context.Background(), "q")
	require.NoError(t, err)

	prev := 0
	for _, s := range res.Steps {
		assert.GreaterOrEqual(t, s.RetryCount, prev, "step %s", s.Name)
		assert.LessOrEqual(t, s.RetryCount, 3)
		prev = s.RetryCount
	}
	assert.Equal(t, 2, res.RetryCount)
}

func TestRun_TerminatesWithinWorstCase(t *testing.T) {
	for _, maxRetries := range []int{0, 1, 2, 3, 4} {
		t.Run(fmt.Sprintf("max_retries=%d", maxRetries), func(t *testing.T) {
			cls := &fakeClassifier{
				route:  models.RouteNeedsContext,
				scope:  models.ScopeAll,
				useful: []bool{false},
			}
			ret := &fakeRetriever{passages: func(string) []models.Passage { return passages("a") }}
			ctrl := newController(t, cls, ret, &fakeGenerator{}, func(c *Config) {
				c.MaxRetries = maxRetries
				c.MaxSteps = 1000
			})

			res, err := ctrl.Run(context.Background(), "q")
			require.NoError(t, err)
			assert.Equal(t, models.TerminalBudgetExhausted, res.TerminalReason)
			assert.Equal(t, WorstCaseSteps(maxRetries), len(res.Steps))
		})
	}
}

func TestRun_StepLimitReturnsBestEffort(t *testing.T) {
	cls := &fakeClassifier{
		route:  models.RouteNeedsContext,
		scope:  models.ScopeAll,
		useful: []bool{false},
	}
	ret := &fakeRetriever{passages: func(string) []models.Passage { return passages("a") }}
	ctrl := newController(t, cls, ret, &fakeGenerator{}, func(c *Config) { c.MaxSteps = 7 })

	res, err := ctrl.Run(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, models.TerminalStepLimit, res.TerminalReason)
	assert.True(t, res.LowConfidence)
	assert.Len(t, res.Steps, 7)
	assert.True(t, strings.HasPrefix(res.Answer, StepLimitPreamble))
	assert.Equal(t, StepLimitPreamble+"primary answer 1 to q", res.Answer)
}

func TestRun_StepLimitBeforeAnyAnswer(t *testing.T) {
	cls := &fakeClassifier{route: models.RouteNeedsContext, scope: models.ScopeAll}
	ctrl := newController(t, cls, &fakeRetriever{}, &fakeGenerator{}, func(c *Config) { c.MaxSteps = 3 })

	res, err := ctrl.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, models.TerminalStepLimit, res.TerminalReason)
	assert.Equal(t, StepLimitPreamble+noAnswerYet, res.Answer)
}

func TestRun_ErrorsCarrySentinels(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name     string
		cls      *fakeClassifier
		ret      *fakeRetriever
		gen      *fakeGenerator
		sentinel error
		step     string
	}{
		{
			name:     "route",
			cls:      &fakeClassifier{routeErr: boom},
			ret:      &fakeRetriever{},
			gen:      &fakeGenerator{},
			sentinel: ErrClassification,
			step:     StateRoute,
		},
		{
			name:     "retrieve",
			cls:      &fakeClassifier{route: models.RouteNeedsContext, scope: models.ScopeAll},
			ret:      &fakeRetriever{err: boom},
			gen:      &fakeGenerator{},
			sentinel: ErrRetrieval,
			step:     StateRetrieve,
		},
		{
			name:     "grade",
			cls:      &fakeClassifier{route: models.RouteNeedsContext, scope: models.ScopeAll, gradeErr: boom},
			ret:      &fakeRetriever{passages: func(string) []models.Passage { return passages("a", "b") }},
			gen:      &fakeGenerator{},
			sentinel: ErrClassification,
			step:     StateGrade,
		},
		{
			name:     "generate",
			cls:      &fakeClassifier{route: models.RouteNeedsContext, scope: models.ScopeAll},
			ret:      &fakeRetriever{passages: func(string) []models.Passage { return passages("a") }},
			gen:      &fakeGenerator{genErr: boom},
			sentinel: ErrGeneration,
			step:     StateGenerate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := newController(t, tt.cls, tt.ret, tt.gen, nil)
			res, err := ctrl.Run(context.Background(), "q")
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.ErrorIs(t, err, boom)
			assert.Contains(t, err.Error(), tt.step)
		})
	}
}

func TestRun_UnknownRouteIsClassificationError(t *testing.T) {
	cls := &fakeClassifier{route: models.RouteDecision("maybe")}
	ctrl := newController(t, cls, &fakeRetriever{}, &fakeGenerator{}, nil)

	_, err := ctrl.Run(context.Background(), "")
	assert.ErrorIs(t, err, ErrClassification)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ctrl := newController(t, &fakeClassifier{route: models.RouteGeneric}, &fakeRetriever{}, &fakeGenerator{}, nil)
	_, err := ctrl.Run(ctx, "q")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_RunsAreIndependent(t *testing.T) {
	cls := &fakeClassifier{route: models.RouteNeedsContext, scope: models.ScopeAll}
	ctrl := newController(t, cls, &fakeRetriever{}, &fakeGenerator{}, func(c *Config) { c.MaxRetries = 1 })

	var wg sync.WaitGroup
	results := make([]*models.Result, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := ctrl.Run(context.Background(), fmt.Sprintf("q%d", i))
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, 1, res.RetryCount)
		assert.Equal(t, fmt.Sprintf("q%d", i), res.OriginalQuestion)
		assert.False(t, seen[res.RunID], "run ids are unique")
		seen[res.RunID] = true
	}
}

func TestRun_RecorderObservesOutcomes(t *testing.T) {
	rec := &recordingRecorder{}
	cls := &fakeClassifier{route: models.RouteNeedsContext, scope: models.ScopeAll, useful: []bool{true}}
	ret := &fakeRetriever{passages: func(string) []models.Passage { return passages("a") }}
	ctrl := newController(t, cls, ret, &fakeGenerator{}, func(c *Config) { c.Recorder = rec })

	_, err := ctrl.Run(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, []string{"success:0"}, rec.runs)
	assert.Contains(t, rec.steps, "route:"+EventNeedsContext)
	assert.Contains(t, rec.labels, "passage_relevance:yes")
	assert.Contains(t, rec.labels, "answer_quality:yes")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, &fakeRetriever{}, &fakeGenerator{}, DefaultConfig())
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.MaxRetries = -1
	_, err = New(&fakeClassifier{}, &fakeRetriever{}, &fakeGenerator{}, cfg)
	assert.Error(t, err)
}

func TestWorstCaseSteps(t *testing.T) {
	assert.Equal(t, 23, WorstCaseSteps(3))
	assert.LessOrEqual(t, WorstCaseSteps(3), DefaultConfig().MaxSteps)
}

func TestDecideToGenerate(t *testing.T) {
	assert.Equal(t, EventNoneRelevant, decideToGenerate(nil))
	assert.Equal(t, EventNoneRelevant, decideToGenerate([]models.Passage{}))
	assert.Equal(t, EventRelevantFound, decideToGenerate(passages("a")))
}
