package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zen-systems/boardroom/pkg/adapter"
	"github.com/zen-systems/boardroom/pkg/cache"
	"github.com/zen-systems/boardroom/pkg/dispatch"
	"github.com/zen-systems/boardroom/pkg/memory"
	"github.com/zen-systems/boardroom/pkg/provider"
	"github.com/zen-systems/boardroom/pkg/research"
	"github.com/zen-systems/boardroom/pkg/router"
	"github.com/zen-systems/boardroom/pkg/synthesis"
	"github.com/zen-systems/boardroom/pkg/worker"
)

// scriptedGenerator answers per worker type and records prompts.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	prompts map[string]string
}

func newScriptedGenerator() *scriptedGenerator {
	return &scriptedGenerator{
		replies: map[string]string{},
		errs:    map[string]error{},
		prompts: map[string]string{},
	}
}

func (g *scriptedGenerator) Generate(_ context.Context, workerType, prompt, _ string, _ int, _ ...provider.CallOption) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts[workerType] = prompt
	if err := g.errs[workerType]; err != nil {
		return "", err
	}
	if r, ok := g.replies[workerType]; ok {
		return r, nil
	}
	return workerType + " says hi", nil
}

func (g *scriptedGenerator) prompt(workerType string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prompts[workerType]
}

func newTestOrchestrator(gen provider.Generator, opts ...Option) *Orchestrator {
	return New(router.NewRulesRouter(nil), dispatch.New(gen), synthesis.New(gen), opts...)
}

func TestOrchestrateEmptyQuery(t *testing.T) {
	o := newTestOrchestrator(newScriptedGenerator())
	_, err := o.Orchestrate(context.Background(), "   ", true)
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Zero(t, o.memory.Len())
}

func TestOrchestrateRoutesToFinancial(t *testing.T) {
	gen := newScriptedGenerator()
	gen.replies[worker.Synthesis] = "Invest."
	o := newTestOrchestrator(gen)

	res, err := o.Orchestrate(context.Background(), "What's the ROI of this project?", true)
	require.NoError(t, err)

	assert.Equal(t, []string{worker.Financial}, res.AgentsConsulted)
	assert.Equal(t, "Invest.", res.Recommendation)
	assert.Equal(t, map[string]string{worker.Financial: "financial says hi"}, res.DetailedFindings)
	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err)

	var names []string
	for _, st := range res.Stages {
		names = append(names, st.Name)
	}
	assert.Equal(t, []string{StageRoute, StageDispatch, StageSynthesize}, names)
}

func TestOrchestrateWorkerFailureStaysInFindings(t *testing.T) {
	gen := newScriptedGenerator()
	gen.replies[worker.Market] = "ok"
	gen.errs[worker.Financial] = errors.New("timeout")
	o := newTestOrchestrator(gen)

	res, err := o.Orchestrate(context.Background(), "market pricing review", false)
	require.NoError(t, err)

	assert.Equal(t, []string{worker.Market, worker.Financial}, res.AgentsConsulted)
	assert.Equal(t, "ok", res.DetailedFindings[worker.Market])
	assert.Equal(t, "Error: timeout", res.DetailedFindings[worker.Financial])

	prompt := gen.prompt(worker.Synthesis)
	assert.Contains(t, prompt, "MARKET ANALYSIS:\nok")
	assert.NotContains(t, prompt, "timeout")
}

func TestOrchestrateSynthesisFailurePropagates(t *testing.T) {
	gen := newScriptedGenerator()
	gen.errs[worker.Synthesis] = errors.New("provider down")
	o := newTestOrchestrator(gen)

	_, err := o.Orchestrate(context.Background(), "What's the ROI?", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider down")

	history := o.History()
	require.Len(t, history, 1)
	assert.Equal(t, memory.RoleUser, history[0].Role)
}

func TestOrchestrateMemory(t *testing.T) {
	gen := newScriptedGenerator()
	gen.replies[worker.Synthesis] = "Answer one."
	o := newTestOrchestrator(gen, WithMemory(memory.New(10)))

	_, err := o.Orchestrate(context.Background(), "What's the ROI?", true)
	require.NoError(t, err)
	require.Len(t, o.History(), 2)

	_, err = o.Orchestrate(context.Background(), "And the budget?", true)
	require.NoError(t, err)
	prompt := gen.prompt(worker.Synthesis)
	assert.Contains(t, prompt, "Conversation History:\nUSER: What's the ROI?\n\nASSISTANT: Answer one.\n\nUSER: And the budget?")

	_, err = o.Orchestrate(context.Background(), "Unrelated", false)
	require.NoError(t, err)
	assert.Len(t, o.History(), 4)
	assert.NotContains(t, gen.prompt(worker.Synthesis), "Conversation History")

	o.ClearMemory()
	assert.Empty(t, o.History())
}

type stubResearch struct {
	findings research.Findings
	err      error
}

func (s stubResearch) Run(context.Context, string) (research.Findings, error) {
	return s.findings, s.err
}

type recordingDispatcher struct {
	researchContext string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, decision router.Decision, _ string, researchContext string) map[string]dispatch.Result {
	d.researchContext = researchContext
	out := make(map[string]dispatch.Result, len(decision.Workers))
	for _, w := range decision.Workers {
		out[w] = dispatch.Result{WorkerID: w, Output: "done"}
	}
	return out
}

func TestOrchestrateResearchContextIsShared(t *testing.T) {
	gen := newScriptedGenerator()
	d := &recordingDispatcher{}
	o := New(router.NewRulesRouter(nil), d, synthesis.New(gen),
		WithResearch(stubResearch{findings: research.Findings{Context: "## Research-Backed Insights", PaperCount: 2}}))

	res, err := o.Orchestrate(context.Background(), "Hello", false)
	require.NoError(t, err)
	assert.Equal(t, "## Research-Backed Insights", d.researchContext)
	assert.Equal(t, 2, res.ResearchPapers)
	assert.Len(t, res.AgentsConsulted, 4)
}

func TestOrchestrateResearchFailureContinues(t *testing.T) {
	gen := newScriptedGenerator()
	d := &recordingDispatcher{}
	o := New(router.NewRulesRouter(nil), d, synthesis.New(gen),
		WithResearch(stubResearch{err: errors.New("arxiv down")}))

	res, err := o.Orchestrate(context.Background(), "What's the ROI?", false)
	require.NoError(t, err)
	assert.Empty(t, d.researchContext)
	assert.NotEmpty(t, res.Recommendation)
}

func TestHealthAndCache(t *testing.T) {
	mock := adapter.NewMockAdapter(adapter.WithMockDefault("reply"))
	sel, err := provider.New(provider.SinglePrimary, mock, nil)
	require.NoError(t, err)

	c := cache.New(cache.NewMemoryBackend())
	o := New(router.NewRulesRouter(nil), dispatch.New(sel, dispatch.WithCache(c)), synthesis.New(sel, synthesis.WithCache(c)),
		WithCache(c), WithSelector(sel), WithRoutingMode("rules"))

	_, err = o.Orchestrate(context.Background(), "What's the ROI?", true)
	require.NoError(t, err)
	_, err = o.Orchestrate(context.Background(), "What's the ROI?", true)
	require.NoError(t, err)

	stats := o.CacheStats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, 2, mock.Calls())

	h := o.Health()
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, "rules", h.RoutingMode)
	assert.Equal(t, string(provider.SinglePrimary), h.Strategy)
	assert.True(t, strings.HasPrefix(h.Providers[worker.Market], "mock/"))
	assert.Equal(t, 4, h.MemoryMessages)

	require.NoError(t, o.ClearCache(context.Background()))
	assert.Zero(t, o.CacheStats().TotalRequests)
}

func TestOrchestrateConcurrentCalls(t *testing.T) {
	o := newTestOrchestrator(newScriptedGenerator())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := o.Orchestrate(context.Background(), "optimize our workflow", true)
			assert.NoError(t, err)
			assert.Equal(t, []string{worker.Operations}, res.AgentsConsulted)
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, len(o.History()))
}
