// Package orchestrator drives one query through routing, optional
// research, parallel worker dispatch and synthesis.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zen-systems/boardroom/pkg/cache"
	"github.com/zen-systems/boardroom/pkg/dispatch"
	"github.com/zen-systems/boardroom/pkg/logging"
	"github.com/zen-systems/boardroom/pkg/memory"
	"github.com/zen-systems/boardroom/pkg/metrics"
	"github.com/zen-systems/boardroom/pkg/provider"
	"github.com/zen-systems/boardroom/pkg/research"
	"github.com/zen-systems/boardroom/pkg/router"
	"github.com/zen-systems/boardroom/pkg/worker"
)

// ErrEmptyQuery is returned for blank queries.
var ErrEmptyQuery = errors.New("query is empty")

// Researcher produces the shared research context.
type Researcher interface {
	Run(ctx context.Context, query string) (research.Findings, error)
}

// Dispatcher runs the routed workers.
type Dispatcher interface {
	Dispatch(ctx context.Context, decision router.Decision, query, researchContext string) map[string]dispatch.Result
}

// Synthesizer merges worker results.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, results map[string]dispatch.Result, history string, useMemory bool) (string, error)
}

// Result is what a caller receives for one query.
type Result struct {
	RunID            string            `json:"run_id"`
	Query            string            `json:"query"`
	AgentsConsulted  []string          `json:"agents_consulted"`
	Recommendation   string            `json:"recommendation"`
	DetailedFindings map[string]string `json:"detailed_findings"`
	Routing          router.Decision   `json:"routing"`
	ResearchPapers   int               `json:"research_papers,omitempty"`
	Stages           []StageRecord     `json:"stages,omitempty"`
	Duration         time.Duration     `json:"duration"`
}

// Health describes the running orchestrator.
type Health struct {
	Status          string                 `json:"status"`
	Strategy        string                 `json:"strategy,omitempty"`
	RoutingMode     string                 `json:"routing_mode,omitempty"`
	ResearchEnabled bool                   `json:"research_enabled"`
	Providers       map[string]string      `json:"providers,omitempty"`
	Cache           cache.Stats            `json:"cache"`
	MemoryMessages  int                    `json:"memory_messages"`
	Usage           *provider.UsageSummary `json:"usage,omitempty"`
}

// Orchestrator runs the pipeline. It is safe for concurrent use; each call
// gets its own State.
type Orchestrator struct {
	router      router.Router
	research    Researcher
	dispatcher  Dispatcher
	synthesizer Synthesizer
	memory      *memory.Memory
	cache       *cache.Cache
	selector    *provider.Selector
	routingMode string
	logger      zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithResearch enables the research stage.
func WithResearch(r Researcher) Option {
	return func(o *Orchestrator) {
		o.research = r
	}
}

// WithMemory sets the conversation memory.
func WithMemory(m *memory.Memory) Option {
	return func(o *Orchestrator) {
		o.memory = m
	}
}

// WithCache exposes the cache for stats and clearing.
func WithCache(c *cache.Cache) Option {
	return func(o *Orchestrator) {
		o.cache = c
	}
}

// WithSelector exposes the provider selector for health reporting.
func WithSelector(s *provider.Selector) Option {
	return func(o *Orchestrator) {
		o.selector = s
	}
}

// WithRoutingMode records the routing mode for health reporting.
func WithRoutingMode(mode string) Option {
	return func(o *Orchestrator) {
		o.routingMode = mode
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// New builds an Orchestrator.
func New(r router.Router, d Dispatcher, s Synthesizer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		router:      r,
		dispatcher:  d,
		synthesizer: s,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.memory == nil {
		o.memory = memory.New(memory.DefaultCapacity)
	}
	if o.cache == nil {
		o.cache = cache.Disabled()
	}
	return o
}

// stages returns the pipeline for this orchestrator.
func (o *Orchestrator) stages() []Stage {
	stages := []Stage{{Name: StageRoute, Run: o.route}}
	if o.research != nil {
		stages = append(stages, Stage{Name: StageResearch, Run: o.runResearch})
	}
	return append(stages,
		Stage{Name: StageDispatch, Run: o.dispatch},
		Stage{Name: StageSynthesize, Run: o.synthesize},
	)
}

// Orchestrate answers query. Only a synthesis failure (or cancellation)
// fails the call; worker failures appear in DetailedFindings.
func (o *Orchestrator) Orchestrate(ctx context.Context, query string, useMemory bool) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	state := &State{
		RunID:     uuid.NewString(),
		Query:     query,
		UseMemory: useMemory,
		StartedAt: time.Now(),
	}
	logger := o.logger.With().Str("run_id", state.RunID).Logger()
	logger.Info().Str("query", logging.Truncate(query, 120)).Bool("use_memory", useMemory).Msg("orchestration started")

	if useMemory {
		o.memory.Add(memory.RoleUser, query)
	}
	state.History = o.memory.Messages()
	state.Transcript = o.memory.ContextString()

	for _, stage := range o.stages() {
		start := time.Now()
		err := stage.Run(ctx, state)
		elapsed := time.Since(start)
		metrics.StageDuration.WithLabelValues(stage.Name).Observe(elapsed.Seconds())

		rec := StageRecord{Name: stage.Name, Duration: elapsed}
		if err != nil {
			rec.Error = err.Error()
		}
		state.Stages = append(state.Stages, rec)

		if err != nil {
			metrics.Orchestrations.WithLabelValues(metrics.OutcomeError).Inc()
			logger.Error().Err(err).Str("stage", stage.Name).Msg("orchestration failed")
			return nil, fmt.Errorf("%s: %w", stage.Name, err)
		}
	}

	if useMemory {
		o.memory.Add(memory.RoleAssistant, state.Synthesis)
	}
	metrics.Orchestrations.WithLabelValues(metrics.OutcomeOK).Inc()

	res := &Result{
		RunID:            state.RunID,
		Query:            query,
		AgentsConsulted:  state.Decision.Workers,
		Recommendation:   state.Synthesis,
		DetailedFindings: make(map[string]string, len(state.Results)),
		Routing:          state.Decision,
		ResearchPapers:   state.Research.PaperCount,
		Stages:           state.Stages,
		Duration:         time.Since(state.StartedAt),
	}
	for id, r := range state.Results {
		res.DetailedFindings[id] = r.Text()
	}
	logger.Info().Strs("workers", res.AgentsConsulted).Dur("duration", res.Duration).Msg("orchestration complete")
	return res, nil
}

func (o *Orchestrator) route(ctx context.Context, s *State) error {
	s.Decision = o.router.Route(ctx, s.Query)
	o.logger.Debug().
		Str("run_id", s.RunID).
		Str("strategy", s.Decision.Strategy).
		Strs("workers", s.Decision.Workers).
		Msg("routed")
	return nil
}

// runResearch never fails the pipeline except on cancellation.
func (o *Orchestrator) runResearch(ctx context.Context, s *State) error {
	findings, err := o.research.Run(ctx, s.Query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		o.logger.Warn().Err(err).Str("run_id", s.RunID).Msg("research unavailable")
		s.Research = research.Findings{}
		return nil
	}
	s.Research = findings
	return nil
}

func (o *Orchestrator) dispatch(ctx context.Context, s *State) error {
	s.Results = o.dispatcher.Dispatch(ctx, s.Decision, s.Query, s.Research.Context)
	return nil
}

func (o *Orchestrator) synthesize(ctx context.Context, s *State) error {
	text, err := o.synthesizer.Synthesize(ctx, s.Query, s.Results, s.Transcript, s.UseMemory)
	if err != nil {
		return err
	}
	s.Synthesis = text
	return nil
}

// History returns the conversation transcript.
func (o *Orchestrator) History() []memory.Message {
	return o.memory.Messages()
}

// ClearMemory drops the conversation transcript.
func (o *Orchestrator) ClearMemory() {
	o.memory.Clear()
}

// CacheStats returns the cache counters.
func (o *Orchestrator) CacheStats() cache.Stats {
	return o.cache.Stats()
}

// ClearCache empties the cache and resets its counters.
func (o *Orchestrator) ClearCache(ctx context.Context) error {
	return o.cache.Clear(ctx)
}

// Health reports configuration and counters.
func (o *Orchestrator) Health() Health {
	h := Health{
		Status:          "healthy",
		RoutingMode:     o.routingMode,
		ResearchEnabled: o.research != nil,
		Cache:           o.cache.Stats(),
		MemoryMessages:  o.memory.Len(),
	}
	if o.selector != nil {
		h.Strategy = string(o.selector.Strategy())
		h.Providers = make(map[string]string)
		for _, wt := range append(worker.IDs(), worker.Router, worker.ResearchSynthesis, worker.Synthesis) {
			h.Providers[wt] = o.selector.Describe(wt)
		}
		usage := o.selector.Usage()
		h.Usage = &usage
	}
	return h
}

// Close releases the cache backend.
func (o *Orchestrator) Close() error {
	return o.cache.Close()
}
