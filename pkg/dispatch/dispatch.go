// Package dispatch runs the routed workers concurrently and collects one
// result per worker.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/zen-systems/boardroom/pkg/cache"
	"github.com/zen-systems/boardroom/pkg/metrics"
	"github.com/zen-systems/boardroom/pkg/provider"
	"github.com/zen-systems/boardroom/pkg/router"
	"github.com/zen-systems/boardroom/pkg/tools"
	"github.com/zen-systems/boardroom/pkg/worker"
)

// Result is the outcome of one worker. Exactly one of Output and Err is
// set. A blank provider reply is recorded as an error.
type Result struct {
	WorkerID string        `json:"worker"`
	Output   string        `json:"output,omitempty"`
	Err      string        `json:"error,omitempty"`
	Cached   bool          `json:"cached,omitempty"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether the worker produced usable output.
func (r Result) OK() bool {
	return r.Err == "" && r.Output != ""
}

// Text returns the output, or the error string for failed workers.
func (r Result) Text() string {
	if r.Err != "" {
		return r.Err
	}
	return r.Output
}

// WebLookup fetches auxiliary web research.
type WebLookup interface {
	Lookup(ctx context.Context, query string) (*tools.WebFindings, error)
}

// Dispatcher fans a query out to workers.
type Dispatcher struct {
	gen            provider.Generator
	cache          *cache.Cache
	web            WebLookup
	maxConcurrency int
	logger         zerolog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithCache caches worker outputs.
func WithCache(c *cache.Cache) Option {
	return func(d *Dispatcher) {
		d.cache = c
	}
}

// WithWebResearch sets the lookup used by workers that need web data.
func WithWebResearch(w WebLookup) Option {
	return func(d *Dispatcher) {
		d.web = w
	}
}

// WithMaxConcurrency bounds how many workers run at once. Zero or less
// means unbounded.
func WithMaxConcurrency(n int) Option {
	return func(d *Dispatcher) {
		d.maxConcurrency = n
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// New builds a Dispatcher.
func New(gen provider.Generator, opts ...Option) *Dispatcher {
	d := &Dispatcher{gen: gen, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs every worker in decision and waits for all of them. The
// returned map has one entry per requested worker; failures are recorded
// in Result.Err and never abort the other workers.
func (d *Dispatcher) Dispatch(ctx context.Context, decision router.Decision, query, researchContext string) map[string]Result {
	webData := d.webResearch(ctx, decision, query)

	var (
		mu      sync.Mutex
		results = make(map[string]Result, len(decision.Workers))
	)

	var g errgroup.Group
	if d.maxConcurrency > 0 {
		g.SetLimit(d.maxConcurrency)
	}
	for _, id := range decision.Workers {
		g.Go(func() error {
			res := d.runWorker(ctx, id, query, researchContext, webData)
			mu.Lock()
			results[id] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// webResearch runs the auxiliary lookup once when a routed worker needs it.
func (d *Dispatcher) webResearch(ctx context.Context, decision router.Decision, query string) string {
	if d.web == nil {
		return ""
	}
	needed := false
	for _, id := range decision.Workers {
		if spec, ok := worker.Lookup(id); ok && spec.NeedsWebResearch {
			needed = true
			break
		}
	}
	if !needed {
		return ""
	}

	findings, err := d.web.Lookup(ctx, query)
	if err != nil {
		d.logger.Warn().Err(err).Msg("web research failed, continuing without it")
		return ""
	}
	if findings.Empty() {
		return ""
	}
	return findings.Insights
}

const errEmptyResponse = "Error: empty response"

func (d *Dispatcher) runWorker(ctx context.Context, id, query, researchContext, webData string) (res Result) {
	start := time.Now()
	res.WorkerID = id
	logger := d.logger.With().Str("worker", id).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("worker panicked")
			res.Output = ""
			res.Err = fmt.Sprintf("Error: worker panicked: %v", r)
		}
		res.Duration = time.Since(start)
		outcome := metrics.OutcomeOK
		switch {
		case res.Err != "":
			outcome = metrics.OutcomeError
		case res.Cached:
			outcome = metrics.OutcomeCached
		}
		metrics.WorkerInvocations.WithLabelValues(id, outcome).Inc()
	}()

	spec, ok := worker.Lookup(id)
	if !ok {
		res.Err = fmt.Sprintf("Error: unknown worker %q", id)
		return res
	}

	hasResearch := researchContext != ""
	if out, ok := d.cache.GetWorker(ctx, id, query, hasResearch); ok && out != "" {
		res.Output = out
		res.Cached = true
		return res
	}

	prompt := spec.BuildPrompt(worker.Task{
		WorkerID:        id,
		Query:           query,
		ResearchContext: researchContext,
		WebResearch:     webData,
	})
	out, err := d.gen.Generate(ctx, id, prompt, spec.SystemPrompt, 0, provider.WithEffort("low", "high"))
	if err != nil {
		logger.Warn().Err(err).Msg("worker failed")
		res.Err = "Error: " + err.Error()
		return res
	}
	if strings.TrimSpace(out) == "" {
		logger.Warn().Msg("worker returned an empty response")
		res.Err = errEmptyResponse
		return res
	}

	d.cache.SetWorker(ctx, id, query, hasResearch, out)
	res.Output = out
	logger.Debug().Dur("duration", time.Since(start)).Msg("worker complete")
	return res
}
