// Package synthesis merges worker outputs into the final recommendation.
package synthesis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zen-systems/boardroom/pkg/cache"
	"github.com/zen-systems/boardroom/pkg/dispatch"
	"github.com/zen-systems/boardroom/pkg/provider"
	"github.com/zen-systems/boardroom/pkg/worker"
)

// Aggregator issues the single synthesis call for a query.
type Aggregator struct {
	gen    provider.Generator
	cache  *cache.Cache
	logger zerolog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithCache caches syntheses by query and contributing workers.
func WithCache(c *cache.Cache) Option {
	return func(a *Aggregator) {
		a.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = l
	}
}

// New builds an Aggregator.
func New(gen provider.Generator, opts ...Option) *Aggregator {
	a := &Aggregator{gen: gen, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Synthesize merges the successful results. history is the rendered
// conversation transcript and is included only when useMemory is set.
// Provider errors are returned to the caller.
func (a *Aggregator) Synthesize(ctx context.Context, query string, results map[string]dispatch.Result, history string, useMemory bool) (string, error) {
	contributors := Contributors(results)

	if text, ok := a.cache.GetSynthesis(ctx, query, contributors); ok {
		a.logger.Debug().Strs("workers", contributors).Msg("using cached synthesis")
		return text, nil
	}

	transcript := ""
	if useMemory {
		transcript = history
	}
	prompt := BuildPrompt(query, results, transcript)

	text, err := a.gen.Generate(ctx, worker.Synthesis, prompt, "", 0, provider.WithEffort("low", "high"))
	if err != nil {
		return "", fmt.Errorf("synthesis: %w", err)
	}

	a.cache.SetSynthesis(ctx, query, contributors, text)
	return text, nil
}

// Contributors returns the ids of results that will appear in the prompt,
// in canonical worker order.
func Contributors(results map[string]dispatch.Result) []string {
	ids := make([]string, 0, len(results))
	for id, res := range results {
		if res.OK() && worker.Known(id) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return worker.Rank(ids[i]) < worker.Rank(ids[j])
	})
	return ids
}

// BuildPrompt renders the synthesis prompt. Failed and empty results are
// left out.
func BuildPrompt(query string, results map[string]dispatch.Result, transcript string) string {
	var findings []string
	for _, id := range Contributors(results) {
		spec, _ := worker.Lookup(id)
		findings = append(findings, spec.Label+":\n"+results[id].Output)
	}

	history := ""
	if transcript != "" {
		history = "\n\nConversation History:\n" + transcript + "\n\n"
	}

	var sb strings.Builder
	sb.WriteString("As the Business Intelligence Orchestrator, synthesize the following findings from specialized agents into a comprehensive, actionable recommendation.\n\n")
	sb.WriteString("Original Query: " + query + "\n")
	sb.WriteString(history)
	sb.WriteString("\nAgent Findings:\n\n")
	sb.WriteString(strings.Join(findings, "\n"))
	sb.WriteString(`

Your task:
1. Identify key themes and insights across all agent analyses
2. Highlight any conflicts or trade-offs between recommendations
3. Provide a clear, prioritized action plan
4. Offer a holistic strategic recommendation

Provide an executive summary followed by detailed recommendations.`)
	return sb.String()
}
