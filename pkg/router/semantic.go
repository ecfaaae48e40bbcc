package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zen-systems/boardroom/pkg/cache"
	"github.com/zen-systems/boardroom/pkg/logging"
	"github.com/zen-systems/boardroom/pkg/provider"
	"github.com/zen-systems/boardroom/pkg/worker"
)

// SemanticRouter asks a model which workers to consult.
type SemanticRouter struct {
	gen    provider.Generator
	cache  *cache.Cache
	logger zerolog.Logger
}

// NewSemanticRouter builds a SemanticRouter. c may be nil.
func NewSemanticRouter(gen provider.Generator, c *cache.Cache, logger zerolog.Logger) *SemanticRouter {
	return &SemanticRouter{gen: gen, cache: c, logger: logger}
}

// Route makes one low-effort provider call. Provider errors, unparseable
// replies, and replies naming no known worker all select every worker.
func (r *SemanticRouter) Route(ctx context.Context, query string) Decision {
	if cached, ok := r.cache.GetRouting(ctx, query); ok {
		return finish(Decision{
			Workers:  cached,
			Strategy: StrategySemantic,
			Reasons:  []string{"cached routing decision"},
		})
	}

	reply, err := r.gen.Generate(ctx, worker.Router, buildRoutingPrompt(query), "", 0,
		provider.WithEffort("low", "low"))
	if err != nil {
		r.logger.Warn().Err(err).Msg("routing call failed, using all workers")
		return finish(Decision{
			Strategy: StrategySemantic,
			Reasons:  []string{fmt.Sprintf("routing error: %v", err)},
		})
	}

	picked, err := parseWorkerList(reply)
	if err != nil {
		r.logger.Warn().Err(err).Str("reply", logging.Truncate(reply, 200)).Msg("routing reply unparseable, using all workers")
		return finish(Decision{
			Strategy: StrategySemantic,
			Reasons:  []string{fmt.Sprintf("routing reply invalid: %v", err)},
		})
	}

	var reasons []string
	workers := make([]string, 0, len(picked))
	for _, id := range picked {
		id = strings.ToLower(strings.TrimSpace(id))
		if !worker.Known(id) {
			reasons = append(reasons, fmt.Sprintf("dropped unknown worker %q", id))
			continue
		}
		workers = append(workers, id)
	}

	d := finish(Decision{Workers: workers, Strategy: StrategySemantic, Reasons: reasons})
	if !d.Fallback {
		r.cache.SetRouting(ctx, query, d.Workers)
	}
	return d
}

func buildRoutingPrompt(query string) string {
	var sb strings.Builder
	sb.WriteString("Analyze the following business query and determine which specialized agents should be consulted.\n\n")
	sb.WriteString("Available agents:\n")
	for _, s := range worker.All() {
		fmt.Fprintf(&sb, "- %s: %s\n", s.ID, s.Description)
	}
	sb.WriteString("\nQuery: ")
	sb.WriteString(query)
	sb.WriteString("\n\nRespond with a JSON array of agent names that should be consulted. ")
	sb.WriteString("For comprehensive business decisions, include multiple relevant agents.\n")
	sb.WriteString(`Example: ["market", "financial", "leadgen"]`)
	sb.WriteString("\n\nOnly output the JSON array, nothing else.")
	return sb.String()
}

// parseWorkerList decodes a JSON array of strings, tolerating markdown
// code fences around it.
func parseWorkerList(reply string) ([]string, error) {
	content := strings.TrimSpace(reply)
	content = strings.ReplaceAll(content, "```json", "")
	content = strings.ReplaceAll(content, "```", "")
	content = strings.TrimSpace(content)

	var workers []string
	if err := json.Unmarshal([]byte(content), &workers); err != nil {
		return nil, err
	}
	return workers, nil
}
