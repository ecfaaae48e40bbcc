package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/zen-systems/boardroom/pkg/config"
)

// RulesRouter selects every worker with at least one keyword contained in
// the query. Matching is case-insensitive substring search.
type RulesRouter struct {
	rules []workerRule
}

type workerRule struct {
	worker   string
	keywords []string
}

// NewRulesRouter compiles cfg. A nil cfg uses the built-in table.
func NewRulesRouter(cfg *config.RoutingConfig) *RulesRouter {
	if cfg == nil {
		cfg = config.DefaultRoutingConfig()
	}
	r := &RulesRouter{}
	for _, name := range cfg.WorkerOrder() {
		r.rules = append(r.rules, workerRule{worker: name, keywords: cfg.Workers[name].Keywords})
	}
	return r
}

// Route matches query against the keyword table.
func (r *RulesRouter) Route(_ context.Context, query string) Decision {
	workers, reasons := r.Match(query)
	return finish(Decision{
		Workers:  workers,
		Strategy: StrategyRules,
		Reasons:  reasons,
	})
}

// Match returns the matched workers in table order and the first keyword
// that selected each.
func (r *RulesRouter) Match(query string) ([]string, []string) {
	q := strings.ToLower(query)
	var workers, reasons []string
	for _, rule := range r.rules {
		for _, kw := range rule.keywords {
			if strings.Contains(q, kw) {
				workers = append(workers, rule.worker)
				reasons = append(reasons, fmt.Sprintf("keyword %q selected %s", kw, rule.worker))
				break
			}
		}
	}
	return workers, reasons
}

// Rule is one row of the keyword table.
type Rule struct {
	Worker   string   `json:"worker"`
	Keywords []string `json:"keywords"`
}

// Rules returns the compiled table in match order.
func (r *RulesRouter) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	for i, rule := range r.rules {
		out[i] = Rule{Worker: rule.worker, Keywords: append([]string(nil), rule.keywords...)}
	}
	return out
}
