package router

import (
	"github.com/zen-systems/boardroom/pkg/metrics"
	"github.com/zen-systems/boardroom/pkg/worker"
)

// Routing strategies reported on a Decision.
const (
	StrategyRules      = "rules"
	StrategySemantic   = "semantic"
	StrategyClassifier = "classifier"
)

// Decision captures which workers a query is sent to and why.
type Decision struct {
	Workers    []string           `json:"workers"`
	Confidence map[string]float64 `json:"confidence,omitempty"`
	Strategy   string             `json:"strategy"`
	Reasons    []string           `json:"reasons,omitempty"`
	// Fallback is set when no usable selection was produced and every
	// worker was chosen.
	Fallback bool `json:"fallback,omitempty"`
}

// Includes reports whether the decision routes to id.
func (d Decision) Includes(id string) bool {
	for _, w := range d.Workers {
		if w == id {
			return true
		}
	}
	return false
}

// normalize drops duplicates and empty ids while preserving order. An empty
// selection becomes every worker.
func normalize(workers []string) ([]string, bool) {
	seen := make(map[string]bool, len(workers))
	out := make([]string, 0, len(workers))
	for _, w := range workers {
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	if len(out) == 0 {
		return worker.IDs(), true
	}
	return out, false
}

// finish normalizes a decision and records it.
func finish(d Decision) Decision {
	var fallback bool
	d.Workers, fallback = normalize(d.Workers)
	if fallback {
		d.Fallback = true
		d.Reasons = append(d.Reasons, "no workers selected; consulting all workers")
	}
	for _, w := range d.Workers {
		metrics.RoutingDecisions.WithLabelValues(d.Strategy, w).Inc()
	}
	return d
}
