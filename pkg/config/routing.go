package config

import (
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// RoutingConfig holds the keyword table used by rule-based routing.
type RoutingConfig struct {
	Workers map[string]WorkerRoute `yaml:"workers"`
	// Order fixes the order in which matched workers are reported.
	Order []string `yaml:"order,omitempty"`
}

// WorkerRoute lists the keywords that select one worker.
type WorkerRoute struct {
	Keywords []string `yaml:"keywords"`
}

// LoadRoutingConfig reads routing configuration from a YAML file.
func LoadRoutingConfig(path string) (*RoutingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg RoutingConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyRoutingDefaults(&cfg)
	return &cfg, nil
}

// DefaultRoutingConfig returns the built-in keyword table.
func DefaultRoutingConfig() *RoutingConfig {
	cfg := &RoutingConfig{
		Workers: map[string]WorkerRoute{
			"market": {
				Keywords: []string{"market", "competition", "competitor", "industry", "trend", "customer segment", "target audience"},
			},
			"operations": {
				Keywords: []string{"process", "efficiency", "workflow", "operation", "optimize", "automate", "scale", "bottleneck"},
			},
			"financial": {
				Keywords: []string{"financial", "revenue", "cost", "profit", "roi", "budget", "pricing", "investment", "money"},
			},
			"leadgen": {
				Keywords: []string{"lead", "customer acquisition", "growth", "sales", "marketing", "funnel", "conversion", "acquire"},
			},
		},
		Order: []string{"market", "operations", "financial", "leadgen"},
	}

	applyRoutingDefaults(cfg)
	return cfg
}

// WorkerOrder returns the configured order followed by any remaining
// workers in name order.
func (c *RoutingConfig) WorkerOrder() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]bool, len(c.Workers))
	out := make([]string, 0, len(c.Workers))
	for _, name := range c.Order {
		if _, ok := c.Workers[name]; ok && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	var rest []string
	for name := range c.Workers {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func applyRoutingDefaults(cfg *RoutingConfig) {
	if cfg == nil {
		return
	}
	if len(cfg.Workers) == 0 {
		cfg.Workers = DefaultRoutingConfig().Workers
		if len(cfg.Order) == 0 {
			cfg.Order = []string{"market", "operations", "financial", "leadgen"}
		}
		return
	}
	for name, route := range cfg.Workers {
		var keywords []string
		for _, kw := range route.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				keywords = append(keywords, kw)
			}
		}
		cfg.Workers[name] = WorkerRoute{Keywords: keywords}
	}
}
