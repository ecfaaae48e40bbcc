package provider

import (
	"sync"

	"github.com/zen-systems/boardroom/pkg/adapter"
	"github.com/zen-systems/boardroom/pkg/config"
)

// Cost is an estimated call cost.
type Cost struct {
	Currency   string  `json:"currency"`
	Amount     float64 `json:"amount"`
	IsEstimate bool    `json:"is_estimate"`
}

// UsageSummary aggregates recorded calls.
type UsageSummary struct {
	Calls       int           `json:"calls"`
	Failures    int           `json:"failures"`
	Fallbacks   int           `json:"fallbacks"`
	TotalUsage  adapter.Usage `json:"total_usage"`
	TotalAmount float64       `json:"total_amount"`
	Currency    string        `json:"currency"`
}

// UsageTracker accumulates call reports. It is safe for concurrent use.
type UsageTracker struct {
	pricing config.PricingConfig

	mu      sync.Mutex
	summary UsageSummary
	last    []CallReport
}

const maxRecentCalls = 100

// NewUsageTracker creates a tracker. nil pricing uses DefaultPricing.
func NewUsageTracker(pricing config.PricingConfig) *UsageTracker {
	if pricing == nil {
		pricing = DefaultPricing()
	}
	return &UsageTracker{
		pricing: pricing,
		summary: UsageSummary{Currency: "USD"},
	}
}

// Record adds a report, filling in its estimated cost.
func (t *UsageTracker) Record(r CallReport) {
	if t == nil {
		return
	}
	if r.Error == "" {
		r.Cost, _ = EstimateCost(t.pricing, r.Provider, r.Model, r.Usage)
	} else {
		r.Cost = Cost{Currency: "USD"}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.summary.Calls++
	if r.FallbackUsed {
		t.summary.Fallbacks++
	}
	if r.Error != "" {
		t.summary.Failures++
	} else {
		t.summary.TotalUsage = addUsage(t.summary.TotalUsage, r.Usage)
		t.summary.TotalAmount += r.Cost.Amount
	}
	t.last = append(t.last, r)
	if len(t.last) > maxRecentCalls {
		t.last = t.last[len(t.last)-maxRecentCalls:]
	}
}

// Summary returns the aggregate so far.
func (t *UsageTracker) Summary() UsageSummary {
	if t == nil {
		return UsageSummary{Currency: "USD"}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.summary
}

// Recent returns up to the last 100 call reports, oldest first.
func (t *UsageTracker) Recent() []CallReport {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]CallReport, len(t.last))
	copy(out, t.last)
	return out
}

// DefaultPricing holds list prices per 1k tokens.
func DefaultPricing() config.PricingConfig {
	return config.PricingConfig{
		"openai": {
			"default": {PromptPer1K: 0.000015, CompletionPer1K: 0.00006},
		},
		"deepseek": {
			"default": {PromptPer1K: 0.00028, CompletionPer1K: 0.00042},
		},
	}
}

// EstimateCost prices usage for a provider/model pair. The second result is
// false when no pricing entry applies.
func EstimateCost(pricing config.PricingConfig, provider, model string, usage adapter.Usage) (Cost, bool) {
	entry, ok := pricingFor(pricing, provider, model)
	if !ok {
		return Cost{Currency: "USD"}, false
	}

	promptCost := (float64(usage.PromptTokens) / 1000.0) * entry.PromptPer1K
	completionCost := (float64(usage.CompletionTokens) / 1000.0) * entry.CompletionPer1K
	return Cost{
		Currency:   "USD",
		Amount:     promptCost + completionCost,
		IsEstimate: true,
	}, true
}

// EstimateCost prices a hypothetical call for workerType.
func (s *Selector) EstimateCost(workerType string, promptTokens, completionTokens int) Cost {
	sel := s.Select(workerType)
	cost, _ := EstimateCost(s.tracker.pricing, sel.Provider, sel.Model, adapter.Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
	})
	return cost
}

func pricingFor(pricing config.PricingConfig, provider, model string) (config.ModelPricing, bool) {
	if pricing == nil {
		return config.ModelPricing{}, false
	}
	if providerPricing, ok := pricing[provider]; ok {
		if entry, ok := providerPricing[model]; ok {
			return entry, true
		}
		if entry, ok := providerPricing["default"]; ok {
			return entry, true
		}
	}
	return config.ModelPricing{}, false
}

func normalizeUsage(u *adapter.Usage) adapter.Usage {
	if u == nil {
		return adapter.Usage{}
	}
	usage := *u
	if usage.TotalTokens == 0 && (usage.PromptTokens > 0 || usage.CompletionTokens > 0) {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	return usage
}

func addUsage(a, b adapter.Usage) adapter.Usage {
	return adapter.Usage{
		PromptTokens:     a.PromptTokens + b.PromptTokens,
		CompletionTokens: a.CompletionTokens + b.CompletionTokens,
		TotalTokens:      a.TotalTokens + b.TotalTokens,
	}
}
