// Package provider maps worker types onto backing model providers and
// performs the hybrid-mode fallback.
package provider

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/zen-systems/boardroom/pkg/adapter"
	"github.com/zen-systems/boardroom/pkg/config"
	"github.com/zen-systems/boardroom/pkg/worker"
)

// ErrProviderUnavailable is returned when the strategy needs a provider
// that was not supplied.
var ErrProviderUnavailable = errors.New("provider unavailable")

// Strategy selects how worker types map to providers.
type Strategy string

const (
	// SinglePrimary always uses the primary provider (A).
	SinglePrimary Strategy = config.StrategyPrimary
	// SingleSecondary always uses the secondary provider (B).
	SingleSecondary Strategy = config.StrategySecondary
	// Hybrid maps known worker types to the secondary provider and falls
	// back to the primary once on failure.
	Hybrid Strategy = config.StrategyHybrid
)

// ParseStrategy accepts canonical and provider-named strategy strings.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(config.NormalizeStrategy(s)); st {
	case SinglePrimary, SingleSecondary, Hybrid:
		return st, nil
	default:
		return "", fmt.Errorf("unknown strategy %q", s)
	}
}

// Slot identifies which configured provider a selection uses.
type Slot string

const (
	SlotPrimary   Slot = "primary"
	SlotSecondary Slot = "secondary"
)

// Selection is the provider, model, temperature and token budget for one
// worker type.
type Selection struct {
	Slot        Slot    `json:"slot"`
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Models names the default and reasoning model of one provider slot.
type Models struct {
	Default   string
	Reasoning string
}

func (m Models) pick(reasoning bool) string {
	if reasoning && m.Reasoning != "" {
		return m.Reasoning
	}
	return m.Default
}

// Temperature settings.
const (
	TemperatureDeterministic = 0.0
	TemperatureAnalytic      = 1.0
	TemperatureCreative      = 1.3
)

// Token budgets.
const (
	DefaultMaxTokens        = 4000
	FinancialMaxTokens      = 8000
	ResearchMaxTokens       = 16000
	ResearchHybridMaxTokens = 32000
)

var temperatures = map[string]float64{
	worker.Financial:         TemperatureDeterministic,
	worker.Router:            TemperatureDeterministic,
	worker.Market:            TemperatureCreative,
	worker.LeadGen:           TemperatureCreative,
	worker.Operations:        TemperatureAnalytic,
	worker.ResearchSynthesis: TemperatureAnalytic,
	worker.Synthesis:         TemperatureAnalytic,
}

// hybridTable lists the worker types served by the secondary provider in
// hybrid mode. Types not listed go to the primary.
var hybridTable = map[string]Slot{
	worker.ResearchSynthesis: SlotSecondary,
	worker.Financial:         SlotSecondary,
	worker.Market:            SlotSecondary,
	worker.Operations:        SlotSecondary,
	worker.LeadGen:           SlotSecondary,
	worker.Router:            SlotSecondary,
	worker.Synthesis:         SlotSecondary,
}

// reasoningTypes use the slot's reasoning model when one is configured.
var reasoningTypes = map[string]bool{
	worker.ResearchSynthesis: true,
}

// Selector picks a provider per worker type. It is safe for concurrent use.
type Selector struct {
	strategy  Strategy
	primary   adapter.Adapter
	secondary adapter.Adapter

	primaryModels   Models
	secondaryModels Models

	selections map[string]Selection
	tracker    *UsageTracker
	logger     zerolog.Logger
}

// Option configures a Selector.
type Option func(*Selector)

// WithPrimaryModels sets the primary slot's models.
func WithPrimaryModels(m Models) Option {
	return func(s *Selector) {
		s.primaryModels = m
	}
}

// WithSecondaryModels sets the secondary slot's models.
func WithSecondaryModels(m Models) Option {
	return func(s *Selector) {
		s.secondaryModels = m
	}
}

// WithPricing enables cost estimation for recorded calls.
func WithPricing(p config.PricingConfig) Option {
	return func(s *Selector) {
		s.tracker = NewUsageTracker(p)
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Selector) {
		s.logger = l
	}
}

// New builds a Selector. primary or secondary may be nil when the strategy
// never calls it.
func New(strategy Strategy, primary, secondary adapter.Adapter, opts ...Option) (*Selector, error) {
	switch strategy {
	case SinglePrimary:
		if primary == nil {
			return nil, fmt.Errorf("%w: strategy %s needs a primary provider", ErrProviderUnavailable, strategy)
		}
	case SingleSecondary:
		if secondary == nil {
			return nil, fmt.Errorf("%w: strategy %s needs a secondary provider", ErrProviderUnavailable, strategy)
		}
	case Hybrid:
		if primary == nil || secondary == nil {
			return nil, fmt.Errorf("%w: hybrid strategy needs both providers", ErrProviderUnavailable)
		}
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}

	s := &Selector{
		strategy:  strategy,
		primary:   primary,
		secondary: secondary,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracker == nil {
		s.tracker = NewUsageTracker(nil)
	}
	if s.primaryModels.Default == "" && primary != nil {
		s.primaryModels.Default = firstModel(primary)
	}
	if s.secondaryModels.Default == "" && secondary != nil {
		s.secondaryModels.Default = firstModel(secondary)
	}

	known := append(worker.IDs(), worker.ResearchSynthesis, worker.Router, worker.Synthesis)
	s.selections = make(map[string]Selection, len(known))
	for _, wt := range known {
		s.selections[wt] = s.compute(wt)
	}
	return s, nil
}

// Strategy returns the configured strategy.
func (s *Selector) Strategy() Strategy {
	return s.strategy
}

// Select returns the selection for a worker type. The result depends only
// on the worker type and the strategy.
func (s *Selector) Select(workerType string) Selection {
	if sel, ok := s.selections[workerType]; ok {
		return sel
	}
	return s.compute(workerType)
}

// Describe returns a short human label such as "deepseek/deepseek-reasoner".
func (s *Selector) Describe(workerType string) string {
	sel := s.Select(workerType)
	return fmt.Sprintf("%s/%s", sel.Provider, sel.Model)
}

// Usage returns accumulated usage and estimated cost.
func (s *Selector) Usage() UsageSummary {
	return s.tracker.Summary()
}

func (s *Selector) compute(workerType string) Selection {
	slot := s.slotFor(workerType)
	sel := Selection{
		Slot:        slot,
		Temperature: Temperature(workerType),
		MaxTokens:   MaxTokens(workerType, s.strategy),
	}
	reasoning := reasoningTypes[workerType] && s.strategy != SinglePrimary
	switch slot {
	case SlotPrimary:
		sel.Provider = s.primary.Name()
		sel.Model = s.primaryModels.pick(false)
	default:
		sel.Provider = s.secondary.Name()
		sel.Model = s.secondaryModels.pick(reasoning)
	}
	return sel
}

func (s *Selector) slotFor(workerType string) Slot {
	switch s.strategy {
	case SinglePrimary:
		return SlotPrimary
	case SingleSecondary:
		return SlotSecondary
	}
	if slot, ok := hybridTable[workerType]; ok {
		return slot
	}
	return SlotPrimary
}

func (s *Selector) adapterFor(slot Slot) adapter.Adapter {
	if slot == SlotPrimary {
		return s.primary
	}
	return s.secondary
}

// Temperature returns the sampling temperature for a worker type.
func Temperature(workerType string) float64 {
	if t, ok := temperatures[workerType]; ok {
		return t
	}
	return TemperatureAnalytic
}

// MaxTokens returns the token budget for a worker type under a strategy.
func MaxTokens(workerType string, strategy Strategy) int {
	switch workerType {
	case worker.ResearchSynthesis:
		if strategy == Hybrid {
			return ResearchHybridMaxTokens
		}
		return ResearchMaxTokens
	case worker.Financial:
		return FinancialMaxTokens
	default:
		return DefaultMaxTokens
	}
}

func firstModel(a adapter.Adapter) string {
	if models := a.Models(); len(models) > 0 {
		return models[0]
	}
	return ""
}
