package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	"github.com/zen-systems/boardroom/pkg/adapter"
	"github.com/zen-systems/boardroom/pkg/config"
)

// NewAdapter builds the adapter for a provider kind from configuration.
func NewAdapter(ctx context.Context, kind string, cfg *config.Config) (adapter.Adapter, error) {
	pc, ok := cfg.Provider(kind)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", kind)
	}
	model := cfg.Aliases.Resolve(pc.Model)

	switch adapter.Kind(kind) {
	case adapter.KindOpenAI:
		var opts []option.RequestOption
		if pc.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(pc.BaseURL))
		}
		return adapter.NewOpenAIAdapter(pc.APIKey, model, opts...)
	case adapter.KindDeepSeek:
		opts := []adapter.DeepSeekOption{
			adapter.WithDeepSeekModels(model, cfg.Aliases.Resolve(pc.ReasoningModel)),
		}
		if pc.BaseURL != "" {
			opts = append(opts, adapter.WithDeepSeekBaseURL(pc.BaseURL))
		}
		return adapter.NewDeepSeekAdapter(pc.APIKey, opts...)
	case adapter.KindAnthropic:
		return adapter.NewAnthropicAdapter(pc.APIKey, model)
	case adapter.KindGoogle:
		return adapter.NewGoogleAdapter(ctx, pc.APIKey, model)
	case adapter.KindMock:
		return adapter.NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", kind)
	}
}

// FromConfig builds a Selector for the configured strategy, constructing
// only the adapters the strategy will call.
func FromConfig(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Selector, error) {
	strategy, err := ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	var primary, secondary adapter.Adapter
	if strategy != SingleSecondary {
		if primary, err = NewAdapter(ctx, cfg.Providers.Primary, cfg); err != nil {
			return nil, fmt.Errorf("primary provider: %w", err)
		}
	}
	if strategy != SinglePrimary {
		if secondary, err = NewAdapter(ctx, cfg.Providers.Secondary, cfg); err != nil {
			return nil, fmt.Errorf("secondary provider: %w", err)
		}
	}

	return New(strategy, primary, secondary,
		WithPrimaryModels(slotModels(cfg, cfg.Providers.Primary)),
		WithSecondaryModels(slotModels(cfg, cfg.Providers.Secondary)),
		WithPricing(mergePricing(cfg.Pricing)),
		WithLogger(logger.With().Str("component", "provider").Logger()),
	)
}

func slotModels(cfg *config.Config, kind string) Models {
	pc, _ := cfg.Provider(kind)
	return Models{
		Default:   cfg.Aliases.Resolve(pc.Model),
		Reasoning: cfg.Aliases.Resolve(pc.ReasoningModel),
	}
}

// mergePricing overlays configured prices on the defaults.
func mergePricing(p config.PricingConfig) config.PricingConfig {
	out := DefaultPricing()
	for provider, models := range p {
		if out[provider] == nil {
			out[provider] = make(map[string]config.ModelPricing)
		}
		for model, price := range models {
			out[provider][model] = price
		}
	}
	return out
}
