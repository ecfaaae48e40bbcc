package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ModelAliases maps short model names onto canonical provider models.
type ModelAliases struct {
	Aliases   map[string]string   `yaml:"aliases"`
	Providers map[string][]string `yaml:"providers"`
}

// LoadAliases reads model aliases from a YAML file.
func LoadAliases(path string) (*ModelAliases, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var aliases ModelAliases
	if err := yaml.Unmarshal(data, &aliases); err != nil {
		return nil, err
	}

	if aliases.Aliases == nil {
		aliases.Aliases = make(map[string]string)
	}
	if aliases.Providers == nil {
		aliases.Providers = make(map[string][]string)
	}

	return &aliases, nil
}

// LoadAliasesWithFallback loads models.yaml from configDir, falling back to
// the built-in aliases when the file does not exist.
func LoadAliasesWithFallback(configDir string) (*ModelAliases, error) {
	if configDir != "" {
		path := filepath.Join(configDir, "models.yaml")
		if _, err := os.Stat(path); err == nil {
			return LoadAliases(path)
		}
	}
	return DefaultAliases(), nil
}

// Resolve returns the canonical model name for an alias.
// If the input is not an alias, it returns the input unchanged.
func (a *ModelAliases) Resolve(modelOrAlias string) string {
	if a == nil || a.Aliases == nil {
		return modelOrAlias
	}
	if canonical, ok := a.Aliases[modelOrAlias]; ok {
		return canonical
	}
	return modelOrAlias
}

// IsAlias returns true if the given string is a known alias.
func (a *ModelAliases) IsAlias(name string) bool {
	if a == nil || a.Aliases == nil {
		return false
	}
	_, ok := a.Aliases[name]
	return ok
}

// ValidateModel checks that model (after alias resolution) is listed for
// provider. Providers with no model list accept anything.
func (a *ModelAliases) ValidateModel(provider, model string) error {
	if a == nil || a.Providers == nil {
		return nil
	}
	models, ok := a.Providers[provider]
	if !ok {
		return nil
	}
	model = a.Resolve(model)
	for _, m := range models {
		if m == model {
			return nil
		}
	}
	return fmt.Errorf("model %q not in %s provider list", model, provider)
}

// ProviderForModel returns the provider that lists a canonical model.
func (a *ModelAliases) ProviderForModel(model string) string {
	if a == nil || a.Providers == nil {
		return ""
	}
	for _, provider := range a.ListProviders() {
		for _, m := range a.Providers[provider] {
			if m == model {
				return provider
			}
		}
	}
	return ""
}

// ListAliases returns alias names in sorted order.
func (a *ModelAliases) ListAliases() []string {
	if a == nil {
		return nil
	}
	names := make([]string, 0, len(a.Aliases))
	for k := range a.Aliases {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ListProviders returns a sorted list of provider names.
func (a *ModelAliases) ListProviders() []string {
	if a == nil || a.Providers == nil {
		return nil
	}
	providers := make([]string, 0, len(a.Providers))
	for p := range a.Providers {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	return providers
}

// ValidateProviders checks the configured model of every provider the
// strategy will call.
func (a *ModelAliases) ValidateProviders(cfg *Config) []error {
	if a == nil || cfg == nil {
		return nil
	}
	var errs []error
	for _, name := range cfg.RequiredProviders() {
		p, ok := cfg.Provider(name)
		if !ok {
			continue
		}
		if p.Model != "" {
			if err := a.ValidateModel(name, p.Model); err != nil {
				errs = append(errs, err)
			}
		}
		if p.ReasoningModel != "" {
			if err := a.ValidateModel(name, p.ReasoningModel); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

// DefaultAliases returns the built-in aliases.
func DefaultAliases() *ModelAliases {
	return &ModelAliases{
		Aliases: map[string]string{
			"fast":      "gpt-5-nano",
			"thinking":  "gpt-5",
			"quality":   "claude-sonnet-4-20250514",
			"deep":      "claude-opus-4-20250514",
			"research":  "gemini-2.5-pro",
			"flash":     "gemini-2.5-flash",
			"cheap":     "deepseek-chat",
			"reason":    "deepseek-reasoner",
			"reasoning": "deepseek-reasoner",
		},
		Providers: map[string][]string{
			"openai":    {"gpt-5", "gpt-5-mini", "gpt-5-nano"},
			"anthropic": {"claude-sonnet-4-20250514", "claude-opus-4-20250514"},
			"google":    {"gemini-2.5-pro", "gemini-2.5-flash"},
			"deepseek":  {"deepseek-chat", "deepseek-reasoner"},
			"mock":      {"mock-1"},
		},
	}
}
