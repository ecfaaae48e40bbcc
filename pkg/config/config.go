// Package config loads boardroom settings from ~/.boardroom/config.yaml and
// the environment. Environment variables take precedence over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Strategy names accepted by the strategy setting.
const (
	StrategyPrimary   = "primary"
	StrategySecondary = "secondary"
	StrategyHybrid    = "hybrid"
)

// Routing modes accepted by the routing_mode setting.
const (
	RoutingRules      = "rules"
	RoutingSemantic   = "semantic"
	RoutingClassifier = "classifier"
)

// Config holds the application configuration.
type Config struct {
	Strategy    string `mapstructure:"strategy"`
	RoutingMode string `mapstructure:"routing_mode"`
	ClientID    string `mapstructure:"client_id"`

	Providers  ProvidersConfig  `mapstructure:"providers"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Memory     MemoryConfig     `mapstructure:"memory"`
	Research   ResearchConfig   `mapstructure:"research"`
	Tools      ToolsConfig      `mapstructure:"tools"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Dispatch   DispatchConfig   `mapstructure:"dispatch"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Pricing    PricingConfig    `mapstructure:"pricing"`

	RoutingFile string `mapstructure:"routing_file"`
	AliasesFile string `mapstructure:"aliases_file"`

	Routing   *RoutingConfig `mapstructure:"-"`
	Aliases   *ModelAliases  `mapstructure:"-"`
	ConfigDir string         `mapstructure:"-"`
}

// ProvidersConfig names which provider kinds back the primary (A) and
// secondary (B) slots, plus per-kind credentials.
type ProvidersConfig struct {
	Primary   string         `mapstructure:"primary"`
	Secondary string         `mapstructure:"secondary"`
	OpenAI    ProviderConfig `mapstructure:"openai"`
	DeepSeek  ProviderConfig `mapstructure:"deepseek"`
	Anthropic ProviderConfig `mapstructure:"anthropic"`
	Google    ProviderConfig `mapstructure:"google"`
}

// ProviderConfig holds one provider's credentials and model names.
type ProviderConfig struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	ReasoningModel string `mapstructure:"reasoning_model"`
	BaseURL        string `mapstructure:"base_url"`
}

// CacheConfig controls the response cache. Namespace prefixes every key
// in the networked backend; per-client separation comes from ClientID.
type CacheConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	RedisURL  string `mapstructure:"redis_url"`
	Dir       string `mapstructure:"dir"`
	Namespace string `mapstructure:"namespace"`
}

// MemoryConfig controls conversation memory.
type MemoryConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// ResearchConfig controls the academic research stage.
type ResearchConfig struct {
	Enabled                bool   `mapstructure:"enabled"`
	TopK                   int    `mapstructure:"top_k"`
	SemanticScholarAPIKey  string `mapstructure:"semantic_scholar_api_key"`
	SemanticScholarBaseURL string `mapstructure:"semantic_scholar_base_url"`
	ArxivBaseURL           string `mapstructure:"arxiv_base_url"`
}

// ToolsConfig holds auxiliary tool credentials.
type ToolsConfig struct {
	TavilyAPIKey string `mapstructure:"tavily_api_key"`
}

// ClassifierConfig locates the trained routing classifier artifact.
type ClassifierConfig struct {
	Path string `mapstructure:"path"`
}

// DispatchConfig bounds worker fan-out. Zero means unbounded.
type DispatchConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// PricingConfig maps provider -> model -> pricing.
type PricingConfig map[string]map[string]ModelPricing

// ModelPricing defines per-1k token pricing.
type ModelPricing struct {
	PromptPer1K     float64 `mapstructure:"prompt_per_1k" yaml:"prompt_per_1k"`
	CompletionPer1K float64 `mapstructure:"completion_per_1k" yaml:"completion_per_1k"`
}

var envBindings = map[string][]string{
	"strategy":                           {"BOARDROOM_STRATEGY", "LLM_STRATEGY"},
	"routing_mode":                       {"BOARDROOM_ROUTING_MODE"},
	"client_id":                          {"BOARDROOM_CLIENT_ID", "CLIENT_ID"},
	"providers.primary":                  {"BOARDROOM_PRIMARY_PROVIDER"},
	"providers.secondary":                {"BOARDROOM_SECONDARY_PROVIDER"},
	"providers.openai.api_key":           {"OPENAI_API_KEY"},
	"providers.openai.model":             {"OPENAI_MODEL"},
	"providers.deepseek.api_key":         {"DEEPSEEK_API_KEY"},
	"providers.deepseek.base_url":        {"DEEPSEEK_BASE_URL"},
	"providers.anthropic.api_key":        {"ANTHROPIC_API_KEY"},
	"providers.google.api_key":           {"GOOGLE_API_KEY"},
	"cache.enabled":                      {"CACHE_ENABLED"},
	"cache.redis_url":                    {"REDIS_URL"},
	"cache.dir":                          {"CACHE_DIR"},
	"cache.namespace":                    {"CACHE_NAMESPACE"},
	"memory.capacity":                    {"BOARDROOM_MEMORY_CAPACITY"},
	"research.enabled":                   {"BOARDROOM_RESEARCH"},
	"research.semantic_scholar_api_key":  {"SEMANTIC_SCHOLAR_API_KEY"},
	"research.semantic_scholar_base_url": {"SEMANTIC_SCHOLAR_BASE_URL"},
	"tools.tavily_api_key":               {"TAVILY_API_KEY"},
	"classifier.path":                    {"BOARDROOM_CLASSIFIER_PATH"},
	"server.addr":                        {"BOARDROOM_ADDR"},
	"log.level":                          {"BOARDROOM_LOG_LEVEL"},
}

// Load reads configuration from path, or from config.yaml in the config
// directory when path is empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	v := viper.New()
	setDefaults(v, configDir)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config from %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading user config: %w", err)
			}
		}
	}

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.ConfigDir = configDir
	cfg.normalize()

	if err := cfg.loadRouting(); err != nil {
		return nil, err
	}
	if err := cfg.loadAliases(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a Config populated with built-in defaults only.
func Default() *Config {
	configDir, err := getConfigDir()
	if err != nil {
		configDir = ".boardroom"
	}
	v := viper.New()
	setDefaults(v, configDir)

	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	cfg.ConfigDir = configDir
	cfg.normalize()
	cfg.Routing = DefaultRoutingConfig()
	cfg.Aliases = DefaultAliases()
	return cfg
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("strategy", StrategyHybrid)
	v.SetDefault("routing_mode", RoutingSemantic)
	v.SetDefault("client_id", "")

	v.SetDefault("providers.primary", "openai")
	v.SetDefault("providers.secondary", "deepseek")
	v.SetDefault("providers.openai.model", "gpt-5-nano")
	v.SetDefault("providers.deepseek.model", "deepseek-chat")
	v.SetDefault("providers.deepseek.reasoning_model", "deepseek-reasoner")
	v.SetDefault("providers.anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("providers.google.model", "gemini-2.5-flash")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.dir", filepath.Join(configDir, "cache"))
	v.SetDefault("cache.namespace", "boardroom")

	v.SetDefault("memory.capacity", 10)

	v.SetDefault("research.enabled", false)
	v.SetDefault("research.top_k", 3)

	v.SetDefault("classifier.path", filepath.Join(configDir, "router_classifier.json"))
	v.SetDefault("dispatch.max_concurrency", 0)
	v.SetDefault("server.addr", ":8000")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// normalize maps legacy strategy names onto the canonical ones.
func (c *Config) normalize() {
	c.Strategy = NormalizeStrategy(c.Strategy)
	c.RoutingMode = strings.ToLower(strings.TrimSpace(c.RoutingMode))
	c.Providers.Primary = strings.ToLower(strings.TrimSpace(c.Providers.Primary))
	c.Providers.Secondary = strings.ToLower(strings.TrimSpace(c.Providers.Secondary))
	if c.Cache.Namespace == "" {
		c.Cache.Namespace = "boardroom"
	}
}

// NormalizeStrategy accepts the canonical strategy names plus provider
// names ("openai", "gpt5", "deepseek") for the single-provider modes.
func NormalizeStrategy(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case StrategyPrimary, "openai", "gpt5", "gpt-5", "a":
		return StrategyPrimary
	case StrategySecondary, "deepseek", "b":
		return StrategySecondary
	case StrategyHybrid, "":
		return StrategyHybrid
	default:
		return strings.ToLower(strings.TrimSpace(s))
	}
}

// Validate checks enumerated settings and that every provider the strategy
// will call has credentials.
func (c *Config) Validate() error {
	var errs []error

	switch c.Strategy {
	case StrategyPrimary, StrategySecondary, StrategyHybrid:
	default:
		errs = append(errs, fmt.Errorf("unknown strategy %q", c.Strategy))
	}

	switch c.RoutingMode {
	case RoutingRules, RoutingSemantic, RoutingClassifier:
	default:
		errs = append(errs, fmt.Errorf("unknown routing mode %q", c.RoutingMode))
	}

	if c.Memory.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("memory capacity must be positive, got %d", c.Memory.Capacity))
	}

	if c.Providers.Primary == c.Providers.Secondary && c.Strategy == StrategyHybrid {
		errs = append(errs, fmt.Errorf("hybrid strategy needs two distinct providers, both are %q", c.Providers.Primary))
	}

	for _, name := range c.RequiredProviders() {
		if !c.HasProvider(name) {
			errs = append(errs, fmt.Errorf("%s API key is required for strategy %q", name, c.Strategy))
		}
	}

	return errors.Join(errs...)
}

// RequiredProviders lists the provider kinds the configured strategy calls.
func (c *Config) RequiredProviders() []string {
	switch c.Strategy {
	case StrategyPrimary:
		return []string{c.Providers.Primary}
	case StrategySecondary:
		return []string{c.Providers.Secondary}
	default:
		return []string{c.Providers.Primary, c.Providers.Secondary}
	}
}

// Provider returns the settings for a provider kind.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	switch name {
	case "openai":
		return c.Providers.OpenAI, true
	case "deepseek":
		return c.Providers.DeepSeek, true
	case "anthropic":
		return c.Providers.Anthropic, true
	case "google":
		return c.Providers.Google, true
	case "mock":
		return ProviderConfig{Model: "mock-1"}, true
	default:
		return ProviderConfig{}, false
	}
}

// HasProvider returns true if the given provider kind is usable.
func (c *Config) HasProvider(name string) bool {
	if name == "mock" {
		return true
	}
	p, ok := c.Provider(name)
	return ok && p.APIKey != ""
}

func (c *Config) loadRouting() error {
	path := c.RoutingFile
	if path == "" {
		candidate := filepath.Join(c.ConfigDir, "routing.yaml")
		if _, err := os.Stat(candidate); err != nil {
			c.Routing = DefaultRoutingConfig()
			return nil
		}
		path = candidate
	}

	routing, err := LoadRoutingConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load routing config from %s: %w", path, err)
	}
	c.Routing = routing
	return nil
}

func (c *Config) loadAliases() error {
	if c.AliasesFile == "" {
		aliases, err := LoadAliasesWithFallback(c.ConfigDir)
		if err != nil {
			return fmt.Errorf("failed to load model aliases: %w", err)
		}
		c.Aliases = aliases
		return nil
	}
	aliases, err := LoadAliases(c.AliasesFile)
	if err != nil {
		return fmt.Errorf("failed to load model aliases from %s: %w", c.AliasesFile, err)
	}
	c.Aliases = aliases
	return nil
}

func getConfigDir() (string, error) {
	if dir := os.Getenv("BOARDROOM_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".boardroom"), nil
}
