package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	setHome(t, t.TempDir())
	clearProviderEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, StrategyHybrid, cfg.Strategy)
	assert.Equal(t, RoutingSemantic, cfg.RoutingMode)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 10, cfg.Memory.Capacity)
	assert.Equal(t, 3, cfg.Research.TopK)
	assert.Equal(t, "openai", cfg.Providers.Primary)
	assert.Equal(t, "deepseek", cfg.Providers.Secondary)
	require.NotNil(t, cfg.Routing)
	assert.Contains(t, cfg.Routing.Workers, "financial")
	require.NotNil(t, cfg.Aliases)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	home := setHome(t, t.TempDir())
	clearProviderEnv(t)

	require.NoError(t, os.MkdirAll(home, 0o700))
	data := []byte(`strategy: openai
routing_mode: rules
providers:
  openai:
    api_key: file-openai
cache:
  enabled: true
  namespace: acme
memory:
  capacity: 4
`)
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), data, 0o600))

	t.Setenv("OPENAI_API_KEY", "env-openai")
	t.Setenv("CACHE_ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, StrategyPrimary, cfg.Strategy)
	assert.Equal(t, RoutingRules, cfg.RoutingMode)
	assert.Equal(t, "env-openai", cfg.Providers.OpenAI.APIKey)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "acme", cfg.Cache.Namespace)
	assert.Equal(t, 4, cfg.Memory.Capacity)
	assert.NoError(t, cfg.Validate())
}

func TestLoadExplicitPathMissing(t *testing.T) {
	setHome(t, t.TempDir())
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRoutingFile(t *testing.T) {
	home := setHome(t, t.TempDir())
	clearProviderEnv(t)

	require.NoError(t, os.MkdirAll(home, 0o700))
	routing := []byte(`workers:
  financial:
    keywords: ["  EBITDA ", "margin", ""]
`)
	require.NoError(t, os.WriteFile(filepath.Join(home, "routing.yaml"), routing, 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"ebitda", "margin"}, cfg.Routing.Workers["financial"].Keywords)
	assert.Equal(t, []string{"financial"}, cfg.Routing.WorkerOrder())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "hybrid needs both keys",
			mutate: func(c *Config) {
				c.Providers.OpenAI.APIKey = "k"
			},
			wantErr: "deepseek API key is required",
		},
		{
			name: "single secondary needs only its key",
			mutate: func(c *Config) {
				c.Strategy = StrategySecondary
				c.Providers.DeepSeek.APIKey = "k"
			},
		},
		{
			name: "unknown strategy",
			mutate: func(c *Config) {
				c.Strategy = "round-robin"
				c.Providers.OpenAI.APIKey = "k"
				c.Providers.DeepSeek.APIKey = "k"
			},
			wantErr: "unknown strategy",
		},
		{
			name: "unknown routing mode",
			mutate: func(c *Config) {
				c.RoutingMode = "vibes"
				c.Providers.OpenAI.APIKey = "k"
				c.Providers.DeepSeek.APIKey = "k"
			},
			wantErr: "unknown routing mode",
		},
		{
			name: "mock providers need no key",
			mutate: func(c *Config) {
				c.Providers.Primary = "mock"
				c.Strategy = StrategyPrimary
			},
		},
		{
			name: "memory capacity positive",
			mutate: func(c *Config) {
				c.Strategy = StrategyPrimary
				c.Providers.OpenAI.APIKey = "k"
				c.Memory.Capacity = 0
			},
			wantErr: "memory capacity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setHome(t, t.TempDir())
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNormalizeStrategy(t *testing.T) {
	assert.Equal(t, StrategyPrimary, NormalizeStrategy("gpt5"))
	assert.Equal(t, StrategyPrimary, NormalizeStrategy("OpenAI"))
	assert.Equal(t, StrategySecondary, NormalizeStrategy("deepseek"))
	assert.Equal(t, StrategyHybrid, NormalizeStrategy(""))
	assert.Equal(t, "other", NormalizeStrategy("other"))
}

func TestClientIDFromEnv(t *testing.T) {
	setHome(t, t.TempDir())
	clearProviderEnv(t)
	t.Setenv("BOARDROOM_CLIENT_ID", "client-7")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "client-7", cfg.ClientID)
	assert.Equal(t, "boardroom", cfg.Cache.Namespace)
}

// setHome points the config directory at dir and returns it.
func setHome(t *testing.T, dir string) string {
	t.Helper()
	t.Setenv("BOARDROOM_HOME", dir)
	return dir
}

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		"OPENAI_API_KEY", "DEEPSEEK_API_KEY", "ANTHROPIC_API_KEY", "GOOGLE_API_KEY",
		"BOARDROOM_STRATEGY", "LLM_STRATEGY", "BOARDROOM_ROUTING_MODE", "CACHE_ENABLED",
		"CACHE_NAMESPACE", "BOARDROOM_CLIENT_ID", "CLIENT_ID", "REDIS_URL",
	} {
		t.Setenv(env, "")
	}
}
