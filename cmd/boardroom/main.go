package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zen-systems/boardroom/pkg/config"
	"github.com/zen-systems/boardroom/pkg/logging"
)

var (
	configFile string
	logLevel   string
	prettyLogs bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "boardroom",
		Short: "Multi-worker business intelligence orchestrator",
		Long: `Boardroom routes a business question to specialist workers (market,
operations, financial, lead generation), runs them in parallel, and
synthesizes their findings into one recommendation.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (default ~/.boardroom/config.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&prettyLogs, "pretty", false, "human-readable log output")

	root.AddCommand(askCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(routesCmd())
	root.AddCommand(modelsCmd())
	root.AddCommand(evalCmd())
	root.AddCommand(cacheCmd())

	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if prettyLogs {
		cfg.Log.Pretty = true
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(logging.Options{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
}

// applyOverrides validates flag overrides before they reach the config.
func applyOverrides(cfg *config.Config, strategy, routing string) error {
	if strategy != "" {
		cfg.Strategy = config.NormalizeStrategy(strategy)
	}
	if routing != "" {
		cfg.RoutingMode = strings.ToLower(strings.TrimSpace(routing))
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
