package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zen-systems/boardroom/pkg/cache"
	"github.com/zen-systems/boardroom/pkg/config"
	"github.com/zen-systems/boardroom/pkg/provider"
	"github.com/zen-systems/boardroom/pkg/router"
	"github.com/zen-systems/boardroom/pkg/server"
)

func serveCmd() *cobra.Command {
	var addr string
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			orch, cfg, err := opts.build(ctx)
			if err != nil {
				return err
			}
			defer orch.Close()

			if addr == "" {
				addr = cfg.Server.Addr
			}
			srv := server.New(addr, orch, newLogger(cfg))

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	return cmd
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Show the keyword routing table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WORKER\tKEYWORDS")
			for _, rule := range router.NewRulesRouter(cfg.Routing).Rules() {
				fmt.Fprintf(w, "%s\t%s\n", rule.Worker, formatList(rule.Keywords))
			}
			fmt.Fprintln(w)
			fmt.Fprintf(w, "MODE\t%s\n", cfg.RoutingMode)
			return w.Flush()
		},
	}
}

func modelsCmd() *cobra.Command {
	var resolveFlag bool
	var validateFlag bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List providers, models, and aliases",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			switch {
			case resolveFlag:
				return showAliases(os.Stdout, cfg.Aliases)
			case validateFlag:
				return validateAliases(os.Stdout, cfg)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tMODELS\tSTATUS")
			for _, name := range cfg.Aliases.ListProviders() {
				status := "no key"
				if cfg.HasProvider(name) {
					status = "ready"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, formatList(cfg.Aliases.Providers[name]), status)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&resolveFlag, "resolve", false, "show aliases and what they resolve to")
	cmd.Flags().BoolVar(&validateFlag, "validate", false, "check the configured models against the catalogue")

	return cmd
}

func showAliases(out io.Writer, aliases *config.ModelAliases) error {
	names := aliases.ListAliases()
	if len(names) == 0 {
		fmt.Fprintln(out, "No model aliases configured.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ALIAS\tMODEL\tPROVIDER")
	for _, name := range names {
		model := aliases.Resolve(name)
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, model, aliases.ProviderForModel(model))
	}
	return w.Flush()
}

func validateAliases(out io.Writer, cfg *config.Config) error {
	errs := cfg.Aliases.ValidateProviders(cfg)
	if len(errs) == 0 {
		color.New(color.FgGreen).Fprintln(out, "All configured models are valid.")
		return nil
	}
	for _, err := range errs {
		color.New(color.FgRed).Fprintf(out, "  %v\n", err)
	}
	return fmt.Errorf("%d invalid model(s)", len(errs))
}

func evalCmd() *cobra.Command {
	var mode string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "eval [dataset]",
		Short: "Measure routing accuracy against a labeled dataset",
		Long: `Routes every query in a YAML or JSON dataset of {query, expected}
cases and reports exact-match rate and mean Jaccard similarity.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if mode == "" {
				mode = cfg.RoutingMode
			}
			logger := newLogger(cfg)

			cases, err := router.LoadCases(args[0])
			if err != nil {
				return err
			}

			var gen provider.Generator
			if mode != config.RoutingRules {
				sel, err := provider.FromConfig(ctx, cfg, logger)
				if err != nil {
					return fmt.Errorf("routing mode %s needs a provider: %w", mode, err)
				}
				gen = sel
			}

			rt, err := router.New(mode, gen,
				router.WithTable(cfg.Routing),
				router.WithClassifierPath(cfg.Classifier.Path),
				router.WithLogger(logger),
			)
			if err != nil {
				return err
			}

			report := router.Evaluate(ctx, rt, cases)
			printReport(os.Stdout, mode, report, verbose)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "routing mode: rules, semantic, classifier (default from config)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every case")

	return cmd
}

func printReport(out io.Writer, mode string, report router.Report, verbose bool) {
	if verbose {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "OK\tJACCARD\tEXPECTED\tPREDICTED\tQUERY")
		for _, r := range report.Results {
			mark := "x"
			if r.Exact {
				mark = "="
			}
			fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\t%s\n", mark, r.Jaccard,
				strings.Join(r.Expected, ","), strings.Join(r.Predicted, ","), r.Query)
		}
		w.Flush()
		fmt.Fprintln(out)
	}

	color.New(color.Bold).Fprintf(out, "Routing mode: %s\n", mode)
	fmt.Fprintf(out, "Cases:        %d\n", report.Cases)
	fmt.Fprintf(out, "Exact match:  %d (%.1f%%)\n", report.ExactMatches, report.ExactRate*100)
	fmt.Fprintf(out, "Mean Jaccard: %.3f\n", report.MeanJaccard)
}

func cacheCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the response cache",
	}
	cmd.PersistentFlags().StringVar(&serverURL, "server", "", "base URL of a running boardroom server")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			var s cache.Stats
			if serverURL != "" {
				var body struct {
					Stats cache.Stats `json:"stats"`
				}
				if err := callServer(cmd.Context(), http.MethodGet, serverURL, "/cache/stats", &body); err != nil {
					return err
				}
				s = body.Stats
			} else {
				c, err := openCache(cmd.Context())
				if err != nil {
					return err
				}
				defer c.Close()
				s = c.Stats()
			}
			return printStats(os.Stdout, s)
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverURL != "" {
				var msg server.MessageResponse
				if err := callServer(cmd.Context(), http.MethodPost, serverURL, "/cache/clear", &msg); err != nil {
					return err
				}
				fmt.Println(msg.Message)
				return nil
			}

			c, err := openCache(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			if !c.Enabled() {
				return errors.New("cache is disabled")
			}
			if err := c.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			color.New(color.FgGreen).Println("Cache cleared successfully")
			return nil
		},
	}

	cmd.AddCommand(stats, clearCmd)
	return cmd
}

func openCache(ctx context.Context) (*cache.Cache, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cache.Open(ctx, cache.Options{
		Enabled:   cfg.Cache.Enabled,
		RedisURL:  cfg.Cache.RedisURL,
		Dir:       cfg.Cache.Dir,
		Namespace: cfg.Cache.Namespace,
		ClientID:  cfg.ClientID,
	}, newLogger(cfg)), nil
}

func printStats(out io.Writer, s cache.Stats) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "enabled\t%t\n", s.Enabled)
	fmt.Fprintf(w, "backend\t%s\n", s.Backend)
	fmt.Fprintf(w, "hits\t%d\n", s.Hits)
	fmt.Fprintf(w, "misses\t%d\n", s.Misses)
	fmt.Fprintf(w, "saves\t%d\n", s.Saves)
	fmt.Fprintf(w, "total_requests\t%d\n", s.TotalRequests)
	fmt.Fprintf(w, "hit_rate\t%.1f%%\n", s.HitRatePercent)
	return w.Flush()
}

func callServer(ctx context.Context, method, base, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e server.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, e.Error)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
