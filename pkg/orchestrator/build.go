package orchestrator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/zen-systems/boardroom/pkg/cache"
	"github.com/zen-systems/boardroom/pkg/config"
	"github.com/zen-systems/boardroom/pkg/dispatch"
	"github.com/zen-systems/boardroom/pkg/logging"
	"github.com/zen-systems/boardroom/pkg/memory"
	"github.com/zen-systems/boardroom/pkg/provider"
	"github.com/zen-systems/boardroom/pkg/research"
	"github.com/zen-systems/boardroom/pkg/router"
	"github.com/zen-systems/boardroom/pkg/synthesis"
	"github.com/zen-systems/boardroom/pkg/tools"
)

// FromConfig wires every component from cfg. Configuration is fixed for the
// lifetime of the returned orchestrator.
func FromConfig(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Orchestrator, error) {
	sel, err := provider.FromConfig(ctx, cfg, logging.Component(logger, "provider"))
	if err != nil {
		return nil, err
	}

	c := cache.Open(ctx, cache.Options{
		Enabled:   cfg.Cache.Enabled,
		RedisURL:  cfg.Cache.RedisURL,
		Dir:       cfg.Cache.Dir,
		Namespace: cfg.Cache.Namespace,
		ClientID:  cfg.ClientID,
	}, logger)

	rt, err := router.New(cfg.RoutingMode, sel,
		router.WithTable(cfg.Routing),
		router.WithCache(c),
		router.WithClassifierPath(cfg.Classifier.Path),
		router.WithLogger(logger),
	)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("build router: %w", err)
	}

	web := tools.NewWebResearch(cfg.Tools.TavilyAPIKey, tools.WithLogger(logging.Component(logger, "web_research")))
	d := dispatch.New(sel,
		dispatch.WithCache(c),
		dispatch.WithWebResearch(web),
		dispatch.WithMaxConcurrency(cfg.Dispatch.MaxConcurrency),
		dispatch.WithLogger(logging.Component(logger, "dispatch")),
	)
	agg := synthesis.New(sel,
		synthesis.WithCache(c),
		synthesis.WithLogger(logging.Component(logger, "synthesis")),
	)

	opts := []Option{
		WithMemory(memory.New(cfg.Memory.Capacity)),
		WithCache(c),
		WithSelector(sel),
		WithRoutingMode(cfg.RoutingMode),
		WithLogger(logging.Component(logger, "orchestrator")),
	}
	if cfg.Research.Enabled {
		opts = append(opts, WithResearch(newResearchStage(cfg, sel, c, logger)))
	}
	return New(rt, d, agg, opts...), nil
}

func newResearchStage(cfg *config.Config, sel *provider.Selector, c *cache.Cache, logger zerolog.Logger) *research.Stage {
	logger = logging.Component(logger, "research")

	s2Opts := []research.SourceOption{research.WithSourceAPIKey(cfg.Research.SemanticScholarAPIKey)}
	if cfg.Research.SemanticScholarBaseURL != "" {
		s2Opts = append(s2Opts, research.WithSourceBaseURL(cfg.Research.SemanticScholarBaseURL))
	}
	var arxivOpts []research.SourceOption
	if cfg.Research.ArxivBaseURL != "" {
		arxivOpts = append(arxivOpts, research.WithSourceBaseURL(cfg.Research.ArxivBaseURL))
	}

	retriever := research.NewMultiRetriever(logger,
		research.NewSemanticScholarSource(s2Opts...),
		research.NewArxivSource(arxivOpts...),
	)
	return research.NewStage(retriever, sel,
		research.WithTopK(cfg.Research.TopK),
		research.WithCache(c),
		research.WithLogger(logger),
	)
}
