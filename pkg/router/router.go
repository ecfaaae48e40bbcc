// Package router decides which workers answer a query. Three strategies
// are available: keyword rules, an LLM call, and a trained classifier that
// degrades to the LLM call when unavailable.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zen-systems/boardroom/pkg/cache"
	"github.com/zen-systems/boardroom/pkg/config"
	"github.com/zen-systems/boardroom/pkg/provider"
)

// Router selects workers for a query. Route never fails; every error path
// ends in a decision naming at least one worker.
type Router interface {
	Route(ctx context.Context, query string) Decision
}

type options struct {
	table          *config.RoutingConfig
	cache          *cache.Cache
	classifier     Classifier
	classifierPath string
	logger         zerolog.Logger
}

// Option configures New.
type Option func(*options)

// WithTable sets the keyword table used by rule routing.
func WithTable(cfg *config.RoutingConfig) Option {
	return func(o *options) {
		o.table = cfg
	}
}

// WithCache caches semantic routing decisions.
func WithCache(c *cache.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithClassifier supplies a loaded classifier, bypassing the artifact path.
func WithClassifier(c Classifier) Option {
	return func(o *options) {
		o.classifier = c
	}
}

// WithClassifierPath sets where the classifier artifact is loaded from.
func WithClassifierPath(path string) Option {
	return func(o *options) {
		o.classifierPath = path
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New builds the router for mode. gen may be nil only in rules mode.
func New(mode string, gen provider.Generator, opts ...Option) (Router, error) {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With().Str("component", "router").Logger()

	switch strings.ToLower(strings.TrimSpace(mode)) {
	case config.RoutingRules:
		return NewRulesRouter(o.table), nil
	case config.RoutingSemantic, "":
		if gen == nil {
			return nil, fmt.Errorf("semantic routing needs a provider")
		}
		return NewSemanticRouter(gen, o.cache, logger), nil
	case config.RoutingClassifier:
		if gen == nil {
			return nil, fmt.Errorf("classifier routing needs a provider for its fallback")
		}
		semantic := NewSemanticRouter(gen, o.cache, logger)
		clf := o.classifier
		if clf == nil {
			loaded, err := LoadLinearClassifier(o.classifierPath)
			if err != nil {
				return NewClassifierRouter(nil, semantic, logger, err), nil
			}
			clf = loaded
		}
		return NewClassifierRouter(clf, semantic, logger, nil), nil
	default:
		return nil, fmt.Errorf("unknown routing mode %q", mode)
	}
}
