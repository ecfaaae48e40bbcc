package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/zen-systems/boardroom/pkg/worker"
)

// ErrNoClassifier is returned when no classifier artifact is available.
var ErrNoClassifier = errors.New("routing classifier unavailable")

// Classifier is a trained multi-label model over queries.
type Classifier interface {
	Predict(query string) ([]string, error)
	PredictProba(query string) (map[string]float64, error)
}

// LinearClassifier is a one-vs-rest logistic model over word unigrams and
// bigrams, loaded from a JSON artifact.
type LinearClassifier struct {
	Labels    []string                      `json:"labels"`
	Threshold float64                       `json:"threshold"`
	Bias      map[string]float64            `json:"bias"`
	Weights   map[string]map[string]float64 `json:"weights"`
}

// LoadLinearClassifier reads and validates an artifact.
func LoadLinearClassifier(path string) (*LinearClassifier, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrNoClassifier
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found", ErrNoClassifier, path)
		}
		return nil, fmt.Errorf("read classifier: %w", err)
	}
	var c LinearClassifier
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse classifier %s: %w", path, err)
	}
	if len(c.Labels) == 0 {
		return nil, fmt.Errorf("classifier %s has no labels", path)
	}
	if c.Threshold <= 0 || c.Threshold >= 1 {
		c.Threshold = 0.5
	}
	return &c, nil
}

// PredictProba returns the per-label probability. A query with no features
// scores on bias alone.
func (c *LinearClassifier) PredictProba(query string) (map[string]float64, error) {
	features := featurize(query)
	out := make(map[string]float64, len(c.Labels))
	for _, label := range c.Labels {
		z := c.Bias[label]
		w := c.Weights[label]
		for _, f := range features {
			z += w[f]
		}
		out[label] = 1 / (1 + math.Exp(-z))
	}
	return out, nil
}

// Predict returns the labels at or above the threshold in label order. When
// none qualifies the single most probable label is returned.
func (c *LinearClassifier) Predict(query string) ([]string, error) {
	proba, err := c.PredictProba(query)
	if err != nil {
		return nil, err
	}
	var out []string
	best, bestP := "", -1.0
	for _, label := range c.Labels {
		p := proba[label]
		if p >= c.Threshold {
			out = append(out, label)
		}
		if p > bestP {
			best, bestP = label, p
		}
	}
	if len(out) == 0 && best != "" {
		out = []string{best}
	}
	return out, nil
}

func featurize(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	features := make([]string, 0, 2*len(words))
	features = append(features, words...)
	for i := 0; i+1 < len(words); i++ {
		features = append(features, words[i]+" "+words[i+1])
	}
	return features
}

// ClassifierRouter routes with a Classifier. If the classifier is missing
// or ever fails, the router switches to its fallback for the rest of its
// lifetime.
type ClassifierRouter struct {
	clf      Classifier
	fallback Router
	logger   zerolog.Logger

	downgraded atomic.Bool
	once       sync.Once
}

// NewClassifierRouter builds a ClassifierRouter. A nil clf or non-nil
// loadErr starts it downgraded.
func NewClassifierRouter(clf Classifier, fallback Router, logger zerolog.Logger, loadErr error) *ClassifierRouter {
	r := &ClassifierRouter{clf: clf, fallback: fallback, logger: logger}
	if clf == nil || loadErr != nil {
		if loadErr == nil {
			loadErr = ErrNoClassifier
		}
		r.downgrade(loadErr)
	}
	return r
}

// Downgraded reports whether the router now uses its fallback.
func (r *ClassifierRouter) Downgraded() bool {
	return r.downgraded.Load()
}

func (r *ClassifierRouter) downgrade(err error) {
	r.downgraded.Store(true)
	r.once.Do(func() {
		r.logger.Warn().Err(err).Msg("classifier routing unavailable, using semantic routing")
	})
}

// Route predicts workers. Confidence is reported but never used to reject
// a prediction.
func (r *ClassifierRouter) Route(ctx context.Context, query string) Decision {
	if r.downgraded.Load() {
		return r.fallback.Route(ctx, query)
	}

	labels, err := r.clf.Predict(query)
	if err != nil {
		r.downgrade(err)
		return r.fallback.Route(ctx, query)
	}
	proba, err := r.clf.PredictProba(query)
	if err != nil {
		r.downgrade(err)
		return r.fallback.Route(ctx, query)
	}

	var reasons []string
	workers := make([]string, 0, len(labels))
	for _, l := range labels {
		if !worker.Known(l) {
			reasons = append(reasons, fmt.Sprintf("dropped unknown label %q", l))
			continue
		}
		workers = append(workers, l)
	}
	sort.SliceStable(workers, func(i, j int) bool {
		return worker.Rank(workers[i]) < worker.Rank(workers[j])
	})
	for _, w := range workers {
		reasons = append(reasons, fmt.Sprintf("%s p=%.2f", w, proba[w]))
	}

	return finish(Decision{
		Workers:    workers,
		Confidence: proba,
		Strategy:   StrategyClassifier,
		Reasons:    reasons,
	})
}
