package router

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zen-systems/boardroom/pkg/worker"
)

func writeArtifact(t *testing.T, c LinearClassifier) string {
	t.Helper()
	data, err := json.Marshal(c)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "router_classifier.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func testArtifact() LinearClassifier {
	return LinearClassifier{
		Labels:    []string{"market", "operations", "financial", "leadgen"},
		Threshold: 0.5,
		Bias:      map[string]float64{"market": -2, "operations": -2, "financial": -2, "leadgen": -2},
		Weights: map[string]map[string]float64{
			"financial": {"roi": 4, "pricing": 3},
			"leadgen":   {"sales": 3, "sales funnel": 2},
			"market":    {"competitors": 4},
		},
	}
}

func TestLinearClassifier_Predict(t *testing.T) {
	clf, err := LoadLinearClassifier(writeArtifact(t, testArtifact()))
	require.NoError(t, err)

	labels, err := clf.Predict("What is the ROI of our sales funnel?")
	require.NoError(t, err)
	assert.Equal(t, []string{"financial", "leadgen"}, labels)

	proba, err := clf.PredictProba("What is the ROI?")
	require.NoError(t, err)
	assert.Greater(t, proba["financial"], 0.5)
	assert.Less(t, proba["market"], 0.5)
}

func TestLinearClassifier_PredictFallsBackToBestLabel(t *testing.T) {
	clf, err := LoadLinearClassifier(writeArtifact(t, testArtifact()))
	require.NoError(t, err)

	labels, err := clf.Predict("hello")
	require.NoError(t, err)
	assert.Len(t, labels, 1)
}

func TestLinearClassifier_FeaturelessQueryScoresOnBias(t *testing.T) {
	a := testArtifact()
	a.Bias["operations"] = -1
	clf, err := LoadLinearClassifier(writeArtifact(t, a))
	require.NoError(t, err)

	proba, err := clf.PredictProba("  ?! ")
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Exp(2)), proba["market"], 1e-9)

	labels, err := clf.Predict("  ?! ")
	require.NoError(t, err)
	assert.Equal(t, []string{"operations"}, labels)
}

func TestClassifierRouter_PunctuationQueryKeepsClassifier(t *testing.T) {
	gen := &fakeGenerator{reply: `["operations"]`}
	r, err := New("classifier", gen, WithClassifierPath(writeArtifact(t, testArtifact())))
	require.NoError(t, err)
	cr := r.(*ClassifierRouter)

	d := r.Route(context.Background(), "???")
	assert.Equal(t, StrategyClassifier, d.Strategy)
	assert.NotEmpty(t, d.Workers)
	assert.False(t, cr.Downgraded())

	d = r.Route(context.Background(), "What is the ROI?")
	assert.Equal(t, StrategyClassifier, d.Strategy)
	assert.Equal(t, []string{worker.Financial}, d.Workers)
	assert.Zero(t, gen.calls)
}

func TestLoadLinearClassifier_Missing(t *testing.T) {
	_, err := LoadLinearClassifier(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, ErrNoClassifier)

	_, err = LoadLinearClassifier("")
	assert.ErrorIs(t, err, ErrNoClassifier)
}

func TestClassifierRouter_Route(t *testing.T) {
	gen := &fakeGenerator{reply: `["market"]`}
	r, err := New("classifier", gen, WithClassifierPath(writeArtifact(t, testArtifact())))
	require.NoError(t, err)

	d := r.Route(context.Background(), "pricing and ROI review")
	assert.Equal(t, StrategyClassifier, d.Strategy)
	assert.Equal(t, []string{worker.Financial}, d.Workers)
	assert.Contains(t, d.Confidence, "financial")
	assert.Zero(t, gen.calls)
}

func TestClassifierRouter_MissingArtifactDowngrades(t *testing.T) {
	gen := &fakeGenerator{reply: `["market"]`}
	r, err := New("classifier", gen, WithClassifierPath(filepath.Join(t.TempDir(), "missing.json")))
	require.NoError(t, err)

	d := r.Route(context.Background(), "pricing")
	assert.Equal(t, StrategySemantic, d.Strategy)
	assert.Equal(t, []string{worker.Market}, d.Workers)
	assert.True(t, r.(*ClassifierRouter).Downgraded())
}

type flakyClassifier struct {
	calls int
}

func (f *flakyClassifier) Predict(string) ([]string, error) {
	f.calls++
	return nil, errors.New("model corrupted")
}

func (f *flakyClassifier) PredictProba(string) (map[string]float64, error) {
	return nil, errors.New("model corrupted")
}

func TestClassifierRouter_PredictErrorDowngradesPermanently(t *testing.T) {
	clf := &flakyClassifier{}
	gen := &fakeGenerator{reply: `["operations"]`}
	r := NewClassifierRouter(clf, NewSemanticRouter(gen, nil, zerolog.Nop()), zerolog.Nop(), nil)

	for i := 0; i < 3; i++ {
		d := r.Route(context.Background(), "streamline our workflow")
		assert.Equal(t, []string{worker.Operations}, d.Workers)
	}
	assert.Equal(t, 1, clf.calls)
	assert.Equal(t, 3, gen.calls)
	assert.True(t, r.Downgraded())
}

func TestClassifierRouter_LowConfidenceDoesNotGate(t *testing.T) {
	a := testArtifact()
	a.Threshold = 0.99
	clf, err := LoadLinearClassifier(writeArtifact(t, a))
	require.NoError(t, err)
	r := NewClassifierRouter(clf, nil, zerolog.Nop(), nil)

	d := r.Route(context.Background(), "competitors")
	assert.Equal(t, []string{worker.Market}, d.Workers)
	assert.Less(t, d.Confidence["market"], 0.99)
}
