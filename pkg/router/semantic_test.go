package router

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zen-systems/boardroom/pkg/adapter"
	"github.com/zen-systems/boardroom/pkg/cache"
	"github.com/zen-systems/boardroom/pkg/provider"
	"github.com/zen-systems/boardroom/pkg/worker"
)

type fakeGenerator struct {
	reply      string
	err        error
	calls      int
	workerType string
	prompt     string
}

func (f *fakeGenerator) Generate(_ context.Context, workerType, prompt, _ string, _ int, _ ...provider.CallOption) (string, error) {
	f.calls++
	f.workerType = workerType
	f.prompt = prompt
	return f.reply, f.err
}

func TestSemanticRouter_Route(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		err      error
		expected []string
		fallback bool
	}{
		{name: "plain array", reply: `["market", "financial"]`, expected: []string{"market", "financial"}},
		{name: "fenced array", reply: "```json\n[\"leadgen\"]\n```", expected: []string{"leadgen"}},
		{name: "empty array", reply: "[]", expected: worker.IDs(), fallback: true},
		{name: "not json", reply: "I would ask the market agent", expected: worker.IDs(), fallback: true},
		{name: "unknown ids dropped", reply: `["market", "legal"]`, expected: []string{"market"}},
		{name: "only unknown ids", reply: `["legal", "hr"]`, expected: worker.IDs(), fallback: true},
		{name: "duplicates removed", reply: `["financial", "FINANCIAL", "market"]`, expected: []string{"financial", "market"}},
		{name: "provider error", err: errors.New("boom"), expected: worker.IDs(), fallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{reply: tt.reply, err: tt.err}
			r := NewSemanticRouter(gen, nil, zerolog.Nop())

			d := r.Route(context.Background(), "Should we enter the EU market?")
			assert.Equal(t, tt.expected, d.Workers)
			assert.Equal(t, tt.fallback, d.Fallback)
			assert.Equal(t, StrategySemantic, d.Strategy)
			assert.Equal(t, worker.Router, gen.workerType)
			assert.Contains(t, gen.prompt, "Should we enter the EU market?")
		})
	}
}

func TestSemanticRouter_CachesDecision(t *testing.T) {
	gen := &fakeGenerator{reply: `["operations"]`}
	c := cache.New(cache.NewMemoryBackend())
	r := NewSemanticRouter(gen, c, zerolog.Nop())

	first := r.Route(context.Background(), "fix our bottlenecks")
	second := r.Route(context.Background(), "fix our bottlenecks")

	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, first.Workers, second.Workers)
	assert.Equal(t, int64(1), c.Stats().Hits)
}

func TestSemanticRouter_DoesNotCacheFallback(t *testing.T) {
	gen := &fakeGenerator{reply: "garbage"}
	c := cache.New(cache.NewMemoryBackend())
	r := NewSemanticRouter(gen, c, zerolog.Nop())

	r.Route(context.Background(), "q")
	r.Route(context.Background(), "q")
	assert.Equal(t, 2, gen.calls)
}

func TestSemanticRouter_UsesLowEffort(t *testing.T) {
	mock := adapter.NewMockAdapter(adapter.WithMockFunc(func(adapter.Request) (string, error) {
		return `["financial"]`, nil
	}))
	sel, err := provider.New(provider.SinglePrimary, mock, nil)
	require.NoError(t, err)

	r, err := New("semantic", sel)
	require.NoError(t, err)
	d := r.Route(context.Background(), "What's the ROI?")
	assert.Equal(t, []string{worker.Financial}, d.Workers)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "low", reqs[0].ReasoningEffort)
	assert.Equal(t, "low", reqs[0].Verbosity)
	require.NotNil(t, reqs[0].Temperature)
	assert.Equal(t, 0.0, *reqs[0].Temperature)
}
