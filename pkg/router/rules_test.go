package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zen-systems/boardroom/pkg/config"
	"github.com/zen-systems/boardroom/pkg/worker"
)

func TestRulesRouter_Route(t *testing.T) {
	r := NewRulesRouter(config.DefaultRoutingConfig())

	tests := []struct {
		name     string
		query    string
		expected []string
		fallback bool
	}{
		{
			name:     "roi selects financial only",
			query:    "What's the ROI of this project?",
			expected: []string{worker.Financial},
		},
		{
			name:     "several matches keep table order",
			query:    "How can we optimize our sales funnel pricing?",
			expected: []string{worker.Operations, worker.Financial, worker.LeadGen},
		},
		{
			name:     "substring match",
			query:    "Competitor review for our marketing team",
			expected: []string{worker.Market, worker.LeadGen},
		},
		{
			name:     "no match consults everyone",
			query:    "Hello there",
			expected: worker.IDs(),
			fallback: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := r.Route(context.Background(), tt.query)
			assert.Equal(t, tt.expected, d.Workers)
			assert.Equal(t, StrategyRules, d.Strategy)
			assert.Equal(t, tt.fallback, d.Fallback)
		})
	}
}

func TestRulesRouter_CustomTable(t *testing.T) {
	cfg := &config.RoutingConfig{
		Workers: map[string]config.WorkerRoute{
			"financial": {Keywords: []string{"margin"}},
			"market":    {Keywords: []string{"margin", "share"}},
		},
		Order: []string{"market", "financial"},
	}
	r := NewRulesRouter(cfg)

	d := r.Route(context.Background(), "Gross MARGIN outlook")
	assert.Equal(t, []string{worker.Market, worker.Financial}, d.Workers)
	assert.Len(t, d.Reasons, 2)

	rules := r.Rules()
	assert.Equal(t, "market", rules[0].Worker)
}

func TestRulesRouter_NilTableUsesDefaults(t *testing.T) {
	r := NewRulesRouter(nil)
	assert.Len(t, r.Rules(), 4)
}

func TestNormalize(t *testing.T) {
	got, fallback := normalize([]string{"financial", "", "market", "financial"})
	assert.Equal(t, []string{"financial", "market"}, got)
	assert.False(t, fallback)

	got, fallback = normalize(nil)
	assert.Equal(t, worker.IDs(), got)
	assert.True(t, fallback)
}

func TestNew_UnknownMode(t *testing.T) {
	_, err := New("astrology", nil)
	assert.Error(t, err)

	_, err = New(config.RoutingSemantic, nil)
	assert.Error(t, err)

	r, err := New(config.RoutingRules, nil)
	assert.NoError(t, err)
	assert.IsType(t, &RulesRouter{}, r)
}
