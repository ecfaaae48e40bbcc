package worker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDsCanonicalOrder(t *testing.T) {
	assert.Equal(t, []string{Market, Operations, Financial, LeadGen}, IDs())
	assert.Equal(t, 2, Rank(Financial))
	assert.Equal(t, 4, Rank("unknown"))
}

func TestNonRoutableTypesAreUnknown(t *testing.T) {
	for _, id := range []string{ResearchSynthesis, Router, Synthesis} {
		assert.False(t, Known(id), id)
	}
}

func TestOnlyMarketNeedsWebResearch(t *testing.T) {
	for _, s := range All() {
		assert.Equal(t, s.ID == Market, s.NeedsWebResearch, s.ID)
	}
}

func TestBuildPrompt(t *testing.T) {
	spec, ok := Lookup(Market)
	require.True(t, ok)

	plain := spec.BuildPrompt(Task{WorkerID: Market, Query: "Who competes with us?"})
	assert.Contains(t, plain, "Who competes with us?")
	assert.NotContains(t, plain, "CRITICAL CITATION")
	assert.NotContains(t, plain, "Web Research Data")

	full := spec.BuildPrompt(Task{
		WorkerID:        Market,
		Query:           "Who competes with us?",
		ResearchContext: "## Research-Backed Insights\nstuff",
		WebResearch:     "three rivals",
	})
	assert.Contains(t, full, "## Research-Backed Insights")
	assert.Contains(t, full, "Web Research Data:\nthree rivals")
	assert.True(t, strings.Contains(full, "CRITICAL CITATION REQUIREMENTS"))
}

func TestWebResearchIgnoredForOtherWorkers(t *testing.T) {
	spec, _ := Lookup(Financial)
	prompt := spec.BuildPrompt(Task{Query: "q", WebResearch: "should not appear"})
	assert.NotContains(t, prompt, "should not appear")
}
