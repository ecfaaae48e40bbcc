package synthesis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zen-systems/boardroom/pkg/cache"
	"github.com/zen-systems/boardroom/pkg/dispatch"
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

func TestSynthesizeExcludesFailures(t *testing.T) {
	gen := &fakeGenerator{reply: "Do it."}
	a := New(gen)

	results := map[string]dispatch.Result{
		worker.Financial: {WorkerID: worker.Financial, Err: "Error: timeout"},
		worker.Market:    {WorkerID: worker.Market, Output: "ok"},
	}
	out, err := a.Synthesize(context.Background(), "Expand to Canada?", results, "", false)
	require.NoError(t, err)
	assert.Equal(t, "Do it.", out)
	assert.Equal(t, worker.Synthesis, gen.workerType)

	assert.Contains(t, gen.prompt, "MARKET ANALYSIS:\nok")
	assert.NotContains(t, gen.prompt, "FINANCIAL ANALYSIS")
	assert.NotContains(t, gen.prompt, "timeout")
	assert.Contains(t, gen.prompt, "Original Query: Expand to Canada?")
}

func TestBuildPromptCanonicalOrder(t *testing.T) {
	results := map[string]dispatch.Result{
		worker.LeadGen:    {Output: "leads"},
		worker.Market:     {Output: "market"},
		worker.Operations: {Output: ""},
		worker.Financial:  {Output: "money"},
	}
	prompt := BuildPrompt("q", results, "")

	m := strings.Index(prompt, "MARKET ANALYSIS:")
	f := strings.Index(prompt, "FINANCIAL ANALYSIS:")
	l := strings.Index(prompt, "LEAD GENERATION STRATEGY:")
	assert.True(t, m >= 0 && m < f && f < l)
	assert.NotContains(t, prompt, "OPERATIONS AUDIT:")
	assert.NotContains(t, prompt, "Conversation History")
}

func TestSynthesizeIncludesTranscriptWhenMemoryOn(t *testing.T) {
	gen := &fakeGenerator{reply: "r"}
	a := New(gen)
	results := map[string]dispatch.Result{worker.Market: {Output: "m"}}

	_, err := a.Synthesize(context.Background(), "q", results, "USER: earlier question", true)
	require.NoError(t, err)
	assert.Contains(t, gen.prompt, "Conversation History:\nUSER: earlier question")

	_, err = a.Synthesize(context.Background(), "q2", results, "USER: earlier question", false)
	require.NoError(t, err)
	assert.NotContains(t, gen.prompt, "Conversation History")
}

func TestSynthesizeCachesByWorkerSet(t *testing.T) {
	gen := &fakeGenerator{reply: "merged"}
	c := cache.New(cache.NewMemoryBackend())
	a := New(gen, WithCache(c))

	results := map[string]dispatch.Result{
		worker.Market:    {Output: "m"},
		worker.Financial: {Output: "f"},
	}
	_, err := a.Synthesize(context.Background(), "q", results, "", false)
	require.NoError(t, err)
	out, err := a.Synthesize(context.Background(), "q", results, "", false)
	require.NoError(t, err)

	assert.Equal(t, "merged", out)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, []string{worker.Market, worker.Financial}, Contributors(results))
}

func TestSynthesizePropagatesProviderError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("both providers down")}
	c := cache.New(cache.NewMemoryBackend())
	a := New(gen, WithCache(c))

	_, err := a.Synthesize(context.Background(), "q", map[string]dispatch.Result{worker.Market: {Output: "m"}}, "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both providers down")
	assert.Zero(t, c.Stats().Saves)
}
