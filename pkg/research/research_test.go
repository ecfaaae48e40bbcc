package research

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/zen-systems/boardroom/pkg/cache"
	"github.com/zen-systems/boardroom/pkg/provider"
	"github.com/zen-systems/boardroom/pkg/worker"
)

func unlimited() SourceOption {
	return WithSourceLimiter(rate.NewLimiter(rate.Inf, 1))
}

func TestFormatCitation(t *testing.T) {
	tests := []struct {
		name  string
		paper Paper
		want  string
	}{
		{"no authors", Paper{Title: "Pricing", Year: 2020}, "Unknown (2020). Pricing."},
		{"one author", Paper{Title: "Pricing", Authors: []string{"Ng"}, Year: 2021, Venue: "JMR"}, "Ng (2021). Pricing. JMR."},
		{"two authors", Paper{Title: "T", Authors: []string{"A", "B"}, Year: 2019}, "A and B (2019). T."},
		{"many authors", Paper{Title: "T", Authors: []string{"A", "B", "C"}}, "A et al. (n.d.). T."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCitation(tt.paper))
		})
	}
}

func TestRank(t *testing.T) {
	papers := []Paper{
		{Title: "old-cited", CitationCount: 50, Year: 2001},
		{Title: "new-preprint", Year: 2024},
		{Title: "new-cited", CitationCount: 50, Year: 2020},
		{Title: "most-cited", CitationCount: 900, Year: 1999},
	}
	Rank(papers)
	var titles []string
	for _, p := range papers {
		titles = append(titles, p.Title)
	}
	assert.Equal(t, []string{"most-cited", "new-cited", "old-cited", "new-preprint"}, titles)
}

func TestBuildContext(t *testing.T) {
	assert.Empty(t, BuildContext(nil, "ignored"))

	ctx := BuildContext([]Paper{{Citation: "A (2020). T.", URL: "https://x/1"}}, "Insight.")
	assert.Equal(t, "\n## Research-Backed Insights\n\nInsight.\n\n## Academic Sources\n1. A (2020). T.\n   URL: https://x/1\n\n", ctx)
}

func TestSemanticScholarSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/paper/search", r.URL.Path)
		assert.Equal(t, "saas pricing", r.URL.Query().Get("query"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		fmt.Fprint(w, `{"data":[{"paperId":"p1","title":"Value-Based Pricing","abstract":"abs","year":2022,
			"authors":[{"name":"Jane Doe"},{"name":"John Roe"}],"citationCount":42,"venue":"HBR","url":"https://s2/p1"}]}`)
	}))
	defer server.Close()

	src := NewSemanticScholarSource(WithSourceBaseURL(server.URL), WithSourceAPIKey("secret"), unlimited())
	papers, err := src.Search(context.Background(), "saas pricing", 10)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, "Value-Based Pricing", papers[0].Title)
	assert.Equal(t, []string{"Jane Doe", "John Roe"}, papers[0].Authors)
	assert.Equal(t, 42, papers[0].CitationCount)
	assert.Equal(t, "Semantic Scholar", papers[0].Source)
}

func TestSemanticScholarSourceStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	src := NewSemanticScholarSource(WithSourceBaseURL(server.URL), unlimited())
	_, err := src.Search(context.Background(), "q", 10)
	assert.ErrorContains(t, err, "429")
}

const arxivFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2401.00001v1</id>
    <published>2024-01-02T00:00:00Z</published>
    <title>Dynamic
      Pricing with Bandits</title>
    <summary>  We study pricing.  </summary>
    <author><name>Ada Lovelace</name></author>
  </entry>
</feed>`

func TestArxivSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all:dynamic pricing", r.URL.Query().Get("search_query"))
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, arxivFeed)
	}))
	defer server.Close()

	src := NewArxivSource(WithSourceBaseURL(server.URL), unlimited())
	papers, err := src.Search(context.Background(), "dynamic pricing", 5)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, "Dynamic Pricing with Bandits", papers[0].Title)
	assert.Equal(t, "We study pricing.", papers[0].Abstract)
	assert.Equal(t, 2024, papers[0].Year)
	assert.Equal(t, "arXiv preprint", papers[0].Venue)
	assert.Equal(t, "http://arxiv.org/abs/2401.00001v1", papers[0].URL)
}

type stubSource struct {
	name   string
	papers []Paper
	err    error
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) Search(context.Context, string, int) ([]Paper, error) {
	return s.papers, s.err
}

func TestMultiRetriever(t *testing.T) {
	m := NewMultiRetriever(zerolog.Nop(),
		stubSource{name: "a", papers: []Paper{{Title: "A1", CitationCount: 5}, {Title: "A2", CitationCount: 1}}},
		stubSource{name: "b", papers: []Paper{{Title: "B1", Year: 2024}}},
		stubSource{name: "c", err: errors.New("down")},
	)

	papers, err := m.Retrieve(context.Background(), "q", 2)
	require.NoError(t, err)
	require.Len(t, papers, 2)
	assert.Equal(t, "A1", papers[0].Title)
	assert.Equal(t, "A2", papers[1].Title)
	assert.NotEmpty(t, papers[0].Citation)
}

func TestMultiRetrieverAllFail(t *testing.T) {
	m := NewMultiRetriever(zerolog.Nop(), stubSource{name: "a", err: errors.New("down")})
	_, err := m.Retrieve(context.Background(), "q", 3)
	assert.Error(t, err)
}

type stubRetriever struct {
	papers []Paper
	err    error
	calls  int
}

func (s *stubRetriever) Retrieve(context.Context, string, int) ([]Paper, error) {
	s.calls++
	return s.papers, s.err
}

type recordingGenerator struct {
	reply        string
	err          error
	calls        int
	workerType   string
	prompt       string
	instructions string
}

func (g *recordingGenerator) Generate(_ context.Context, workerType, prompt, instructions string, _ int, _ ...provider.CallOption) (string, error) {
	g.calls++
	g.workerType = workerType
	g.prompt = prompt
	g.instructions = instructions
	return g.reply, g.err
}

func samplePapers() []Paper {
	p := Paper{Title: "Churn", Authors: []string{"Smith", "Lee", "Wu", "Kim"}, Year: 2024, Source: "Semantic Scholar", CitationCount: 12, URL: "https://s2/churn", Abstract: "abs"}
	p.Citation = FormatCitation(p)
	return []Paper{p}
}

func TestStageRun(t *testing.T) {
	gen := &recordingGenerator{reply: "Onboarding drives churn (Source: Smith et al., 2024)."}
	c := cache.New(cache.NewMemoryBackend())
	ret := &stubRetriever{papers: samplePapers()}
	s := NewStage(ret, gen, WithCache(c))

	f, err := s.Run(context.Background(), "How do we reduce churn?")
	require.NoError(t, err)
	assert.Equal(t, 1, f.PaperCount)
	assert.Contains(t, f.Context, "## Research-Backed Insights")
	assert.Contains(t, f.Context, "1. Smith et al. (2024). Churn.")
	assert.Equal(t, worker.ResearchSynthesis, gen.workerType)
	assert.Contains(t, gen.prompt, "--- Paper 1 ---")
	assert.Contains(t, gen.prompt, "Authors: Smith, Lee, Wu et al.")
	assert.Contains(t, gen.prompt, "Citations: 12")
	assert.Contains(t, gen.instructions, "expert research analyst")

	again, err := s.Run(context.Background(), "How do we reduce churn?")
	require.NoError(t, err)
	assert.Equal(t, f.Context, again.Context)
	assert.Equal(t, 1, ret.calls)
	assert.Equal(t, 1, gen.calls)
}

func TestStageRunNoPapers(t *testing.T) {
	gen := &recordingGenerator{}
	s := NewStage(&stubRetriever{}, gen)

	f, err := s.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, f.Context)
	assert.Zero(t, gen.calls)
}

func TestStageRunFailuresYieldEmptyContext(t *testing.T) {
	s := NewStage(&stubRetriever{err: errors.New("offline")}, &recordingGenerator{})
	f, err := s.Run(context.Background(), "q")
	assert.Error(t, err)
	assert.Empty(t, f.Context)

	s = NewStage(&stubRetriever{papers: samplePapers()}, &recordingGenerator{err: errors.New("503")})
	f, err = s.Run(context.Background(), "q")
	assert.Error(t, err)
	assert.Empty(t, f.Context)
}
