package research

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/zen-systems/boardroom/pkg/cache"
	"github.com/zen-systems/boardroom/pkg/provider"
	"github.com/zen-systems/boardroom/pkg/worker"
)

// DefaultTopK is the number of papers kept per query.
const DefaultTopK = 3

const noResearchSynthesis = "No relevant academic research was found for this query."

const systemPrompt = `You are an expert research analyst specializing in business intelligence.

Your role is to:
1. Analyze business queries to identify relevant research topics
2. Review academic papers and extract key insights
3. Synthesize findings into actionable business recommendations
4. Identify evidence-based best practices and frameworks

When analyzing research papers:
- Focus on practical applications and real-world implications
- Highlight validated frameworks and methodologies
- Note empirical findings and statistical evidence
- Connect academic insights to business contexts
- Identify knowledge gaps or conflicting findings

Your output should be:
- Concise and business-focused (not overly academic)
- Organized by key themes or topics
- Supported by specific paper citations
- Actionable for business decision-making`

// Findings is the output of the research stage.
type Findings struct {
	Papers    []Paper `json:"papers"`
	Synthesis string  `json:"synthesis"`
	// Context is appended to every worker prompt. Empty means no research.
	Context    string    `json:"research_context"`
	PaperCount int       `json:"paper_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Stage retrieves papers and condenses them with one provider call.
type Stage struct {
	retriever Retriever
	gen       provider.Generator
	cache     *cache.Cache
	topK      int
	logger    zerolog.Logger
}

// StageOption configures a Stage.
type StageOption func(*Stage)

// WithTopK sets how many papers are kept.
func WithTopK(k int) StageOption {
	return func(s *Stage) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithCache caches findings by query.
func WithCache(c *cache.Cache) StageOption {
	return func(s *Stage) {
		s.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) StageOption {
	return func(s *Stage) {
		s.logger = l
	}
}

// NewStage builds a research stage.
func NewStage(retriever Retriever, gen provider.Generator, opts ...StageOption) *Stage {
	s := &Stage{retriever: retriever, gen: gen, topK: DefaultTopK, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run produces findings for query. On failure it returns empty findings
// together with the error; callers continue without research.
func (s *Stage) Run(ctx context.Context, query string) (Findings, error) {
	var cached Findings
	if s.cache.GetResearch(ctx, query, &cached) {
		s.logger.Debug().Int("papers", cached.PaperCount).Msg("using cached research")
		return cached, nil
	}

	papers, err := s.retriever.Retrieve(ctx, query, s.topK)
	if err != nil {
		s.logger.Warn().Err(err).Msg("paper retrieval failed, continuing without research")
		return Findings{}, fmt.Errorf("retrieve papers: %w", err)
	}
	if len(papers) == 0 {
		s.logger.Info().Msg("no relevant research found")
		return Findings{Synthesis: noResearchSynthesis}, nil
	}

	synthesis, err := s.gen.Generate(ctx, worker.ResearchSynthesis, buildSynthesisPrompt(query, papers), systemPrompt, 0,
		provider.WithEffort("low", "high"))
	if err != nil {
		s.logger.Warn().Err(err).Msg("research synthesis failed, continuing without research")
		return Findings{}, fmt.Errorf("synthesize research: %w", err)
	}

	f := Findings{
		Papers:     papers,
		Synthesis:  synthesis,
		Context:    BuildContext(papers, synthesis),
		PaperCount: len(papers),
		CreatedAt:  time.Now().UTC(),
	}
	s.cache.SetResearch(ctx, query, f)
	s.logger.Info().Int("papers", f.PaperCount).Msg("research synthesis complete")
	return f, nil
}

func buildSynthesisPrompt(query string, papers []Paper) string {
	return "Business Query: " + query + `

You have access to the following academic research papers:

` + formatPapersForPrompt(papers) + `

Your task:
1. Identify the key findings most relevant to the business query
2. Synthesize insights across papers (note where findings align or conflict)
3. Extract evidence-based recommendations and frameworks
4. Highlight empirical findings with statistical support
5. Note any limitations or gaps in the current research

Provide a concise synthesis (300-500 words) organized by key themes.
Use this EXACT citation format: (Source: Author et al., Year)

Example: "Customer churn is driven primarily by poor onboarding (Source: Smith et al., 2024)."

**Key Research Themes:**

1. [Theme 1]
   - Finding with citation (Source: Author et al., Year)
   - Implication for business

2. [Theme 2]
   - Finding with citation (Source: Author et al., Year)

**Evidence-Based Recommendations:**
- [Recommendation] (Source: Author et al., Year)

**Knowledge Gaps:**
- [Gaps in research]
`
}
