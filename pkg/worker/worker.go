// Package worker defines the business analysis workers and how their
// prompts are built.
package worker

import (
	"fmt"
	"strings"
)

// Routable worker ids.
const (
	Market     = "market"
	Operations = "operations"
	Financial  = "financial"
	LeadGen    = "leadgen"
)

// Provider worker types that are never routed to directly.
const (
	ResearchSynthesis = "research_synthesis"
	Router            = "router"
	Synthesis         = "synthesis"
)

// Spec describes one worker.
type Spec struct {
	ID               string
	Label            string
	Description      string
	SystemPrompt     string
	NeedsWebResearch bool

	intro string
	focus string
}

// Task is one unit of work for the dispatcher.
type Task struct {
	WorkerID        string
	Query           string
	ResearchContext string
	WebResearch     string
}

var catalogue = []Spec{
	{
		ID:               Market,
		Label:            "MARKET ANALYSIS",
		Description:      "Market research, trends, competition, market sizing, customer segmentation",
		NeedsWebResearch: true,
		SystemPrompt: `You are a Market Analysis Agent specializing in market research and competitive intelligence.

Your expertise includes:
- Market trends and industry dynamics
- Competitive landscape analysis
- Market sizing and opportunity assessment
- Customer segmentation and targeting
- Industry benchmarking and best practices

When analyzing markets, provide:
1. Current market trends and growth drivers
2. Competitive positioning and key players
3. Market opportunities and threats
4. Customer segments and target personas
5. Strategic recommendations based on market insights
` + citationGuidance + `
Always base your analysis on data and provide actionable insights.`,
		intro: "Conduct comprehensive market analysis for the following business query:",
		focus: "Provide actionable market insights and strategic recommendations.",
	},
	{
		ID:          Operations,
		Label:       "OPERATIONS AUDIT",
		Description: "Process optimization, efficiency analysis, workflow improvement",
		SystemPrompt: `You are an Operations Audit Agent specializing in process optimization and operational efficiency.

Your expertise includes:
- Process analysis and workflow optimization
- Efficiency assessment and bottleneck identification
- Operational best practices and frameworks
- Scalability and capacity planning
- Automation opportunities and digital transformation
- Quality management and continuous improvement
` + citationGuidance + `
Provide specific, prioritized recommendations grounded in operational evidence.`,
		intro: "Perform a thorough operations audit for the following business query:",
		focus: `Analyze current processes, identify inefficiencies, and recommend optimizations focusing on:
- Efficiency improvements
- Bottleneck elimination
- Automation opportunities
- Scalability enhancements
- Best practices implementation

Provide specific, actionable recommendations with implementation priorities.`,
	},
	{
		ID:          Financial,
		Label:       "FINANCIAL ANALYSIS",
		Description: "Financial projections, ROI calculations, revenue/cost analysis, pricing",
		SystemPrompt: `You are a Financial Modeling Agent specializing in financial analysis and projections.

Your expertise includes:
- Financial modeling and forecasting
- ROI and NPV calculations
- Revenue and cost projections
- Profitability analysis
- Budget planning and optimization
- Financial risk assessment
- Investment evaluation and decision support
` + citationGuidance + `
Present findings with clear metrics and actionable financial guidance.`,
		intro: "Create detailed financial models and analysis for the following business query:",
		focus: `Provide comprehensive financial analysis including:
- Revenue and cost projections
- ROI calculations and metrics
- Profitability assessment
- Budget recommendations
- Financial risks and opportunities
- Actionable financial guidance

Use specific numbers and financial metrics where possible.`,
	},
	{
		ID:          LeadGen,
		Label:       "LEAD GENERATION STRATEGY",
		Description: "Customer acquisition, sales funnel, growth strategies, marketing",
		SystemPrompt: `You are a Lead Generation Agent specializing in customer acquisition and growth strategies.

Your expertise includes:
- Lead generation strategies and tactics
- Customer acquisition channel optimization
- Sales funnel design and conversion optimization
- Content marketing and inbound strategies
- Paid acquisition and advertising strategies
- Lead nurturing and qualification
` + citationGuidance + `
Focus on scalable, cost-effective customer acquisition methods.`,
		intro: "Develop comprehensive lead generation strategies for the following business query:",
		focus: `Provide actionable strategies covering:
- Target customer identification and segmentation
- Multi-channel acquisition tactics
- Sales funnel optimization
- Content and lead magnet strategies
- Growth experiments and testing framework
- Budget allocation and channel prioritization
- Metrics and success criteria`,
	},
}

const citationGuidance = `
**Citation Requirements**:
- When academic research is provided, reference it to support your analysis
- Format citations as: [Your insight] (Source: Author et al., Year)
- Include a "References" section at the end with full citations
`

const citationRules = `CRITICAL CITATION REQUIREMENTS:
- Use the EXACT citation format: (Source: Author et al., Year)
- Cite sources for EVERY major claim or recommendation
- Include a 'References' section at the end with full citations`

var byID = func() map[string]Spec {
	m := make(map[string]Spec, len(catalogue))
	for _, s := range catalogue {
		m[s.ID] = s
	}
	return m
}()

// IDs returns every routable worker id in canonical order.
func IDs() []string {
	out := make([]string, len(catalogue))
	for i, s := range catalogue {
		out[i] = s.ID
	}
	return out
}

// All returns every routable worker spec in canonical order.
func All() []Spec {
	out := make([]Spec, len(catalogue))
	copy(out, catalogue)
	return out
}

// Lookup returns the worker with the given id.
func Lookup(id string) (Spec, bool) {
	s, ok := byID[id]
	return s, ok
}

// Known reports whether id is a routable worker.
func Known(id string) bool {
	_, ok := byID[id]
	return ok
}

// Rank returns the canonical position of id, or len(IDs()) if unknown.
func Rank(id string) int {
	for i, s := range catalogue {
		if s.ID == id {
			return i
		}
	}
	return len(catalogue)
}

// BuildPrompt renders the user prompt for a task.
func (s Spec) BuildPrompt(t Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n%s", s.intro, t.Query)
	if t.ResearchContext != "" {
		b.WriteString("\n\n")
		b.WriteString(t.ResearchContext)
	}
	if s.NeedsWebResearch && t.WebResearch != "" {
		b.WriteString("\n\nWeb Research Data:\n")
		b.WriteString(t.WebResearch)
	}
	b.WriteString("\n\n")
	b.WriteString(s.focus)
	if t.ResearchContext != "" {
		b.WriteString("\n\n")
		b.WriteString(citationRules)
	}
	return b.String()
}
