// Package tools holds auxiliary lookups that feed individual workers.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultTavilyURL = "https://api.tavily.com/search"

// WebSource is one search hit backing the findings.
type WebSource struct {
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// WebFindings is the result of a web research lookup. A zero value means no
// findings.
type WebFindings struct {
	Query    string      `json:"query"`
	Insights string      `json:"insights"`
	Sources  []WebSource `json:"sources,omitempty"`
}

// Empty reports whether there is nothing to share with a worker.
func (f *WebFindings) Empty() bool {
	return f == nil || strings.TrimSpace(f.Insights) == ""
}

// WebResearch searches the web through the Tavily API.
type WebResearch struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxResults int
	logger     zerolog.Logger
}

// WebOption configures WebResearch.
type WebOption func(*WebResearch)

// WithBaseURL overrides the search endpoint.
func WithBaseURL(url string) WebOption {
	return func(w *WebResearch) {
		w.baseURL = url
	}
}

// WithMaxResults sets the maximum search results to request.
func WithMaxResults(max int) WebOption {
	return func(w *WebResearch) {
		w.maxResults = max
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) WebOption {
	return func(w *WebResearch) {
		w.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) WebOption {
	return func(w *WebResearch) {
		w.logger = l
	}
}

// NewWebResearch creates a Tavily-backed lookup. An empty apiKey yields a
// lookup that always returns empty findings.
func NewWebResearch(apiKey string, opts ...WebOption) *WebResearch {
	w := &WebResearch{
		apiKey:     apiKey,
		baseURL:    defaultTavilyURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxResults: 5,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Available returns true if the API key is configured.
func (w *WebResearch) Available() bool {
	return w != nil && w.apiKey != ""
}

type tavilyRequest struct {
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
	MaxResults    int    `json:"max_results"`
}

type tavilyResponse struct {
	Answer  string         `json:"answer"`
	Results []tavilyResult `json:"results"`
}

type tavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Lookup searches the web for query.
func (w *WebResearch) Lookup(ctx context.Context, query string) (*WebFindings, error) {
	if !w.Available() {
		return &WebFindings{Query: query}, nil
	}

	body, err := json.Marshal(tavilyRequest{
		Query:         query,
		SearchDepth:   "advanced",
		IncludeAnswer: true,
		MaxResults:    w.maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.apiKey)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var tr tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	findings := &WebFindings{Query: query, Insights: formatInsights(tr)}
	for _, r := range tr.Results {
		findings.Sources = append(findings.Sources, WebSource{Title: r.Title, URL: r.URL, Score: r.Score})
	}
	w.logger.Debug().Int("results", len(tr.Results)).Msg("web research complete")
	return findings, nil
}

func formatInsights(tr tavilyResponse) string {
	var sb strings.Builder
	if answer := strings.TrimSpace(tr.Answer); answer != "" {
		sb.WriteString(answer)
		sb.WriteString("\n\n")
	}
	if len(tr.Results) > 0 {
		sb.WriteString("Key findings:\n")
		for _, r := range tr.Results {
			fmt.Fprintf(&sb, "- %s: %s (%s)\n", r.Title, strings.TrimSpace(r.Content), r.URL)
		}
	}
	return strings.TrimSpace(sb.String())
}
