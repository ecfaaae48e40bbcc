package research

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultSemanticScholarURL = "https://api.semanticscholar.org/graph/v1"
	semanticScholarFields     = "paperId,title,abstract,year,authors,citationCount,publicationDate,venue,url"
)

// SemanticScholarSource searches the Semantic Scholar graph API.
type SemanticScholarSource struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// SourceOption configures an HTTP paper source.
type SourceOption func(*sourceOptions)

type sourceOptions struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// WithSourceBaseURL overrides the API endpoint.
func WithSourceBaseURL(u string) SourceOption {
	return func(o *sourceOptions) {
		o.baseURL = strings.TrimRight(u, "/")
	}
}

// WithSourceAPIKey sets an API key where the source accepts one.
func WithSourceAPIKey(key string) SourceOption {
	return func(o *sourceOptions) {
		o.apiKey = key
	}
}

// WithSourceHTTPClient sets the HTTP client.
func WithSourceHTTPClient(c *http.Client) SourceOption {
	return func(o *sourceOptions) {
		o.httpClient = c
	}
}

// WithSourceLimiter replaces the request rate limiter.
func WithSourceLimiter(l *rate.Limiter) SourceOption {
	return func(o *sourceOptions) {
		o.limiter = l
	}
}

func applySourceOptions(defaultURL string, every time.Duration, opts []SourceOption) sourceOptions {
	o := sourceOptions{
		baseURL:    defaultURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(every), 1),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewSemanticScholarSource builds a source limited to one request per
// second.
func NewSemanticScholarSource(opts ...SourceOption) *SemanticScholarSource {
	o := applySourceOptions(defaultSemanticScholarURL, time.Second, opts)
	return &SemanticScholarSource{
		baseURL:    o.baseURL,
		apiKey:     o.apiKey,
		httpClient: o.httpClient,
		limiter:    o.limiter,
	}
}

// Name returns the source label used in paper metadata.
func (s *SemanticScholarSource) Name() string {
	return "Semantic Scholar"
}

type s2SearchResponse struct {
	Data []s2Paper `json:"data"`
}

type s2Paper struct {
	PaperID       string     `json:"paperId"`
	Title         string     `json:"title"`
	Abstract      string     `json:"abstract"`
	Year          int        `json:"year"`
	Authors       []s2Author `json:"authors"`
	CitationCount int        `json:"citationCount"`
	Venue         string     `json:"venue"`
	URL           string     `json:"url"`
}

type s2Author struct {
	Name string `json:"name"`
}

// Search returns up to limit papers matching query.
func (s *SemanticScholarSource) Search(ctx context.Context, query string, limit int) ([]Paper, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", semanticScholarFields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/paper/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("x-api-key", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("semantic scholar request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("semantic scholar status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var sr s2SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode semantic scholar response: %w", err)
	}

	papers := make([]Paper, 0, len(sr.Data))
	for _, p := range sr.Data {
		authors := make([]string, 0, len(p.Authors))
		for _, a := range p.Authors {
			authors = append(authors, a.Name)
		}
		papers = append(papers, Paper{
			ID:            p.PaperID,
			Title:         p.Title,
			Authors:       authors,
			Year:          p.Year,
			Abstract:      p.Abstract,
			URL:           p.URL,
			Venue:         p.Venue,
			Source:        s.Name(),
			CitationCount: p.CitationCount,
		})
	}
	return papers, nil
}
