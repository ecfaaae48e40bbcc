package research

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultArxivURL = "http://export.arxiv.org/api/query"

// ArxivSource searches the arXiv Atom API. arXiv reports no citation
// counts, so its papers rank by year among themselves.
type ArxivSource struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewArxivSource builds a source limited to one request every three
// seconds.
func NewArxivSource(opts ...SourceOption) *ArxivSource {
	o := applySourceOptions(defaultArxivURL, 3*time.Second, opts)
	return &ArxivSource{baseURL: o.baseURL, httpClient: o.httpClient, limiter: o.limiter}
}

// Name returns the source label used in paper metadata.
func (a *ArxivSource) Name() string {
	return "arXiv"
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	Authors   []atomAuthor `xml:"author"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

// Search returns up to limit preprints matching query, most relevant first.
func (a *ArxivSource) Search(ctx context.Context, query string, limit int) ([]Paper, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(limit))
	params.Set("sortBy", "relevance")
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("arxiv status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode arxiv feed: %w", err)
	}

	papers := make([]Paper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		authors := make([]string, 0, len(e.Authors))
		for _, au := range e.Authors {
			authors = append(authors, strings.TrimSpace(au.Name))
		}
		papers = append(papers, Paper{
			ID:       strings.TrimSpace(e.ID),
			Title:    collapseSpace(e.Title),
			Authors:  authors,
			Year:     yearOf(e.Published),
			Abstract: collapseSpace(e.Summary),
			URL:      strings.TrimSpace(e.ID),
			Venue:    "arXiv preprint",
			Source:   a.Name(),
		})
	}
	return papers, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func yearOf(published string) int {
	y, _, ok := strings.Cut(strings.TrimSpace(published), "-")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(y)
	if err != nil {
		return 0
	}
	return n
}
