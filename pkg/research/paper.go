// Package research retrieves academic papers for a query and condenses
// them into a context block shared by every worker.
package research

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Paper is one retrieved publication.
type Paper struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Year          int      `json:"year,omitempty"`
	Abstract      string   `json:"abstract"`
	Citation      string   `json:"citation"`
	URL           string   `json:"url"`
	Venue         string   `json:"venue,omitempty"`
	Source        string   `json:"source"`
	CitationCount int      `json:"citation_count"`
}

// YearString returns the year, or "n.d." when unknown.
func (p Paper) YearString() string {
	if p.Year <= 0 {
		return "n.d."
	}
	return strconv.Itoa(p.Year)
}

// FormatCitation renders p as "Authors (Year). Title. Venue.".
func FormatCitation(p Paper) string {
	var authors string
	switch len(p.Authors) {
	case 0:
		authors = "Unknown"
	case 1:
		authors = p.Authors[0]
	case 2:
		authors = p.Authors[0] + " and " + p.Authors[1]
	default:
		authors = p.Authors[0] + " et al."
	}

	title := p.Title
	if title == "" {
		title = "Untitled"
	}
	if p.Venue != "" {
		return fmt.Sprintf("%s (%s). %s. %s.", authors, p.YearString(), title, p.Venue)
	}
	return fmt.Sprintf("%s (%s). %s.", authors, p.YearString(), title)
}

// Rank orders papers by citation count, then year, both descending. Ties
// keep their retrieval order.
func Rank(papers []Paper) {
	sort.SliceStable(papers, func(i, j int) bool {
		if papers[i].CitationCount != papers[j].CitationCount {
			return papers[i].CitationCount > papers[j].CitationCount
		}
		return papers[i].Year > papers[j].Year
	})
}

func formatPapersForPrompt(papers []Paper) string {
	if len(papers) == 0 {
		return "No papers retrieved."
	}
	var sb strings.Builder
	for i, p := range papers {
		fmt.Fprintf(&sb, "--- Paper %d ---\n", i+1)
		fmt.Fprintf(&sb, "Title: %s\n", p.Title)
		authors := p.Authors
		if len(authors) > 3 {
			authors = authors[:3]
		}
		sb.WriteString("Authors: " + strings.Join(authors, ", "))
		if len(p.Authors) > 3 {
			sb.WriteString(" et al.")
		}
		fmt.Fprintf(&sb, "\nYear: %s\n", p.YearString())
		fmt.Fprintf(&sb, "Source: %s\n", p.Source)
		if p.CitationCount > 0 {
			fmt.Fprintf(&sb, "Citations: %d\n", p.CitationCount)
		}
		fmt.Fprintf(&sb, "\nAbstract:\n%s\n", p.Abstract)
		fmt.Fprintf(&sb, "\nCitation: %s\n", p.Citation)
		fmt.Fprintf(&sb, "\n%s\n\n", strings.Repeat("=", 70))
	}
	return sb.String()
}

// BuildContext renders the block appended to every worker prompt. It is
// empty when there are no papers.
func BuildContext(papers []Paper, synthesis string) string {
	if len(papers) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n## Research-Backed Insights\n\n")
	sb.WriteString(synthesis)
	sb.WriteString("\n\n## Academic Sources\n")
	for i, p := range papers {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, p.Citation)
		fmt.Fprintf(&sb, "   URL: %s\n\n", p.URL)
	}
	return sb.String()
}
