package router

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Case is one labeled routing example.
type Case struct {
	Query    string   `yaml:"query" json:"query"`
	Expected []string `yaml:"expected" json:"expected"`
}

// CaseResult is the outcome for one Case.
type CaseResult struct {
	Query     string   `json:"query"`
	Expected  []string `json:"expected"`
	Predicted []string `json:"predicted"`
	Jaccard   float64  `json:"jaccard"`
	Exact     bool     `json:"exact"`
}

// Report summarizes routing accuracy over a dataset.
type Report struct {
	Cases        int          `json:"cases"`
	ExactMatches int          `json:"exact_matches"`
	ExactRate    float64      `json:"exact_rate"`
	MeanJaccard  float64      `json:"mean_jaccard"`
	Results      []CaseResult `json:"results"`
}

// LoadCases reads a dataset. JSON is accepted as a subset of YAML.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cases []Case
	if err := yaml.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	return cases, nil
}

// Evaluate routes every case and scores the predictions.
func Evaluate(ctx context.Context, r Router, cases []Case) Report {
	rep := Report{Cases: len(cases), Results: make([]CaseResult, 0, len(cases))}
	var jaccardSum float64
	for _, c := range cases {
		if ctx.Err() != nil {
			break
		}
		d := r.Route(ctx, c.Query)
		res := CaseResult{
			Query:     c.Query,
			Expected:  c.Expected,
			Predicted: d.Workers,
			Jaccard:   Jaccard(c.Expected, d.Workers),
			Exact:     ExactMatch(c.Expected, d.Workers),
		}
		if res.Exact {
			rep.ExactMatches++
		}
		jaccardSum += res.Jaccard
		rep.Results = append(rep.Results, res)
	}
	if n := len(rep.Results); n > 0 {
		rep.ExactRate = float64(rep.ExactMatches) / float64(n)
		rep.MeanJaccard = jaccardSum / float64(n)
	}
	return rep
}

// Jaccard returns |a ∩ b| / |a ∪ b| over the sets of a and b. Two empty
// sets score 1.
func Jaccard(a, b []string) float64 {
	sa, sb := toSet(a), toSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 1
	}
	inter := 0
	for k := range sa {
		if sb[k] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

// ExactMatch reports whether a and b name the same set.
func ExactMatch(a, b []string) bool {
	sa, sb := toSet(a), toSet(b)
	if len(sa) != len(sb) {
		return false
	}
	for k := range sa {
		if !sb[k] {
			return false
		}
	}
	return true
}

func toSet(xs []string) map[string]bool {
	m := make(map[string]bool, len(xs))
	for _, x := range xs {
		m[x] = true
	}
	return m
}
