// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank scores candidate papers by query relevance, recency, and
// citation count and orders them by the weighted sum.
package rank

import (
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/pdiddy/sim-agent/pkg/types"
)

var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9+]+`)

// Words lowercases s, treats hyphens as spaces, and returns its
// alphanumeric tokens in order, repeats included.
func Words(s string) []string {
	s = strings.ReplaceAll(strings.ToLower(s), "-", " ")
	return tokenPattern.FindAllString(s, -1)
}

// Tokenize returns the set of Words in s.
func Tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range Words(s) {
		tokens[tok] = true
	}
	return tokens
}

// Relevance is the share of query tokens present in text. An empty query
// scores 0.
func Relevance(query, text string) float64 {
	q := Tokenize(query)
	if len(q) == 0 {
		return 0
	}
	t := Tokenize(text)
	hits := 0
	for tok := range q {
		if t[tok] {
			hits++
		}
	}
	return min(float64(hits)/float64(len(q)), 1)
}

// Recency decays linearly from 1.0 for a paper published this year to 0.2
// at the edge of the window, then by 0.02 per further year down to 0.
// Papers without a year get 0.2.
func Recency(year, currentYear, window int) float64 {
	if year <= 0 {
		return 0.2
	}
	age := max(currentYear-year, 0)
	if age <= window {
		return 1 - float64(age)/float64(max(window, 1))*0.8
	}
	return max(0, 0.2-float64(age-window)*0.02)
}

// Citation maps a citation count onto [0,1] logarithmically.
func Citation(count int) float64 {
	if count <= 0 {
		return 0
	}
	return min(math.Log1p(float64(count))/10, 1)
}

// Rank scores every paper against query and returns them sorted by score,
// highest first. Equal scores keep their input order. Weights are applied
// as given.
func Rank(papers []types.PaperMetadata, query string, w types.RankingWeights, window, currentYear int) []types.RankedPaper {
	ranked := make([]types.RankedPaper, len(papers))
	for i, p := range papers {
		rel := Relevance(query, p.Title+" "+p.Abstract)
		rec := Recency(p.Year, currentYear, window)
		cit := Citation(p.CitationCount)
		ranked[i] = types.RankedPaper{
			Metadata:  p,
			Score:     w.Relevance*rel + w.Recency*rec + w.Citation*cit,
			Relevance: rel,
			Recency:   rec,
			Citation:  cit,
		}
	}
	slices.SortStableFunc(ranked, func(a, b types.RankedPaper) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return ranked
}
