// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/sim-agent/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "paperId,title,abstract,year,externalIds,url,venue,citationCount,openAccessPdf"

// SemanticScholar queries the Semantic Scholar Graph API. It does not retry
// throttled requests itself; Fallback routes them to the secondary provider.
type SemanticScholar struct {
	Client    *http.Client
	APIKey    string
	UserAgent string
}

func (s *SemanticScholar) Name() string { return "semantic_scholar" }

func (s *SemanticScholar) Search(ctx context.Context, query string, limit, yearFrom int) ([]types.PaperMetadata, error) {
	params := url.Values{
		"query":  {query},
		"limit":  {strconv.Itoa(clampLimit(limit))},
		"offset": {"0"},
		"fields": {semanticFields},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}
	if s.APIKey != "" {
		req.Header.Set("x-api-key", s.APIKey)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &HTTPStatusError{Provider: "Semantic Scholar", StatusCode: resp.StatusCode}
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	papers := make([]types.PaperMetadata, 0, len(sr.Data))
	for _, item := range sr.Data {
		p := item.toMetadata()
		if yearFrom > 0 && p.Year > 0 && p.Year < yearFrom {
			continue
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID       string              `json:"paperId"`
	Title         string              `json:"title"`
	Abstract      string              `json:"abstract"`
	Year          int                 `json:"year"`
	URL           string              `json:"url"`
	Venue         string              `json:"venue"`
	CitationCount int                 `json:"citationCount"`
	ExternalIDs   semanticExternalIDs `json:"externalIds"`
	OpenAccessPDF *semanticOpenAccess `json:"openAccessPdf"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}

type semanticOpenAccess struct {
	URL    string `json:"url"`
	Status string `json:"status"`
}

func (p semanticPaper) toMetadata() types.PaperMetadata {
	m := types.PaperMetadata{
		PaperID:       p.PaperID,
		Title:         p.Title,
		Abstract:      p.Abstract,
		Year:          p.Year,
		DOI:           p.ExternalIDs.DOI,
		URL:           p.URL,
		Venue:         p.Venue,
		CitationCount: p.CitationCount,
	}
	if p.OpenAccessPDF != nil {
		m.OpenAccessPDFURL = p.OpenAccessPDF.URL
	}
	return m
}
