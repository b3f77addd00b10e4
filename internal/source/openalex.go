// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/sim-agent/internal/httputil"
	"github.com/pdiddy/sim-agent/pkg/types"
)

// openAlexAPIBase is the OpenAlex Works endpoint. Declared as a var so tests
// can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works"

// openAlexPageSize is the largest page OpenAlex is asked for.
const openAlexPageSize = 50

// openAlexMaxPage is the last page basic paging can reach: OpenAlex serves
// at most 10,000 results without a cursor.
const openAlexMaxPage = 10000 / openAlexPageSize

// OpenAlex queries the OpenAlex Works API. Throttled pages are retried
// through httputil.DoWithRetry.
type OpenAlex struct {
	Client *http.Client
	// Email is sent as the mailto parameter for polite pool access.
	Email     string
	UserAgent string
}

func (o *OpenAlex) Name() string { return "openalex" }

// Search pages through relevance-sorted results until limit papers have
// been collected or the provider runs out of results. OpenAlex derives the
// page offset from per-page, so every request asks for the same page size
// and the final page is trimmed instead.
func (o *OpenAlex) Search(ctx context.Context, query string, limit, yearFrom int) ([]types.PaperMetadata, error) {
	limit = clampLimit(limit)

	var papers []types.PaperMetadata
	for page := 1; len(papers) < limit && page <= openAlexMaxPage; page++ {
		params := url.Values{
			"search":   {query},
			"per-page": {strconv.Itoa(openAlexPageSize)},
			"page":     {strconv.Itoa(page)},
			"sort":     {"relevance_score:desc"},
		}
		if yearFrom > 0 {
			params.Set("filter", fmt.Sprintf("from_publication_date:%d-01-01", yearFrom))
		}
		if o.Email != "" {
			params.Set("mailto", o.Email)
		}

		var oar openAlexResponse
		if err := o.get(ctx, openAlexAPIBase+"?"+params.Encode(), &oar); err != nil {
			return nil, err
		}

		for _, work := range oar.Results {
			p := work.toMetadata()
			if yearFrom > 0 && p.Year > 0 && p.Year < yearFrom {
				continue
			}
			papers = append(papers, p)
			if len(papers) == limit {
				break
			}
		}

		if len(oar.Results) < openAlexPageSize {
			break
		}
	}
	return papers, nil
}

// ResolvePDF looks up a DOI and returns the best open-access PDF URL.
// It returns an empty string when OpenAlex knows no PDF for the work.
func (o *OpenAlex) ResolvePDF(ctx context.Context, doi string) (string, error) {
	apiURL := openAlexAPIBase + "/https://doi.org/" + strings.TrimSpace(doi)
	if o.Email != "" {
		apiURL += "?mailto=" + url.QueryEscape(o.Email)
	}

	var work openAlexWork
	if err := o.get(ctx, apiURL, &work); err != nil {
		return "", err
	}
	if work.BestOALocation == nil {
		return "", nil
	}
	return work.BestOALocation.PDFURL, nil
}

func (o *OpenAlex) get(ctx context.Context, reqURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if o.UserAgent != "" {
		req.Header.Set("User-Agent", o.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, o.Client, req, 0)
	if err != nil {
		return fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &HTTPStatusError{Provider: "OpenAlex", StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("parsing OpenAlex response: %w", err)
	}
	return nil
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to the positions where it
// appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
	Page    int `json:"page"`
}

type openAlexWork struct {
	ID                    string            `json:"id"`
	DOI                   string            `json:"doi"`
	DisplayName           string            `json:"display_name"`
	PublicationYear       int               `json:"publication_year"`
	CitedByCount          int               `json:"cited_by_count"`
	AbstractInvertedIndex map[string][]int  `json:"abstract_inverted_index"`
	PrimaryLocation       *openAlexLocation `json:"primary_location"`
	BestOALocation        *openAlexLocation `json:"best_oa_location"`
}

type openAlexLocation struct {
	PDFURL     string          `json:"pdf_url"`
	LandingURL string          `json:"landing_page_url"`
	Source     *openAlexSource `json:"source"`
}

type openAlexSource struct {
	DisplayName string `json:"display_name"`
}

func (w openAlexWork) toMetadata() types.PaperMetadata {
	id := w.ID
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}

	m := types.PaperMetadata{
		PaperID:       id,
		Title:         w.DisplayName,
		Abstract:      reconstructAbstract(w.AbstractInvertedIndex),
		Year:          w.PublicationYear,
		DOI:           strings.TrimPrefix(w.DOI, "https://doi.org/"),
		CitationCount: w.CitedByCount,
	}

	primary := w.PrimaryLocation
	if primary == nil {
		primary = &openAlexLocation{}
	}
	best := w.BestOALocation
	if best == nil {
		best = &openAlexLocation{}
	}
	if primary.Source != nil {
		m.Venue = primary.Source.DisplayName
	}
	m.URL = primary.LandingURL

	// Direct PDF links first, landing pages as a last resort.
	for _, u := range []string{best.PDFURL, primary.PDFURL, best.LandingURL, primary.LandingURL} {
		if u != "" {
			m.OpenAccessPDFURL = u
			break
		}
	}
	return m
}
