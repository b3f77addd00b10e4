// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/sim-agent/internal/httputil"
	"github.com/pdiddy/sim-agent/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func withSemanticBase(t *testing.T, url string) {
	t.Helper()
	orig := semanticAPIBase
	semanticAPIBase = url
	t.Cleanup(func() { semanticAPIBase = orig })
}

func withOpenAlexBase(t *testing.T, url string) {
	t.Helper()
	orig := openAlexAPIBase
	openAlexAPIBase = url
	t.Cleanup(func() { openAlexAPIBase = orig })
}

func openAlexPage(n, offset int) map[string]any {
	results := make([]map[string]any, n)
	for i := range results {
		results[i] = map[string]any{
			"id":               fmt.Sprintf("https://openalex.org/W%d", offset+i),
			"display_name":     fmt.Sprintf("Work %d", offset+i),
			"publication_year": 2023,
			"cited_by_count":   i,
		}
	}
	return map[string]any{"results": results}
}

func TestSemanticScholarSearch(t *testing.T) {
	var gotKey, gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotLimit = r.URL.Query().Get("limit")
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{
					"paperId": "abc", "title": "MD of lipids", "abstract": "We ran GROMACS.",
					"year": 2022, "citationCount": 14, "venue": "JCP",
					"externalIds":   map[string]any{"DOI": "10.1/xyz"},
					"openAccessPdf": map[string]any{"url": "https://example.org/a.pdf"},
				},
				{"paperId": "old", "title": "Old paper", "year": 1990},
				{"paperId": "noyear", "title": "Undated paper"},
			},
		})
	}))
	defer srv.Close()
	withSemanticBase(t, srv.URL)

	s := &SemanticScholar{Client: srv.Client(), APIKey: "secret"}
	papers, err := s.Search(context.Background(), "lipid md", 500, 2015)
	require.NoError(t, err)

	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "100", gotLimit, "limit is clamped")
	require.Len(t, papers, 2, "papers before yearFrom are dropped, undated kept")
	assert.Equal(t, types.PaperMetadata{
		PaperID: "abc", Title: "MD of lipids", Abstract: "We ran GROMACS.", Year: 2022,
		DOI: "10.1/xyz", Venue: "JCP", CitationCount: 14,
		OpenAccessPDFURL: "https://example.org/a.pdf",
	}, papers[0])
	assert.Equal(t, "noyear", papers[1].PaperID)
}

func TestSemanticScholarStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	withSemanticBase(t, srv.URL)

	s := &SemanticScholar{Client: srv.Client()}
	_, err := s.Search(context.Background(), "q", 10, 0)

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 429, statusErr.StatusCode)
}

// openAlexServer pages through total works the way OpenAlex does: the
// offset is (page-1)*per-page from the request. Works with an index below
// oldBefore are published in 2001.
func openAlexServer(t *testing.T, total, oldBefore int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		perPage, _ := strconv.Atoi(q.Get("per-page"))
		page, _ := strconv.Atoi(q.Get("page"))
		offset := (page - 1) * perPage
		n := max(min(perPage, total-offset), 0)

		body := openAlexPage(n, offset)
		for i, work := range body["results"].([]map[string]any) {
			if offset+i < oldBefore {
				work["publication_year"] = 2001
			}
		}
		json.NewEncoder(w).Encode(body)
	}))
}

func TestOpenAlexPagination(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		oldBefore int
		limit     int
		yearFrom  int
		wantLen   int
		wantFirst string
		wantLast  string
		wantCalls int32
	}{
		{"limit not a page multiple", 500, 0, 70, 0, 70, "W0", "W69", 2},
		{"exact page", 500, 0, 50, 0, 50, "W0", "W49", 1},
		{"provider runs out", 60, 0, 100, 0, 60, "W0", "W59", 2},
		{"old works skipped", 500, 80, 30, 2016, 30, "W80", "W109", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := openAlexServer(t, tt.total, tt.oldBefore, &calls)
			defer srv.Close()
			withOpenAlexBase(t, srv.URL)

			o := &OpenAlex{Client: srv.Client()}
			papers, err := o.Search(context.Background(), "polymer crystallinity", tt.limit, tt.yearFrom)
			require.NoError(t, err)

			require.Len(t, papers, tt.wantLen)
			assert.Len(t, Dedupe(papers), tt.wantLen, "pages must not overlap")
			assert.Equal(t, tt.wantFirst, papers[0].PaperID)
			assert.Equal(t, tt.wantLast, papers[len(papers)-1].PaperID)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestOpenAlexQueryParams(t *testing.T) {
	var perPages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		perPages = append(perPages, q.Get("per-page"))
		assert.Equal(t, "relevance_score:desc", q.Get("sort"))
		assert.Equal(t, "from_publication_date:2016-01-01", q.Get("filter"))
		assert.Equal(t, "me@example.org", q.Get("mailto"))
		page, _ := strconv.Atoi(q.Get("page"))
		json.NewEncoder(w).Encode(openAlexPage(50, (page-1)*50))
	}))
	defer srv.Close()
	withOpenAlexBase(t, srv.URL)

	o := &OpenAlex{Client: srv.Client(), Email: "me@example.org"}
	_, err := o.Search(context.Background(), "q", 70, 2016)
	require.NoError(t, err)
	assert.Equal(t, []string{"50", "50"}, perPages)
}

func TestOpenAlexStopsOnShortPage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(openAlexPage(7, 0))
	}))
	defer srv.Close()
	withOpenAlexBase(t, srv.URL)

	o := &OpenAlex{Client: srv.Client()}
	papers, err := o.Search(context.Background(), "q", 90, 0)
	require.NoError(t, err)
	assert.Len(t, papers, 7)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAlexWorkMapping(t *testing.T) {
	body := `{"results":[{
		"id": "https://openalex.org/W123",
		"doi": "https://doi.org/10.5/ABC",
		"display_name": "Coarse-grained membranes",
		"publication_year": 2021,
		"cited_by_count": 9,
		"abstract_inverted_index": {"We": [0], "simulate": [1], "membranes": [2]},
		"primary_location": {"landing_page_url": "https://journal.org/x", "source": {"display_name": "Soft Matter"}},
		"best_oa_location": {"landing_page_url": "https://repo.org/x"}
	}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()
	withOpenAlexBase(t, srv.URL)

	o := &OpenAlex{Client: srv.Client()}
	papers, err := o.Search(context.Background(), "q", 5, 0)
	require.NoError(t, err)
	require.Len(t, papers, 1)

	p := papers[0]
	assert.Equal(t, "W123", p.PaperID)
	assert.Equal(t, "10.5/ABC", p.DOI)
	assert.Equal(t, "We simulate membranes", p.Abstract)
	assert.Equal(t, "Soft Matter", p.Venue)
	assert.Equal(t, "https://journal.org/x", p.URL)
	assert.Equal(t, "https://repo.org/x", p.OpenAccessPDFURL, "landing page used when no PDF link exists")
}

func TestOpenAlexResolvePDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/https://doi.org/10.1/oa":
			fmt.Fprint(w, `{"best_oa_location":{"pdf_url":"https://repo.org/oa.pdf"}}`)
		case "/https://doi.org/10.1/closed":
			fmt.Fprint(w, `{"best_oa_location":null}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	withOpenAlexBase(t, srv.URL)

	o := &OpenAlex{Client: srv.Client()}
	ctx := context.Background()

	got, err := o.ResolvePDF(ctx, "10.1/oa")
	require.NoError(t, err)
	assert.Equal(t, "https://repo.org/oa.pdf", got)

	got, err = o.ResolvePDF(ctx, "10.1/closed")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = o.ResolvePDF(ctx, "10.1/missing")
	assert.Error(t, err)
}

func TestReconstructAbstract(t *testing.T) {
	tests := []struct {
		name  string
		index map[string][]int
		want  string
	}{
		{"nil map", nil, ""},
		{"single word", map[string][]int{"hello": {0}}, "hello"},
		{"repeated word", map[string][]int{"the": {0, 3}, "cat": {1}, "saw": {2}, "dog": {4}}, "the cat saw the dog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reconstructAbstract(tt.index); got != tt.want {
				t.Errorf("reconstructAbstract() = %q, want %q", got, tt.want)
			}
		})
	}
}

// fakeSearcher returns canned results and counts calls.
type fakeSearcher struct {
	name   string
	papers []types.PaperMetadata
	err    error
	calls  int
}

func (f *fakeSearcher) Name() string { return f.name }

func (f *fakeSearcher) Search(context.Context, string, int, int) ([]types.PaperMetadata, error) {
	f.calls++
	return f.papers, f.err
}

func TestFallback(t *testing.T) {
	secondaryPapers := []types.PaperMetadata{{PaperID: "W1", Title: "from openalex"}}

	tests := []struct {
		name           string
		primaryErr     error
		secondaryErr   error
		wantErr        bool
		wantSecondary  int
		wantFromSecond bool
	}{
		{"primary ok", nil, nil, false, 0, false},
		{"rate limited", &HTTPStatusError{"Semantic Scholar", 429}, nil, false, 1, true},
		{"server error", &HTTPStatusError{"Semantic Scholar", 502}, nil, false, 1, true},
		{"network error", &netError{}, nil, false, 1, true},
		{"unlisted status is fatal", &HTTPStatusError{"Semantic Scholar", 418}, nil, true, 0, false},
		{"parse error is fatal", errors.New("parsing Semantic Scholar response: bad"), nil, true, 0, false},
		{"both fail", &HTTPStatusError{"Semantic Scholar", 429}, &HTTPStatusError{"OpenAlex", 500}, true, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &fakeSearcher{name: "semantic_scholar", papers: []types.PaperMetadata{{PaperID: "S1"}}, err: tt.primaryErr}
			secondary := &fakeSearcher{name: "openalex", papers: secondaryPapers, err: tt.secondaryErr}
			f := &Fallback{Primary: primary, Secondary: secondary}

			papers, err := f.Search(context.Background(), "q", 10, 0)
			assert.Equal(t, tt.wantSecondary, secondary.calls)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantFromSecond {
				assert.Equal(t, secondaryPapers, papers)
			} else {
				assert.Equal(t, "S1", papers[0].PaperID)
			}
		})
	}
}

func TestFallbackCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cancel()
		<-r.Context().Done()
	}))
	defer s2.Close()
	withSemanticBase(t, s2.URL)

	secondary := &fakeSearcher{name: "openalex", papers: []types.PaperMetadata{{PaperID: "W1"}}}
	f := &Fallback{Primary: &SemanticScholar{Client: s2.Client()}, Secondary: secondary}

	_, err := f.Search(ctx, "q", 10, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, secondary.calls)
}

func TestShouldFallback(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"throttled", &HTTPStatusError{"Semantic Scholar", 429}, true},
		{"teapot", &HTTPStatusError{"Semantic Scholar", 418}, false},
		{"network", &url.Error{Op: "Get", URL: "https://x", Err: netError{}}, true},
		{"cancelled", &url.Error{Op: "Get", URL: "https://x", Err: context.Canceled}, false},
		{"plain", errors.New("parsing response"), false},
	}
	for _, tt := range tests {
		if got := ShouldFallback(tt.err); got != tt.want {
			t.Errorf("ShouldFallback(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFallbackBothFailMessage(t *testing.T) {
	f := &Fallback{
		Primary:   &fakeSearcher{name: "Semantic Scholar", err: &HTTPStatusError{"Semantic Scholar", 429}},
		Secondary: &fakeSearcher{name: "OpenAlex", err: &HTTPStatusError{"OpenAlex", 503}},
	}
	_, err := f.Search(context.Background(), "q", 10, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search failed on Semantic Scholar and OpenAlex")
}

// Semantic Scholar answers 429 and OpenAlex is consulted exactly once.
func TestFallbackOverHTTP(t *testing.T) {
	s2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer s2.Close()
	var oaCalls atomic.Int32
	oa := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		oaCalls.Add(1)
		json.NewEncoder(w).Encode(openAlexPage(3, 0))
	}))
	defer oa.Close()
	withSemanticBase(t, s2.URL)
	withOpenAlexBase(t, oa.URL)

	f := &Fallback{
		Primary:   &SemanticScholar{Client: s2.Client()},
		Secondary: &OpenAlex{Client: oa.Client()},
	}
	papers, err := f.Search(context.Background(), "q", 10, 0)
	require.NoError(t, err)
	assert.Len(t, papers, 3)
	assert.Equal(t, int32(1), oaCalls.Load())
}

func TestDedupe(t *testing.T) {
	in := []types.PaperMetadata{
		{PaperID: "a", DOI: "10.1/X", Title: "first"},
		{PaperID: "b", DOI: "10.1/x", Title: "same doi, different case"},
		{PaperID: "c", Title: "no doi"},
		{PaperID: "c", Title: "no doi again"},
		{Title: "no key at all"},
	}
	got := Dedupe(in)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Title)
	assert.Equal(t, "no doi", got[1].Title)
}

type netError struct{}

func (netError) Error() string   { return "dial tcp: connection refused" }
func (netError) Timeout() bool   { return false }
func (netError) Temporary() bool { return false }
