// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rerank

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/sim-agent/internal/llm"
	"github.com/pdiddy/sim-agent/internal/llm/llmtest"
	"github.com/pdiddy/sim-agent/internal/topic"
	"github.com/pdiddy/sim-agent/pkg/types"
)

func titledPool(n int) []types.RankedPaper {
	pool := make([]types.RankedPaper, n)
	for i := range pool {
		pool[i] = types.RankedPaper{
			Metadata: types.PaperMetadata{PaperID: fmt.Sprintf("p%d", i+1), Title: fmt.Sprintf("Title %d", i+1)},
			Score:    1.0 / float64(i+1),
		}
	}
	return pool
}

func ids(papers []types.RankedPaper) []string {
	out := make([]string, len(papers))
	for i, p := range papers {
		out[i] = p.Metadata.PaperID
	}
	return out
}

func TestRef(t *testing.T) {
	assert.Equal(t, "R001", Ref(0))
	assert.Equal(t, "R042", Ref(41))
	assert.Equal(t, "R120", Ref(119))
}

func TestShortlist(t *testing.T) {
	pool := titledPool(300)
	assert.Len(t, Shortlist(pool, 10, 100), 100)
	assert.Len(t, Shortlist(pool, 30, 100), 150, "5*topN wins when larger")
	assert.Len(t, Shortlist(titledPool(7), 10, 100), 7)
}

func TestRerankSelectsAndFills(t *testing.T) {
	stub := llmtest.JSON(map[string]any{"selected_refs": []string{"R002", "R004"}})
	r := &Reranker{Client: stub}

	got, ok := r.Rerank(context.Background(), "polymer crystallinity", Hints{}, titledPool(5), topic.Constraint{}, 3)
	require.True(t, ok)
	assert.Equal(t, []string{"p2", "p4", "p1"}, ids(got))
}

func TestSelect(t *testing.T) {
	pool := titledPool(6)
	// Only odd-numbered titles pass.
	odd := topic.Constraint{AnchorGroups: [][]string{{"title 1", "title 3", "title 5"}}}

	tests := []struct {
		name    string
		refs    []string
		matcher Matcher
		topN    int
		want    []string
	}{
		{"explicit order kept", []string{"R003", "R001"}, nil, 2, []string{"p3", "p1"}},
		{"duplicates and unknown skipped", []string{"R002", "R002", "R999", "bogus", " r005 "}, nil, 3, []string{"p2", "p5", "p1"}},
		{"refs beyond topN ignored", []string{"R006", "R005", "R004"}, nil, 2, []string{"p6", "p5"}},
		{"constraint rejects picks", []string{"R002", "R003"}, odd, 2, []string{"p3", "p1"}},
		{"fill ignores constraint when short", []string{"R002"}, odd, 5, []string{"p1", "p3", "p5", "p2", "p4"}},
		{"pool exhausted", nil, nil, 10, []string{"p1", "p2", "p3", "p4", "p5", "p6"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(tt.refs, pool, tt.matcher, tt.topN)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestRerankFallsBack(t *testing.T) {
	tests := []struct {
		name   string
		client llm.Client
	}{
		{"nil client", nil},
		{"disabled", llm.Disabled{}},
		{"transport failure", llmtest.Failing()},
		{"empty refs", llmtest.JSON(map[string]any{"selected_refs": []string{}})},
		{"missing key", llmtest.JSON(map[string]any{"picked": []string{"R001"}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Reranker{Client: tt.client}
			got, ok := r.Rerank(context.Background(), "t", Hints{}, titledPool(5), nil, 3)
			assert.False(t, ok)
			assert.Nil(t, got)
		})
	}
}

func TestRerankPromptCapsTitles(t *testing.T) {
	stub := llmtest.JSON(map[string]any{"selected_refs": []string{"R001"}})
	r := &Reranker{Client: stub, MaxTitles: 3}
	hints := Hints{AnchorGroups: [][]string{{"polymer", "polyethylene"}}, ExcludeTitleTerms: []string{"tutorial"}}

	_, ok := r.Rerank(context.Background(), "polymer crystallinity", hints, titledPool(10), nil, 2)
	require.True(t, ok)

	calls := stub.Calls()
	require.Len(t, calls, 1)
	user := calls[0].User
	assert.Contains(t, user, "Topic: polymer crystallinity")
	assert.Contains(t, user, "(polymer | polyethylene)")
	assert.Contains(t, user, "Avoid titles containing: tutorial")
	assert.Contains(t, user, "R003 | n.d. | Title 3")
	assert.False(t, strings.Contains(user, "R004"), "titles beyond MaxTitles are not sent")
}

func TestHeuristic(t *testing.T) {
	assert.Equal(t, []string{"p1", "p2"}, ids(Heuristic(titledPool(5), 2)))
	assert.Len(t, Heuristic(titledPool(2), 5), 2)
}

func TestEntries(t *testing.T) {
	shortlist := titledPool(4)
	selected := []types.RankedPaper{shortlist[2], shortlist[0]}
	m := topic.Constraint{AnchorGroups: [][]string{{"title 3"}}}

	entries := Entries(shortlist, selected, m)
	require.Len(t, entries, 4)

	assert.Equal(t, types.CandidateEntry{
		Ref: "R003", PaperID: "p3", Title: "Title 3", Score: 1.0 / 3,
		ConstraintMatch: true, Selected: true, SelectedRank: 1,
	}, entries[2])
	assert.Equal(t, 2, entries[0].SelectedRank)
	assert.False(t, entries[0].ConstraintMatch)
	assert.False(t, entries[1].Selected)
	assert.Equal(t, 0, entries[3].SelectedRank)
}
