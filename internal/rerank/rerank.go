// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rerank picks the final papers from a ranked shortlist. An LLM may
// choose by title and year; otherwise the heuristic top N is used.
package rerank

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/sim-agent/internal/llm"
	"github.com/pdiddy/sim-agent/pkg/types"
)

// Selection modes recorded in the manifest and candidate file.
const (
	ModeLLM       = "llm_title_rerank"
	ModeHeuristic = "heuristic_top_n"
)

// DefaultMaxTitles caps the titles sent in one rerank prompt.
const DefaultMaxTitles = 120

// Matcher decides whether a candidate is on topic. topic.Constraint
// satisfies it.
type Matcher interface {
	Matches(p types.PaperMetadata) bool
}

func matches(m Matcher, p types.PaperMetadata) bool {
	return m == nil || m.Matches(p)
}

// Ref returns the reference token for the i-th (0-based) shortlist entry.
func Ref(i int) string {
	return fmt.Sprintf("R%03d", i+1)
}

// Shortlist returns the head of the ranked pool that the selection step
// considers: max(poolTarget, 5*topN) entries, or fewer if the pool is
// smaller.
func Shortlist(pool []types.RankedPaper, topN, poolTarget int) []types.RankedPaper {
	size := max(poolTarget, 5*topN)
	if size >= len(pool) {
		return pool
	}
	return pool[:size]
}

// Select resolves refs against shortlist in the given order, skipping
// unknown or repeated refs and candidates m rejects. If fewer than topN
// remain it fills from shortlist order, first with candidates m accepts,
// then with any candidate.
func Select(refs []string, shortlist []types.RankedPaper, m Matcher, topN int) []types.RankedPaper {
	index := make(map[string]int, len(shortlist))
	for i := range shortlist {
		index[Ref(i)] = i
	}

	picked := make(map[int]bool)
	var out []types.RankedPaper
	take := func(i int) {
		picked[i] = true
		out = append(out, shortlist[i])
	}

	for _, ref := range refs {
		if len(out) >= topN {
			break
		}
		i, ok := index[strings.ToUpper(strings.TrimSpace(ref))]
		if !ok || picked[i] || !matches(m, shortlist[i].Metadata) {
			continue
		}
		take(i)
	}

	for _, useFilter := range []bool{true, false} {
		for i := range shortlist {
			if len(out) >= topN {
				return out
			}
			if picked[i] || (useFilter && !matches(m, shortlist[i].Metadata)) {
				continue
			}
			take(i)
		}
	}
	return out
}

// Heuristic returns the first topN entries of the ranked pool.
func Heuristic(pool []types.RankedPaper, topN int) []types.RankedPaper {
	if topN >= len(pool) {
		return pool
	}
	return pool[:topN]
}

const rerankSystemPrompt = "You select the most relevant scientific papers for a research topic using only their titles and years. " +
	"Prefer papers that report simulation studies directly on the topic. " +
	"Return JSON with key selected_refs: a list of reference tokens (like R001) in priority order."

// Reranker asks an LLM to choose papers from a shortlist.
type Reranker struct {
	Client    llm.Client
	MaxTitles int
	Logger    *zap.Logger
}

// Rerank returns the LLM's selection filled to topN, and false when the LLM
// is unavailable or returned no usable refs. On false the caller uses the
// heuristic top N.
func (r *Reranker) Rerank(ctx context.Context, topic string, hints Hints, shortlist []types.RankedPaper, m Matcher, topN int) ([]types.RankedPaper, bool) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if r.Client == nil || !r.Client.Enabled() || len(shortlist) == 0 {
		return nil, false
	}

	res := r.Client.Chat(ctx, llm.Request{
		System:      rerankSystemPrompt,
		User:        r.prompt(topic, hints, shortlist, topN),
		Temperature: 0,
		MaxTokens:   600,
	})
	var answer struct {
		SelectedRefs []string `json:"selected_refs"`
	}
	if !res.Decode(&answer) || len(answer.SelectedRefs) == 0 {
		logger.Debug("title rerank unavailable", zap.Stringer("kind", res.Kind))
		return nil, false
	}

	selected := Select(answer.SelectedRefs, shortlist, m, topN)
	if len(selected) == 0 {
		return nil, false
	}
	return selected, true
}

// Hints are the constraint terms shown to the LLM alongside the titles.
type Hints struct {
	AnchorGroups      [][]string
	ExcludeTitleTerms []string
}

func (r *Reranker) prompt(topic string, hints Hints, shortlist []types.RankedPaper, topN int) string {
	maxTitles := r.MaxTitles
	if maxTitles <= 0 {
		maxTitles = DefaultMaxTitles
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	fmt.Fprintf(&b, "Select the best %d papers.\n", topN)
	if len(hints.AnchorGroups) > 0 {
		groups := make([]string, len(hints.AnchorGroups))
		for i, g := range hints.AnchorGroups {
			groups[i] = "(" + strings.Join(g, " | ") + ")"
		}
		fmt.Fprintf(&b, "Required concepts: %s\n", strings.Join(groups, ", "))
	}
	if len(hints.ExcludeTitleTerms) > 0 {
		fmt.Fprintf(&b, "Avoid titles containing: %s\n", strings.Join(hints.ExcludeTitleTerms, ", "))
	}
	b.WriteString("Candidates:\n")
	for i, rp := range shortlist {
		if i == maxTitles {
			break
		}
		year := "n.d."
		if rp.Metadata.Year > 0 {
			year = fmt.Sprint(rp.Metadata.Year)
		}
		fmt.Fprintf(&b, "%s | %s | %s\n", Ref(i), year, rp.Metadata.Title)
	}
	return b.String()
}

// Entries builds the candidate audit rows for shortlist given the final
// selection.
func Entries(shortlist, selected []types.RankedPaper, m Matcher) []types.CandidateEntry {
	rank := make(map[string]int, len(selected))
	for i, rp := range selected {
		rank[rp.Metadata.Key()] = i + 1
	}

	entries := make([]types.CandidateEntry, len(shortlist))
	for i, rp := range shortlist {
		pos := rank[rp.Metadata.Key()]
		entries[i] = types.CandidateEntry{
			Ref:             Ref(i),
			PaperID:         rp.Metadata.PaperID,
			Title:           rp.Metadata.Title,
			Year:            rp.Metadata.Year,
			Score:           rp.Score,
			ConstraintMatch: matches(m, rp.Metadata),
			Selected:        pos > 0,
			SelectedRank:    pos,
		}
	}
	return entries
}
