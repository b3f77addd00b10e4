// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package topic

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/sim-agent/internal/llm"
	"github.com/pdiddy/sim-agent/internal/rank"
	"github.com/pdiddy/sim-agent/internal/refine"
	"github.com/pdiddy/sim-agent/pkg/types"
)

const (
	maxAnchorGroups  = 4
	maxGroupTerms    = 8
	minAnchorLen     = 4
	minLLMTermLen    = 3
	minExcludeLen    = 4
	maxExcludeTerms  = 12
	anchorMatchFloor = 2
)

// Filter modes recorded in the manifest.
const (
	ModeConstrained = "constrained"
	ModeRelaxed     = "relaxed"
)

// Constraint sources recorded in the manifest.
const (
	SourceHeuristic = "heuristic"
	SourceLLM       = "llm"
)

// defaultExcludes are title phrases that mark generic, off-target papers.
var defaultExcludes = []string{"mini review", "tutorial", "editorial"}

// genericTerms never become anchors: they appear in nearly every
// simulation paper and would not narrow the pool.
var genericTerms = map[string]bool{
	"about": true, "across": true, "analysis": true, "application": true, "applications": true,
	"approach": true, "approaches": true, "based": true, "between": true, "computational": true,
	"considering": true, "effect": true, "effects": true, "from": true, "into": true,
	"investigation": true, "method": true, "methods": true, "model": true, "modeling": true,
	"modelling": true, "models": true, "molecular": true, "novel": true, "paper": true,
	"papers": true, "research": true, "review": true, "simulation": true, "simulations": true,
	"studies": true, "study": true, "survey": true, "their": true, "them": true,
	"these": true, "this": true, "through": true, "toward": true, "towards": true,
	"under": true, "using": true, "various": true, "with": true, "within": true,
	"the": true, "and": true, "for": true, "via": true, "over": true,
}

// Constraint keeps a ranked pool on topic. A paper passes when no exclude
// term occurs in its title and it matches enough anchor groups.
type Constraint struct {
	AnchorGroups      [][]string
	ExcludeTitleTerms []string
	Source            string
}

// Audit returns the manifest representation of c.
func (c Constraint) Audit() types.ConstraintAudit {
	return types.ConstraintAudit{
		AnchorGroups:      c.AnchorGroups,
		ExcludeTitleTerms: c.ExcludeTitleTerms,
		Source:            c.Source,
	}
}

// required is the number of anchor groups a paper must match. The floor of
// two is a tuning choice.
func (c Constraint) required() int {
	return min(len(c.AnchorGroups), anchorMatchFloor)
}

// Matches reports whether p passes the constraint. Exclude terms are
// checked against the title only and override any anchor match.
func (c Constraint) Matches(p types.PaperMetadata) bool {
	title := strings.ToLower(p.Title)
	for _, term := range c.ExcludeTitleTerms {
		if strings.Contains(title, term) {
			return false
		}
	}
	if len(c.AnchorGroups) == 0 {
		return true
	}

	text := strings.ToLower(p.Title + " " + p.Abstract)
	matched := 0
	for _, group := range c.AnchorGroups {
		if slices.ContainsFunc(group, func(term string) bool { return strings.Contains(text, term) }) {
			matched++
		}
	}
	return matched >= c.required()
}

// Heuristic derives a constraint from the topic words alone.
func Heuristic(topic string) Constraint {
	return Constraint{
		AnchorGroups:      heuristicAnchors(topic),
		ExcludeTitleTerms: heuristicExcludes(topic),
		Source:            SourceHeuristic,
	}
}

func heuristicAnchors(topic string) [][]string {
	var groups [][]string
	seen := make(map[string]bool)
	for _, w := range rank.Words(topic) {
		if len(w) < minAnchorLen || genericTerms[w] || seen[w] {
			continue
		}
		seen[w] = true
		groups = append(groups, []string{w})
		if len(groups) == maxAnchorGroups {
			break
		}
	}
	return groups
}

func heuristicExcludes(topic string) []string {
	lower := strings.ToLower(topic)
	if strings.Contains(lower, "review") || strings.Contains(lower, "survey") {
		return nil
	}
	return slices.Clone(defaultExcludes)
}

const constraintSystemPrompt = "You help keep scientific literature search results on topic. " +
	"Return JSON with keys: anchor_groups (a list of at most 4 concept groups; each group is a list of at most 8 lowercase synonym terms, " +
	"and a relevant paper mentions a term from most groups) and exclude_title_terms (a list of lowercase title phrases that mark off-target papers)."

// Derive builds the constraint for topic. An LLM answer is used when it
// yields at least one anchor group or exclude term after sanitization; any
// part it leaves empty falls back to the heuristic.
func Derive(ctx context.Context, client llm.Client, topic string, logger *zap.Logger) Constraint {
	if logger == nil {
		logger = zap.NewNop()
	}
	var smart refine.Refiner[string, Constraint]
	if client != nil && client.Enabled() {
		smart = refine.Func[string, Constraint](func(ctx context.Context, topic string) (Constraint, bool) {
			return llmConstraint(ctx, client, topic, logger)
		})
	}
	chain := refine.Chain[string, Constraint]{smart, refine.Always(Heuristic)}
	return chain.Run(ctx, Normalize(topic))
}

func llmConstraint(ctx context.Context, client llm.Client, topic string, logger *zap.Logger) (Constraint, bool) {
	res := client.Chat(ctx, llm.Request{
		System:      constraintSystemPrompt,
		User:        fmt.Sprintf("Topic: %s", topic),
		Temperature: 0,
		MaxTokens:   500,
	})
	var answer struct {
		AnchorGroups      [][]string `json:"anchor_groups"`
		ExcludeTitleTerms []string   `json:"exclude_title_terms"`
	}
	if !res.Decode(&answer) {
		logger.Debug("llm constraint unavailable", zap.Stringer("kind", res.Kind))
		return Constraint{}, false
	}

	anchors := sanitizeGroups(answer.AnchorGroups)
	excludes := sanitizeExcludes(answer.ExcludeTitleTerms)
	if len(anchors) == 0 && len(excludes) == 0 {
		return Constraint{}, false
	}
	if len(anchors) == 0 {
		anchors = heuristicAnchors(topic)
	}
	if len(excludes) == 0 {
		excludes = heuristicExcludes(topic)
	}
	return Constraint{AnchorGroups: anchors, ExcludeTitleTerms: excludes, Source: SourceLLM}, true
}

func sanitizeGroups(groups [][]string) [][]string {
	var out [][]string
	for _, group := range groups {
		var terms []string
		for _, term := range group {
			term = strings.ToLower(strings.Join(strings.Fields(term), " "))
			if len(term) < minLLMTermLen || genericTerms[term] || slices.Contains(terms, term) {
				continue
			}
			terms = append(terms, term)
			if len(terms) == maxGroupTerms {
				break
			}
		}
		if len(terms) > 0 {
			out = append(out, terms)
		}
		if len(out) == maxAnchorGroups {
			break
		}
	}
	return out
}

func sanitizeExcludes(terms []string) []string {
	var out []string
	for _, term := range terms {
		term = strings.ToLower(strings.Join(strings.Fields(term), " "))
		if len(term) < minExcludeLen || slices.Contains(out, term) {
			continue
		}
		out = append(out, term)
		if len(out) == maxExcludeTerms {
			break
		}
	}
	return out
}

// Filtered is the ranked pool after the constraint was applied.
type Filtered struct {
	Papers []types.RankedPaper
	// Mode is ModeConstrained or ModeRelaxed.
	Mode string
	// Matched counts the papers that passed the constraint, whichever mode
	// was used.
	Matched int
}

// Apply filters ranked by c. When fewer than topN papers pass, the filter
// is dropped entirely and the full ranked list is returned in relaxed mode.
func Apply(c Constraint, ranked []types.RankedPaper, topN int) Filtered {
	var matched []types.RankedPaper
	for _, rp := range ranked {
		if c.Matches(rp.Metadata) {
			matched = append(matched, rp)
		}
	}
	if len(matched) < topN {
		return Filtered{Papers: ranked, Mode: ModeRelaxed, Matched: len(matched)}
	}
	return Filtered{Papers: matched, Mode: ModeConstrained, Matched: len(matched)}
}
