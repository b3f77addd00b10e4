// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify assigns a simulation type to paper text. A keyword pass
// always runs; an LLM answer replaces it only when it is a known type with
// at least the keyword confidence.
package classify

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pdiddy/sim-agent/internal/llm"
	"github.com/pdiddy/sim-agent/pkg/types"
)

// NoSignalConfidence is reported when no keyword of any type occurs.
const NoSignalConfidence = 0.35

// llmTextLimit bounds the paper text sent for refinement.
const llmTextLimit = 6000

type typeKeywords struct {
	simType  types.SimulationType
	keywords []string
}

// keywordTable is ordered: on equal counts the earlier type wins.
var keywordTable = []typeKeywords{
	{types.SimQMMM, []string{"qmmm", "qm/mm", "quantum mechanics/molecular mechanics", "oniom"}},
	{types.SimMD, []string{"molecular dynamics", "md simulation", "gromacs", "lammps", "amber", "namd", "charmm", "trajectory", "force field"}},
	{types.SimQM, []string{"density functional theory", "dft", "ab initio", "hartree-fock", "gaussian", "orca", "quantum chemistry", "basis set"}},
	{types.SimMC, []string{"monte carlo", "metropolis", "kinetic monte carlo", "markov chain monte carlo"}},
	{types.SimCG, []string{"coarse-grained", "coarse grained", "martini", "bead-spring", "united atom"}},
}

// Result is a classification with its confidence in [0,1].
type Result struct {
	Type       types.SimulationType
	Confidence float64
}

// Rules scores text against the keyword table. Each keyword contributes
// its count of non-overlapping occurrences in the lowercased text.
func Rules(text string) Result {
	lower := strings.ToLower(text)

	best, bestCount, total := types.SimUnknown, 0, 0
	for _, row := range keywordTable {
		count := 0
		for _, kw := range row.keywords {
			count += strings.Count(lower, kw)
		}
		total += count
		if count > bestCount {
			best, bestCount = row.simType, count
		}
	}
	if total == 0 {
		return Result{Type: types.SimUnknown, Confidence: NoSignalConfidence}
	}

	conf := min(0.95, 0.4+float64(bestCount)/float64(total)*0.55)
	return Result{Type: best, Confidence: math.Round(conf*1000) / 1000}
}

const systemPrompt = "You classify scientific papers by simulation type. " +
	"Allowed simulation_type values: MD, QM, QMMM, MC, CG, Other/Unknown. " +
	"Return JSON with keys: simulation_type, confidence, reason."

// Classifier merges the keyword pass with an optional LLM opinion.
type Classifier struct {
	Client llm.Client
	Logger *zap.Logger
}

// Classify returns the simulation type of text.
func (c *Classifier) Classify(ctx context.Context, text string) Result {
	rule := Rules(text)
	if c.Client == nil || !c.Client.Enabled() {
		return rule
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	res := c.Client.Chat(ctx, llm.Request{
		System:      systemPrompt,
		User:        "Paper text:\n" + truncate(text, llmTextLimit),
		Temperature: 0,
		MaxTokens:   250,
	})
	var answer struct {
		SimulationType llm.String `json:"simulation_type"`
		Confidence     llm.Float  `json:"confidence"`
		Reason         llm.String `json:"reason"`
	}
	if !res.Decode(&answer) {
		return rule
	}

	merged := merge(rule, types.SimulationType(answer.SimulationType), answer.Confidence.Clamp01())
	if merged != rule {
		logger.Debug("llm classification accepted",
			zap.String("rule_type", string(rule.Type)),
			zap.String("llm_type", string(merged.Type)),
			zap.Float64("confidence", merged.Confidence),
			zap.String("reason", string(answer.Reason)))
	}
	return merged
}

// merge keeps the rule result unless the LLM type is valid and at least as
// confident.
func merge(rule Result, llmType types.SimulationType, llmConf float64) Result {
	if !llmType.Valid() || llmConf < rule.Confidence {
		return rule
	}
	return Result{Type: llmType, Confidence: llmConf}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
