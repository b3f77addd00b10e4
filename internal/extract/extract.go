// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract pulls structured simulation-study details out of paper
// text. Each extractor asks the LLM first and falls back to keyword and
// regex heuristics; both paths pass through the same normalization so
// records look the same whichever tier produced them.
package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/pdiddy/sim-agent/internal/llm"
	"github.com/pdiddy/sim-agent/internal/refine"
	"github.com/pdiddy/sim-agent/pkg/types"
)

// Input is the text of one paper and what is already known about it.
type Input struct {
	Paper        types.PaperMetadata
	Text         string
	SimType      types.SimulationType
	CustomFields []string
}

// CoreResult is the generic extraction for one paper. Evidence holds the
// core evidence followed by the system-build evidence.
type CoreResult struct {
	Details  types.CoreDetails
	Summary  string
	Evidence []types.Evidence
}

// Extractor runs the extraction tiers. A nil or disabled Client leaves
// only the heuristics.
type Extractor struct {
	Client llm.Client
	Logger *zap.Logger
}

func (e *Extractor) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// smart wraps an LLM tier, or returns nil when no model is available so
// the chain goes straight to the heuristic.
func smart[In, Out any](e *Extractor, f func(context.Context, In) (Out, bool)) refine.Refiner[In, Out] {
	if e.Client == nil || !e.Client.Enabled() {
		return nil
	}
	return refine.Func[In, Out](f)
}

// Core extracts the generic schema, then fills the system-build fields the
// core pass left empty.
func (e *Extractor) Core(ctx context.Context, in Input) CoreResult {
	chain := refine.Chain[Input, CoreResult]{
		smart(e, e.llmCore),
		refine.Always(HeuristicCore),
	}
	res := chain.Run(ctx, in)
	build := e.Build(ctx, in.Text, in.SimType)
	return mergeBuild(res, build)
}

func (e *Extractor) llmCore(ctx context.Context, in Input) (CoreResult, bool) {
	res := e.Client.Chat(ctx, llm.Request{
		System:      coreSystemPrompt,
		User:        render(corePromptTmpl, newPromptData(in, coreTextLimit)),
		Temperature: 0,
		MaxTokens:   1400,
	})
	var answer struct {
		Core     looseCore                `json:"core_simulation_details"`
		Summary  llm.String               `json:"summary"`
		Evidence looseList[looseEvidence] `json:"evidence"`
	}
	if !res.Decode(&answer) {
		e.logger().Debug("core extraction falling back to heuristics",
			zap.String("paper_id", in.Paper.PaperID), zap.Stringer("kind", res.Kind))
		return CoreResult{}, false
	}
	if answer.Summary == "" {
		e.logger().Debug("core extraction answer has no summary", zap.String("paper_id", in.Paper.PaperID))
		return CoreResult{}, false
	}

	out := CoreResult{
		Details:  NormalizeCore(answer.Core.toCore(), in.SimType, in.CustomFields),
		Summary:  string(answer.Summary),
		Evidence: []types.Evidence{},
	}
	for _, ev := range answer.Evidence {
		out.Evidence = append(out.Evidence, ev.toEvidence(""))
	}
	return out, true
}

// mergeBuild fills the build protocol and steps only where the core result
// left them empty and appends the build evidence.
func mergeBuild(res CoreResult, build BuildResult) CoreResult {
	if res.Details.SystemBuildProtocol == "" && build.Protocol != "" {
		res.Details.SystemBuildProtocol = build.Protocol
	}
	if len(res.Details.SystemBuildSteps) == 0 && len(build.Steps) > 0 {
		res.Details.SystemBuildSteps = append([]string{}, build.Steps...)
	}
	if res.Evidence == nil {
		res.Evidence = []types.Evidence{}
	}
	for _, ev := range build.Evidence {
		conf := ev.Confidence
		if conf == 0 {
			conf = defaultBuildEvidenceConfidence
		}
		res.Evidence = append(res.Evidence, types.Evidence{
			Field:      "system_build_protocol",
			Snippet:    ev.Snippet,
			Confidence: conf,
		})
	}
	return res
}

// Domain runs the deep profile matching simType when it was requested.
// It returns nil when no profile applies.
func (e *Extractor) Domain(ctx context.Context, in Input, profiles []string) *types.DomainDetails {
	wanted := func(p types.SimulationType) bool {
		for _, name := range profiles {
			if types.SimulationType(name) == p {
				return true
			}
		}
		return false
	}

	switch {
	case in.SimType == types.SimMD && wanted(types.SimMD):
		md := e.MD(ctx, in)
		return &types.DomainDetails{Profile: string(types.SimMD), MD: &md}
	case in.SimType == types.SimQMMM && wanted(types.SimQMMM):
		stub := QMMMStub()
		return &stub
	}
	return nil
}
