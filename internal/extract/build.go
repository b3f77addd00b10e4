// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/sim-agent/internal/llm"
	"github.com/pdiddy/sim-agent/internal/refine"
	"github.com/pdiddy/sim-agent/pkg/types"
)

// BuildStep is one piece of system-preparation evidence.
type BuildStep struct {
	Step       string
	Snippet    string
	Confidence float64
}

// BuildResult describes how the simulated system was prepared.
type BuildResult struct {
	Protocol   string
	Steps      []string
	Evidence   []BuildStep
	Confidence float64
}

// buildHints is scanned in order; each category contributes at most the
// first sentence that mentions one of its keywords.
var buildHints = []struct {
	step     string
	keywords []string
}{
	{"initial_structure", []string{"pdb", "initial structure", "starting structure", "homology model", "crystal structure"}},
	{"builder_tool", []string{"charmm-gui", "tleap", "packmol", "vmd", "builder", "moltemplate", "avogadro"}},
	{"system_construction", []string{"constructed", "built", "generated", "created", "initialized", "initial configuration"}},
	{"polymer_architecture", []string{"chain length", "degree of polymerization", "polymer chains", "chain packing", "lamella"}},
	{"topology_parameterization", []string{"topology", "parameterized", "parametrized", "gaff", "cgenff", "fftk"}},
	{"solvation_environment", []string{"solvated", "solvation", "water box", "solvent box", "explicit solvent", "implicit solvent"}},
	{"ionization_charge", []string{"neutralized", "neutralised", "counterion", "na+", "cl-", "ionic strength", "salt concentration"}},
	{"cell_or_boundary", []string{"periodic boundary", "simulation cell", "supercell", "unit cell", "box size"}},
	{"minimization", []string{"energy minimization", "minimized", "steepest descent", "conjugate gradient"}},
	{"equilibration", []string{"equilibration", "equilibrated", "nvt", "npt", "annealing"}},
	{"thermal_protocol", []string{"melt", "melting", "cooling", "quench", "quenched", "crystallization", "nucleation"}},
	{"qmmm_partition", []string{"qm region", "mm region", "partition", "link atom", "embedding"}},
}

const (
	buildStepConfidence            = 0.58
	defaultBuildEvidenceConfidence = 0.5
	defaultLLMBuildConfidence      = 0.7
	maxBuildSteps                  = 8
	maxProtocolSteps               = 4
	maxProtocolLen                 = 900
	maxBuildSnippetLen             = 260
)

// Build extracts the system-preparation protocol.
func (e *Extractor) Build(ctx context.Context, text string, simType types.SimulationType) BuildResult {
	type buildInput struct {
		text    string
		simType types.SimulationType
	}
	chain := refine.Chain[buildInput, BuildResult]{
		smart(e, func(ctx context.Context, in buildInput) (BuildResult, bool) {
			return e.llmBuild(ctx, in.text, in.simType)
		}),
		refine.Always(func(in buildInput) BuildResult { return HeuristicBuild(in.text, in.simType) }),
	}
	return chain.Run(ctx, buildInput{text: text, simType: simType})
}

func (e *Extractor) llmBuild(ctx context.Context, text string, simType types.SimulationType) (BuildResult, bool) {
	res := e.Client.Chat(ctx, llm.Request{
		System:      buildSystemPrompt,
		User:        render(buildPromptTmpl, promptData{SimType: simType, Text: truncate(text, buildTextLimit)}),
		Temperature: 0,
		MaxTokens:   900,
	})
	var answer struct {
		Protocol   llm.String               `json:"system_build_protocol"`
		Steps      llm.Strings              `json:"system_build_steps"`
		Evidence   looseList[looseEvidence] `json:"evidence"`
		Confidence *llm.Float               `json:"confidence"`
	}
	if !res.Decode(&answer) {
		e.logger().Debug("build extraction falling back to heuristics", zap.Stringer("kind", res.Kind))
		return BuildResult{}, false
	}
	if answer.Protocol == "" && len(answer.Steps) == 0 {
		return BuildResult{}, false
	}

	out := BuildResult{
		Protocol:   string(answer.Protocol),
		Steps:      cleanList(answer.Steps),
		Confidence: defaultLLMBuildConfidence,
	}
	if answer.Confidence != nil {
		out.Confidence = answer.Confidence.Clamp01()
	}
	for _, ev := range answer.Evidence {
		out.Evidence = append(out.Evidence, BuildStep{
			Step: string(ev.Step), Snippet: string(ev.Snippet), Confidence: ev.Confidence.Clamp01(),
		})
	}
	return out, true
}

// HeuristicBuild scans the hint table against the sentences of text.
func HeuristicBuild(text string, simType types.SimulationType) BuildResult {
	sentences := splitSentences(text)
	lowered := make([]string, len(sentences))
	for i, s := range sentences {
		lowered[i] = strings.ToLower(s)
	}

	var steps []string
	var evidence []BuildStep
	for _, hint := range buildHints {
		for i, ls := range lowered {
			if findFirst(ls, hint.keywords) == "" {
				continue
			}
			sentence := compact(sentences[i])
			if sentence != "" && !slices.Contains(steps, sentence) {
				steps = append(steps, sentence)
				evidence = append(evidence, BuildStep{
					Step:       hint.step,
					Snippet:    truncate(sentence, maxBuildSnippetLen),
					Confidence: buildStepConfidence,
				})
			}
			break
		}
	}

	if len(steps) == 0 {
		return BuildResult{Steps: []string{}, Evidence: []BuildStep{}}
	}

	summary := fmt.Sprintf("%s system setup: %s", simType, strings.Join(steps[:min(len(steps), maxProtocolSteps)], "; "))
	return BuildResult{
		Protocol:   truncate(summary, maxProtocolLen),
		Steps:      steps[:min(len(steps), maxBuildSteps)],
		Evidence:   evidence[:min(len(evidence), maxBuildSteps)],
		Confidence: min(0.9, 0.45+0.06*float64(len(steps))),
	}
}
