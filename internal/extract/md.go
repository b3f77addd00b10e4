// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/sim-agent/internal/llm"
	"github.com/pdiddy/sim-agent/internal/refine"
	"github.com/pdiddy/sim-agent/pkg/types"
)

var (
	mdEngines     = []string{"gromacs", "lammps", "amber", "namd", "charmm", "desmond", "openmm"}
	mdForceFields = []string{"charmm36", "charmm", "amber99", "amber14", "opls", "martini"}
	mdSolvents    = []string{"tip3p", "tip4p", "spce", "spc/e", "implicit solvent"}
	mdEnsembles   = []string{"nvt", "npt", "nve"}
	mdThermostats = []string{"nose-hoover", "langevin", "berendsen", "velocity rescale"}
	mdBarostats   = []string{"parrinello-rahman", "berendsen barostat", "monte carlo barostat"}
	mdLongRange   = []string{"particle mesh ewald", "pme", "ewald"}
	mdConstraints = []string{"shake", "lincs", "settle"}
	mdHardware    = []string{"gpu", "nvidia", "cuda", "cpu core", "supercomputer"}
)

// valuePattern captures a number and its unit from the given submatch
// groups.
type valuePattern struct {
	re          *regexp.Regexp
	value, unit int
}

var (
	timestepPattern      = valuePattern{regexp.MustCompile(`(\d+(\.\d+)?)\s*(fs|femtoseconds|ps)\s*(time\s*step|timestep)`), 1, 3}
	productionPattern    = valuePattern{regexp.MustCompile(`(production\s*(simulation|run|time)\s*(of|was)?\s*)?(\d+(\.\d+)?)\s*(ns|ps|us|µs)`), 4, 6}
	equilibrationPattern = valuePattern{regexp.MustCompile(`(\d+(\.\d+)?)\s*(ns|ps)\s*(equilibration|equilibrated)`), 1, 3}
	cutoffPattern        = valuePattern{regexp.MustCompile(`(\d+(\.\d+)?)\s*(nm|angstrom|å)\s*cutoff`), 1, 3}
)

// find returns "number unit" for the first match in text, or "".
func (p valuePattern) find(text string) string {
	m := p.re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[p.value] + " " + m[p.unit]
}

const mdSnippetWidth = 120

// MD extracts molecular-dynamics protocol details.
func (e *Extractor) MD(ctx context.Context, in Input) types.MDDetails {
	chain := refine.Chain[Input, types.MDDetails]{
		smart(e, e.llmMD),
		refine.Always(func(in Input) types.MDDetails { return HeuristicMD(in.Text) }),
	}
	return chain.Run(ctx, in)
}

func (e *Extractor) llmMD(ctx context.Context, in Input) (types.MDDetails, bool) {
	res := e.Client.Chat(ctx, llm.Request{
		System:      mdSystemPrompt,
		User:        render(mdPromptTmpl, newPromptData(in, mdTextLimit)),
		Temperature: 0,
		MaxTokens:   1500,
	})
	var answer struct {
		MD *looseMD `json:"md_details"`
	}
	if !res.Decode(&answer) || answer.MD == nil {
		e.logger().Debug("md extraction falling back to heuristics",
			zap.String("paper_id", in.Paper.PaperID), zap.Stringer("kind", res.Kind))
		return types.MDDetails{}, false
	}
	md := NormalizeMD(answer.MD.toMD())
	if mdEmpty(md) {
		return types.MDDetails{}, false
	}
	return md, true
}

// HeuristicMD reads MD protocol details from keyword lists and unit
// patterns.
func HeuristicMD(text string) types.MDDetails {
	lower := strings.ToLower(text)
	md := types.MDDetails{}
	var evidence []types.Evidence
	cite := func(field, token string, conf float64) {
		evidence = append(evidence, types.Evidence{
			Field: field, Snippet: snippetAround(lower, token, mdSnippetWidth), Confidence: conf,
		})
	}

	if engine := findFirst(lower, mdEngines); engine != "" {
		md.Engine = strings.ToUpper(engine)
		cite("engine", engine, 0.70)
	}
	if ff := findFirst(lower, mdForceFields); ff != "" {
		md.ForceField = ff
		cite("force_field", ff, 0.66)
	}
	if solvent := findFirst(lower, mdSolvents); solvent != "" {
		md.SolventModel = solvent
		cite("solvent_model", solvent, 0.65)
	}
	if ensemble := findFirst(lower, mdEnsembles); ensemble != "" {
		md.Ensemble = ensemble
		cite("ensemble", ensemble, 0.62)
	}
	md.Thermostat = findFirst(lower, mdThermostats)
	md.Barostat = findFirst(lower, mdBarostats)

	if ts := timestepPattern.find(lower); ts != "" {
		md.Timestep = ts
		cite("timestep", strings.Fields(ts)[0], 0.60)
	}
	if prod := productionPattern.find(lower); prod != "" {
		md.ProductionTime = prod
		cite("production_time", strings.Fields(prod)[0], 0.58)
	}
	md.EquilibrationTime = equilibrationPattern.find(lower)
	md.LongRangeMethod = findFirst(lower, mdLongRange)
	md.Constraints = findFirst(lower, mdConstraints)
	md.Cutoffs = cutoffPattern.find(lower)
	md.HardwareNotes = findFirst(lower, mdHardware)

	md.Evidence = evidence
	return NormalizeMD(md)
}
