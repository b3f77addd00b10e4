// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pdiddy/sim-agent/pkg/types"
)

var knownEngines = []string{
	"gromacs", "lammps", "amber", "namd", "charmm",
	"cp2k", "vasp", "quantum espresso", "gaussian", "orca",
}

var knownModels = []string{
	"charmm", "amber", "opls", "martini", "b3lyp",
	"pbe", "revpbe", "hartree-fock", "reaxff", "eam",
}

var computedProperties = []struct{ token, name string }{
	{"free energy", "free energy"},
	{"binding affinity", "binding affinity"},
	{"diffusion", "diffusion coefficient"},
	{"rdf", "radial distribution function"},
	{"density", "density"},
	{"band gap", "band gap"},
	{"energy barrier", "energy barrier"},
}

var (
	systemKeywords      = []string{"system", "molecule", "material", "protein", "surface"}
	environmentKeywords = []string{"temperature", "pressure", "solvent", "vacuum"}
	samplingKeywords    = []string{"ensemble", "sampling", "time step", "timestep"}
	runtimeKeywords     = []string{"ns", "ps", "hours", "gpu", "cpu"}
)

const limitationsUnknown = "Not explicitly stated in parsed text."

// Heuristic evidence confidences.
const (
	engineEvidenceConfidence     = 0.62
	modelEvidenceConfidence      = 0.58
	propertiesEvidenceConfidence = 0.52
)

// HeuristicCore extracts the generic schema with keyword lists and text
// windows.
func HeuristicCore(in Input) CoreResult {
	lower := strings.ToLower(in.Text)

	var engines, models []string
	for _, e := range knownEngines {
		if strings.Contains(lower, e) {
			engines = append(engines, e)
		}
	}
	for _, m := range knownModels {
		if strings.Contains(lower, m) {
			models = append(models, m)
		}
	}
	props := extractComputedProperties(lower)

	objective := firstSentence(in.Text)
	if objective == "" {
		objective = firstSentence(in.Paper.Abstract)
	}
	if objective == "" {
		objective = fmt.Sprintf("Study related to %s simulation.", in.SimType)
	}

	upper := make([]string, len(engines))
	for i, e := range engines {
		upper[i] = strings.ToUpper(e)
	}
	sortedModels := slices.Clone(models)
	slices.Sort(sortedModels)
	sortedModels = slices.Compact(sortedModels)

	details := NormalizeCore(types.CoreDetails{
		Objective:             objective,
		Engines:               upper,
		TheoryOrForceModel:    strings.Join(sortedModels, ", "),
		SystemDescription:     findSectionLike(in.Text, systemKeywords),
		EnvironmentConditions: findSectionLike(in.Text, environmentKeywords),
		SamplingSetup:         findSectionLike(in.Text, samplingKeywords),
		ComputeBudget:         findSectionLike(in.Text, runtimeKeywords),
		ComputedProperties:    props,
		KeyLimitations:        limitationsUnknown,
	}, in.SimType, in.CustomFields)

	evidence := []types.Evidence{}
	if len(engines) > 0 {
		evidence = append(evidence, types.Evidence{
			Field: "software_or_engine", Snippet: snippetAround(lower, engines[0], 140), Confidence: engineEvidenceConfidence,
		})
	}
	if len(models) > 0 {
		evidence = append(evidence, types.Evidence{
			Field: "theory_or_force_model", Snippet: snippetAround(lower, models[0], 140), Confidence: modelEvidenceConfidence,
		})
	}
	if len(props) > 0 {
		evidence = append(evidence, types.Evidence{
			Field: "computed_properties", Snippet: strings.Join(props, ", "), Confidence: propertiesEvidenceConfidence,
		})
	}

	return CoreResult{
		Details:  details,
		Summary:  fmt.Sprintf("%s: %s", in.Paper.Title, objective),
		Evidence: evidence,
	}
}

func extractComputedProperties(lower string) []string {
	var props []string
	for _, p := range computedProperties {
		if strings.Contains(lower, p.token) {
			props = append(props, p.name)
		}
	}
	slices.Sort(props)
	return slices.Compact(props)
}
