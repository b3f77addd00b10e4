// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pdiddy/sim-agent/pkg/types"
)

// Paper text limits per prompt.
const (
	coreTextLimit  = 14000
	buildTextLimit = 9000
	mdTextLimit    = 14000
)

const coreSystemPrompt = "You extract simulation-study details into structured JSON for scientific literature. " +
	"Be concise and avoid hallucinations. Leave empty strings/lists if unknown. " +
	"Return keys: core_simulation_details, summary, evidence."

var corePromptTmpl = template.Must(template.New("core").Parse(`Title: {{.Title}}
Abstract: {{.Abstract}}
Detected simulation_type: {{.SimType}}
Custom fields requested: {{.CustomFields}}

Core schema keys: objective, simulation_type, software_or_engine(list), theory_or_force_model, system_description, system_build_protocol, system_build_steps(list), environment_conditions, sampling_or_propagation_setup, runtime_or_compute_budget, computed_properties(list), key_limitations, custom_fields(list of {name,value,unit,evidence}).
Evidence should be a list of {field, snippet, confidence} for key fields only.
Paper text:
{{.Text}}`))

const buildSystemPrompt = "You extract how a simulation system is built from a scientific paper. " +
	"Return JSON with keys: system_build_protocol (string), system_build_steps (list), " +
	"evidence (list of {step,snippet,confidence}), confidence (0-1)."

var buildPromptTmpl = template.Must(template.New("build").Parse(`Simulation type: {{.SimType}}
Focus on system preparation details: initial structure/material setup, parameterization, solvation/environment, ion placement, cell setup, minimization/equilibration, and QM/MM partition if present.
Paper text:
{{.Text}}`))

const mdSystemPrompt = "You extract molecular dynamics protocol details from paper text and return JSON. " +
	"Return key 'md_details' with fields: engine, engine_version, force_field, solvent_model, " +
	"ion_parameters, ensemble, thermostat, barostat, timestep, equilibration_time, production_time, " +
	"long_range_method, constraints, cutoffs, system_size, composition, replicates, " +
	"enhanced_sampling, hardware_notes, evidence(list of {field,snippet,confidence})."

var mdPromptTmpl = template.Must(template.New("md").Parse(`Title: {{.Title}}
Abstract: {{.Abstract}}
Paper text:
{{.Text}}`))

type promptData struct {
	Title        string
	Abstract     string
	SimType      types.SimulationType
	CustomFields string
	Text         string
}

func newPromptData(in Input, limit int) promptData {
	custom := "(none)"
	if len(in.CustomFields) > 0 {
		custom = strings.Join(in.CustomFields, ", ")
	}
	return promptData{
		Title:        in.Paper.Title,
		Abstract:     in.Paper.Abstract,
		SimType:      in.SimType,
		CustomFields: custom,
		Text:         truncate(in.Text, limit),
	}
}

func render(tmpl *template.Template, data promptData) string {
	var buf bytes.Buffer
	// The templates are static and only read string fields.
	if err := tmpl.Execute(&buf, data); err != nil {
		return data.Text
	}
	return buf.String()
}
