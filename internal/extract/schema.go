// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"encoding/json"
	"strings"

	"github.com/pdiddy/sim-agent/internal/llm"
	"github.com/pdiddy/sim-agent/pkg/types"
)

// NormalizeCore returns d with the simulation type set, every list non-nil,
// and each requested custom field present. Custom fields are deduplicated
// by name, case-insensitively, keeping the first. Applying NormalizeCore to
// its own output changes nothing.
func NormalizeCore(d types.CoreDetails, simType types.SimulationType, requested []string) types.CoreDetails {
	out := types.CoreDetails{
		Objective:             strings.TrimSpace(d.Objective),
		SimulationType:        simType,
		Engines:               cleanList(d.Engines),
		TheoryOrForceModel:    strings.TrimSpace(d.TheoryOrForceModel),
		SystemDescription:     strings.TrimSpace(d.SystemDescription),
		SystemBuildProtocol:   strings.TrimSpace(d.SystemBuildProtocol),
		SystemBuildSteps:      cleanList(d.SystemBuildSteps),
		EnvironmentConditions: strings.TrimSpace(d.EnvironmentConditions),
		SamplingSetup:         strings.TrimSpace(d.SamplingSetup),
		ComputeBudget:         strings.TrimSpace(d.ComputeBudget),
		ComputedProperties:    cleanList(d.ComputedProperties),
		KeyLimitations:        strings.TrimSpace(d.KeyLimitations),
		CustomFields:          []types.CustomField{},
	}

	seen := make(map[string]bool)
	add := func(f types.CustomField) {
		f.Name = strings.TrimSpace(f.Name)
		key := strings.ToLower(f.Name)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out.CustomFields = append(out.CustomFields, f)
	}
	for _, f := range d.CustomFields {
		add(f)
	}
	for _, name := range requested {
		add(types.CustomField{Name: name})
	}
	return out
}

// NormalizeMD returns d with every string trimmed and a non-nil evidence
// list.
func NormalizeMD(d types.MDDetails) types.MDDetails {
	for _, f := range mdStringFields(&d) {
		*f = strings.TrimSpace(*f)
	}
	d.Evidence = cleanEvidence(d.Evidence)
	return d
}

// mdStringFields lists pointers to every string field of d.
func mdStringFields(d *types.MDDetails) []*string {
	return []*string{
		&d.Engine, &d.EngineVersion, &d.ForceField, &d.SolventModel, &d.IonParameters,
		&d.Ensemble, &d.Thermostat, &d.Barostat, &d.Timestep, &d.EquilibrationTime,
		&d.ProductionTime, &d.LongRangeMethod, &d.Constraints, &d.Cutoffs, &d.SystemSize,
		&d.Composition, &d.Replicates, &d.EnhancedSampling, &d.HardwareNotes,
	}
}

func mdEmpty(d types.MDDetails) bool {
	for _, f := range mdStringFields(&d) {
		if *f != "" {
			return false
		}
	}
	return true
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func cleanEvidence(items []types.Evidence) []types.Evidence {
	if items == nil {
		return []types.Evidence{}
	}
	return items
}

// looseList decodes a JSON list whose elements may not all fit T. Elements
// that fail to decode are dropped; a non-list value yields an empty list.
type looseList[T any] []T

func (l *looseList[T]) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		*l = nil
		return nil
	}
	out := make(looseList[T], 0, len(items))
	for _, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err == nil {
			out = append(out, v)
		}
	}
	*l = out
	return nil
}

// Model answer shapes. Every scalar goes through the llm.Loose types.

type looseEvidence struct {
	Field      llm.String `json:"field"`
	Step       llm.String `json:"step"`
	Snippet    llm.String `json:"snippet"`
	Confidence llm.Float  `json:"confidence"`
}

func (e looseEvidence) toEvidence(field string) types.Evidence {
	if field == "" {
		field = string(e.Field)
	}
	return types.Evidence{Field: field, Snippet: string(e.Snippet), Confidence: e.Confidence.Clamp01()}
}

type looseCustomField struct {
	Name     llm.String `json:"name"`
	Value    llm.String `json:"value"`
	Unit     llm.String `json:"unit"`
	Evidence llm.String `json:"evidence"`
}

type looseCore struct {
	Objective             llm.String                  `json:"objective"`
	Engines               llm.Strings                 `json:"software_or_engine"`
	TheoryOrForceModel    llm.String                  `json:"theory_or_force_model"`
	SystemDescription     llm.String                  `json:"system_description"`
	SystemBuildProtocol   llm.String                  `json:"system_build_protocol"`
	SystemBuildSteps      llm.Strings                 `json:"system_build_steps"`
	EnvironmentConditions llm.String                  `json:"environment_conditions"`
	SamplingSetup         llm.String                  `json:"sampling_or_propagation_setup"`
	ComputeBudget         llm.String                  `json:"runtime_or_compute_budget"`
	ComputedProperties    llm.Strings                 `json:"computed_properties"`
	KeyLimitations        llm.String                  `json:"key_limitations"`
	CustomFields          looseList[looseCustomField] `json:"custom_fields"`
}

func (c looseCore) toCore() types.CoreDetails {
	d := types.CoreDetails{
		Objective:             string(c.Objective),
		Engines:               c.Engines,
		TheoryOrForceModel:    string(c.TheoryOrForceModel),
		SystemDescription:     string(c.SystemDescription),
		SystemBuildProtocol:   string(c.SystemBuildProtocol),
		SystemBuildSteps:      c.SystemBuildSteps,
		EnvironmentConditions: string(c.EnvironmentConditions),
		SamplingSetup:         string(c.SamplingSetup),
		ComputeBudget:         string(c.ComputeBudget),
		ComputedProperties:    c.ComputedProperties,
		KeyLimitations:        string(c.KeyLimitations),
	}
	for _, f := range c.CustomFields {
		d.CustomFields = append(d.CustomFields, types.CustomField{
			Name: string(f.Name), Value: string(f.Value), Unit: string(f.Unit), Evidence: string(f.Evidence),
		})
	}
	return d
}

type looseMD struct {
	Engine            llm.String               `json:"engine"`
	EngineVersion     llm.String               `json:"engine_version"`
	ForceField        llm.String               `json:"force_field"`
	SolventModel      llm.String               `json:"solvent_model"`
	IonParameters     llm.String               `json:"ion_parameters"`
	Ensemble          llm.String               `json:"ensemble"`
	Thermostat        llm.String               `json:"thermostat"`
	Barostat          llm.String               `json:"barostat"`
	Timestep          llm.String               `json:"timestep"`
	EquilibrationTime llm.String               `json:"equilibration_time"`
	ProductionTime    llm.String               `json:"production_time"`
	LongRangeMethod   llm.String               `json:"long_range_method"`
	Constraints       llm.String               `json:"constraints"`
	Cutoffs           llm.String               `json:"cutoffs"`
	SystemSize        llm.String               `json:"system_size"`
	Composition       llm.String               `json:"composition"`
	Replicates        llm.String               `json:"replicates"`
	EnhancedSampling  llm.String               `json:"enhanced_sampling"`
	HardwareNotes     llm.String               `json:"hardware_notes"`
	Evidence          looseList[looseEvidence] `json:"evidence"`
}

func (m looseMD) toMD() types.MDDetails {
	d := types.MDDetails{
		Engine:            string(m.Engine),
		EngineVersion:     string(m.EngineVersion),
		ForceField:        string(m.ForceField),
		SolventModel:      string(m.SolventModel),
		IonParameters:     string(m.IonParameters),
		Ensemble:          string(m.Ensemble),
		Thermostat:        string(m.Thermostat),
		Barostat:          string(m.Barostat),
		Timestep:          string(m.Timestep),
		EquilibrationTime: string(m.EquilibrationTime),
		ProductionTime:    string(m.ProductionTime),
		LongRangeMethod:   string(m.LongRangeMethod),
		Constraints:       string(m.Constraints),
		Cutoffs:           string(m.Cutoffs),
		SystemSize:        string(m.SystemSize),
		Composition:       string(m.Composition),
		Replicates:        string(m.Replicates),
		EnhancedSampling:  string(m.EnhancedSampling),
		HardwareNotes:     string(m.HardwareNotes),
	}
	for _, e := range m.Evidence {
		d.Evidence = append(d.Evidence, e.toEvidence(""))
	}
	return d
}
