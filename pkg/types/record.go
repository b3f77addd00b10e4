// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SimulationType is the closed set of categories a paper can be assigned.
type SimulationType string

const (
	SimMD      SimulationType = "MD"
	SimQM      SimulationType = "QM"
	SimQMMM    SimulationType = "QMMM"
	SimMC      SimulationType = "MC"
	SimCG      SimulationType = "CG"
	SimUnknown SimulationType = "Other/Unknown"
)

// SimulationTypes lists every valid SimulationType in canonical order.
var SimulationTypes = []SimulationType{SimMD, SimQM, SimQMMM, SimMC, SimCG, SimUnknown}

// Valid reports whether t is one of the closed set of simulation types.
func (t SimulationType) Valid() bool {
	for _, v := range SimulationTypes {
		if t == v {
			return true
		}
	}
	return false
}

// SourceMode records which text a record was extracted from.
type SourceMode string

const (
	SourcePDF      SourceMode = "pdf"
	SourceAbstract SourceMode = "abstract"
)

// CustomField is a caller-requested extraction field.
type CustomField struct {
	Name     string `json:"name" yaml:"name"`
	Value    string `json:"value" yaml:"value"`
	Unit     string `json:"unit" yaml:"unit"`
	Evidence string `json:"evidence" yaml:"evidence"`
}

// CoreDetails is the generic simulation-study schema. Every key is always
// present after normalization; list fields are never nil.
type CoreDetails struct {
	Objective             string         `json:"objective" yaml:"objective"`
	SimulationType        SimulationType `json:"simulation_type" yaml:"simulation_type"`
	Engines               []string       `json:"software_or_engine" yaml:"software_or_engine"`
	TheoryOrForceModel    string         `json:"theory_or_force_model" yaml:"theory_or_force_model"`
	SystemDescription     string         `json:"system_description" yaml:"system_description"`
	SystemBuildProtocol   string         `json:"system_build_protocol" yaml:"system_build_protocol"`
	SystemBuildSteps      []string       `json:"system_build_steps" yaml:"system_build_steps"`
	EnvironmentConditions string         `json:"environment_conditions" yaml:"environment_conditions"`
	SamplingSetup         string         `json:"sampling_or_propagation_setup" yaml:"sampling_or_propagation_setup"`
	ComputeBudget         string         `json:"runtime_or_compute_budget" yaml:"runtime_or_compute_budget"`
	ComputedProperties    []string       `json:"computed_properties" yaml:"computed_properties"`
	KeyLimitations        string         `json:"key_limitations" yaml:"key_limitations"`
	CustomFields          []CustomField  `json:"custom_fields" yaml:"custom_fields"`
}

// MDDetails holds molecular-dynamics protocol specifics.
type MDDetails struct {
	Engine            string     `json:"engine" yaml:"engine"`
	EngineVersion     string     `json:"engine_version" yaml:"engine_version"`
	ForceField        string     `json:"force_field" yaml:"force_field"`
	SolventModel      string     `json:"solvent_model" yaml:"solvent_model"`
	IonParameters     string     `json:"ion_parameters" yaml:"ion_parameters"`
	Ensemble          string     `json:"ensemble" yaml:"ensemble"`
	Thermostat        string     `json:"thermostat" yaml:"thermostat"`
	Barostat          string     `json:"barostat" yaml:"barostat"`
	Timestep          string     `json:"timestep" yaml:"timestep"`
	EquilibrationTime string     `json:"equilibration_time" yaml:"equilibration_time"`
	ProductionTime    string     `json:"production_time" yaml:"production_time"`
	LongRangeMethod   string     `json:"long_range_method" yaml:"long_range_method"`
	Constraints       string     `json:"constraints" yaml:"constraints"`
	Cutoffs           string     `json:"cutoffs" yaml:"cutoffs"`
	SystemSize        string     `json:"system_size" yaml:"system_size"`
	Composition       string     `json:"composition" yaml:"composition"`
	Replicates        string     `json:"replicates" yaml:"replicates"`
	EnhancedSampling  string     `json:"enhanced_sampling" yaml:"enhanced_sampling"`
	HardwareNotes     string     `json:"hardware_notes" yaml:"hardware_notes"`
	Evidence          []Evidence `json:"evidence" yaml:"evidence"`
}

// DomainDetails is the output of a deep profile. MD carries full details;
// profiles that are not implemented yet report a stub status instead.
type DomainDetails struct {
	Profile       string     `json:"profile" yaml:"profile"`
	MD            *MDDetails `json:"md,omitempty" yaml:"md,omitempty"`
	Status        string     `json:"status,omitempty" yaml:"status,omitempty"`
	Message       string     `json:"message,omitempty" yaml:"message,omitempty"`
	SchemaPreview []string   `json:"schema_preview,omitempty" yaml:"schema_preview,omitempty"`
}

// Evidence links an extracted field to the text it came from.
type Evidence struct {
	Field      string  `json:"field" yaml:"field"`
	Snippet    string  `json:"snippet" yaml:"snippet"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// ValidationFlag is a non-fatal plausibility warning.
type ValidationFlag struct {
	Severity string `json:"severity" yaml:"severity"`
	Field    string `json:"field" yaml:"field"`
	Value    string `json:"value" yaml:"value"`
	Message  string `json:"message" yaml:"message"`
}

// PaperRecord is the unit of output for one paper in one run.
type PaperRecord struct {
	Metadata        PaperMetadata    `json:"paper_metadata" yaml:"paper_metadata"`
	SimulationType  SimulationType   `json:"simulation_type" yaml:"simulation_type"`
	TypeConfidence  float64          `json:"type_confidence" yaml:"type_confidence"`
	Core            CoreDetails      `json:"core_simulation_details" yaml:"core_simulation_details"`
	Domain          *DomainDetails   `json:"domain_details" yaml:"domain_details"`
	Evidence        []Evidence       `json:"evidence" yaml:"evidence"`
	ValidationFlags []ValidationFlag `json:"validation_flags" yaml:"validation_flags"`
	Summary         string           `json:"summary" yaml:"summary"`
	SourceMode      SourceMode       `json:"source_mode" yaml:"source_mode"`
	RawExcerpt      string           `json:"raw_excerpt" yaml:"raw_excerpt"`
	RankingScore    float64          `json:"ranking_score" yaml:"ranking_score"`
	Errors          []string         `json:"errors" yaml:"errors"`
}
