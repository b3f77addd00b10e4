package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// DefaultSettings are the run parameters used when the CLI does not
// override them.
type DefaultSettings struct {
	TopN         int      `json:"top_n" yaml:"top_n" mapstructure:"top_n"`
	Years        int      `json:"years" yaml:"years" mapstructure:"years"`
	OutputDir    string   `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`
	DeepProfiles []string `json:"deep_profiles" yaml:"deep_profiles" mapstructure:"deep_profiles"`
	UseSQLite    bool     `json:"use_sqlite" yaml:"use_sqlite" mapstructure:"use_sqlite"`
}

// RankingWeights weight the ranker's sub-scores. They are applied as given
// and are not normalized.
type RankingWeights struct {
	Relevance float64 `json:"relevance_weight" yaml:"relevance_weight" mapstructure:"relevance_weight"`
	Recency   float64 `json:"recency_weight" yaml:"recency_weight" mapstructure:"recency_weight"`
	Citation  float64 `json:"citation_weight" yaml:"citation_weight" mapstructure:"citation_weight"`
}

// LLMProvider selects the chat backend.
type LLMProvider string

const (
	ProviderAnthropic LLMProvider = "anthropic"
	ProviderGemini    LLMProvider = "gemini"
	ProviderNone      LLMProvider = "none"
)

// AIConfig holds settings for the structured-output LLM calls.
type AIConfig struct {
	Provider LLMProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the provider model identifier. Empty selects the provider default.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the provider. An empty key
	// disables LLM calls; every caller then uses its heuristic path.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// MaxRetries is passed to the provider SDK for transient failures.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// ValidationSettings are the plausibility ranges used by the sanity validator.
type ValidationSettings struct {
	MDTimestepFSMin float64 `json:"md_timestep_fs_min" yaml:"md_timestep_fs_min" mapstructure:"md_timestep_fs_min"`
	MDTimestepFSMax float64 `json:"md_timestep_fs_max" yaml:"md_timestep_fs_max" mapstructure:"md_timestep_fs_max"`
	TemperatureKMin float64 `json:"temperature_k_min" yaml:"temperature_k_min" mapstructure:"temperature_k_min"`
	TemperatureKMax float64 `json:"temperature_k_max" yaml:"temperature_k_max" mapstructure:"temperature_k_max"`
	PressureBarMax  float64 `json:"pressure_bar_max" yaml:"pressure_bar_max" mapstructure:"pressure_bar_max"`
}

// SearchConfig holds settings for the paper source adapters.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// OpenAlexEmail is sent as the mailto parameter for polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty" mapstructure:"openalex_email"`

	// ResolveOpenAccess enables an OpenAlex lookup for selected papers that
	// have a DOI but no open-access PDF URL.
	ResolveOpenAccess bool `json:"resolve_open_access" yaml:"resolve_open_access" mapstructure:"resolve_open_access"`
}

// SelectionConfig tunes the shortlist and the LLM-assisted selection steps.
type SelectionConfig struct {
	// HeuristicPoolTarget is the minimum shortlist size; the effective size is
	// max(HeuristicPoolTarget, 5*top_n).
	HeuristicPoolTarget int `json:"heuristic_pool_target" yaml:"heuristic_pool_target" mapstructure:"heuristic_pool_target"`

	// RerankMaxTitles caps how many shortlist titles are sent to the LLM.
	RerankMaxTitles int `json:"rerank_max_titles" yaml:"rerank_max_titles" mapstructure:"rerank_max_titles"`

	LLMRerank      bool `json:"llm_rerank" yaml:"llm_rerank" mapstructure:"llm_rerank"`
	LLMConstraints bool `json:"llm_constraints" yaml:"llm_constraints" mapstructure:"llm_constraints"`
	LLMKeywords    bool `json:"llm_keywords" yaml:"llm_keywords" mapstructure:"llm_keywords"`
}

// PDFBackend identifies the PDF-to-text tool.
type PDFBackend string

const (
	PDFBackendPDFCPU     PDFBackend = "pdfcpu"
	PDFBackendMarkitdown PDFBackend = "markitdown"
)

// PDFConfig holds settings for PDF download and text extraction.
type PDFConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	Backend  PDFBackend `json:"backend" yaml:"backend" mapstructure:"backend"`
	MaxPages int        `json:"max_pages" yaml:"max_pages" mapstructure:"max_pages"`
	MaxChars int        `json:"max_chars" yaml:"max_chars" mapstructure:"max_chars"`

	// MinChars is the shortest extracted text accepted as a full-text source.
	MinChars int `json:"min_chars" yaml:"min_chars" mapstructure:"min_chars"`

	// MarkitdownImage is the container image run by the markitdown backend.
	MarkitdownImage string `json:"markitdown_image" yaml:"markitdown_image" mapstructure:"markitdown_image"`
}

// Config groups every setting of a run. It is built once at startup and
// passed by value; nothing mutates it afterward.
type Config struct {
	Defaults   DefaultSettings    `json:"defaults" yaml:"defaults" mapstructure:"defaults"`
	Ranking    RankingWeights     `json:"ranking" yaml:"ranking" mapstructure:"ranking"`
	LLM        AIConfig           `json:"llm" yaml:"llm" mapstructure:"llm"`
	Validation ValidationSettings `json:"validation" yaml:"validation" mapstructure:"validation"`
	Search     SearchConfig       `json:"search" yaml:"search" mapstructure:"search"`
	Selection  SelectionConfig    `json:"selection" yaml:"selection" mapstructure:"selection"`
	PDF        PDFConfig          `json:"pdf" yaml:"pdf" mapstructure:"pdf"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Defaults: DefaultSettings{
			TopN:         10,
			Years:        10,
			OutputDir:    "outputs",
			DeepProfiles: []string{"MD"},
			UseSQLite:    true,
		},
		Ranking: RankingWeights{
			Relevance: 0.6,
			Recency:   0.25,
			Citation:  0.15,
		},
		LLM: AIConfig{
			Provider:   ProviderAnthropic,
			Timeout:    60 * time.Second,
			MaxRetries: 2,
		},
		Validation: ValidationSettings{
			MDTimestepFSMin: 0.1,
			MDTimestepFSMax: 10.0,
			TemperatureKMin: 1.0,
			TemperatureKMax: 2000.0,
			PressureBarMax:  10000.0,
		},
		Search: SearchConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "sim-agent/0.1 (+https://local)",
			},
			ResolveOpenAccess: true,
		},
		Selection: SelectionConfig{
			HeuristicPoolTarget: 100,
			RerankMaxTitles:     120,
			LLMRerank:           true,
			LLMConstraints:      true,
			LLMKeywords:         true,
		},
		PDF: PDFConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   45 * time.Second,
				UserAgent: "sim-agent/0.1 (+https://local)",
			},
			Backend:  PDFBackendPDFCPU,
			MaxPages: 30,
			MaxChars: 80000,
			MinChars: 200,

			MarkitdownImage: "markitdown:latest",
		},
	}
}
