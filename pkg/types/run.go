// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ConstraintAudit records the topic constraint a run used.
type ConstraintAudit struct {
	AnchorGroups      [][]string `json:"anchor_groups" yaml:"anchor_groups"`
	ExcludeTitleTerms []string   `json:"exclude_title_terms" yaml:"exclude_title_terms"`

	// Source is "llm" or "heuristic".
	Source string `json:"source" yaml:"source"`
}

// Manifest describes a finished run: its parameters, derived statistics and
// the retrieval/selection audit trail.
type Manifest struct {
	RunID        string   `json:"run_id" yaml:"run_id"`
	Topic        string   `json:"topic" yaml:"topic"`
	CreatedAt    string   `json:"created_at" yaml:"created_at"`
	TopN         int      `json:"top_n" yaml:"top_n"`
	Years        int      `json:"years" yaml:"years"`
	DeepProfiles []string `json:"deep_profiles" yaml:"deep_profiles"`
	CustomFields []string `json:"custom_fields" yaml:"custom_fields"`

	PaperCount              int            `json:"paper_count" yaml:"paper_count"`
	ClassificationBreakdown map[string]int `json:"classification_breakdown" yaml:"classification_breakdown"`
	PDFModeCount            int            `json:"pdf_mode_count" yaml:"pdf_mode_count"`
	AbstractModeCount       int            `json:"abstract_mode_count" yaml:"abstract_mode_count"`
	TotalValidationFlags    int            `json:"total_validation_flags" yaml:"total_validation_flags"`
	ModelUsed               string         `json:"model_used" yaml:"model_used"`

	Queries        []string        `json:"queries" yaml:"queries"`
	CandidateCount int             `json:"candidate_count" yaml:"candidate_count"`
	Constraint     ConstraintAudit `json:"constraint" yaml:"constraint"`

	// FilterMode is "constrained" when enough candidates passed the topic
	// constraint, "relaxed" when the unfiltered ranking was used.
	FilterMode    string `json:"filter_mode" yaml:"filter_mode"`
	FilterMatched int    `json:"filter_matched" yaml:"filter_matched"`

	// SelectionMode is "llm_title_rerank" or "heuristic_top_n".
	SelectionMode string `json:"selection_mode" yaml:"selection_mode"`
	ShortlistSize int    `json:"shortlist_size" yaml:"shortlist_size"`
}

// CandidateEntry is one shortlist row in the candidate titles audit file.
type CandidateEntry struct {
	Ref             string  `json:"ref" yaml:"ref"`
	PaperID         string  `json:"paper_id" yaml:"paper_id"`
	Title           string  `json:"title" yaml:"title"`
	Year            int     `json:"year,omitempty" yaml:"year,omitempty"`
	Score           float64 `json:"score" yaml:"score"`
	ConstraintMatch bool    `json:"constraint_match" yaml:"constraint_match"`
	Selected        bool    `json:"selected" yaml:"selected"`

	// SelectedRank is the 1-based position in the final selection, 0 when
	// the candidate was not selected.
	SelectedRank int `json:"selected_rank" yaml:"selected_rank"`
}

// CandidateFile is the persisted shortlist audit.
type CandidateFile struct {
	RunID         string           `json:"run_id" yaml:"run_id"`
	Topic         string           `json:"topic" yaml:"topic"`
	SelectionMode string           `json:"selection_mode" yaml:"selection_mode"`
	FilterMode    string           `json:"filter_mode" yaml:"filter_mode"`
	Candidates    []CandidateEntry `json:"candidates" yaml:"candidates"`
}
