// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// PaperMetadata is the normalized shape every paper source produces.
// It is not modified after the source returns it.
type PaperMetadata struct {
	// PaperID is the provider identifier (Semantic Scholar paperId or the
	// trailing segment of an OpenAlex work id).
	PaperID string `json:"paper_id" yaml:"paper_id"`

	Title    string `json:"title" yaml:"title"`
	Abstract string `json:"abstract" yaml:"abstract"`

	// Year is zero when the provider did not report one.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// DOI is stored bare, without the https://doi.org/ prefix.
	DOI   string `json:"doi,omitempty" yaml:"doi,omitempty"`
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	CitationCount int `json:"citation_count" yaml:"citation_count"`

	// OpenAccessPDFURL points at a freely downloadable copy, when one is known.
	OpenAccessPDFURL string `json:"open_access_pdf_url,omitempty" yaml:"open_access_pdf_url,omitempty"`
}

// Key returns the identity key used for deduplication: the DOI when
// present, otherwise the provider identifier.
func (p PaperMetadata) Key() string {
	if doi := strings.TrimSpace(p.DOI); doi != "" {
		return strings.ToLower(doi)
	}
	return p.PaperID
}

// RankedPaper pairs a candidate with its weighted score. The sub-scores are
// kept for the candidate audit file.
type RankedPaper struct {
	Metadata PaperMetadata `json:"paper_metadata" yaml:"paper_metadata"`
	Score    float64       `json:"score" yaml:"score"`

	Relevance float64 `json:"relevance" yaml:"relevance"`
	Recency   float64 `json:"recency" yaml:"recency"`
	Citation  float64 `json:"citation" yaml:"citation"`
}
