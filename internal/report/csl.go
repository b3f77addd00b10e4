// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/sim-agent/pkg/types"
)

// CSLItem is a bibliographic entry in CSL-YAML form, consumable by Pandoc
// and reference managers.
type CSLItem struct {
	ID             string   `yaml:"id"`
	Type           string   `yaml:"type"`
	Title          string   `yaml:"title"`
	ContainerTitle string   `yaml:"container-title,omitempty"`
	Abstract       string   `yaml:"abstract,omitempty"`
	Issued         *CSLDate `yaml:"issued,omitempty"`
	DOI            string   `yaml:"DOI,omitempty"`
	URL            string   `yaml:"URL,omitempty"`
	Note           string   `yaml:"note,omitempty"`
}

// CSLDate is a CSL date in date-parts form.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// CSL writes the records of a run as a CSL-YAML list to w. The note field
// carries the simulation type so a bibliography can be filtered by it.
func CSL(w io.Writer, records []types.PaperRecord) error {
	items := make([]CSLItem, len(records))
	for i, r := range records {
		items[i] = toCSLItem(r)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

func toCSLItem(r types.PaperRecord) CSLItem {
	m := r.Metadata
	item := CSLItem{
		ID:             cslID(m),
		Type:           "article-journal",
		Title:          m.Title,
		ContainerTitle: m.Venue,
		Abstract:       m.Abstract,
		DOI:            m.DOI,
		URL:            m.URL,
		Note:           "simulation_type: " + string(r.SimulationType),
	}
	if m.Year != 0 {
		item.Issued = &CSLDate{DateParts: [][]int{{m.Year}}}
	}
	if item.ContainerTitle == "" {
		item.Type = "article"
	}
	return item
}

// cslID prefers the DOI, the identifier most citation tools resolve.
func cslID(m types.PaperMetadata) string {
	if doi := strings.TrimSpace(m.DOI); doi != "" {
		return doi
	}
	return m.PaperID
}
