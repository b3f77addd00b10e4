// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/sim-agent/pkg/types"
)

var generated = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func records() []types.PaperRecord {
	return []types.PaperRecord{
		{
			Metadata:       types.PaperMetadata{PaperID: "p1", Title: "Lipid bilayers", Year: 2024, DOI: "10.1/p1", Venue: "JCTC"},
			SimulationType: types.SimMD,
			TypeConfidence: 0.874,
			Core: types.CoreDetails{
				Engines:             []string{"GROMACS", "PLUMED"},
				ComputedProperties:  []string{"density"},
				SystemBuildProtocol: "Built with CHARMM-GUI.",
			},
			Domain: &types.DomainDetails{Profile: "MD", MD: &types.MDDetails{
				Engine: "GROMACS", ForceField: "charmm36", Timestep: "2 fs",
			}},
			ValidationFlags: []types.ValidationFlag{{Field: "x"}},
			Summary:         "Membrane study.",
			SourceMode:      types.SourcePDF,
		},
		{
			Metadata:       types.PaperMetadata{PaperID: "p2", Title: "Band gaps"},
			SimulationType: types.SimQM,
			TypeConfidence: 0.5,
			SourceMode:     types.SourceAbstract,
		},
		{
			Metadata:       types.PaperMetadata{PaperID: "p3", Title: "More lipids", Year: 2023},
			SimulationType: types.SimMD,
			TypeConfidence: 0.7,
			Core: types.CoreDetails{
				Engines:            []string{"PLUMED", " ", "AMBER"},
				ComputedProperties: []string{"density", "free energy"},
			},
			SourceMode: types.SourceAbstract,
		},
	}
}

func TestMarkdown(t *testing.T) {
	got := Markdown("lipid membranes", "run_1", generated, records())

	want := "# Simulation Literature Report\n" +
		"\n" +
		"- Run ID: `run_1`\n" +
		"- Generated at (UTC): `2026-03-01T12:00:00Z`\n" +
		"- Topic: lipid membranes\n" +
		"- Papers analyzed: 3\n" +
		"\n" +
		"## Simulation Type Breakdown\n" +
		"- MD: 2\n" +
		"- QM: 1\n" +
		"\n" +
		"## Cross-Paper Synthesis\n" +
		"### MD\n" +
		"- Frequent engines/tools: PLUMED, GROMACS, AMBER\n" +
		"- Frequent computed properties: density, free energy\n" +
		"\n" +
		"### QM\n" +
		"- Frequent engines/tools: N/A\n" +
		"- Frequent computed properties: N/A\n" +
		"\n" +
		"## Per-Paper Results\n" +
		"### Lipid bilayers\n" +
		"- Paper ID: `p1`\n" +
		"- Year: 2024\n" +
		"- Type: `MD` (confidence: 0.87)\n" +
		"- Source mode: `pdf`\n" +
		"- Summary: Membrane study.\n" +
		"- System build protocol: Built with CHARMM-GUI.\n" +
		"- MD details:\n" +
		"  - Engine: GROMACS\n" +
		"  - Force field: charmm36\n" +
		"  - Ensemble: N/A\n" +
		"  - Timestep: 2 fs\n" +
		"  - Production time: N/A\n" +
		"- Validation flags: 1\n" +
		"\n" +
		"### Band gaps\n" +
		"- Paper ID: `p2`\n" +
		"- Year: Unknown\n" +
		"- Type: `QM` (confidence: 0.50)\n" +
		"- Source mode: `abstract`\n" +
		"- Summary: N/A\n" +
		"- System build protocol: N/A\n" +
		"\n" +
		"### More lipids\n" +
		"- Paper ID: `p3`\n" +
		"- Year: 2023\n" +
		"- Type: `MD` (confidence: 0.70)\n" +
		"- Source mode: `abstract`\n" +
		"- Summary: N/A\n" +
		"- System build protocol: N/A\n"

	if got != want {
		t.Errorf("Markdown mismatch.\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestMarkdownNoRecords(t *testing.T) {
	got := Markdown("t", "r", generated, nil)
	assert.True(t, strings.HasSuffix(got, "## Per-Paper Results\n"))
	assert.Contains(t, got, "- Papers analyzed: 0\n")
}

func TestFrequentCapsAtEight(t *testing.T) {
	var engines []string
	for _, e := range "ABCDEFGHIJ" {
		engines = append(engines, string(e))
	}
	recs := []types.PaperRecord{{Core: types.CoreDetails{Engines: engines}}}
	got := joinOrNA(frequent(recs, func(r types.PaperRecord) []string { return r.Core.Engines }))
	assert.Equal(t, "A, B, C, D, E, F, G, H", got)
}

func TestHTML(t *testing.T) {
	recs := records()
	recs[1].Metadata.Title = "<script>alert(1)</script> gaps"
	md := Markdown("topic & more", "run_<1>", generated, recs)

	page, err := HTML("run_<1>", md)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(page, "<!doctype html>"))
	assert.Contains(t, page, "<title>Simulation Literature Report - run_&lt;1&gt;</title>")
	assert.Contains(t, page, "<h1>Simulation Literature Report</h1>")
	assert.Contains(t, page, "<h3>Lipid bilayers</h3>")
	assert.Contains(t, page, "<code>run_&lt;1&gt;</code>")
	assert.NotContains(t, page, "<script>")
}

func TestCSL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSL(&buf, records()[:2]))

	var items []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &items))
	require.Len(t, items, 2)

	assert.Equal(t, "10.1/p1", items[0]["id"])
	assert.Equal(t, "article-journal", items[0]["type"])
	assert.Equal(t, "JCTC", items[0]["container-title"])
	assert.Equal(t, "simulation_type: MD", items[0]["note"])
	assert.Equal(t, map[string]any{"date-parts": []any{[]any{2024}}}, items[0]["issued"])

	assert.Equal(t, "p2", items[1]["id"])
	assert.Equal(t, "article", items[1]["type"])
	assert.NotContains(t, items[1], "issued")
	assert.NotContains(t, items[1], "DOI")
}
