// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders finished runs as Markdown, HTML and CSL-YAML.
// Rendering is pure formatting over already-computed records.
package report

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/sim-agent/pkg/types"
)

// maxSynthesisItems bounds each frequency list in the cross-paper
// synthesis.
const maxSynthesisItems = 8

const na = "N/A"

// Markdown renders the run report.
func Markdown(topic, runID string, generatedAt time.Time, records []types.PaperRecord) string {
	groups := groupByType(records)

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("# Simulation Literature Report")
	line("")
	line("- Run ID: `%s`", runID)
	line("- Generated at (UTC): `%s`", generatedAt.UTC().Format(time.RFC3339))
	line("- Topic: %s", topic)
	line("- Papers analyzed: %d", len(records))
	line("")
	line("## Simulation Type Breakdown")
	for _, g := range groups {
		line("- %s: %d", g.simType, len(g.records))
	}
	line("")

	line("## Cross-Paper Synthesis")
	for _, g := range groups {
		line("### %s", g.simType)
		engines := frequent(g.records, func(r types.PaperRecord) []string { return r.Core.Engines })
		props := frequent(g.records, func(r types.PaperRecord) []string { return r.Core.ComputedProperties })
		line("- Frequent engines/tools: %s", joinOrNA(engines))
		line("- Frequent computed properties: %s", joinOrNA(props))
		line("")
	}

	line("## Per-Paper Results")
	for _, r := range records {
		m := r.Metadata
		line("### %s", m.Title)
		line("- Paper ID: `%s`", m.PaperID)
		line("- Year: %s", yearOr(m.Year, "Unknown"))
		line("- Type: `%s` (confidence: %.2f)", r.SimulationType, r.TypeConfidence)
		line("- Source mode: `%s`", r.SourceMode)
		line("- Summary: %s", orNA(r.Summary))
		line("- System build protocol: %s", orNA(r.Core.SystemBuildProtocol))
		if md := mdDetails(r); md != nil {
			line("- MD details:")
			line("  - Engine: %s", orNA(md.Engine))
			line("  - Force field: %s", orNA(md.ForceField))
			line("  - Ensemble: %s", orNA(md.Ensemble))
			line("  - Timestep: %s", orNA(md.Timestep))
			line("  - Production time: %s", orNA(md.ProductionTime))
		}
		if n := len(r.ValidationFlags); n > 0 {
			line("- Validation flags: %d", n)
		}
		line("")
	}
	return strings.TrimSpace(b.String()) + "\n"
}

type typeGroup struct {
	simType types.SimulationType
	records []types.PaperRecord
}

// groupByType groups records by simulation type, ordered by type name.
func groupByType(records []types.PaperRecord) []typeGroup {
	var groups []typeGroup
	for _, r := range records {
		i := slices.IndexFunc(groups, func(g typeGroup) bool { return g.simType == r.SimulationType })
		if i < 0 {
			groups = append(groups, typeGroup{simType: r.SimulationType})
			i = len(groups) - 1
		}
		groups[i].records = append(groups[i].records, r)
	}
	slices.SortFunc(groups, func(a, b typeGroup) int { return strings.Compare(string(a.simType), string(b.simType)) })
	return groups
}

// frequent counts the trimmed values of field across records and returns
// them by descending count. Ties keep first-seen order.
func frequent(records []types.PaperRecord, field func(types.PaperRecord) []string) []string {
	counts := map[string]int{}
	var order []string
	for _, r := range records {
		for _, v := range field(r) {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if counts[v] == 0 {
				order = append(order, v)
			}
			counts[v]++
		}
	}
	slices.SortStableFunc(order, func(a, b string) int { return counts[b] - counts[a] })
	return order
}

func mdDetails(r types.PaperRecord) *types.MDDetails {
	if r.SimulationType != types.SimMD || r.Domain == nil {
		return nil
	}
	return r.Domain.MD
}

func joinOrNA(items []string) string {
	if len(items) == 0 {
		return na
	}
	return strings.Join(items[:min(len(items), maxSynthesisItems)], ", ")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return na
	}
	return s
}

func yearOr(year int, fallback string) string {
	if year == 0 {
		return fallback
	}
	return strconv.Itoa(year)
}
