// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/sim-agent/internal/report"
	"github.com/pdiddy/sim-agent/internal/store"
)

// Export formats.
const (
	formatMarkdown = "markdown"
	formatJSON     = "json"
	formatHTML     = "html"
	formatCSL      = "csl"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a run report in one format",
	Long: `Export writes the stored report of a run: the Markdown summary, the JSON
array of paper records, the HTML page, or a CSL-YAML bibliography of the
analyzed papers. Output goes to stdout unless --out names a file.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("run-id", "", "run identifier (required)")
	exportCmd.Flags().String("format", formatMarkdown, "output format: markdown, json, html, or csl")
	exportCmd.Flags().String("output-dir", "", "output directory (default from config)")
	exportCmd.Flags().String("out", "", "write to this file instead of stdout")
	_ = exportCmd.MarkFlagRequired("run-id")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	outputDir, err := resolveOutputDir(cmd)
	if err != nil {
		return err
	}
	runID, _ := cmd.Flags().GetString("run-id")
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("out")

	w := cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", outPath, err)
		}
		defer f.Close()
		w = f
	}
	return export(w, store.NewRunStore(outputDir), runID, format)
}

func export(w io.Writer, s *store.RunStore, runID, format string) error {
	switch format {
	case formatMarkdown:
		md, err := s.LoadMarkdown(runID)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, md)
		return err
	case formatHTML:
		page, err := s.LoadHTML(runID)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, page)
		return err
	case formatJSON:
		records, err := s.LoadAggregate(runID)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding records: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case formatCSL:
		records, err := s.LoadAggregate(runID)
		if err != nil {
			return err
		}
		return report.CSL(w, records)
	default:
		return fmt.Errorf("unknown format %q: use markdown, json, html, or csl", format)
	}
}
