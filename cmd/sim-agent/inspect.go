// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/sim-agent/internal/pipeline"
	"github.com/pdiddy/sim-agent/internal/store"
	"github.com/pdiddy/sim-agent/pkg/types"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show a run manifest or one paper record",
	Long: `Inspect prints the manifest of a run, or with --paper-id the full record of
one paper. Paper records missing from the run directory are looked up in the
SQLite index. Exits with status 2 when the run or paper does not exist.`,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().String("run-id", "", "run identifier (required)")
	inspectCmd.Flags().String("paper-id", "", "paper identifier")
	inspectCmd.Flags().String("output-dir", "", "output directory (default from config)")
	inspectCmd.Flags().Bool("yaml", false, "print YAML instead of JSON")
	_ = inspectCmd.MarkFlagRequired("run-id")

	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	outputDir, err := resolveOutputDir(cmd)
	if err != nil {
		return err
	}
	runID, _ := cmd.Flags().GetString("run-id")
	paperID, _ := cmd.Flags().GetString("paper-id")
	asYAML, _ := cmd.Flags().GetBool("yaml")

	s := store.NewRunStore(outputDir)
	var v any
	if paperID == "" {
		m, err := s.LoadManifest(runID)
		if err != nil {
			return err
		}
		v = m
	} else {
		rec, err := loadPaper(cmd.Context(), s, outputDir, runID, paperID)
		if err != nil {
			return err
		}
		v = rec
	}
	return printValue(cmd.OutOrStdout(), v, asYAML)
}

// loadPaper reads a record from the run directory, then from the index.
func loadPaper(ctx context.Context, s *store.RunStore, outputDir, runID, paperID string) (types.PaperRecord, error) {
	rec, err := s.LoadPaper(runID, paperID)
	if err == nil || !errors.Is(err, store.ErrNotFound) {
		return rec, err
	}

	indexPath := pipeline.DefaultIndexPath(outputDir)
	if _, statErr := os.Stat(indexPath); statErr != nil {
		return rec, err
	}
	x, openErr := store.OpenIndex(indexPath)
	if openErr != nil {
		return rec, err
	}
	defer x.Close()
	return x.Paper(ctx, runID, paperID)
}

func printValue(w io.Writer, v any, asYAML bool) error {
	if asYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// resolveOutputDir returns --output-dir, or the configured default.
func resolveOutputDir(cmd *cobra.Command) (string, error) {
	if cmd.Flags().Changed("output-dir") {
		return cmd.Flags().GetString("output-dir")
	}
	cfg, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return "", err
	}
	return cfg.Defaults.OutputDir, nil
}
