// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/sim-agent/internal/pipeline"
	"github.com/pdiddy/sim-agent/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past runs",
	Long: `Runs lists the runs in the output directory, newest first, with their topic,
paper count and simulation type breakdown. The SQLite index is used when it
exists; otherwise run directories are scanned.`,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().String("output-dir", "", "output directory (default from config)")
	rootCmd.AddCommand(runsCmd)
}

// runSummary is one row of the runs listing.
type runSummary struct {
	RunID     string
	CreatedAt string
	Topic     string
	Papers    int
	Breakdown map[string]int
}

func runRuns(cmd *cobra.Command, args []string) error {
	outputDir, err := resolveOutputDir(cmd)
	if err != nil {
		return err
	}

	var rows []runSummary
	indexPath := pipeline.DefaultIndexPath(outputDir)
	if _, statErr := os.Stat(indexPath); statErr == nil {
		rows, err = indexedRuns(cmd.Context(), indexPath)
	} else {
		rows, err = scannedRuns(store.NewRunStore(outputDir))
	}
	if err != nil {
		return err
	}
	return printRuns(cmd.OutOrStdout(), rows)
}

func indexedRuns(ctx context.Context, indexPath string) ([]runSummary, error) {
	x, err := store.OpenIndex(indexPath)
	if err != nil {
		return nil, err
	}
	defer x.Close()

	runs, err := x.Runs(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]runSummary, 0, len(runs))
	for _, r := range runs {
		counts, err := x.CountByType(ctx, r.RunID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, runSummary{RunID: r.RunID, CreatedAt: r.CreatedAt, Topic: r.Topic, Papers: r.PaperCount, Breakdown: counts})
	}
	return rows, nil
}

func scannedRuns(s *store.RunStore) ([]runSummary, error) {
	ids, err := s.ListRuns()
	if err != nil {
		return nil, err
	}
	rows := make([]runSummary, 0, len(ids))
	for _, id := range ids {
		m, err := s.LoadManifest(id)
		if err != nil {
			return nil, err
		}
		rows = append(rows, runSummary{RunID: m.RunID, CreatedAt: m.CreatedAt, Topic: m.Topic, Papers: m.PaperCount, Breakdown: m.ClassificationBreakdown})
	}
	return rows, nil
}

func printRuns(w io.Writer, rows []runSummary) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "no runs found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tCREATED\tPAPERS\tTYPES\tTOPIC")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.RunID, r.CreatedAt, r.Papers, formatBreakdown(r.Breakdown), r.Topic)
	}
	return tw.Flush()
}

// formatBreakdown renders counts as "MD=3 QM=1", ordered by type name.
func formatBreakdown(counts map[string]int) string {
	if len(counts) == 0 {
		return "-"
	}
	names := make([]string, 0, len(counts))
	for k := range counts {
		names = append(names, k)
	}
	slices.Sort(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s=%d", n, counts[n])
	}
	return strings.Join(parts, " ")
}
