// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/sim-agent/internal/convert"
	"github.com/pdiddy/sim-agent/internal/fetch"
	"github.com/pdiddy/sim-agent/internal/llm"
	"github.com/pdiddy/sim-agent/internal/pipeline"
	"github.com/pdiddy/sim-agent/internal/source"
	"github.com/pdiddy/sim-agent/internal/store"
)

// downloadRetries bounds retries of throttled PDF downloads.
const downloadRetries = 3

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a literature analysis for a topic",
	Long: `Run searches Semantic Scholar (falling back to OpenAlex) for the topic,
ranks and filters the candidates, selects the top N papers, and extracts a
structured simulation record from each paper's open-access PDF or abstract.

Without an LLM API key every step uses its rule-based path.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("topic", "", "research topic (required)")
	runCmd.Flags().Int("top-n", 0, "number of papers to analyze (default from config)")
	runCmd.Flags().Int("years", 0, "publication window in years (default from config)")
	runCmd.Flags().String("output-dir", "", "output directory (default from config)")
	runCmd.Flags().StringSlice("deep-profiles", nil, "deep extraction profiles, e.g. MD,QMMM (default from config)")
	runCmd.Flags().StringArray("custom-field", nil, "extra field to extract; may be repeated")
	runCmd.Flags().Bool("no-sqlite", false, "do not write the run to the SQLite index")
	_ = runCmd.MarkFlagRequired("topic")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	opts := pipeline.Options{
		TopN:         cfg.Defaults.TopN,
		Years:        cfg.Defaults.Years,
		DeepProfiles: cfg.Defaults.DeepProfiles,
		UseSQLite:    cfg.Defaults.UseSQLite,
	}
	opts.Topic, _ = flags.GetString("topic")
	opts.CustomFields, _ = flags.GetStringArray("custom-field")
	if flags.Changed("top-n") {
		opts.TopN, _ = flags.GetInt("top-n")
	}
	if flags.Changed("years") {
		opts.Years, _ = flags.GetInt("years")
	}
	if flags.Changed("deep-profiles") {
		opts.DeepProfiles, _ = flags.GetStringSlice("deep-profiles")
	}
	if noSQLite, _ := flags.GetBool("no-sqlite"); noSQLite {
		opts.UseSQLite = false
	}
	if opts.TopN < 1 {
		return fmt.Errorf("--top-n must be at least 1, got %d", opts.TopN)
	}
	outputDir := cfg.Defaults.OutputDir
	if flags.Changed("output-dir") {
		outputDir, _ = flags.GetString("output-dir")
	}

	client, err := llm.New(ctx, cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("configuring llm: %w", err)
	}
	converter, err := convert.New(ctx, cfg.PDF)
	if err != nil {
		return fmt.Errorf("configuring pdf backend: %w", err)
	}

	searchClient := &http.Client{Timeout: cfg.Search.Timeout}
	openAlex := &source.OpenAlex{Client: searchClient, Email: cfg.Search.OpenAlexEmail, UserAgent: cfg.Search.UserAgent}
	p := &pipeline.Pipeline{
		Config: cfg,
		Source: &source.Fallback{
			Primary: &source.SemanticScholar{
				Client:    searchClient,
				APIKey:    cfg.Search.SemanticScholarAPIKey,
				UserAgent: cfg.Search.UserAgent,
			},
			Secondary: openAlex,
			Logger:    logger,
		},
		Resolver: openAlex,
		Client:   client,
		Fetcher: &fetch.Downloader{
			Client:     &http.Client{Timeout: cfg.PDF.Timeout},
			UserAgent:  cfg.PDF.UserAgent,
			MaxRetries: downloadRetries,
		},
		Converter: converter,
		Store:     store.NewRunStore(outputDir),
		IndexPath: pipeline.DefaultIndexPath(outputDir),
		Logger:    logger,
		Out:       cmd.ErrOrStderr(),
	}

	logger.Debug("starting run",
		zap.String("llm", client.Name()),
		zap.String("pdf_backend", string(cfg.PDF.Backend)),
		zap.String("output_dir", outputDir))

	res, err := p.Run(ctx, opts)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run ID: %s\n", res.RunID)
	fmt.Fprintf(w, "Papers analyzed: %d\n", len(res.Records))
	fmt.Fprintf(w, "Manifest: %s\n", res.ManifestPath)
	fmt.Fprintf(w, "Markdown report: %s\n", res.MarkdownPath)
	fmt.Fprintf(w, "HTML report: %s\n", res.HTMLPath)
	fmt.Fprintf(w, "JSON summary: %s\n", res.AggregatePath)
	fmt.Fprintf(w, "Candidate titles: %s\n", res.CandidatesPath)
	if res.IndexPath != "" {
		fmt.Fprintf(w, "SQLite index: %s\n", res.IndexPath)
	}
	return nil
}
