// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs a literature analysis end to end: retrieval,
// ranking, topic filtering, selection, per-paper text acquisition,
// classification, extraction, validation, persistence and reporting.
// Papers are processed one at a time; a failure on one paper is recorded
// on its record and never aborts the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/sim-agent/internal/classify"
	"github.com/pdiddy/sim-agent/internal/convert"
	"github.com/pdiddy/sim-agent/internal/extract"
	"github.com/pdiddy/sim-agent/internal/fetch"
	"github.com/pdiddy/sim-agent/internal/llm"
	"github.com/pdiddy/sim-agent/internal/rank"
	"github.com/pdiddy/sim-agent/internal/report"
	"github.com/pdiddy/sim-agent/internal/rerank"
	"github.com/pdiddy/sim-agent/internal/source"
	"github.com/pdiddy/sim-agent/internal/store"
	"github.com/pdiddy/sim-agent/internal/topic"
	"github.com/pdiddy/sim-agent/internal/validate"
	"github.com/pdiddy/sim-agent/pkg/types"
)

// Per-paper error messages recorded when the full text is not used.
const (
	ErrNoPDFURL        = "No open-access PDF URL available; using abstract."
	ErrInsufficientPDF = "PDF parsed with insufficient text; fell back to abstract."
	errPDFFailedPrefix = "PDF download/parse failed: "
)

const (
	classifyTextLimit = 5000
	rawExcerptLimit   = 1000
	maxSlugLen        = 48
)

// ErrEmptyTopic is returned when Run is called without a topic.
var ErrEmptyTopic = errors.New("topic is empty")

// PDFResolver looks up an open-access PDF URL for a DOI.
type PDFResolver interface {
	ResolvePDF(ctx context.Context, doi string) (string, error)
}

// Options are the per-run parameters.
type Options struct {
	Topic        string
	TopN         int
	Years        int
	DeepProfiles []string
	CustomFields []string

	// UseSQLite writes the run to the index at IndexPath when set.
	UseSQLite bool
}

// Pipeline holds the collaborators of a run. Source, Fetcher, Converter
// and Store are required; the rest have usable zero values.
type Pipeline struct {
	Config types.Config

	Source    source.Searcher
	Resolver  PDFResolver
	Client    llm.Client
	Fetcher   fetch.Fetcher
	Converter convert.Converter
	Store     *store.RunStore

	// IndexPath is the SQLite index file. Empty disables indexing even
	// when Options.UseSQLite is set.
	IndexPath string

	Logger *zap.Logger

	// Out receives one progress line per step. Nil discards progress.
	Out io.Writer

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Result lists what a run produced.
type Result struct {
	RunID          string
	RunDir         string
	ManifestPath   string
	MarkdownPath   string
	HTMLPath       string
	AggregatePath  string
	CandidatesPath string

	// IndexPath is empty when the run was not indexed.
	IndexPath string

	Manifest types.Manifest
	Records  []types.PaperRecord
}

// selection is the outcome of retrieval, ranking, filtering and reranking.
type selection struct {
	queries    []string
	candidates int
	constraint topic.Constraint
	filtered   topic.Filtered
	shortlist  []types.RankedPaper
	selected   []types.RankedPaper
	mode       string
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *Pipeline) client() llm.Client {
	if p.Client == nil {
		return llm.Disabled{}
	}
	return p.Client
}

func (p *Pipeline) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p *Pipeline) progress(format string, args ...any) {
	if p.Out == nil {
		return
	}
	fmt.Fprintf(p.Out, format+"\n", args...)
}

// Run executes one run for opts. Only a retrieval failure on every
// provider, an empty topic, or a storage error aborts it.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	topicText := topic.Normalize(opts.Topic)
	if topicText == "" {
		return nil, ErrEmptyTopic
	}
	topN := max(opts.TopN, 1)
	years := max(opts.Years, 0)
	profiles := normalizeProfiles(opts.DeepProfiles)

	started := p.now()
	runID := RunID(topicText, started)
	log := p.logger().With(zap.String("run_id", runID))
	log.Info("run started", zap.String("topic", topicText), zap.Int("top_n", topN), zap.Int("years", years))
	p.progress("run: %s", runID)

	sel, err := p.selectPapers(ctx, topicText, topN, years, started.Year(), log)
	if err != nil {
		return nil, err
	}

	records := make([]types.PaperRecord, 0, len(sel.selected))
	for i, rp := range sel.selected {
		rp.Metadata.PaperID = paperKey(rp.Metadata, i)
		p.progress("processing [%d/%d]: %s", i+1, len(sel.selected), rp.Metadata.Title)
		paperStart := time.Now()
		rec := p.processPaper(ctx, runID, rp, profiles, opts.CustomFields, log)
		log.Debug("paper done",
			zap.String("paper_id", rec.Metadata.PaperID),
			zap.String("type", string(rec.SimulationType)),
			zap.String("source_mode", string(rec.SourceMode)),
			zap.Duration("elapsed", time.Since(paperStart)))
		for _, e := range rec.Errors {
			p.progress("  warning: %s", e)
		}
		if _, err := p.Store.SavePaper(runID, rec); err != nil {
			return nil, fmt.Errorf("saving paper %s: %w", rec.Metadata.PaperID, err)
		}
		records = append(records, rec)
	}

	res := &Result{RunID: runID, RunDir: p.Store.RunDir(runID), Records: records}

	markdown := report.Markdown(topicText, runID, p.now(), records)
	if res.MarkdownPath, err = p.Store.SaveMarkdown(runID, markdown); err != nil {
		return nil, err
	}
	page, err := report.HTML(runID, markdown)
	if err != nil {
		return nil, fmt.Errorf("rendering html report: %w", err)
	}
	if res.HTMLPath, err = p.Store.SaveHTML(runID, page); err != nil {
		return nil, err
	}
	if res.AggregatePath, err = p.Store.SaveAggregate(runID, records); err != nil {
		return nil, err
	}
	candidates := types.CandidateFile{
		RunID:         runID,
		Topic:         topicText,
		SelectionMode: sel.mode,
		FilterMode:    sel.filtered.Mode,
		Candidates:    rerank.Entries(sel.shortlist, sel.selected, sel.constraint),
	}
	if res.CandidatesPath, err = p.Store.SaveCandidates(runID, candidates); err != nil {
		return nil, err
	}

	res.Manifest = p.manifest(runID, topicText, started, topN, years, profiles, opts.CustomFields, sel, records)
	if res.ManifestPath, err = p.Store.SaveManifest(runID, res.Manifest); err != nil {
		return nil, err
	}

	if opts.UseSQLite && p.IndexPath != "" {
		if err := p.index(ctx, res.Manifest, records); err != nil {
			return nil, err
		}
		res.IndexPath = p.IndexPath
	}

	log.Info("run finished",
		zap.Int("papers", len(records)),
		zap.Int("pdf_mode", res.Manifest.PDFModeCount),
		zap.Int("validation_flags", res.Manifest.TotalValidationFlags))
	p.progress("wrote: %s", res.RunDir)
	return res, nil
}

// selectPapers retrieves candidates for every query, ranks them, applies the
// topic constraint and picks the top N.
func (p *Pipeline) selectPapers(ctx context.Context, topicText string, topN, years, currentYear int, log *zap.Logger) (selection, error) {
	client := p.client()
	sc := p.Config.Selection

	keywords := []string{topicText}
	if sc.LLMKeywords {
		keywords = topic.ExpandKeywords(ctx, client, topicText, log)
	}
	queries := topic.Queries(topicText, keywords)

	perQuery := min(max(topN*3, topN), source.MaxLimit)
	yearFrom := 0
	if years > 0 {
		yearFrom = currentYear - years
	}

	p.progress("searching: %d queries via %s", len(queries), p.Source.Name())
	pool := newCandidatePool()
	for _, q := range queries {
		papers, err := p.Source.Search(ctx, q, perQuery, yearFrom)
		if err != nil {
			return selection{}, fmt.Errorf("searching %q: %w", q, err)
		}
		log.Debug("query done", zap.String("query", q), zap.Int("results", len(papers)))
		for _, m := range papers {
			pool.add(m)
		}
	}
	candidates := pool.list()

	ranked := rank.Rank(candidates, strings.Join(queries, " "), p.Config.Ranking, years, currentYear)

	var c topic.Constraint
	if sc.LLMConstraints {
		c = topic.Derive(ctx, client, topicText, log)
	} else {
		c = topic.Heuristic(topicText)
	}
	filtered := topic.Apply(c, ranked, topN)
	shortlist := rerank.Shortlist(filtered.Papers, topN, sc.HeuristicPoolTarget)

	mode := rerank.ModeHeuristic
	var selected []types.RankedPaper
	if sc.LLMRerank {
		rr := rerank.Reranker{Client: client, MaxTitles: sc.RerankMaxTitles, Logger: log}
		hints := rerank.Hints{AnchorGroups: c.AnchorGroups, ExcludeTitleTerms: c.ExcludeTitleTerms}
		if picked, ok := rr.Rerank(ctx, topicText, hints, shortlist, c, topN); ok {
			selected, mode = picked, rerank.ModeLLM
		}
	}
	if mode == rerank.ModeHeuristic {
		selected = rerank.Heuristic(filtered.Papers, topN)
	}

	p.progress("selected: %d of %d candidates (filter %s, %s)", len(selected), len(candidates), filtered.Mode, mode)
	log.Info("selection done",
		zap.Int("candidates", len(candidates)),
		zap.String("constraint_source", c.Source),
		zap.String("filter_mode", filtered.Mode),
		zap.Int("filter_matched", filtered.Matched),
		zap.String("selection_mode", mode))

	return selection{
		queries:    queries,
		candidates: len(candidates),
		constraint: c,
		filtered:   filtered,
		shortlist:  shortlist,
		selected:   selected,
		mode:       mode,
	}, nil
}

// paperKey names a paper inside the run. Papers without a provider
// identifier use their DOI, then their selection ref.
func paperKey(paper types.PaperMetadata, i int) string {
	if id := strings.TrimSpace(paper.PaperID); id != "" {
		return id
	}
	if doi := strings.TrimSpace(paper.DOI); doi != "" {
		return doi
	}
	return rerank.Ref(i)
}

// processPaper builds the record of one selected paper.
func (p *Pipeline) processPaper(ctx context.Context, runID string, rp types.RankedPaper, profiles, customFields []string, log *zap.Logger) types.PaperRecord {
	paper := rp.Metadata
	log = log.With(zap.String("paper_id", paper.PaperID))
	client := p.client()

	text, mode, errs := p.sourceText(ctx, runID, paper, log)

	classifier := classify.Classifier{Client: client, Logger: log}
	class := classifier.Classify(ctx, paper.Title+"\n"+paper.Abstract+"\n"+prefix(text, classifyTextLimit))

	ex := extract.Extractor{Client: client, Logger: log}
	in := extract.Input{Paper: paper, Text: text, SimType: class.Type, CustomFields: customFields}
	core := ex.Core(ctx, in)
	domain := ex.Domain(ctx, in, profiles)
	flags := validate.Check(class.Type, core.Details, domain, p.Config.Validation)

	return types.PaperRecord{
		Metadata:        paper,
		SimulationType:  class.Type,
		TypeConfidence:  class.Confidence,
		Core:            core.Details,
		Domain:          domain,
		Evidence:        core.Evidence,
		ValidationFlags: flags,
		Summary:         core.Summary,
		SourceMode:      mode,
		RawExcerpt:      prefix(text, rawExcerptLimit),
		RankingScore:    rp.Score,
		Errors:          errs,
	}
}

// sourceText returns the full text when an open-access PDF yields enough of
// it, and the abstract otherwise. The reason for every fallback is
// returned as a record error.
func (p *Pipeline) sourceText(ctx context.Context, runID string, paper types.PaperMetadata, log *zap.Logger) (string, types.SourceMode, []string) {
	abstract := paper.Abstract
	errs := []string{}

	pdfURL := paper.OpenAccessPDFURL
	if pdfURL == "" && paper.DOI != "" && p.Resolver != nil && p.Config.Search.ResolveOpenAccess {
		resolved, err := p.Resolver.ResolvePDF(ctx, paper.DOI)
		if err != nil {
			log.Debug("open access lookup failed", zap.String("doi", paper.DOI), zap.Error(err))
		}
		pdfURL = resolved
	}
	if pdfURL == "" {
		return abstract, types.SourceAbstract, append(errs, ErrNoPDFURL)
	}

	pdfPath := p.Store.PDFPath(runID, paper.PaperID)
	if err := p.Fetcher.Fetch(ctx, pdfURL, pdfPath); err != nil {
		log.Info("pdf download failed", zap.String("url", pdfURL), zap.Error(err))
		return abstract, types.SourceAbstract, append(errs, errPDFFailedPrefix+err.Error())
	}

	pdf := p.Config.PDF
	text := convert.ExtractText(ctx, p.Converter, pdfPath,
		convert.Options{MaxPages: pdf.MaxPages, MaxChars: pdf.MaxChars}, log)
	if len(text) <= pdf.MinChars {
		return abstract, types.SourceAbstract, append(errs, ErrInsufficientPDF)
	}
	return text, types.SourcePDF, errs
}

func (p *Pipeline) manifest(runID, topicText string, started time.Time, topN, years int, profiles, customFields []string,
	sel selection, records []types.PaperRecord) types.Manifest {
	m := types.Manifest{
		RunID:                   runID,
		Topic:                   topicText,
		CreatedAt:               started.UTC().Format(time.RFC3339),
		TopN:                    topN,
		Years:                   years,
		DeepProfiles:            profiles,
		CustomFields:            append([]string{}, customFields...),
		PaperCount:              len(records),
		ClassificationBreakdown: map[string]int{},
		ModelUsed:               p.client().Name(),
		Queries:                 sel.queries,
		CandidateCount:          sel.candidates,
		Constraint:              sel.constraint.Audit(),
		FilterMode:              sel.filtered.Mode,
		FilterMatched:           sel.filtered.Matched,
		SelectionMode:           sel.mode,
		ShortlistSize:           len(sel.shortlist),
	}
	for _, r := range records {
		m.ClassificationBreakdown[string(r.SimulationType)]++
		if r.SourceMode == types.SourcePDF {
			m.PDFModeCount++
		} else {
			m.AbstractModeCount++
		}
		m.TotalValidationFlags += len(r.ValidationFlags)
	}
	return m
}

func (p *Pipeline) index(ctx context.Context, m types.Manifest, records []types.PaperRecord) error {
	x, err := store.OpenIndex(p.IndexPath)
	if err != nil {
		return err
	}
	defer x.Close()
	if err := x.StoreRun(ctx, m, records); err != nil {
		return fmt.Errorf("indexing run %s: %w", m.RunID, err)
	}
	p.progress("indexed: %s", p.IndexPath)
	return nil
}

// DefaultIndexPath returns the index location for an output directory.
func DefaultIndexPath(outputDir string) string {
	return filepath.Join(outputDir, store.IndexFile)
}

// RunID returns run_<YYYYmmdd>_<HHMMSS>_<slug> for topic at t. The slug is
// the lowercased topic with spaces joined by underscores, cut to 48 bytes,
// with any character outside [A-Za-z0-9_-] replaced by an underscore.
func RunID(topicText string, t time.Time) string {
	stamp := "run_" + t.Format("20060102_150405")
	slug := strings.Join(strings.Fields(strings.ToLower(topicText)), "_")
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
	}
	slug = strings.Trim(safeFragment(slug), "_")
	if slug == "" {
		return stamp
	}
	return stamp + "_" + slug
}

func safeFragment(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}

// normalizeProfiles uppercases, deduplicates and sorts deep profile names.
func normalizeProfiles(profiles []string) []string {
	out := []string{}
	for _, p := range profiles {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}

// prefix returns at most n bytes of s without splitting a UTF-8 sequence.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}

// candidatePool deduplicates retrieval results by Key, keeping first-seen
// order. A later duplicate replaces the kept entry when its abstract is
// longer.
type candidatePool struct {
	order []string
	byKey map[string]types.PaperMetadata
}

func newCandidatePool() *candidatePool {
	return &candidatePool{byKey: map[string]types.PaperMetadata{}}
}

func (c *candidatePool) add(m types.PaperMetadata) {
	key := m.Key()
	if key == "" {
		return
	}
	prev, ok := c.byKey[key]
	if !ok {
		c.order = append(c.order, key)
		c.byKey[key] = m
		return
	}
	if len(m.Abstract) > len(prev.Abstract) {
		c.byKey[key] = m
	}
}

func (c *candidatePool) list() []types.PaperMetadata {
	out := make([]types.PaperMetadata, len(c.order))
	for i, k := range c.order {
		out[i] = c.byKey[k]
	}
	return out
}
