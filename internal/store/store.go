// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists run outputs. RunStore owns the JSON file layout
// under <root>/runs/<run_id>/; Index is the optional SQLite index over all
// runs.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pdiddy/sim-agent/internal/fetch"
	"github.com/pdiddy/sim-agent/pkg/types"
)

// ErrNotFound is returned when a run or paper does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmptyPaperID is returned when a record has no identifier to name its
// file by.
var ErrEmptyPaperID = errors.New("paper record has no paper_id")

const (
	runsDir        = "runs"
	papersDir      = "papers"
	pdfsDir        = "pdfs"
	manifestFile   = "run_manifest.json"
	markdownFile   = "summary.md"
	htmlFile       = "summary.html"
	aggregateFile  = "summary.json"
	candidatesFile = "candidate_titles.json"
)

// RunStore reads and writes run directories under Root.
type RunStore struct {
	Root string
}

// NewRunStore returns a store rooted at root.
func NewRunStore(root string) *RunStore {
	return &RunStore{Root: root}
}

// RunDir returns the directory of runID.
func (s *RunStore) RunDir(runID string) string {
	return filepath.Join(s.Root, runsDir, runID)
}

// PDFPath returns where the PDF of paperID is downloaded to.
func (s *RunStore) PDFPath(runID, paperID string) string {
	return filepath.Join(s.RunDir(runID), pdfsDir, fetch.SafeName(paperID)+".pdf")
}

// ManifestPath and the other *Path helpers name the files of a run.
func (s *RunStore) ManifestPath(runID string) string {
	return filepath.Join(s.RunDir(runID), manifestFile)
}

func (s *RunStore) MarkdownPath(runID string) string {
	return filepath.Join(s.RunDir(runID), markdownFile)
}

func (s *RunStore) HTMLPath(runID string) string {
	return filepath.Join(s.RunDir(runID), htmlFile)
}

func (s *RunStore) AggregatePath(runID string) string {
	return filepath.Join(s.RunDir(runID), aggregateFile)
}

func (s *RunStore) CandidatesPath(runID string) string {
	return filepath.Join(s.RunDir(runID), candidatesFile)
}

func (s *RunStore) paperPath(runID, paperID string) string {
	return filepath.Join(s.RunDir(runID), papersDir, fetch.SafeName(paperID)+".json")
}

// SavePaper writes one record to papers/<safe paper id>.json.
func (s *RunStore) SavePaper(runID string, rec types.PaperRecord) (string, error) {
	if strings.TrimSpace(rec.Metadata.PaperID) == "" {
		return "", ErrEmptyPaperID
	}
	path := s.paperPath(runID, rec.Metadata.PaperID)
	return path, writeJSON(path, rec)
}

func (s *RunStore) SaveManifest(runID string, m types.Manifest) (string, error) {
	path := s.ManifestPath(runID)
	return path, writeJSON(path, m)
}

// SaveAggregate writes every record of the run as one JSON array.
func (s *RunStore) SaveAggregate(runID string, records []types.PaperRecord) (string, error) {
	if records == nil {
		records = []types.PaperRecord{}
	}
	path := s.AggregatePath(runID)
	return path, writeJSON(path, records)
}

func (s *RunStore) SaveCandidates(runID string, c types.CandidateFile) (string, error) {
	path := s.CandidatesPath(runID)
	return path, writeJSON(path, c)
}

func (s *RunStore) SaveMarkdown(runID, markdown string) (string, error) {
	path := s.MarkdownPath(runID)
	return path, writeFileAtomic(path, []byte(markdown))
}

func (s *RunStore) SaveHTML(runID, html string) (string, error) {
	path := s.HTMLPath(runID)
	return path, writeFileAtomic(path, []byte(html))
}

// LoadPaper returns the stored record of paperID in runID.
func (s *RunStore) LoadPaper(runID, paperID string) (types.PaperRecord, error) {
	var rec types.PaperRecord
	err := readJSON(s.paperPath(runID, paperID), &rec)
	if errors.Is(err, ErrNotFound) {
		return rec, fmt.Errorf("paper %s in run %s: %w", paperID, runID, ErrNotFound)
	}
	return rec, err
}

func (s *RunStore) LoadManifest(runID string) (types.Manifest, error) {
	var m types.Manifest
	err := readJSON(s.ManifestPath(runID), &m)
	if errors.Is(err, ErrNotFound) {
		return m, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return m, err
}

func (s *RunStore) LoadAggregate(runID string) ([]types.PaperRecord, error) {
	var records []types.PaperRecord
	err := readJSON(s.AggregatePath(runID), &records)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return records, err
}

func (s *RunStore) LoadCandidates(runID string) (types.CandidateFile, error) {
	var c types.CandidateFile
	err := readJSON(s.CandidatesPath(runID), &c)
	if errors.Is(err, ErrNotFound) {
		return c, fmt.Errorf("candidates of run %s: %w", runID, ErrNotFound)
	}
	return c, err
}

func (s *RunStore) LoadMarkdown(runID string) (string, error) {
	return s.loadText(runID, s.MarkdownPath(runID))
}

func (s *RunStore) LoadHTML(runID string) (string, error) {
	return s.loadText(runID, s.HTMLPath(runID))
}

func (s *RunStore) loadText(runID, path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// ListRuns returns the ids of runs that have a manifest, newest first.
// Run ids start with a UTC timestamp, so reverse lexical order is
// reverse chronological.
func (s *RunStore) ListRuns() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.Root, runsDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(s.ManifestPath(e.Name())); err == nil {
			ids = append(ids, e.Name())
		}
	}
	slices.Sort(ids)
	slices.Reverse(ids)
	return ids, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".store-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", filepath.Base(path), writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
