// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/sim-agent/pkg/types"
)

// IndexFile is the index database name under the output directory.
const IndexFile = "sim_agent.db"

// Index is a SQLite index of runs and their paper records. Each run is
// written once, at the end of the run, in one transaction.
type Index struct {
	db *sqlx.DB
}

// RunRow is one indexed run.
type RunRow struct {
	RunID      string `db:"run_id"`
	Topic      string `db:"topic"`
	CreatedAt  string `db:"created_at"`
	TopN       int    `db:"top_n"`
	Years      int    `db:"years"`
	PaperCount int    `db:"paper_count"`
}

type paperRow struct {
	RunID          string        `db:"run_id"`
	PaperID        string        `db:"paper_id"`
	Title          string        `db:"title"`
	Year           sql.NullInt64 `db:"year"`
	SimulationType string        `db:"simulation_type"`
	Summary        string        `db:"summary"`
	JSONBlob       string        `db:"json_blob"`
}

const indexSchema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	topic TEXT NOT NULL,
	created_at TEXT NOT NULL,
	top_n INTEGER NOT NULL,
	years INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS papers (
	run_id TEXT NOT NULL,
	paper_id TEXT NOT NULL,
	title TEXT NOT NULL,
	year INTEGER,
	simulation_type TEXT NOT NULL,
	summary TEXT,
	json_blob TEXT NOT NULL,
	PRIMARY KEY (run_id, paper_id),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
CREATE INDEX IF NOT EXISTS idx_papers_simulation_type ON papers(simulation_type);
`

// OpenIndex opens or creates the index database at path.
func OpenIndex(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the database connection.
func (x *Index) Close() error {
	return x.db.Close()
}

// StoreRun replaces the run row of m and the rows of records.
func (x *Index) StoreRun(ctx context.Context, m types.Manifest, records []types.PaperRecord) error {
	tx, err := x.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (run_id, topic, created_at, top_n, years) VALUES (?, ?, ?, ?, ?)`,
		m.RunID, m.Topic, m.CreatedAt, m.TopN, m.Years,
	); err != nil {
		return fmt.Errorf("storing run %s: %w", m.RunID, err)
	}

	for _, rec := range records {
		blob, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling record %s: %w", rec.Metadata.PaperID, err)
		}
		row := paperRow{
			RunID:          m.RunID,
			PaperID:        rec.Metadata.PaperID,
			Title:          rec.Metadata.Title,
			Year:           sql.NullInt64{Int64: int64(rec.Metadata.Year), Valid: rec.Metadata.Year != 0},
			SimulationType: string(rec.SimulationType),
			Summary:        rec.Summary,
			JSONBlob:       string(blob),
		}
		if _, err := tx.NamedExecContext(ctx,
			`INSERT OR REPLACE INTO papers (run_id, paper_id, title, year, simulation_type, summary, json_blob)
			 VALUES (:run_id, :paper_id, :title, :year, :simulation_type, :summary, :json_blob)`,
			row,
		); err != nil {
			return fmt.Errorf("storing paper %s: %w", rec.Metadata.PaperID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run %s: %w", m.RunID, err)
	}
	return nil
}

// Runs lists indexed runs, newest first.
func (x *Index) Runs(ctx context.Context) ([]RunRow, error) {
	var rows []RunRow
	err := x.db.SelectContext(ctx, &rows, `
		SELECT r.run_id, r.topic, r.created_at, r.top_n, r.years,
		       (SELECT count(*) FROM papers p WHERE p.run_id = r.run_id) AS paper_count
		FROM runs r
		ORDER BY r.created_at DESC, r.run_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return rows, nil
}

// Paper returns the stored record of paperID in runID.
func (x *Index) Paper(ctx context.Context, runID, paperID string) (types.PaperRecord, error) {
	var rec types.PaperRecord
	var blob string
	err := x.db.GetContext(ctx, &blob,
		`SELECT json_blob FROM papers WHERE run_id = ? AND paper_id = ?`, runID, paperID)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("paper %s in run %s: %w", paperID, runID, ErrNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("querying paper %s: %w", paperID, err)
	}
	if err := json.Unmarshal([]byte(blob), &rec); err != nil {
		return rec, fmt.Errorf("decoding paper %s: %w", paperID, err)
	}
	return rec, nil
}

// CountByType returns how many indexed papers of runID have each
// simulation type.
func (x *Index) CountByType(ctx context.Context, runID string) (map[string]int, error) {
	var rows []struct {
		SimulationType string `db:"simulation_type"`
		N              int    `db:"n"`
	}
	if err := x.db.SelectContext(ctx, &rows,
		`SELECT simulation_type, count(*) AS n FROM papers WHERE run_id = ? GROUP BY simulation_type`, runID,
	); err != nil {
		return nil, fmt.Errorf("counting papers of run %s: %w", runID, err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.SimulationType] = r.N
	}
	return out, nil
}
