// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive records finished batch runs in a SQLite database. The
// archive is write-mostly history for audit and comparison; verification
// never reads it back.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/refverify/pkg/types"
)

// Store wraps the archive database.
type Store struct {
	db *sql.DB
}

// RunSummary is one archived run as listed by Runs.
type RunSummary struct {
	ID         string
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Summary    types.Summary
	Cancelled  bool
}

// Open opens or creates the archive at path, creating parent directories
// and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			source TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			total INTEGER NOT NULL,
			valid INTEGER NOT NULL,
			invalid INTEGER NOT NULL,
			no_identifier INTEGER NOT NULL,
			needs_review INTEGER NOT NULL,
			cancelled INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS verdicts (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			key TEXT NOT NULL,
			status TEXT NOT NULL,
			needs_review INTEGER NOT NULL,
			doi TEXT,
			arxiv TEXT,
			title TEXT,
			alternative TEXT,
			metadata TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS evidence (
			run_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			attempt INTEGER NOT NULL,
			url TEXT NOT NULL,
			method TEXT,
			class TEXT NOT NULL,
			http_code INTEGER,
			latency_ms INTEGER,
			final_url TEXT,
			error TEXT,
			PRIMARY KEY (run_id, position, attempt),
			FOREIGN KEY (run_id, position) REFERENCES verdicts(run_id, position) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_verdicts_key ON verdicts(key)`,
		`CREATE INDEX IF NOT EXISTS idx_verdicts_status ON verdicts(status)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun stores res in one transaction. source names the input (a .bib
// path or "check"). Saving the same run twice replaces the earlier copy.
func (s *Store) SaveRun(ctx context.Context, res types.BatchResult, source string) error {
	if res.RunID == "" {
		return fmt.Errorf("saving run: empty run ID")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, res.RunID); err != nil {
		return fmt.Errorf("deleting previous run: %w", err)
	}
	sum := res.Summary
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, source, started_at, finished_at, total, valid, invalid, no_identifier, needs_review, cancelled)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, source, res.StartedAt.UTC().Format(time.RFC3339Nano), res.FinishedAt.UTC().Format(time.RFC3339Nano),
		sum.Total, sum.Valid, sum.Invalid, sum.NoIdentifier, sum.NeedsReview, res.Cancelled,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	verdictStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO verdicts (run_id, position, key, status, needs_review, doi, arxiv, title, alternative, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing verdict insert: %w", err)
	}
	defer verdictStmt.Close()

	evidenceStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO evidence (run_id, position, attempt, url, method, class, http_code, latency_ms, final_url, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing evidence insert: %w", err)
	}
	defer evidenceStmt.Close()

	for i, v := range res.Verdicts {
		if _, err := verdictStmt.ExecContext(ctx,
			res.RunID, i, v.Key, string(v.Kind), v.NeedsReview,
			v.Record.DOI, v.Record.ArxivID, v.Record.Title,
			jsonColumn(v.Alternative), jsonColumn(v.Metadata),
		); err != nil {
			return fmt.Errorf("inserting verdict %s: %w", v.Key, err)
		}
		for j, o := range v.Evidence {
			var code sql.NullInt64
			if o.HTTPCode != nil {
				code = sql.NullInt64{Int64: int64(*o.HTTPCode), Valid: true}
			}
			if _, err := evidenceStmt.ExecContext(ctx,
				res.RunID, i, j+1, o.URL, o.Method, string(o.Class),
				code, o.Latency.Milliseconds(), o.FinalURL, o.Error,
			); err != nil {
				return fmt.Errorf("inserting evidence for %s: %w", v.Key, err)
			}
		}
	}
	return tx.Commit()
}

// jsonColumn encodes s for a nullable TEXT column.
func jsonColumn(s *types.SuggestedRecord) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}

// Runs lists archived runs, most recent first, up to limit (0 = all).
func (s *Store) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `SELECT id, source, started_at, finished_at, total, valid, invalid, no_identifier, needs_review, cancelled
		FROM runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var source sql.NullString
		var started, finished string
		if err := rows.Scan(&r.ID, &source, &started, &finished,
			&r.Summary.Total, &r.Summary.Valid, &r.Summary.Invalid, &r.Summary.NoIdentifier,
			&r.Summary.NeedsReview, &r.Cancelled); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Source = source.String
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// History returns the statuses a citation key received across runs, most
// recent first.
func (s *Store) History(ctx context.Context, key string) ([]types.VerdictKind, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT v.status FROM verdicts v JOIN runs r ON r.id = v.run_id
		 WHERE v.key = ? ORDER BY r.started_at DESC`, key)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []types.VerdictKind
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		out = append(out, types.VerdictKind(status))
	}
	return out, rows.Err()
}
