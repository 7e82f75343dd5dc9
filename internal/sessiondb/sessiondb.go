// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sessiondb persists screening sessions in a SQLite database so an
// interrupted screen can be resumed and its results exported later.
package sessiondb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/screening-engine/pkg/types"
)

const dbFile = "session.db"

// ErrSessionNotFound is returned when no stored session matches.
var ErrSessionNotFound = errors.New("session not found")

// DB is the session database.
type DB struct {
	db *sql.DB
}

// Open opens or creates dir/session.db and its schema.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &DB{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *DB) Close() error {
	return s.db.Close()
}

func (s *DB) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			stage TEXT NOT NULL,
			criteria TEXT NOT NULL,
			run TEXT,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			id TEXT NOT NULL,
			title TEXT,
			authors TEXT,
			year INTEGER,
			abstract TEXT,
			keywords TEXT,
			doi TEXT,
			journal TEXT,
			status TEXT NOT NULL,
			decision TEXT,
			confidence REAL,
			rationale TEXT,
			error TEXT,
			cost REAL,
			PRIMARY KEY (session_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_status ON records(session_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_records_decision ON records(session_id, decision)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save replaces the stored copy of the session in one transaction.
func (s *DB) Save(ctx context.Context, st types.SessionState) error {
	if st.ID == "" {
		return &types.ValidationError{Field: "id", Reason: "session id is required"}
	}
	criteriaJSON, err := json.Marshal(st.Criteria)
	if err != nil {
		return fmt.Errorf("marshaling criteria: %w", err)
	}
	var runJSON sql.NullString
	if st.Run != nil {
		b, err := json.Marshal(st.Run)
		if err != nil {
			return fmt.Errorf("marshaling run: %w", err)
		}
		runJSON = sql.NullString{String: string(b), Valid: true}
	}
	updated := st.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, stage, criteria, run, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			stage=excluded.stage, criteria=excluded.criteria,
			run=excluded.run, updated_at=excluded.updated_at`,
		st.ID, string(st.Stage), string(criteriaJSON), runJSON, updated.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE session_id = ?`, st.ID); err != nil {
		return fmt.Errorf("deleting old records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (session_id, position, id, title, authors, year, abstract, keywords,
			doi, journal, status, decision, confidence, rationale, error, cost)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range st.Records {
		authorsJSON, _ := json.Marshal(r.Authors)
		keywordsJSON, _ := json.Marshal(r.Keywords)
		c := r.Classification
		_, err := stmt.ExecContext(ctx,
			st.ID, i, r.ID, r.Title, string(authorsJSON), r.Year, r.Abstract, string(keywordsJSON),
			r.DOI, r.Journal, string(c.Status), string(c.Decision), c.Confidence, c.Rationale, c.Error, c.Cost,
		)
		if err != nil {
			return fmt.Errorf("inserting record %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// Load reads one session with its records in ingestion order.
func (s *DB) Load(ctx context.Context, id string) (types.SessionState, error) {
	var (
		st       types.SessionState
		stage    string
		criteria string
		run      sql.NullString
		updated  string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, stage, criteria, run, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&st.ID, &stage, &criteria, &run, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return types.SessionState{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return types.SessionState{}, fmt.Errorf("reading session %s: %w", id, err)
	}

	if st.Stage, err = types.ParseStage(stage); err != nil {
		return types.SessionState{}, err
	}
	if err := json.Unmarshal([]byte(criteria), &st.Criteria); err != nil {
		return types.SessionState{}, fmt.Errorf("decoding criteria: %w", err)
	}
	if run.Valid {
		st.Run = &types.PipelineRun{}
		if err := json.Unmarshal([]byte(run.String), st.Run); err != nil {
			return types.SessionState{}, fmt.Errorf("decoding run: %w", err)
		}
	}
	if st.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return types.SessionState{}, fmt.Errorf("decoding updated_at: %w", err)
	}

	st.Records, err = s.Query(ctx, id, QueryOptions{})
	if err != nil {
		return types.SessionState{}, err
	}
	return st, nil
}

// Latest loads the most recently saved session.
func (s *DB) Latest(ctx context.Context) (types.SessionState, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM sessions ORDER BY updated_at DESC LIMIT 1`,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return types.SessionState{}, ErrSessionNotFound
	}
	if err != nil {
		return types.SessionState{}, fmt.Errorf("finding latest session: %w", err)
	}
	return s.Load(ctx, id)
}

// Delete removes a session and its records.
func (s *DB) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}
