package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/blueprintdocs/internal/logfields"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (creating if needed) the history database at path.
// Use ":memory:" for an in-memory database.
func Open(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, errors.WrapError(err, errors.CategoryHistory, "create history directory").
				WithContext(logfields.KeyPath, path).Build()
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryHistory, "open history database").
			WithContext(logfields.KeyPath, path).Build()
	}
	// one connection keeps :memory: databases alive across queries
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.WrapError(err, errors.CategoryHistory, "initialize history schema").
			WithContext(logfields.KeyPath, path).Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		component TEXT NOT NULL,
		stage TEXT NOT NULL,
		success INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		started INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
	CREATE INDEX IF NOT EXISTS idx_results_started ON results(started);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends one component result.
func (s *SQLiteStore) Record(ctx context.Context, r Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var metadataJSON []byte
	if len(r.Metadata) > 0 {
		var err error
		metadataJSON, err = json.Marshal(r.Metadata)
		if err != nil {
			return errors.WrapError(err, errors.CategoryHistory, "marshal result metadata").Build()
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results (run_id, component, stage, success, error, started, duration_ms, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Component, r.Stage, r.Success, r.Error,
		r.Started.UnixMilli(), r.Duration.Milliseconds(), metadataJSON,
	)
	if err != nil {
		return errors.WrapError(err, errors.CategoryHistory, "insert result").
			WithContext(logfields.KeyRunID, r.RunID).
			WithContext(logfields.KeyComponent, r.Component).Build()
	}
	return nil
}

// Runs lists the most recent runs, newest first.
func (s *SQLiteStore) Runs(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, MIN(started), MAX(started + duration_ms), COUNT(*),
		       SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END)
		FROM results
		GROUP BY run_id
		ORDER BY MIN(started) DESC, MIN(id) DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryHistory, "query runs").Build()
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished int64
		if err := rows.Scan(&run.ID, &started, &finished, &run.Components, &run.Failures); err != nil {
			return nil, errors.WrapError(err, errors.CategoryHistory, "scan run").Build()
		}
		run.Started = time.UnixMilli(started)
		run.Finished = time.UnixMilli(finished)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryHistory, "iterate runs").Build()
	}
	return runs, nil
}

// Results returns the component results of one run in recording order.
func (s *SQLiteStore) Results(ctx context.Context, runID string) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, component, stage, success, error, started, duration_ms, metadata
		FROM results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryHistory, "query results").
			WithContext(logfields.KeyRunID, runID).Build()
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var started, durationMS int64
		var metadataJSON []byte
		if err := rows.Scan(&r.RunID, &r.Component, &r.Stage, &r.Success, &r.Error,
			&started, &durationMS, &metadataJSON); err != nil {
			return nil, errors.WrapError(err, errors.CategoryHistory, "scan result").Build()
		}
		r.Started = time.UnixMilli(started)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
				return nil, errors.WrapError(err, errors.CategoryHistory, "unmarshal result metadata").Build()
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryHistory, "iterate results").Build()
	}
	return results, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
