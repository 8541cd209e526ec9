// Package sqlite provides a SQLite-backed results store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver

	"github.com/rhoadesScholar/llm-experiments/pkg/experiment"
	"github.com/rhoadesScholar/llm-experiments/pkg/results"
)

// Store implements results.Store on SQLite. Records and judgments are stored
// as JSON payloads alongside the columns queries filter on.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	provider     TEXT NOT NULL,
	model        TEXT NOT NULL,
	mode         TEXT NOT NULL,
	started_at   TIMESTAMP NOT NULL,
	completed_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
	run_id       TEXT NOT NULL,
	position     INTEGER NOT NULL,
	context_name TEXT NOT NULL,
	failed       INTEGER NOT NULL,
	payload      TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS judgments (
	run_id     TEXT NOT NULL,
	context_a  TEXT NOT NULL,
	context_b  TEXT NOT NULL,
	score      INTEGER NOT NULL,
	payload    TEXT NOT NULL,
	PRIMARY KEY (run_id, context_a, context_b)
);
`

// NewStore creates a new SQLite-backed results store. The dbPath can be a
// file path or ":memory:" for an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// SaveRun stores run metadata, overwriting any prior run with the same ID.
func (s *Store) SaveRun(ctx context.Context, run *results.Run) error {
	if run == nil {
		return errors.New("cannot store nil run")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, provider, model, mode, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Provider, run.Model, run.Mode, run.StartedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// SaveRecords stores a run's records in slice order.
func (s *Store) SaveRecords(ctx context.Context, runID string, records []experiment.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for position, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record %d: %w", position, err)
		}

		failed := 0
		if record.Failed() {
			failed = 1
		}

		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO records (run_id, position, context_name, failed, payload)
			 VALUES (?, ?, ?, ?, ?)`,
			runID, position, record.Context.Name, failed, string(payload),
		)
		if err != nil {
			return fmt.Errorf("save record %d: %w", position, err)
		}
	}

	return tx.Commit()
}

// SaveJudgments stores a run's pairwise judgment mapping.
func (s *Store) SaveJudgments(ctx context.Context, runID string, judgments map[experiment.Pair]experiment.Judgment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for pair, judgment := range judgments {
		payload, err := json.Marshal(judgment)
		if err != nil {
			return fmt.Errorf("marshal judgment %s: %w", pair, err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO judgments (run_id, context_a, context_b, score, payload)
			 VALUES (?, ?, ?, ?, ?)`,
			runID, pair.A, pair.B, judgment.Score, string(payload),
		)
		if err != nil {
			return fmt.Errorf("save judgment %s: %w", pair, err)
		}
	}

	return tx.Commit()
}

// Run retrieves run metadata by ID.
func (s *Store) Run(ctx context.Context, runID string) (*results.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, provider, model, mode, started_at, completed_at FROM runs WHERE id = ?`,
		runID,
	)

	var run results.Run
	err := row.Scan(&run.ID, &run.Provider, &run.Model, &run.Mode, &run.StartedAt, &run.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, results.NotFoundError{RunID: runID}
	}
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}

	return &run, nil
}

// ListRuns returns all runs, most recently started first.
func (s *Store) ListRuns(ctx context.Context) ([]*results.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, provider, model, mode, started_at, completed_at FROM runs ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*results.Run
	for rows.Next() {
		var run results.Run
		if err := rows.Scan(&run.ID, &run.Provider, &run.Model, &run.Mode, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// Records returns a run's records in stored position order.
func (s *Store) Records(ctx context.Context, runID string) ([]experiment.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM records WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	defer rows.Close()

	var records []experiment.Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		var record experiment.Record
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if records == nil {
		return nil, results.NotFoundError{RunID: runID}
	}
	return records, nil
}

// Judgments returns a run's pairwise judgment mapping.
func (s *Store) Judgments(ctx context.Context, runID string) (map[experiment.Pair]experiment.Judgment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT context_a, context_b, payload FROM judgments WHERE run_id = ?`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("load judgments: %w", err)
	}
	defer rows.Close()

	judgments := make(map[experiment.Pair]experiment.Judgment)
	for rows.Next() {
		var a, b, payload string
		if err := rows.Scan(&a, &b, &payload); err != nil {
			return nil, fmt.Errorf("scan judgment: %w", err)
		}

		var judgment experiment.Judgment
		if err := json.Unmarshal([]byte(payload), &judgment); err != nil {
			return nil, fmt.Errorf("unmarshal judgment: %w", err)
		}
		judgments[experiment.NewPair(a, b)] = judgment
	}

	return judgments, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ results.Store = (*Store)(nil)
