package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	StatusRunning = "RUNNING"
	StatusDone    = "DONE"
	StatusAborted = "ABORTED"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	input_dir     TEXT NOT NULL,
	started_at    TIMESTAMP NOT NULL,
	finished_at   TIMESTAMP,
	status        TEXT NOT NULL DEFAULT 'RUNNING',
	record_count  INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS attempts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	filename   TEXT NOT NULL,
	attempt    INTEGER NOT NULL,
	status     TEXT NOT NULL,
	detail     TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attempts_run ON attempts(run_id);
`

// Journal keeps a crash-inspectable trail of run and attempt outcomes in a
// local SQLite file. Each attempt is committed as it happens, so an aborted
// or killed run still leaves its history behind.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the journal database at path and ensures the
// schema exists. Use ":memory:" for an ephemeral journal.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// A single connection keeps ":memory:" journals on one database and
	// serializes writes on file-backed ones.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return &Journal{db: db, logger: logger}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// StartRun registers a new run in RUNNING state.
func (j *Journal) StartRun(ctx context.Context, runID, inputDir string) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, input_dir, started_at, status) VALUES (?, ?, ?, ?)`,
		runID, inputDir, time.Now().UTC(), StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// RecordAttempt appends one attempt outcome for an image.
func (j *Journal) RecordAttempt(ctx context.Context, runID, filename string, attempt int, status, detail string) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO attempts (run_id, filename, attempt, status, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, filename, attempt, status, detail, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// FinishRun closes out a run with its final status and record count.
func (j *Journal) FinishRun(ctx context.Context, runID, status string, recordCount int) error {
	_, err := j.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, record_count = ? WHERE id = ?`,
		time.Now().UTC(), status, recordCount, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RunSummary returns a run's final status, record count, and attempt count.
func (j *Journal) RunSummary(ctx context.Context, runID string) (status string, recordCount, attempts int, err error) {
	row := j.db.QueryRowContext(ctx, `SELECT status, record_count FROM runs WHERE id = ?`, runID)
	if err = row.Scan(&status, &recordCount); err != nil {
		return "", 0, 0, fmt.Errorf("load run: %w", err)
	}
	row = j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts WHERE run_id = ?`, runID)
	if err = row.Scan(&attempts); err != nil {
		return "", 0, 0, fmt.Errorf("count attempts: %w", err)
	}
	return status, recordCount, attempts, nil
}
