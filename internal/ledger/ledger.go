// Package ledger records simulation batches and their per-run outcomes in a
// SQLite database.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrBatchNotFound = errors.New("batch not found")

// Batch statuses. A batch is saved as running and moves to complete or
// failed exactly once.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Batch describes one invocation of the scheduler.
type Batch struct {
	ID        string
	Mode      string
	RuleName  string
	States    int
	Rows      int
	Cols      int
	Steps     int
	Runs      int
	Workers   int
	Seed      int64
	Found     int
	ElapsedMS int64
	Status    string
	// Error holds the failure message of a failed batch.
	Error     string
	CreatedAt time.Time
}

// Run is the outcome of a single run within a batch.
type Run struct {
	BatchID  string
	Index    int
	Found    bool
	Length   int
	Archived bool
}

// DB is a SQLite-backed ledger.
type DB struct {
	db *sql.DB
}

// Open opens or creates the ledger at path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (l *DB) Close() error {
	return l.db.Close()
}

// Migrate creates the schema if it does not exist.
func (l *DB) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS batches (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			rule_name TEXT NOT NULL,
			states INTEGER NOT NULL,
			grid_rows INTEGER NOT NULL,
			grid_cols INTEGER NOT NULL,
			steps INTEGER NOT NULL,
			runs INTEGER NOT NULL,
			workers INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			found INTEGER NOT NULL DEFAULT 0,
			elapsed_ms INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'running',
			error TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			batch_id TEXT NOT NULL,
			run_index INTEGER NOT NULL,
			found INTEGER NOT NULL,
			transient_length INTEGER NOT NULL,
			archived INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (batch_id, run_index),
			FOREIGN KEY (batch_id) REFERENCES batches(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_batches_created_at ON batches(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_length ON runs(batch_id, transient_length)`,
	}

	for _, migration := range migrations {
		if _, err := l.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SaveBatch inserts b, assigning an ID when it has none. A batch without a
// status is saved as running.
func (l *DB) SaveBatch(b *Batch) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.Status == "" {
		b.Status = StatusRunning
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	_, err := l.db.Exec(`INSERT INTO batches (
		id, mode, rule_name, states, grid_rows, grid_cols, steps, runs, workers, seed, found, elapsed_ms, status, error, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Mode, b.RuleName, b.States, b.Rows, b.Cols, b.Steps, b.Runs, b.Workers, b.Seed,
		b.Found, b.ElapsedMS, b.Status, b.Error, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save batch: %w", err)
	}
	return nil
}

// FinishBatch records the totals known once scheduling has completed and
// marks the batch complete.
func (l *DB) FinishBatch(id string, found int, elapsed time.Duration) error {
	res, err := l.db.Exec(`UPDATE batches SET found = ?, elapsed_ms = ?, status = ? WHERE id = ?`,
		found, elapsed.Milliseconds(), StatusComplete, id)
	if err != nil {
		return fmt.Errorf("finish batch: %w", err)
	}
	return checkUpdated(res, id)
}

// FailBatch marks a batch failed with the cause and the time spent before
// the failure.
func (l *DB) FailBatch(id string, cause error, elapsed time.Duration) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	res, err := l.db.Exec(`UPDATE batches SET elapsed_ms = ?, status = ?, error = ? WHERE id = ?`,
		elapsed.Milliseconds(), StatusFailed, msg, id)
	if err != nil {
		return fmt.Errorf("fail batch: %w", err)
	}
	return checkUpdated(res, id)
}

func checkUpdated(res sql.Result, id string) error {
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	return nil
}

// SaveRuns stores runs in a single transaction.
func (l *DB) SaveRuns(runs []Run) error {
	if len(runs) == 0 {
		return nil
	}

	tx, err := l.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO runs (batch_id, run_index, found, transient_length, archived) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range runs {
		if _, err := stmt.Exec(r.BatchID, r.Index, boolInt(r.Found), r.Length, boolInt(r.Archived)); err != nil {
			return fmt.Errorf("save run %d: %w", r.Index, err)
		}
	}
	return tx.Commit()
}

// GetBatch loads a batch by ID.
func (l *DB) GetBatch(id string) (*Batch, error) {
	var b Batch
	err := l.db.QueryRow(`SELECT id, mode, rule_name, states, grid_rows, grid_cols, steps, runs, workers, seed, found, elapsed_ms, status, error, created_at
		FROM batches WHERE id = ?`, id).Scan(
		&b.ID, &b.Mode, &b.RuleName, &b.States, &b.Rows, &b.Cols, &b.Steps, &b.Runs, &b.Workers, &b.Seed,
		&b.Found, &b.ElapsedMS, &b.Status, &b.Error, &b.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &b, nil
}

// ListRuns returns the runs of a batch ordered by index.
func (l *DB) ListRuns(batchID string) ([]Run, error) {
	rows, err := l.db.Query(`SELECT batch_id, run_index, found, transient_length, archived
		FROM runs WHERE batch_id = ? ORDER BY run_index`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var found, archived int
		if err := rows.Scan(&r.BatchID, &r.Index, &found, &r.Length, &archived); err != nil {
			return nil, err
		}
		r.Found = found != 0
		r.Archived = archived != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
