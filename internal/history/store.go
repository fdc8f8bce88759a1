// Package history persists terminal run reports in SQLite
// (~/.local/share/sprintbot/history.db by default) so past runs
// survive restarts and feed the status command.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/kweiss/sprintbot/pkg/models"
)

// Record is one finished run as stored.
type Record struct {
	RunID       string
	Kind        models.WorkflowKind
	Status      models.RunStatus
	Detail      string
	Created     []string
	Failures    []models.Failure
	Channel     string
	RequestedBy string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Store wraps the history database.
type Store struct {
	conn *sql.DB
	path string
}

// DefaultPath returns the default history database path.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "sprintbot", "history.db")
}

// Open opens the history database at the given path, creating parent
// directories and the schema as needed. WAL mode is enabled for
// concurrent reads.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec(schemaRuns); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}

	return &Store{conn: conn, path: path}, nil
}

const schemaRuns = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	status TEXT NOT NULL,
	detail TEXT,
	created TEXT,
	failures TEXT,
	channel TEXT,
	requested_by TEXT,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON runs(finished_at);
`

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the path to the database file.
func (s *Store) Path() string {
	return s.path
}

// Save inserts a finished run. Saving the same run id twice replaces
// the earlier record.
func (s *Store) Save(ctx context.Context, rec Record) error {
	created, err := json.Marshal(rec.Created)
	if err != nil {
		return fmt.Errorf("encode created keys: %w", err)
	}
	failures, err := json.Marshal(rec.Failures)
	if err != nil {
		return fmt.Errorf("encode failures: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
		(run_id, kind, status, detail, created, failures, channel, requested_by, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, string(rec.Kind), string(rec.Status), rec.Detail,
		string(created), string(failures), rec.Channel, rec.RequestedBy,
		rec.StartedAt.UTC(), rec.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", rec.RunID, err)
	}
	return nil
}

// Recent returns up to n finished runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT run_id, kind, status, detail, created, failures, channel, requested_by, started_at, finished_at
		FROM runs ORDER BY finished_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get returns one run by id.
func (s *Store) Get(ctx context.Context, runID string) (Record, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT run_id, kind, status, detail, created, failures, channel, requested_by, started_at, finished_at
		FROM runs WHERE run_id = ?`, runID)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return Record{}, fmt.Errorf("run %s not found", runID)
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var kind, status, created, failures string
	err := row.Scan(&rec.RunID, &kind, &status, &rec.Detail,
		&created, &failures, &rec.Channel, &rec.RequestedBy,
		&rec.StartedAt, &rec.FinishedAt)
	if err != nil {
		return Record{}, err
	}
	rec.Kind = models.WorkflowKind(kind)
	rec.Status = models.RunStatus(status)
	if created != "" {
		if err := json.Unmarshal([]byte(created), &rec.Created); err != nil {
			return Record{}, fmt.Errorf("decode created keys for %s: %w", rec.RunID, err)
		}
	}
	if failures != "" {
		if err := json.Unmarshal([]byte(failures), &rec.Failures); err != nil {
			return Record{}, fmt.Errorf("decode failures for %s: %w", rec.RunID, err)
		}
	}
	return rec, nil
}
