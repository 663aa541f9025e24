package state

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// DatabaseFileName is the history database inside the data directory
const DatabaseFileName = "dupfinder.db"

// Mode is the kind of run recorded in history
type Mode string

const (
	ModeWithin Mode = "within" // single-tree grouping
	ModeAcross Mode = "across" // cross-tree matching
	ModeApply  Mode = "apply"  // relocate or delete batch
)

// Status is the final state of a run
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusPartial Status = "partial"
)

// Manager persists run history in sqlite
type Manager struct {
	db *sql.DB
}

// Run is one recorded dupfinder run
type Run struct {
	ID               string
	Mode             Mode
	SourceRoot       string
	CompareRoot      string
	StartTime        time.Time
	EndTime          time.Time
	Status           Status
	FilesScanned     int
	DuplicatesFound  int
	BytesDuplicated  int64
	ActionsSucceeded int
	ActionsFailed    int
	SnapshotPath     string
	Error            string
}

// Duration returns how long the run took
func (r Run) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// NewManager opens (or creates) the history database in dataDir
func NewManager(dataDir string) (*Manager, error) {
	if dataDir == "" {
		return nil, errors.New("data directory cannot be empty")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataDir, DatabaseFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Limit connection pool to prevent "database is locked" errors
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	manager := &Manager{db: db}
	if err := manager.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return manager, nil
}

func (m *Manager) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		source_root TEXT NOT NULL,
		compare_root TEXT NOT NULL DEFAULT '',
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		files_scanned INTEGER DEFAULT 0,
		duplicates_found INTEGER DEFAULT 0,
		bytes_duplicated INTEGER DEFAULT 0,
		actions_succeeded INTEGER DEFAULT 0,
		actions_failed INTEGER DEFAULT 0,
		snapshot_path TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_mode_time ON runs(mode, start_time DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	`

	_, err := m.db.Exec(schema)
	return err
}

const runColumns = `id, mode, source_root, compare_root, start_time, end_time, status,
	files_scanned, duplicates_found, bytes_duplicated, actions_succeeded, actions_failed,
	snapshot_path, error`

// SaveRun records a run; an empty ID is filled with a new UUID
func (m *Manager) SaveRun(run *Run) error {
	switch run.Mode {
	case ModeWithin, ModeAcross, ModeApply:
	default:
		return fmt.Errorf("invalid mode: %q (must be 'within', 'across', or 'apply')", run.Mode)
	}
	switch run.Status {
	case StatusSuccess, StatusFailed, StatusPartial:
	default:
		return fmt.Errorf("invalid status: %q (must be 'success', 'failed', or 'partial')", run.Status)
	}

	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	query := `INSERT INTO runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := m.db.Exec(query,
		run.ID,
		string(run.Mode),
		run.SourceRoot,
		run.CompareRoot,
		run.StartTime,
		run.EndTime,
		string(run.Status),
		run.FilesScanned,
		run.DuplicatesFound,
		run.BytesDuplicated,
		run.ActionsSucceeded,
		run.ActionsFailed,
		run.SnapshotPath,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

// GetHistory returns the most recent runs of every mode
func (m *Manager) GetHistory(limit int) ([]Run, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	query := `SELECT ` + runColumns + ` FROM runs ORDER BY start_time DESC LIMIT ?`
	return m.queryRuns(query, limit)
}

// GetHistoryByMode returns the most recent runs of one mode
func (m *Manager) GetHistoryByMode(mode Mode, limit int) ([]Run, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	query := `SELECT ` + runColumns + ` FROM runs WHERE mode = ? ORDER BY start_time DESC LIMIT ?`
	return m.queryRuns(query, string(mode), limit)
}

// GetLastSuccess returns the last successful run of mode, or nil
func (m *Manager) GetLastSuccess(mode Mode) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs
		WHERE mode = ? AND status = 'success'
		ORDER BY start_time DESC
		LIMIT 1`

	run, err := scanRun(m.db.QueryRow(query, string(mode)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last success: %w", err)
	}
	return &run, nil
}

func (m *Manager) queryRuns(query string, args ...any) ([]Run, error) {
	rows, err := m.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var mode, status string
	err := row.Scan(
		&run.ID,
		&mode,
		&run.SourceRoot,
		&run.CompareRoot,
		&run.StartTime,
		&run.EndTime,
		&status,
		&run.FilesScanned,
		&run.DuplicatesFound,
		&run.BytesDuplicated,
		&run.ActionsSucceeded,
		&run.ActionsFailed,
		&run.SnapshotPath,
		&run.Error,
	)
	run.Mode = Mode(mode)
	run.Status = Status(status)
	return run, err
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
