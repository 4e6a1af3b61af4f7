// Package storage persists terminal job dispositions to a SQLite-backed
// history ledger read by the doctor tool; it is not the live
// queue (internal/queue holds that in memory), only a record of what
// already happened.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps SQLite-backed persistence for the job history ledger.
type Store struct {
	DB *sql.DB // Export for direct database access
}

// New opens (or creates) the database at path and ensures schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{DB: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
            job_name TEXT NOT NULL,
            workspace_root TEXT NOT NULL,
            input_path TEXT NOT NULL,
            success BOOLEAN NOT NULL,
            error_code TEXT,
            message TEXT,
            quality_json TEXT,
            started_at TIMESTAMP NOT NULL,
            completed_at TIMESTAMP NOT NULL,
            duration_ms INTEGER NOT NULL,
            recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_workspace ON jobs(workspace_root);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_recorded_at ON jobs(recorded_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.DB.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying DB.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// JobRecord is one row of the jobs ledger: a terminal disposition for one
// conversion attempt.
type JobRecord struct {
	JobName       string
	WorkspaceRoot string
	InputPath     string
	Success       bool
	ErrorCode     string
	Message       string
	Quality       any
	StartedAt     time.Time
	CompletedAt   time.Time
	DurationMS    int64
}

// RecordJob inserts one terminal disposition.
func (s *Store) RecordJob(rec JobRecord) error {
	if s == nil {
		return nil
	}
	var qualityJSON []byte
	if rec.Quality != nil {
		var err error
		qualityJSON, err = json.Marshal(rec.Quality)
		if err != nil {
			return err
		}
	}
	_, err := s.DB.Exec(`INSERT INTO jobs
            (job_name, workspace_root, input_path, success, error_code, message, quality_json, started_at, completed_at, duration_ms)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		rec.JobName, rec.WorkspaceRoot, rec.InputPath, rec.Success, rec.ErrorCode, rec.Message, string(qualityJSON),
		rec.StartedAt, rec.CompletedAt, rec.DurationMS)
	return err
}

// RecentJobs returns the most recent rows for workspaceRoot, newest first.
func (s *Store) RecentJobs(workspaceRoot string, limit int) ([]JobRecord, error) {
	if s == nil {
		return nil, errors.New("store not initialized")
	}
	rows, err := s.DB.Query(`SELECT job_name, workspace_root, input_path, success, error_code, message, started_at, completed_at, duration_ms
            FROM jobs WHERE workspace_root = ? ORDER BY recorded_at DESC LIMIT ?;`, workspaceRoot, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []JobRecord
	for rows.Next() {
		var rec JobRecord
		var errorCode, message sql.NullString
		if err := rows.Scan(&rec.JobName, &rec.WorkspaceRoot, &rec.InputPath, &rec.Success, &errorCode, &message, &rec.StartedAt, &rec.CompletedAt, &rec.DurationMS); err != nil {
			return nil, err
		}
		rec.ErrorCode = errorCode.String
		rec.Message = message.String
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// FailureCount reports how many of the last `within` rows for
// workspaceRoot were failures — the doctor tool's recent-failure-rate
// finding.
func (s *Store) FailureCount(workspaceRoot string, within int) (int, error) {
	if s == nil {
		return 0, errors.New("store not initialized")
	}
	var count int
	err := s.DB.QueryRow(`SELECT COUNT(*) FROM (
            SELECT success FROM jobs WHERE workspace_root = ? ORDER BY recorded_at DESC LIMIT ?
        ) WHERE success = 0;`, workspaceRoot, within).Scan(&count)
	return count, err
}
