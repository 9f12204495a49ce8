package history

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrStoreClosed is returned for operations on a closed store.
var ErrStoreClosed = errors.New("history store is closed")

// CycleRecord is one maintenance cycle summary as persisted.
type CycleRecord struct {
	RunID             string
	StartedAt         time.Time
	FinishedAt        time.Time
	InventoryCount    int
	InvalidTimestamps int
	CreateAttempted   bool
	CreateSucceeded   bool
	CreateError       string
	DeletesPlanned    int
	DeletesSucceeded  int
	DeletesFailed     int
	Reason            string
}

// ActionRecord is one provider action within a cycle.
type ActionRecord struct {
	RunID       string
	Verb        string
	TargetID    int64
	Description string
	Outcome     string
	Detail      string
	OccurredAt  time.Time
}

// Store persists cycle summaries and per-action outcomes to SQLite so a
// human can audit what each unattended run did. It is suitable for
// single-process use; the advisory cycle lock already serializes writers.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// Open creates or opens the history database at path (":memory:" for tests).
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	// WAL keeps reads (the history command) cheap while a cycle writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cycles (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			inventory_count INTEGER NOT NULL,
			invalid_timestamps INTEGER NOT NULL,
			create_attempted INTEGER NOT NULL,
			create_succeeded INTEGER NOT NULL,
			create_error TEXT NOT NULL DEFAULT '',
			deletes_planned INTEGER NOT NULL,
			deletes_succeeded INTEGER NOT NULL,
			deletes_failed INTEGER NOT NULL,
			reason TEXT NOT NULL DEFAULT ''
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cycles table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS actions (
			run_id TEXT NOT NULL,
			verb TEXT NOT NULL,
			target_id INTEGER NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			occurred_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create actions table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_actions_run_id ON actions(run_id)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create actions index: %w", err)
	}

	return &Store{db: db}, nil
}

// RecordCycle upserts one cycle summary.
func (s *Store) RecordCycle(rec CycleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO cycles (
			run_id, started_at, finished_at, inventory_count, invalid_timestamps,
			create_attempted, create_succeeded, create_error,
			deletes_planned, deletes_succeeded, deletes_failed, reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			finished_at = excluded.finished_at,
			inventory_count = excluded.inventory_count,
			invalid_timestamps = excluded.invalid_timestamps,
			create_attempted = excluded.create_attempted,
			create_succeeded = excluded.create_succeeded,
			create_error = excluded.create_error,
			deletes_planned = excluded.deletes_planned,
			deletes_succeeded = excluded.deletes_succeeded,
			deletes_failed = excluded.deletes_failed,
			reason = excluded.reason
	`,
		rec.RunID,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
		rec.InventoryCount,
		rec.InvalidTimestamps,
		boolToInt(rec.CreateAttempted),
		boolToInt(rec.CreateSucceeded),
		rec.CreateError,
		rec.DeletesPlanned,
		rec.DeletesSucceeded,
		rec.DeletesFailed,
		rec.Reason,
	)
	if err != nil {
		return fmt.Errorf("record cycle: %w", err)
	}
	return nil
}

// RecordAction appends one action outcome.
func (s *Store) RecordAction(rec ActionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO actions (run_id, verb, target_id, description, outcome, detail, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rec.RunID, rec.Verb, rec.TargetID, rec.Description,
		rec.Outcome, rec.Detail, rec.OccurredAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record action: %w", err)
	}
	return nil
}

// RecentCycles returns up to limit cycle summaries, newest first.
func (s *Store) RecentCycles(limit int) ([]CycleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT run_id, started_at, finished_at, inventory_count, invalid_timestamps,
			create_attempted, create_succeeded, create_error,
			deletes_planned, deletes_succeeded, deletes_failed, reason
		FROM cycles
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	var records []CycleRecord
	for rows.Next() {
		var rec CycleRecord
		var started, finished string
		var attempted, succeeded int
		if err := rows.Scan(
			&rec.RunID, &started, &finished, &rec.InventoryCount, &rec.InvalidTimestamps,
			&attempted, &succeeded, &rec.CreateError,
			&rec.DeletesPlanned, &rec.DeletesSucceeded, &rec.DeletesFailed, &rec.Reason,
		); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		rec.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		rec.CreateAttempted = attempted != 0
		rec.CreateSucceeded = succeeded != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ActionsForRun returns the action outcomes of one cycle in insertion order.
func (s *Store) ActionsForRun(runID string) ([]ActionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT run_id, verb, target_id, description, outcome, detail, occurred_at
		FROM actions
		WHERE run_id = ?
		ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var records []ActionRecord
	for rows.Next() {
		var rec ActionRecord
		var occurred string
		if err := rows.Scan(&rec.RunID, &rec.Verb, &rec.TargetID, &rec.Description,
			&rec.Outcome, &rec.Detail, &occurred); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		rec.OccurredAt, _ = time.Parse(time.RFC3339Nano, occurred)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close releases the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
