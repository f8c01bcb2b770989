package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/seantiz/stoker/internal/model"

	_ "modernc.org/sqlite"
)

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    id               TEXT PRIMARY KEY,
    status           TEXT NOT NULL,
    driver           TEXT NOT NULL,
    store_name       TEXT NOT NULL,
    poolsize         INTEGER NOT NULL,
    concurrency      INTEGER NOT NULL,
    error            TEXT,
    started_at       DATETIME NOT NULL,
    finished_at      DATETIME,
    requests         INTEGER NOT NULL DEFAULT 0,
    responses_ok     INTEGER NOT NULL DEFAULT 0,
    exceptions       INTEGER NOT NULL DEFAULT 0,
    timeouts         INTEGER NOT NULL DEFAULT 0,
    ratelimited      INTEGER NOT NULL DEFAULT 0,
    backend_timeouts INTEGER NOT NULL DEFAULT 0,
    unsupported      INTEGER NOT NULL DEFAULT 0,
    hits             INTEGER NOT NULL DEFAULT 0,
    misses           INTEGER NOT NULL DEFAULT 0,
    avg_latency_ns   REAL NOT NULL DEFAULT 0
)`

// ErrNotFound is returned when a run is not found.
var ErrNotFound = errors.New("run not found")

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection keeps in-memory databases coherent and lets the
	// busy_timeout pragma cover every statement.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createRunsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new run record in the running state.
func (s *SQLiteStore) CreateRun(ctx context.Context, r *model.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (
			id, status, driver, store_name, poolsize, concurrency,
			error, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Status, r.Driver, r.StoreName, r.Poolsize, r.Concurrency,
		r.Error, r.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun records a run's terminal status and final totals, setting
// finished_at if the caller has not.
func (s *SQLiteStore) FinishRun(ctx context.Context, r *model.Run) error {
	finished := r.FinishedAt
	if finished == nil {
		now := time.Now().UTC()
		finished = &now
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE runs SET
			status = ?, error = ?, finished_at = ?,
			requests = ?, responses_ok = ?, exceptions = ?, timeouts = ?,
			ratelimited = ?, backend_timeouts = ?, unsupported = ?,
			hits = ?, misses = ?, avg_latency_ns = ?
		WHERE id = ?`,
		r.Status, r.Error, finished,
		r.Requests, r.ResponsesOK, r.Exceptions, r.Timeouts,
		r.RateLimited, r.BackendTimeout, r.Unsupported,
		r.Hits, r.Misses, r.AvgLatencyNS,
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	r := &model.Run{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, driver, store_name, poolsize, concurrency,
			error, started_at, finished_at,
			requests, responses_ok, exceptions, timeouts, ratelimited,
			backend_timeouts, unsupported, hits, misses, avg_latency_ns
		FROM runs WHERE id = ?`, id,
	).Scan(
		&r.ID, &r.Status, &r.Driver, &r.StoreName, &r.Poolsize, &r.Concurrency,
		&r.Error, &r.StartedAt, &r.FinishedAt,
		&r.Requests, &r.ResponsesOK, &r.Exceptions, &r.Timeouts, &r.RateLimited,
		&r.BackendTimeout, &r.Unsupported, &r.Hits, &r.Misses, &r.AvgLatencyNS,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns a paginated list of runs ordered by started_at DESC,
// along with the total count of all runs.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*model.Run, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, status, driver, store_name, poolsize, concurrency,
			error, started_at, finished_at,
			requests, responses_ok, exceptions, timeouts, ratelimited,
			backend_timeouts, unsupported, hits, misses, avg_latency_ns
		FROM runs ORDER BY started_at DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		r := &model.Run{}
		if err := rows.Scan(
			&r.ID, &r.Status, &r.Driver, &r.StoreName, &r.Poolsize, &r.Concurrency,
			&r.Error, &r.StartedAt, &r.FinishedAt,
			&r.Requests, &r.ResponsesOK, &r.Exceptions, &r.Timeouts, &r.RateLimited,
			&r.BackendTimeout, &r.Unsupported, &r.Hits, &r.Misses, &r.AvgLatencyNS,
		); err != nil {
			return nil, 0, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, total, nil
}
