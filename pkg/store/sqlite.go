package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a journal store backed by the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("journal database path is required")
	}
	return &SQLiteStore{path: path}, nil
}

// Init opens the database, enables WAL mode, and applies migrations.
func (s *SQLiteStore) Init(ctx context.Context) error {
	// modernc _pragma parameters apply on every pooled connection.
	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open journal database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping journal database: %w", err)
	}

	s.db = db

	if err := s.migrate(); err != nil {
		_ = db.Close()
		s.db = nil
		return err
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// CreateRun records the start of a provisioning run.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO runs (id, os, distro, status, started_at, completed_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.OS,
		run.Distro,
		run.Status,
		run.StartedAt,
		run.CompletedAt,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// FinishRun marks a run terminal.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status RunStatus, errMsg string) error {
	query := `
		UPDATE runs
		SET status = ?, error = ?, completed_at = ?
		WHERE id = ?
	`

	var errVal *string
	if errMsg != "" {
		errVal = &errMsg
	}
	now := time.Now()

	result, err := s.db.ExecContext(ctx, query, status, errVal, &now, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}

	return nil
}

// AppendEvent appends a journal event to a run.
func (s *SQLiteStore) AppendEvent(ctx context.Context, event *Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	query := `
		INSERT INTO events (run_id, kind, package, message, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		event.RunID,
		event.Kind,
		event.Package,
		event.Message,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		event.ID = id
	}

	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, os, distro, status, started_at, completed_at, error
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID,
			&run.OS,
			&run.Distro,
			&run.Status,
			&run.StartedAt,
			&run.CompletedAt,
			&run.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// ListEvents returns the events of a run in append order.
func (s *SQLiteStore) ListEvents(ctx context.Context, runID string, limit int) ([]Event, error) {
	query := `
		SELECT id, run_id, kind, package, message, timestamp
		FROM events
		WHERE run_id = ?
		ORDER BY id ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var event Event
		if err := rows.Scan(
			&event.ID,
			&event.RunID,
			&event.Kind,
			&event.Package,
			&event.Message,
			&event.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
