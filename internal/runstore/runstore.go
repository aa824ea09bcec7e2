// Package runstore persists fixture-harness run metadata in SQLite so a
// teardown can find seeded work items even if the process that created
// them crashed before finishing.
package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrRunNotFound is returned when a marker has no recorded run.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded seeding run.
type Run struct {
	Marker    string
	CreatedAt time.Time
	ItemIDs   []int
}

// Store is a SQLite-backed run store.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the store at path. The special path ":memory:"
// creates an in-memory store, useful for tests.
func New(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun records a new seeding run under marker.
func (s *Store) CreateRun(ctx context.Context, marker string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (marker, created_at) VALUES (?, ?)",
		marker, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", marker, err)
	}
	return nil
}

// AddItem records a work item created under marker's run.
func (s *Store) AddItem(ctx context.Context, marker string, workItemID int) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO run_items (marker, work_item_id) VALUES (?, ?)",
		marker, workItemID)
	if err != nil {
		return fmt.Errorf("failed to record item %d for run %s: %w", workItemID, marker, err)
	}
	return nil
}

// GetRun returns the run recorded under marker, including its item IDs
// in insertion order.
func (s *Store) GetRun(ctx context.Context, marker string) (*Run, error) {
	run, err := s.scanRun(ctx, "SELECT marker, created_at FROM runs WHERE marker = ?", marker)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT work_item_id FROM run_items WHERE marker = ? ORDER BY rowid", marker)
	if err != nil {
		return nil, fmt.Errorf("failed to query run items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run item: %w", err)
		}
		run.ItemIDs = append(run.ItemIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read run items: %w", err)
	}
	return run, nil
}

// LatestRun returns the most recently created run.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	run, err := s.scanRun(ctx,
		"SELECT marker, created_at FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1")
	if err != nil {
		return nil, err
	}
	return s.GetRun(ctx, run.Marker)
}

// ListRuns returns all recorded runs, newest first, without item IDs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT marker, created_at FROM runs ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var created string
		if err := rows.Scan(&run.Marker, &created); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.CreatedAt, _ = time.Parse(time.RFC3339, created)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run and its recorded items.
func (s *Store) DeleteRun(ctx context.Context, marker string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM run_items WHERE marker = ?", marker); err != nil {
		return fmt.Errorf("failed to delete run items for %s: %w", marker, err)
	}
	result, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE marker = ?", marker)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", marker, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *Store) scanRun(ctx context.Context, query string, args ...interface{}) (*Run, error) {
	var run Run
	var created string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&run.Marker, &created)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &run, nil
}
