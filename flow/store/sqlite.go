package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SnapshotStore persists a run's final store snapshot for later
// inspection. It is an optional collaborator (§4.G "the caller may
// provide a store") — nothing in the engine requires one, and a run with
// no SnapshotStore configured behaves identically except that its final
// snapshot is not saved anywhere.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, runID string, snapshot map[string]map[string]interface{}) error
	LoadLatestSnapshot(ctx context.Context, runID string) (map[string]map[string]interface{}, error)
}

// SQLiteSnapshotStore is a SnapshotStore backed by a single SQLite table,
// keyed by run id, storing each snapshot as a JSON blob. Snapshots are
// diagnostic records, not checkpoints: there is no resume/replay path,
// only save-on-completion and look-up by run id.
type SQLiteSnapshotStore struct {
	db *sql.DB
}

// OpenSQLiteSnapshotStore opens (creating if needed) a SQLite database at
// path and ensures its schema exists.
func OpenSQLiteSnapshotStore(path string) (*SQLiteSnapshotStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	s := &SQLiteSnapshotStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSnapshotStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS run_snapshots (
			run_id TEXT PRIMARY KEY,
			snapshot_json TEXT NOT NULL,
			saved_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteSnapshotStore) SaveSnapshot(ctx context.Context, runID string, snapshot map[string]map[string]interface{}) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("store: marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO run_snapshots (run_id, snapshot_json, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET snapshot_json = excluded.snapshot_json, saved_at = excluded.saved_at
	`, runID, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: save snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteSnapshotStore) LoadLatestSnapshot(ctx context.Context, runID string) (map[string]map[string]interface{}, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT snapshot_json FROM run_snapshots WHERE run_id = ?`, runID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load snapshot: %w", err)
	}
	var snapshot map[string]map[string]interface{}
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, fmt.Errorf("store: unmarshal snapshot: %w", err)
	}
	return snapshot, nil
}

// Close releases the underlying database handle.
func (s *SQLiteSnapshotStore) Close() error {
	return s.db.Close()
}
