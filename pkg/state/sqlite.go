package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/oobwatch-network/oobwatch/pkg/model"
	"github.com/oobwatch-network/oobwatch/pkg/util"
)

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the state database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating state db: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS move_state (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		counter INTEGER NOT NULL DEFAULT 0,
		observed_switch TEXT NOT NULL DEFAULT '',
		observed_port TEXT NOT NULL DEFAULT '',
		last_alert_at TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL,
		schema_version INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the state for an identity, or (nil, nil) if absent.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.MoveState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, counter, observed_switch, observed_port,
		       last_alert_at, updated_at, schema_version
		FROM move_state WHERE id = ?`, id)

	st, err := scanState(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, util.NewPersistenceError("get", id, err)
	}
	return st, nil
}

// Put inserts or replaces the state for its identity.
func (s *SQLiteStore) Put(ctx context.Context, st *model.MoveState) error {
	st.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO move_state
			(id, status, counter, observed_switch, observed_port,
			 last_alert_at, updated_at, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			counter = excluded.counter,
			observed_switch = excluded.observed_switch,
			observed_port = excluded.observed_port,
			last_alert_at = excluded.last_alert_at,
			updated_at = excluded.updated_at,
			schema_version = excluded.schema_version`,
		st.ID, string(st.Status), st.Counter,
		st.LastObserved.Switch, st.LastObserved.Port,
		formatTime(st.LastAlertAt), formatTime(st.UpdatedAt), st.SchemaVersion)
	if err != nil {
		return util.NewPersistenceError("put", st.ID, err)
	}
	return nil
}

// Delete removes an identity's state.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM move_state WHERE id = ?`, id); err != nil {
		return util.NewPersistenceError("delete", id, err)
	}
	return nil
}

// List returns all persisted states, ordered by identity.
func (s *SQLiteStore) List(ctx context.Context) ([]*model.MoveState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, counter, observed_switch, observed_port,
		       last_alert_at, updated_at, schema_version
		FROM move_state ORDER BY id`)
	if err != nil {
		return nil, util.NewPersistenceError("list", "*", err)
	}
	defer rows.Close()

	var result []*model.MoveState
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, util.NewPersistenceError("list", "*", err)
		}
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, util.NewPersistenceError("list", "*", err)
	}
	return result, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanState(row rowScanner) (*model.MoveState, error) {
	var (
		st                     model.MoveState
		status                 string
		lastAlertAt, updatedAt string
	)
	err := row.Scan(&st.ID, &status, &st.Counter,
		&st.LastObserved.Switch, &st.LastObserved.Port,
		&lastAlertAt, &updatedAt, &st.SchemaVersion)
	if err != nil {
		return nil, err
	}
	st.Status = model.MoveStatus(status)
	if st.LastAlertAt, err = parseTime(lastAlertAt); err != nil {
		return nil, err
	}
	if st.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &st, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
