// CLAUDE:SUMMARY SQLite document store session: schema, idempotent unique-index setup, open/close.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"
)

// Store is the long-lived session over the records and forms collections.
// Open it once per process and Close it on every exit path.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the SQLite database at path and ensures the tables exist.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// Single connection shared by the whole run.
	db.SetMaxOpenConns(1)

	for _, ddl := range schema {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS records (
		identity     TEXT NOT NULL,
		idx          INTEGER NOT NULL,
		value        TEXT,
		chiffre      TEXT,
		email        TEXT,
		date         TEXT,
		field_id     TEXT,
		form_id      TEXT NOT NULL,
		question     TEXT,
		response_id  TEXT NOT NULL,
		updated_at   INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS forms (
		form_id     TEXT NOT NULL,
		title       TEXT NOT NULL,
		title_fold  TEXT NOT NULL,
		updated_at  INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS imports (
		form_id     TEXT PRIMARY KEY,
		title       TEXT NOT NULL DEFAULT '',
		last_run    INTEGER NOT NULL,
		responses   INTEGER NOT NULL DEFAULT 0,
		skipped     INTEGER NOT NULL DEFAULT 0,
		records     INTEGER NOT NULL DEFAULT 0,
		created     INTEGER NOT NULL DEFAULT 0,
		matched     INTEGER NOT NULL DEFAULT 0,
		changed     INTEGER NOT NULL DEFAULT 0,
		last_error  TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS records_form_response ON records (form_id, response_id)`,
	`CREATE INDEX IF NOT EXISTS records_form_field ON records (form_id, field_id)`,
	`CREATE INDEX IF NOT EXISTS records_chiffre ON records (chiffre)`,
	`CREATE INDEX IF NOT EXISTS records_response ON records (response_id, idx)`,
}

// uniqueIndexes back the upsert keys.
var uniqueIndexes = []struct {
	name string
	ddl  string
}{
	{"records_identity_idx", `CREATE UNIQUE INDEX records_identity_idx ON records (identity, idx)`},
	{"forms_form_id", `CREATE UNIQUE INDEX forms_form_id ON forms (form_id)`},
}

// EnsureIndexes creates the unique constraints on (identity, idx) and form_id.
// An index that already exists is not an error. Other failures are returned
// joined after every index has been attempted.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	var errs []error
	for _, ix := range uniqueIndexes {
		_, err := s.db.ExecContext(ctx, ix.ddl)
		switch {
		case err == nil:
			s.logger.Info("unique index created", "index", ix.name)
		case isAlreadyExists(err):
			s.logger.Debug("unique index present", "index", ix.name)
		default:
			errs = append(errs, fmt.Errorf("create index %s: %w", ix.name, err))
		}
	}
	return errors.Join(errs...)
}

func isAlreadyExists(err error) bool {
	return strings.Contains(err.Error(), "already exists")
}
