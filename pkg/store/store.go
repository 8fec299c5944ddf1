// Package store is the durable home for projects, solutions, and assets. It
// backs onto a single SQLite file per campaign directory, opened in WAL mode
// so the polling reader is never blocked by an in-flight write.
package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/Krishna-Sivakumar/morpho-gh/pkg/errors"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/morpho"
)

// FieldDescriptor describes one declared parameter of a project's schema.
// Type and unit are fixed at "DOUBLE"/"" today; the columns exist so richer
// schemas can be declared later without a migration.
type FieldDescriptor struct {
	Name string `json:"field_name"`
	Type string `json:"field_type"`
	Unit string `json:"field_unit"`
}

// AssetDescriptor describes one declared asset slot of a project.
type AssetDescriptor struct {
	Description string `json:"description"`
	Extension   string `json:"extension"`
	MimeType    string `json:"mimeType"`
	Tag         string `json:"tag"`
}

// SchemaStatus is the outcome of negotiating a candidate solution against a
// project's declared input schema.
type SchemaStatus int

const (
	// NoProject: the project has never been declared.
	NoProject SchemaStatus = iota
	// Valid: every candidate input is already part of the declared schema.
	Valid
	// Invalid: at least one candidate input is unknown to the schema.
	Invalid
)

func (s SchemaStatus) String() string {
	return [...]string{"no_project", "valid", "invalid"}[s]
}

// Store wraps the SQLite database for one campaign directory.
type Store struct {
	identity morpho.Identity
	db       *sql.DB
}

// DefaultBusyTimeout is how long SQLite waits on a locked database before
// reporting busy.
const DefaultBusyTimeout = 5 * time.Second

// Open opens (creating if needed) the store for a campaign directory with
// the default busy timeout.
func Open(ctx context.Context, identity morpho.Identity) (*Store, error) {
	return OpenWithTimeout(ctx, identity, DefaultBusyTimeout)
}

// OpenWithTimeout opens the store with an explicit busy timeout and ensures
// the backing tables exist.
func OpenWithTimeout(ctx context.Context, identity morpho.Identity, busyTimeout time.Duration) (*Store, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", identity.DatabasePath())
	if err != nil {
		return nil, errors.Wrap(err, errors.InsertionError, "failed to open store")
	}

	// A single writer at a time; readers go through WAL snapshots.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.InsertionError, "failed to reach store")
	}

	if busyTimeout <= 0 {
		busyTimeout = DefaultBusyTimeout
	}

	// WAL keeps readers unblocked while a writer holds the file; the busy
	// timeout absorbs the brief contention window between two processes.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, errors.Wrap(err, errors.InsertionError, "failed to set pragma")
		}
	}

	s := &Store{identity: identity, db: db}
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Identity returns the campaign identity the store was opened with.
func (s *Store) Identity() morpho.Identity {
	return s.identity
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema idempotently creates the backing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS project (
			project_name TEXT PRIMARY KEY,
			creation_date TEXT NOT NULL,
			variable_metadata TEXT NOT NULL,
			output_metadata TEXT NOT NULL,
			assets TEXT,
			deleted INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS metadata (
			project_name TEXT PRIMARY KEY,
			captions TEXT,
			human_name TEXT,
			slug TEXT,
			text TEXT,
			FOREIGN KEY(project_name) REFERENCES project(project_name)
		);
		CREATE TABLE IF NOT EXISTS solution (
			id TEXT PRIMARY KEY,
			parameters TEXT NOT NULL,
			output_parameters TEXT,
			project_name TEXT NOT NULL,
			scoped_id INTEGER,
			FOREIGN KEY(project_name) REFERENCES project(project_name)
		);
		CREATE INDEX IF NOT EXISTS idx_solution_project ON solution(project_name);
		CREATE TABLE IF NOT EXISTS asset (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file TEXT NOT NULL,
			tag TEXT NOT NULL,
			solution_id TEXT NOT NULL,
			FOREIGN KEY(solution_id) REFERENCES solution(id)
		);
	`)
	if err != nil {
		return errors.Wrap(err, errors.InsertionError, "failed to create tables")
	}
	return nil
}

// isBusy reports whether err is SQLite's transient lock contention, which
// callers on the polling path treat as "try again later" rather than failure.
func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// wrapStoreErr classifies a low-level database error into the store taxonomy.
func wrapStoreErr(err error, message string) error {
	if err == nil {
		return nil
	}
	if isBusy(err) {
		return errors.Wrap(err, errors.StoreBusy, message)
	}
	return errors.Wrap(err, errors.InsertionError, message)
}
