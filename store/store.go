// Package store is the only component holding database access. It exposes
// typed CRUD for every entity in the data model plus the small set of
// derived reads the reconciler and HTTP layer need (lists, counts). It wraps
// *sql.DB rather than embedding it, mirroring the teacher's db.Database:
// wrapping keeps the public surface intentional, so a driver swap (SQLite to
// Postgres, as the reference implementation actually does) only touches
// this package.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite connection pool and a logger; Open logs through it,
// the query methods do not.
type Store struct {
	conn   *sql.DB
	logger *slog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS namespaces (
	name TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS cargoes (
	key       TEXT PRIMARY KEY,
	namespace TEXT NOT NULL REFERENCES namespaces(name),
	name      TEXT NOT NULL,
	config    TEXT NOT NULL,
	replicas  INTEGER NOT NULL DEFAULT 1,
	dns_entry TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS cargo_envs (
	key       TEXT PRIMARY KEY,
	cargo_key TEXT NOT NULL REFERENCES cargoes(key),
	name      TEXT NOT NULL,
	value     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS clusters (
	key             TEXT PRIMARY KEY,
	namespace       TEXT NOT NULL REFERENCES namespaces(name),
	name            TEXT NOT NULL,
	proxy_templates TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS cluster_networks (
	key               TEXT PRIMARY KEY,
	cluster_key       TEXT NOT NULL REFERENCES clusters(key),
	namespace         TEXT NOT NULL,
	name              TEXT NOT NULL,
	docker_network_id TEXT NOT NULL DEFAULT '',
	default_gateway   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS cluster_variables (
	key         TEXT PRIMARY KEY,
	cluster_key TEXT NOT NULL REFERENCES clusters(key),
	name        TEXT NOT NULL,
	value       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cargo_instances (
	key         TEXT PRIMARY KEY,
	cargo_key   TEXT NOT NULL REFERENCES cargoes(key),
	cluster_key TEXT NOT NULL REFERENCES clusters(key),
	network_key TEXT NOT NULL REFERENCES cluster_networks(key)
);

CREATE TABLE IF NOT EXISTS proxy_templates (
	name    TEXT PRIMARY KEY,
	mode    TEXT NOT NULL,
	content TEXT NOT NULL
);
`

// migrate runs the schema DDL. Like the teacher's db.Database.migrate, it is
// unconditionally safe to call on every startup: every statement is
// "CREATE TABLE IF NOT EXISTS", so it never touches existing data.
func (s *Store) migrate() error {
	_, err := s.conn.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema migration: %w", err)
	}
	return nil
}

// Open opens the SQLite database at dbPath, creating its parent directory if
// needed, and runs the schema migration. SetMaxOpenConns(1) is load-bearing:
// SQLite rejects concurrent writers from multiple connections in the pool,
// the same constraint the teacher's db.OpenDatabase documents and enforces.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory %q: %w", dir, err)
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database at %q: %w", dbPath, err)
	}
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn, logger: logger}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("store migration failed: %w", err)
	}

	logger.Info("store opened and schema migrated", "path", dbPath)
	return s, nil
}

// Close releases the connection pool. Deferred by main.go right after Open
// returns successfully.
func (s *Store) Close() error {
	return s.conn.Close()
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on any error returned by fn (or on panic, via defer). Cascading
// deletes (RemoveCluster's network+row sequence) and any other multi-row
// mutation that must be atomic use this, the one capability the teacher's
// single-table CRUD never needed.
func (s *Store) WithTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(tx)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx. The CRUD methods in this
// package do not take it: they query s.conn directly, and the cascades run
// their statements on the *sql.Tx that WithTx hands them.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows, the same duck-typed
// interface the teacher's db/deployments.go used to share one scan function
// between QueryRow and Query call sites.
type scanner interface {
	Scan(dest ...any) error
}
