package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/corvus-sh/orchd/corvuserr"
	"github.com/corvus-sh/orchd/model"
)

// CreateNamespace inserts a new namespace row. Returns Conflict if the name
// already exists -- namespace name is its own primary key, so a duplicate
// insert is the only way this can fail besides a store outage.
func (s *Store) CreateNamespace(ctx context.Context, name string) (*model.Namespace, error) {
	_, err := s.conn.ExecContext(ctx, `INSERT INTO namespaces (name) VALUES (?)`, name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, corvuserr.New(corvuserr.Conflict, fmt.Sprintf("namespace %q already exists", name))
		}
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to create namespace", err)
	}
	return &model.Namespace{Name: name}, nil
}

// GetNamespace fetches a namespace by name, or NotFound if it doesn't exist.
func (s *Store) GetNamespace(ctx context.Context, name string) (*model.Namespace, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT name FROM namespaces WHERE name = ?`, name)
	var ns model.Namespace
	if err := row.Scan(&ns.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, corvuserr.New(corvuserr.NotFound, fmt.Sprintf("namespace %q not found", name))
		}
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to get namespace", err)
	}
	return &ns, nil
}

// ListNamespaces returns every namespace row.
func (s *Store) ListNamespaces(ctx context.Context) ([]*model.Namespace, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT name FROM namespaces ORDER BY name`)
	if err != nil {
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to list namespaces", err)
	}
	defer rows.Close()

	var out []*model.Namespace
	for rows.Next() {
		var ns model.Namespace
		if err := rows.Scan(&ns.Name); err != nil {
			return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to scan namespace row", err)
		}
		out = append(out, &ns)
	}
	return out, rows.Err()
}

// DeleteNamespace removes a namespace row, refusing with Conflict if any
// cargo still references it -- the invariant in §3 ("a namespace is deleted
// only when no cargo references it").
func (s *Store) DeleteNamespace(ctx context.Context, name string) error {
	var cargoCount int
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM cargoes WHERE namespace = ?`, name).Scan(&cargoCount)
	if err != nil {
		return corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to check namespace dependents", err)
	}
	if cargoCount > 0 {
		return corvuserr.New(corvuserr.Conflict, fmt.Sprintf("namespace %q still has %d cargo(es)", name, cargoCount))
	}

	result, err := s.conn.ExecContext(ctx, `DELETE FROM namespaces WHERE name = ?`, name)
	if err != nil {
		return corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to delete namespace", err)
	}
	return requireRowAffected(result, fmt.Sprintf("namespace %q not found", name))
}

// requireRowAffected returns NotFound when a DELETE/UPDATE matched zero
// rows, the same RowsAffected()==0 check the teacher's db/deployments.go
// used for every mutating query.
func requireRowAffected(result sql.Result, notFoundMsg string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to read rows affected", err)
	}
	if affected == 0 {
		return corvuserr.New(corvuserr.NotFound, notFoundMsg)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE/PRIMARY KEY
// constraint failure. go-sqlite3 returns a *sqlite3.Error with an
// ExtendedCode in the 2067/1555 range for these; string-matching the
// driver's own message keeps this package from importing the driver's
// internal error type directly everywhere a unique check is needed.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY constraint failed")
}
