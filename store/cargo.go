package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/corvus-sh/orchd/corvuserr"
	"github.com/corvus-sh/orchd/model"
)

// CreateCargo inserts a new cargo row, constructing its key as
// namespace + "-" + name per §3. Replicas defaults to 1 when <= 0.
func (s *Store) CreateCargo(ctx context.Context, namespace, name string, config json.RawMessage, replicas int, dnsEntry string) (*model.Cargo, error) {
	if replicas <= 0 {
		replicas = 1
	}
	key := GenKey(namespace, name)

	if _, err := s.GetNamespace(ctx, namespace); err != nil {
		return nil, err
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO cargoes (key, namespace, name, config, replicas, dns_entry) VALUES (?, ?, ?, ?, ?, ?)`,
		key, namespace, name, string(config), replicas, dnsEntry,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, corvuserr.New(corvuserr.Conflict, fmt.Sprintf("cargo %q already exists", key))
		}
		if isForeignKeyViolation(err) {
			return nil, corvuserr.New(corvuserr.NotFound, fmt.Sprintf("namespace %q not found", namespace))
		}
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to create cargo", err)
	}

	return &model.Cargo{Key: key, Namespace: namespace, Name: name, Config: config, Replicas: replicas, DNSEntry: dnsEntry}, nil
}

// GetCargoByKey fetches a cargo row by its full key.
func (s *Store) GetCargoByKey(ctx context.Context, key string) (*model.Cargo, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT key, namespace, name, config, replicas, dns_entry FROM cargoes WHERE key = ?`, key)
	return scanCargo(row)
}

// GetCargo fetches a cargo by (namespace, name), deriving the key the same
// way CreateCargo constructed it.
func (s *Store) GetCargo(ctx context.Context, namespace, name string) (*model.Cargo, error) {
	return s.GetCargoByKey(ctx, GenKey(namespace, name))
}

// ListCargoesByNamespace lists every cargo in a namespace.
func (s *Store) ListCargoesByNamespace(ctx context.Context, namespace string) ([]*model.Cargo, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT key, namespace, name, config, replicas, dns_entry FROM cargoes WHERE namespace = ? ORDER BY name`, namespace)
	if err != nil {
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to list cargoes", err)
	}
	defer rows.Close()

	var out []*model.Cargo
	for rows.Next() {
		cargo, err := scanCargo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cargo)
	}
	return out, rows.Err()
}

// CountCargoesByNamespace returns the number of cargoes in a namespace.
func (s *Store) CountCargoesByNamespace(ctx context.Context, namespace string) (int, error) {
	var count int
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM cargoes WHERE namespace = ?`, namespace).Scan(&count)
	if err != nil {
		return 0, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to count cargoes", err)
	}
	return count, nil
}

// DeleteCargo removes a cargo row. Callers are responsible for the delete
// order mandated by §3 ("delete order is instances -> env -> cargo"); this
// method itself only refuses when a CargoInstance still references the key.
func (s *Store) DeleteCargo(ctx context.Context, key string) error {
	var instanceCount int
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM cargo_instances WHERE cargo_key = ?`, key).Scan(&instanceCount)
	if err != nil {
		return corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to check cargo dependents", err)
	}
	if instanceCount > 0 {
		return corvuserr.New(corvuserr.Conflict, fmt.Sprintf("cargo %q still has %d instance(s)", key, instanceCount))
	}

	result, err := s.conn.ExecContext(ctx, `DELETE FROM cargoes WHERE key = ?`, key)
	if err != nil {
		return corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to delete cargo", err)
	}
	return requireRowAffected(result, fmt.Sprintf("cargo %q not found", key))
}

// DeleteCargoCascade atomically deletes a cargo and every row that
// references it: its instances, then its env rows, then the cargo row
// itself (§3: "delete order is instances -> env -> cargo"), all inside one
// transaction, so a crash partway through never leaves the store with some
// of those rows gone and others still pointing at a deleted cargo.
func (s *Store) DeleteCargoCascade(ctx context.Context, cargoKey string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cargo_instances WHERE cargo_key = ?`, cargoKey); err != nil {
			return corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to delete cargo instances", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM cargo_envs WHERE cargo_key = ?`, cargoKey); err != nil {
			return corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to delete cargo envs", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM cargoes WHERE key = ?`, cargoKey)
		if err != nil {
			return corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to delete cargo", err)
		}
		return requireRowAffected(result, fmt.Sprintf("cargo %q not found", cargoKey))
	})
}

func scanCargo(row scanner) (*model.Cargo, error) {
	var cargo model.Cargo
	var config string
	err := row.Scan(&cargo.Key, &cargo.Namespace, &cargo.Name, &config, &cargo.Replicas, &cargo.DNSEntry)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, corvuserr.New(corvuserr.NotFound, "cargo not found")
		}
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to scan cargo row", err)
	}
	cargo.Config = json.RawMessage(config)
	return &cargo, nil
}

// isForeignKeyViolation reports whether err is a SQLite foreign-key
// constraint failure (PRAGMA foreign_keys must be on for SQLite to ever
// raise this; the store's reference checks in this file do not rely on
// SQLite enforcement, they re-check explicitly, but the helper is kept for
// the rare case the driver surfaces one anyway).
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
