package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/corvus-sh/orchd/corvuserr"
	"github.com/corvus-sh/orchd/model"
)

// CreateCargoInstance inserts the binding row asserting "this cargo is
// deployed into this cluster's network", keyed by
// cluster_key + "-" + cargo_key. The key's uniqueness is what enforces
// at-most-one binding per (cluster, cargo) pair: a second JoinCargo for the
// same pair collides on this primary key and surfaces Conflict (§5, §8
// scenario 3).
func (s *Store) CreateCargoInstance(ctx context.Context, cargoKey, clusterKey, networkKey string) (*model.CargoInstance, error) {
	key := GenKey(clusterKey, cargoKey)

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO cargo_instances (key, cargo_key, cluster_key, network_key) VALUES (?, ?, ?, ?)`,
		key, cargoKey, clusterKey, networkKey,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, corvuserr.New(corvuserr.Conflict, fmt.Sprintf("cargo %q is already joined to cluster %q", cargoKey, clusterKey))
		}
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to create cargo instance", err)
	}
	return &model.CargoInstance{Key: key, CargoKey: cargoKey, ClusterKey: clusterKey, NetworkKey: networkKey}, nil
}

// GetCargoInstance fetches the binding row for a (cluster, cargo) pair, or
// NotFound if the cargo has not been joined to that cluster.
func (s *Store) GetCargoInstance(ctx context.Context, clusterKey, cargoKey string) (*model.CargoInstance, error) {
	key := GenKey(clusterKey, cargoKey)
	row := s.conn.QueryRowContext(ctx,
		`SELECT key, cargo_key, cluster_key, network_key FROM cargo_instances WHERE key = ?`, key)
	return scanCargoInstance(row)
}

// ListCargoInstancesByCluster lists every binding row for a cluster, the
// input StartCluster iterates over.
func (s *Store) ListCargoInstancesByCluster(ctx context.Context, clusterKey string) ([]*model.CargoInstance, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT key, cargo_key, cluster_key, network_key FROM cargo_instances WHERE cluster_key = ?`, clusterKey)
	if err != nil {
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to list cargo instances", err)
	}
	defer rows.Close()

	var out []*model.CargoInstance
	for rows.Next() {
		inst, err := scanCargoInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

// ListCargoInstancesByCargo lists every cluster a cargo is joined to.
func (s *Store) ListCargoInstancesByCargo(ctx context.Context, cargoKey string) ([]*model.CargoInstance, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT key, cargo_key, cluster_key, network_key FROM cargo_instances WHERE cargo_key = ?`, cargoKey)
	if err != nil {
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to list cargo instances", err)
	}
	defer rows.Close()

	var out []*model.CargoInstance
	for rows.Next() {
		inst, err := scanCargoInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

// DeleteCargoInstance removes the binding row for a (cluster, cargo) pair.
func (s *Store) DeleteCargoInstance(ctx context.Context, clusterKey, cargoKey string) error {
	key := GenKey(clusterKey, cargoKey)
	result, err := s.conn.ExecContext(ctx, `DELETE FROM cargo_instances WHERE key = ?`, key)
	if err != nil {
		return corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to delete cargo instance", err)
	}
	return requireRowAffected(result, fmt.Sprintf("cargo instance %q not found", key))
}

func scanCargoInstance(row scanner) (*model.CargoInstance, error) {
	var inst model.CargoInstance
	err := row.Scan(&inst.Key, &inst.CargoKey, &inst.ClusterKey, &inst.NetworkKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, corvuserr.New(corvuserr.NotFound, "cargo instance not found")
		}
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to scan cargo instance row", err)
	}
	return &inst, nil
}
