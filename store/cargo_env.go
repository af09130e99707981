package store

import (
	"context"
	"fmt"

	"github.com/corvus-sh/orchd/corvuserr"
	"github.com/corvus-sh/orchd/model"
)

// CreateCargoEnv inserts an environment-variable row owned by a cargo.
// Append-only, matching the "append-only" wording in §3: the row key is
// cargo_key + "-" + name, so a second row with the same name is rejected
// with Conflict, and no UpdateCargoEnv exists to change a stored value.
func (s *Store) CreateCargoEnv(ctx context.Context, cargoKey, name, value string) (*model.CargoEnv, error) {
	if _, err := s.GetCargoByKey(ctx, cargoKey); err != nil {
		return nil, err
	}
	key := GenKey(cargoKey, name)

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO cargo_envs (key, cargo_key, name, value) VALUES (?, ?, ?, ?)`,
		key, cargoKey, name, value,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, corvuserr.New(corvuserr.Conflict, fmt.Sprintf("env %q already exists on cargo %q", name, cargoKey))
		}
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to create cargo env", err)
	}
	return &model.CargoEnv{Key: key, CargoKey: cargoKey, Name: name, Value: value}, nil
}

// ListCargoEnvs returns every env row owned by a cargo, in insertion order
// (rowid order, SQLite's implicit default), which is what JoinCargo needs
// to build a deterministic KEY=value list.
func (s *Store) ListCargoEnvs(ctx context.Context, cargoKey string) ([]*model.CargoEnv, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT key, cargo_key, name, value FROM cargo_envs WHERE cargo_key = ? ORDER BY rowid`, cargoKey)
	if err != nil {
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to list cargo envs", err)
	}
	defer rows.Close()

	var out []*model.CargoEnv
	for rows.Next() {
		var env model.CargoEnv
		if err := rows.Scan(&env.Key, &env.CargoKey, &env.Name, &env.Value); err != nil {
			return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to scan cargo env row", err)
		}
		out = append(out, &env)
	}
	return out, rows.Err()
}

// DeleteCargoEnvsByCargo removes every env row owned by a cargo, the middle
// step of the cargo delete order (§3: "delete order is instances -> env ->
// cargo"). reconciler.DeleteCargo does not call it; DeleteCargoCascade
// performs the same delete inside its own transaction.
func (s *Store) DeleteCargoEnvsByCargo(ctx context.Context, cargoKey string) error {
	_, err := s.conn.ExecContext(ctx, `DELETE FROM cargo_envs WHERE cargo_key = ?`, cargoKey)
	if err != nil {
		return corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to delete cargo envs", err)
	}
	return nil
}
