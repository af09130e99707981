package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/corvus-sh/orchd/corvuserr"
	"github.com/corvus-sh/orchd/model"
)

// CreateClusterVariable inserts a per-cluster variable keyed by
// cluster_key + "-" + name.
func (s *Store) CreateClusterVariable(ctx context.Context, clusterKey, name, value string) (*model.ClusterVariable, error) {
	if _, err := s.GetClusterByKey(ctx, clusterKey); err != nil {
		return nil, err
	}
	key := GenKey(clusterKey, name)

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO cluster_variables (key, cluster_key, name, value) VALUES (?, ?, ?, ?)`,
		key, clusterKey, name, value,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, corvuserr.New(corvuserr.Conflict, fmt.Sprintf("variable %q already exists on cluster %q", name, clusterKey))
		}
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to create cluster variable", err)
	}
	return &model.ClusterVariable{Key: key, ClusterKey: clusterKey, Name: name, Value: value}, nil
}

// ListClusterVariables returns every variable belonging to a cluster.
func (s *Store) ListClusterVariables(ctx context.Context, clusterKey string) ([]*model.ClusterVariable, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT key, cluster_key, name, value FROM cluster_variables WHERE cluster_key = ? ORDER BY name`, clusterKey)
	if err != nil {
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to list cluster variables", err)
	}
	defer rows.Close()

	var out []*model.ClusterVariable
	for rows.Next() {
		var v model.ClusterVariable
		if err := rows.Scan(&v.Key, &v.ClusterKey, &v.Name, &v.Value); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, corvuserr.New(corvuserr.NotFound, "cluster variable not found")
			}
			return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to scan cluster variable row", err)
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

// DeleteClusterVariable removes a single variable row by key.
func (s *Store) DeleteClusterVariable(ctx context.Context, key string) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM cluster_variables WHERE key = ?`, key)
	if err != nil {
		return corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to delete cluster variable", err)
	}
	return requireRowAffected(result, fmt.Sprintf("variable %q not found", key))
}

// DeleteClusterVariablesByCluster removes every variable row for a cluster.
// The cluster row can only be deleted once these are gone (§4.3: "variables
// and instances must be deleted first"); reconciler.RemoveCluster does not
// call it and refuses with Conflict while variables remain.
func (s *Store) DeleteClusterVariablesByCluster(ctx context.Context, clusterKey string) error {
	_, err := s.conn.ExecContext(ctx, `DELETE FROM cluster_variables WHERE cluster_key = ?`, clusterKey)
	if err != nil {
		return corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to delete cluster variables", err)
	}
	return nil
}
