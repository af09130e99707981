package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/corvus-sh/orchd/corvuserr"
	"github.com/corvus-sh/orchd/model"
)

// CreateClusterNetwork inserts a cluster-network row keyed by
// cluster_key + "-" + name. Called by the reconciler after the engine has
// actually created the bridge network, so dockerNetworkID and
// defaultGateway are already known at insert time.
func (s *Store) CreateClusterNetwork(ctx context.Context, clusterKey, namespace, name, dockerNetworkID, defaultGateway string) (*model.ClusterNetwork, error) {
	if _, err := s.GetClusterByKey(ctx, clusterKey); err != nil {
		return nil, err
	}
	key := GenKey(clusterKey, name)

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO cluster_networks (key, cluster_key, namespace, name, docker_network_id, default_gateway) VALUES (?, ?, ?, ?, ?, ?)`,
		key, clusterKey, namespace, name, dockerNetworkID, defaultGateway,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, corvuserr.New(corvuserr.Conflict, fmt.Sprintf("network %q already exists", key))
		}
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to create cluster network", err)
	}
	return &model.ClusterNetwork{
		Key: key, ClusterKey: clusterKey, Namespace: namespace, Name: name,
		DockerNetworkID: dockerNetworkID, DefaultGateway: defaultGateway,
	}, nil
}

// GetClusterNetworkByKey fetches a cluster-network row by its full key.
func (s *Store) GetClusterNetworkByKey(ctx context.Context, key string) (*model.ClusterNetwork, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT key, cluster_key, namespace, name, docker_network_id, default_gateway FROM cluster_networks WHERE key = ?`, key)
	return scanClusterNetwork(row)
}

// ListClusterNetworksByCluster lists every network belonging to a cluster.
func (s *Store) ListClusterNetworksByCluster(ctx context.Context, clusterKey string) ([]*model.ClusterNetwork, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT key, cluster_key, namespace, name, docker_network_id, default_gateway FROM cluster_networks WHERE cluster_key = ? ORDER BY name`, clusterKey)
	if err != nil {
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to list cluster networks", err)
	}
	defer rows.Close()

	var out []*model.ClusterNetwork
	for rows.Next() {
		net, err := scanClusterNetwork(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, net)
	}
	return out, rows.Err()
}

// CountNetworksByNamespace returns the number of cluster-networks across
// every cluster in a namespace.
func (s *Store) CountNetworksByNamespace(ctx context.Context, namespace string) (int, error) {
	var count int
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM cluster_networks WHERE namespace = ?`, namespace).Scan(&count)
	if err != nil {
		return 0, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to count networks", err)
	}
	return count, nil
}

// DeleteClusterNetwork removes a cluster-network row by key. The caller
// (reconciler.DeleteClusterNetwork) is responsible for removing the underlying
// engine network first; a missing engine network is tolerated at that
// layer, not here.
func (s *Store) DeleteClusterNetwork(ctx context.Context, key string) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM cluster_networks WHERE key = ?`, key)
	if err != nil {
		return corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to delete cluster network", err)
	}
	return requireRowAffected(result, fmt.Sprintf("network %q not found", key))
}

func scanClusterNetwork(row scanner) (*model.ClusterNetwork, error) {
	var net model.ClusterNetwork
	err := row.Scan(&net.Key, &net.ClusterKey, &net.Namespace, &net.Name, &net.DockerNetworkID, &net.DefaultGateway)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, corvuserr.New(corvuserr.NotFound, "cluster network not found")
		}
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to scan cluster network row", err)
	}
	return &net, nil
}
