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

// CreateCluster inserts a new cluster row keyed by namespace + "-" + name.
func (s *Store) CreateCluster(ctx context.Context, namespace, name string, proxyTemplates []string) (*model.Cluster, error) {
	if _, err := s.GetNamespace(ctx, namespace); err != nil {
		return nil, err
	}
	key := GenKey(namespace, name)

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO clusters (key, namespace, name, proxy_templates) VALUES (?, ?, ?, ?)`,
		key, namespace, name, strings.Join(proxyTemplates, ","),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, corvuserr.New(corvuserr.Conflict, fmt.Sprintf("cluster %q already exists", key))
		}
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to create cluster", err)
	}
	return &model.Cluster{Key: key, Namespace: namespace, Name: name, ProxyTemplates: proxyTemplates}, nil
}

// GetClusterByKey fetches a cluster row by its full key.
func (s *Store) GetClusterByKey(ctx context.Context, key string) (*model.Cluster, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT key, namespace, name, proxy_templates FROM clusters WHERE key = ?`, key)
	return scanCluster(row)
}

// GetCluster fetches a cluster by (namespace, name).
func (s *Store) GetCluster(ctx context.Context, namespace, name string) (*model.Cluster, error) {
	return s.GetClusterByKey(ctx, GenKey(namespace, name))
}

// ListClustersByNamespace lists every cluster in a namespace.
func (s *Store) ListClustersByNamespace(ctx context.Context, namespace string) ([]*model.Cluster, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT key, namespace, name, proxy_templates FROM clusters WHERE namespace = ? ORDER BY name`, namespace)
	if err != nil {
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to list clusters", err)
	}
	defer rows.Close()

	var out []*model.Cluster
	for rows.Next() {
		cluster, err := scanCluster(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cluster)
	}
	return out, rows.Err()
}

// CountClustersByNamespace returns the number of clusters in a namespace.
func (s *Store) CountClustersByNamespace(ctx context.Context, namespace string) (int, error) {
	var count int
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM clusters WHERE namespace = ?`, namespace).Scan(&count)
	if err != nil {
		return 0, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to count clusters", err)
	}
	return count, nil
}

// DeleteCluster removes a cluster row. Callers must delete variables,
// networks, and instances first (§4.3 RemoveCluster); this method refuses
// with Conflict if any of those still reference the key.
func (s *Store) DeleteCluster(ctx context.Context, key string) error {
	counts := []struct {
		table string
		col   string
	}{
		{"cluster_networks", "cluster_key"},
		{"cluster_variables", "cluster_key"},
		{"cargo_instances", "cluster_key"},
	}
	for _, c := range counts {
		var n int
		q := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = ?`, c.table, c.col)
		if err := s.conn.QueryRowContext(ctx, q, key).Scan(&n); err != nil {
			return corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to check cluster dependents", err)
		}
		if n > 0 {
			return corvuserr.New(corvuserr.Conflict, fmt.Sprintf("cluster %q still has dependent %s", key, c.table))
		}
	}

	result, err := s.conn.ExecContext(ctx, `DELETE FROM clusters WHERE key = ?`, key)
	if err != nil {
		return corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to delete cluster", err)
	}
	return requireRowAffected(result, fmt.Sprintf("cluster %q not found", key))
}

// RemoveClusterCascade atomically deletes every network row belonging to a
// cluster, then the cluster row itself (§4.3 RemoveCluster: "networks ->
// cluster"), inside one transaction. Variables and instances must already
// be gone or this still refuses with Conflict, same as DeleteCluster,
// just re-checked after the network rows are gone rather than in a
// separate round trip.
func (s *Store) RemoveClusterCascade(ctx context.Context, clusterKey string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cluster_networks WHERE cluster_key = ?`, clusterKey); err != nil {
			return corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to delete cluster networks", err)
		}

		counts := []struct {
			table string
			col   string
		}{
			{"cluster_variables", "cluster_key"},
			{"cargo_instances", "cluster_key"},
		}
		for _, c := range counts {
			var n int
			q := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = ?`, c.table, c.col)
			if err := tx.QueryRowContext(ctx, q, clusterKey).Scan(&n); err != nil {
				return corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to check cluster dependents", err)
			}
			if n > 0 {
				return corvuserr.New(corvuserr.Conflict, fmt.Sprintf("cluster %q still has dependent %s", clusterKey, c.table))
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM clusters WHERE key = ?`, clusterKey)
		if err != nil {
			return corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to delete cluster", err)
		}
		return requireRowAffected(result, fmt.Sprintf("cluster %q not found", clusterKey))
	})
}

func scanCluster(row scanner) (*model.Cluster, error) {
	var cluster model.Cluster
	var proxyTemplates string
	err := row.Scan(&cluster.Key, &cluster.Namespace, &cluster.Name, &proxyTemplates)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, corvuserr.New(corvuserr.NotFound, "cluster not found")
		}
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to scan cluster row", err)
	}
	if proxyTemplates != "" {
		cluster.ProxyTemplates = strings.Split(proxyTemplates, ",")
	}
	return &cluster, nil
}
