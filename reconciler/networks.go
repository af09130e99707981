package reconciler

import (
	"context"

	"github.com/corvus-sh/orchd/model"
)

// CreateClusterNetwork asks the engine to create the bridge network, then
// records the returned id and gateway (§3: "On create, the engine is asked
// to create a bridge network; the returned id and the first IPAM gateway
// are stored").
func (r *Reconciler) CreateClusterNetwork(ctx context.Context, cluster *model.Cluster, name string) (*model.ClusterNetwork, error) {
	key := cluster.Key + "-" + name

	info, err := r.engine.CreateNetwork(ctx, key, map[string]string{
		"namespace": cluster.Namespace,
		"cluster":   cluster.Key,
	}, "")
	if err != nil {
		return nil, err
	}

	return r.store.CreateClusterNetwork(ctx, cluster.Key, cluster.Namespace, name, info.ID, info.DefaultGateway)
}

// DeleteClusterNetwork removes the engine network (missing is not an
// error, §3) then the row.
func (r *Reconciler) DeleteClusterNetwork(ctx context.Context, network *model.ClusterNetwork) error {
	if err := r.engine.RemoveNetwork(ctx, network.DockerNetworkID); err != nil {
		return err
	}
	return r.store.DeleteClusterNetwork(ctx, network.Key)
}
