package reconciler

import (
	"context"
	"fmt"
)

// UpdateCargoInstance replaces every running container for (cluster, cargo)
// with freshly created ones, leaving the binding row untouched. Ordering
// follows §4.3 exactly: rename old containers out of the way, create and
// start new ones, re-run StartCluster so the projection picks up the new
// addresses, only then remove the renamed containers -- so a reload can
// observe the new IPs before the old containers disappear.
//
// The old containers are tracked and removed by engine id, not by a
// re-run of the (cluster, cargo) label search -- §9's open question notes
// the label selector would still match the renamed containers, making a
// second label-based removal ambiguous. Removing by the ids captured
// before the rename sidesteps that ambiguity entirely.
func (r *Reconciler) UpdateCargoInstance(ctx context.Context, clusterKey, cargoKey string) error {
	cluster, err := r.store.GetClusterByKey(ctx, clusterKey)
	if err != nil {
		return err
	}
	cargo, err := r.store.GetCargoByKey(ctx, cargoKey)
	if err != nil {
		return err
	}
	inst, err := r.store.GetCargoInstance(ctx, clusterKey, cargoKey)
	if err != nil {
		return err
	}
	network, err := r.store.GetClusterNetworkByKey(ctx, inst.NetworkKey)
	if err != nil {
		return err
	}

	oldContainers, err := r.engine.ListContainers(ctx, map[string]string{
		"cluster": clusterKey,
		"cargo":   cargoKey,
	})
	if err != nil {
		return err
	}
	sortByName(oldContainers)

	for i, ctr := range oldContainers {
		tmpName := fmt.Sprintf("%s-tmp-%d", cargo.Name, i)
		if err := r.engine.RenameContainer(ctx, ctr.ID, tmpName); err != nil {
			return err
		}
	}

	if _, err := r.JoinCargo(ctx, cluster, cargo, network, false); err != nil {
		return err
	}

	if err := r.StartCluster(ctx, clusterKey); err != nil {
		return err
	}

	for _, ctr := range oldContainers {
		if err := r.engine.RemoveContainer(ctx, ctr.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteCargoInstance removes the binding row, then every engine container
// labeled with (cluster, cargo). Row-first ordering means a crash between
// the two leaves orphan engine containers rather than an orphan row
// (§4.3: "a later crash leaves orphan engine containers, not orphan rows").
func (r *Reconciler) DeleteCargoInstance(ctx context.Context, clusterKey, cargoKey string) error {
	if err := r.store.DeleteCargoInstance(ctx, clusterKey, cargoKey); err != nil {
		return err
	}

	containers, err := r.engine.ListContainers(ctx, map[string]string{
		"cluster": clusterKey,
		"cargo":   cargoKey,
	})
	if err != nil {
		return err
	}
	for _, ctr := range containers {
		if err := r.engine.RemoveContainer(ctx, ctr.ID); err != nil {
			return err
		}
	}
	return nil
}

// RemoveCluster tears down every network belonging to a cluster, then
// cascades the network-row and cluster-row deletes atomically. Engine
// network removal is best-effort (a missing engine network is not an error
// either way, see engine.RemoveNetwork) and runs first; the row deletes
// that follow go through store.RemoveClusterCascade's single transaction
// so a crash between them never leaves some network rows gone and others
// still pointing at a cluster that no longer has its engine-side network.
// The caller must have already removed the cluster's variables and
// instances, or the cascade itself rejects with Conflict (§4.3: "Variables
// and instances must be deleted first or their foreign keys will reject").
func (r *Reconciler) RemoveCluster(ctx context.Context, clusterKey string) error {
	log := newOpLogger(r.logger, "remove_cluster", "cluster", clusterKey)

	networks, err := r.store.ListClusterNetworksByCluster(ctx, clusterKey)
	if err != nil {
		return err
	}

	for _, n := range networks {
		if err := r.engine.RemoveNetwork(ctx, n.DockerNetworkID); err != nil {
			log.warn("failed to remove engine network %s", err, "network", n.Key)
		}
	}

	return r.store.RemoveClusterCascade(ctx, clusterKey)
}
