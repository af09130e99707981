package reconciler

import "context"

// DeleteCargo tears down every engine container backing a cargo across
// every cluster it is joined to, then cascades the row delete -- instances,
// env, cargo -- atomically (§3: "delete order is instances -> env ->
// cargo"; §6.1: "delete cascades instances, env, engine containers").
//
// Engine removal runs first and is best-effort: a container that is
// already gone, or an engine that is briefly unreachable, should not leave
// the store permanently disagreeing with itself about whether the cargo
// still exists. The row cascade that follows is what must never partially
// apply, so it goes through store.DeleteCargoCascade's single transaction
// rather than the old per-instance, per-table sequence of store calls.
func (r *Reconciler) DeleteCargo(ctx context.Context, cargoKey string) error {
	log := newOpLogger(r.logger, "delete_cargo", "cargo", cargoKey)

	instances, err := r.store.ListCargoInstancesByCargo(ctx, cargoKey)
	if err != nil {
		return err
	}
	for _, inst := range instances {
		containers, err := r.engine.ListContainers(ctx, map[string]string{
			"cluster": inst.ClusterKey,
			"cargo":   cargoKey,
		})
		if err != nil {
			return err
		}
		for _, ctr := range containers {
			if err := r.engine.RemoveContainer(ctx, ctr.ID); err != nil {
				log.warn("failed to remove engine container %s", err, "container", ctr.Name)
			}
		}
	}

	return r.store.DeleteCargoCascade(ctx, cargoKey)
}
