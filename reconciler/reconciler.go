// Package reconciler materialises and mutates the running set of container
// instances: joining a cargo into a cluster-network, starting a cluster and
// projecting its proxy/DNS configuration, replacing a cargo's containers in
// place, and tearing a binding or a whole cluster down. It is the one
// package that calls both the store and the engine adapter together.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/corvus-sh/orchd/corvuserr"
	"github.com/corvus-sh/orchd/engine"
	"github.com/corvus-sh/orchd/model"
	"github.com/corvus-sh/orchd/store"
	"github.com/corvus-sh/orchd/template"
)

// Reconciler is the daemon's sole orchestrator of engine+store state. One
// instance is built at start-up and shared across every HTTP request, the
// same "initialised once, passed explicitly" pattern §9 describes for the
// engine client and store pool.
type Reconciler struct {
	store    *store.Store
	engine   EngineClient
	stateDir string
	logger   *slog.Logger
}

func New(st *store.Store, eng EngineClient, stateDir string, logger *slog.Logger) *Reconciler {
	return &Reconciler{store: st, engine: eng, stateDir: stateDir, logger: logger}
}

// containerName builds the deterministic namespace-cluster-cargo[-N] name
// §4.3 step 5 mandates. cluster.Key is already namespace+"-"+cluster.Name,
// so appending cargo.Name reproduces the full triple without re-joining
// namespace by hand.
func containerName(cluster *model.Cluster, cargo *model.Cargo, n int) string {
	base := cluster.Key + "-" + cargo.Name
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n)
}

// JoinCargo materialises `cargo.Replicas` containers for cargo inside
// cluster's network and, if createRelation is true, records the binding.
// Steps follow §4.3 in order: render env, build labels, resolve the
// overlaid spec, verify the image, create+connect containers, insert the
// relation row.
func (r *Reconciler) JoinCargo(ctx context.Context, cluster *model.Cluster, cargo *model.Cargo, network *model.ClusterNetwork, createRelation bool) (*model.CargoInstance, error) {
	log := newOpLogger(r.logger, "join_cargo", "cluster", cluster.Key, "cargo", cargo.Key)

	// an existing binding is rejected before any container is created, so a
	// repeated join leaves the engine untouched.
	if createRelation {
		if _, err := r.store.GetCargoInstance(ctx, cluster.Key, cargo.Key); err == nil {
			return nil, corvuserr.New(corvuserr.Conflict, fmt.Sprintf("cargo %q is already joined to cluster %q", cargo.Key, cluster.Key))
		} else if corvuserr.KindOf(err) != corvuserr.NotFound {
			return nil, err
		}
	}

	env, err := r.renderCargoEnv(ctx, cluster.Key, cargo.Key)
	if err != nil {
		return nil, err
	}

	labels := map[string]string{
		"namespace": cluster.Namespace,
		"cluster":   cluster.Key,
		"cargo":     cargo.Key,
	}

	spec, err := engine.ParseContainerSpec(cargo.Config)
	if err != nil {
		return nil, err
	}
	if spec.NetworkMode == "" {
		spec.NetworkMode = network.Key
	}

	exists, err := r.engine.ImageExists(ctx, spec.Image)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, corvuserr.New(corvuserr.ImageMissing, fmt.Sprintf("image %q is not present", spec.Image))
	}

	hostNetwork := spec.NetworkMode == "host"

	for n := 0; n < cargo.Replicas; n++ {
		name := containerName(cluster, cargo, n)

		id, err := r.engine.CreateContainer(ctx, name, spec, labels, env)
		if err != nil {
			return nil, err
		}
		if err := r.engine.StartContainer(ctx, id); err != nil {
			return nil, err
		}
		if !hostNetwork {
			if err := r.engine.ConnectNetwork(ctx, network.Key, name); err != nil {
				return nil, err
			}
		}
		log.info("created container %s (%d/%d)", name, n+1, cargo.Replicas)
	}

	if !createRelation {
		return nil, nil
	}

	inst, err := r.store.CreateCargoInstance(ctx, cargo.Key, cluster.Key, network.Key)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// renderCargoEnv lists a cargo's env rows and a cluster's variables, then
// expands each value through the variable scope (§4.3 step 1), returning a
// flat KEY=value list in the order the rows were created.
func (r *Reconciler) renderCargoEnv(ctx context.Context, clusterKey, cargoKey string) ([]string, error) {
	envRows, err := r.store.ListCargoEnvs(ctx, cargoKey)
	if err != nil {
		return nil, err
	}
	if len(envRows) == 0 {
		return nil, nil
	}

	vars, err := r.clusterVarMap(ctx, clusterKey)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(envRows))
	for _, e := range envRows {
		rendered, err := template.RenderEnvValue(e.Value, vars)
		if err != nil {
			return nil, err
		}
		out = append(out, e.Name+"="+rendered)
	}
	return out, nil
}

func (r *Reconciler) clusterVarMap(ctx context.Context, clusterKey string) (map[string]string, error) {
	rows, err := r.store.ListClusterVariables(ctx, clusterKey)
	if err != nil {
		return nil, err
	}
	vars := make(map[string]string, len(rows))
	for _, v := range rows {
		vars[v.Name] = v.Value
	}
	return vars, nil
}

// sortByName is a small helper the start/update flows share for putting
// engine listings, which arrive in no particular order, into lexicographic
// name order. For names base, base-1 ... base-9 that is ascending N; a name
// ending in -10 sorts before one ending in -2.
func sortByName(summaries []engine.ContainerSummary) {
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
}
