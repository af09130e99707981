package reconciler

import (
	"context"

	"github.com/corvus-sh/orchd/config"
	"github.com/corvus-sh/orchd/corvuserr"
	"github.com/corvus-sh/orchd/model"
)

// StartCluster starts every container bound to clusterKey, resolves each
// one's address, and runs the end-of-start template projection (§4.3
// StartCluster, §4.4).
func (r *Reconciler) StartCluster(ctx context.Context, clusterKey string) error {
	log := newOpLogger(r.logger, "start_cluster", "cluster", clusterKey)

	cluster, err := r.store.GetClusterByKey(ctx, clusterKey)
	if err != nil {
		return err
	}

	instances, err := r.store.ListCargoInstancesByCluster(ctx, clusterKey)
	if err != nil {
		return err
	}

	cargoes := map[string]model.CargoTemplateData{}
	for _, inst := range instances {
		cargo, err := r.store.GetCargoByKey(ctx, inst.CargoKey)
		if err != nil {
			return err
		}

		data, err := r.startAndResolve(ctx, cluster, cargo, inst)
		if err != nil {
			return err
		}
		cargoes[cargo.Name] = data
		log.info("resolved cargo %s: target_ip=%s (%d instance(s))", cargo.Name, data.TargetIP, len(data.TargetIPs))
	}

	return r.project(ctx, cluster, cargoes)
}

// startAndResolve starts every not-yet-running engine container bound to
// (cluster, cargo) and resolves each one's address on the instance's
// network, per §4.3's StartCluster description.
func (r *Reconciler) startAndResolve(ctx context.Context, cluster *model.Cluster, cargo *model.Cargo, inst *model.CargoInstance) (model.CargoTemplateData, error) {
	network, err := r.store.GetClusterNetworkByKey(ctx, inst.NetworkKey)
	if err != nil {
		if corvuserr.KindOf(err) != corvuserr.NotFound {
			return model.CargoTemplateData{}, err
		}
		network = nil // absent network: every instance resolves to 127.0.0.1
	}

	containers, err := r.engine.ListContainers(ctx, map[string]string{
		"cluster": cluster.Key,
		"cargo":   cargo.Key,
	})
	if err != nil {
		return model.CargoTemplateData{}, err
	}
	sortByName(containers)

	ips := make([]string, 0, len(containers))
	for _, ctr := range containers {
		if ctr.State != "running" {
			if err := r.engine.StartContainer(ctx, ctr.ID); err != nil {
				return model.CargoTemplateData{}, err
			}
		}

		ip := "127.0.0.1"
		if network != nil {
			netIPs, err := r.engine.InspectContainerNetworks(ctx, ctr.Name)
			if err != nil {
				return model.CargoTemplateData{}, err
			}
			if found, ok := netIPs[network.Key]; ok && found != "" {
				ip = found
			}
		}
		ips = append(ips, ip)
	}

	// Reversed: the resolved IPs are collected oldest-first by name order,
	// then reversed so target_ips[0] is the newest container. This is the
	// pinned quirk from §9 -- the rationale is unclear but the behavior is
	// observed and intentional, not a bug to "fix" here.
	reversed := make([]string, len(ips))
	for i, ip := range ips {
		reversed[len(ips)-1-i] = ip
	}

	targetIP := ""
	if len(reversed) > 0 {
		targetIP = reversed[0]
	}

	return model.CargoTemplateData{
		Name:      cargo.Name,
		TargetIP:  targetIP,
		TargetIPs: reversed,
		DNSEntry:  cargo.DNSEntry,
	}, nil
}

// networkTemplateData builds the `networks.<name>` scope for template
// rendering from every network attached to a cluster.
func (r *Reconciler) networkTemplateData(ctx context.Context, clusterKey string) (map[string]model.NetworkTemplateData, error) {
	nets, err := r.store.ListClusterNetworksByCluster(ctx, clusterKey)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.NetworkTemplateData, len(nets))
	for _, n := range nets {
		out[n.Name] = model.NetworkTemplateData{Gateway: n.DefaultGateway}
	}
	return out, nil
}

// sidecar reload targets. Both are best-effort: §4.4 and §5 both call out
// that a failed DNS restart or proxy reload is logged, not fatal.
func (r *Reconciler) restartDNSSidecar(ctx context.Context) error {
	return r.engine.RestartContainer(ctx, config.DNSContainerName)
}

func (r *Reconciler) reloadProxySidecar(ctx context.Context) error {
	execID, err := r.engine.CreateExec(ctx, config.ProxyContainerName, []string{"nginx", "-s", "reload"})
	if err != nil {
		return err
	}
	return r.engine.StartExec(ctx, execID)
}
