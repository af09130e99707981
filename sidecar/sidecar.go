// Package sidecar brings up the daemon's own infrastructure before it
// starts serving traffic: the shared bridge network, and the proxy and DNS
// containers the reconciler's template projection step later reloads.
// Grounded on original_source/src/state/init.rs's init() sequence:
// ensure_system_network -> ensure_store -> register_dependencies (default
// namespace, system namespace, system cluster, system network, store/
// proxy/dns registration, daemon registration).
package sidecar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/corvus-sh/orchd/config"
	"github.com/corvus-sh/orchd/engine"
	"github.com/corvus-sh/orchd/model"
	"github.com/corvus-sh/orchd/store"
)

// proxyImage and dnsImage are the infrastructure containers the controller
// brings up. nginx:alpine continues the image choice already established
// for HTTP serving; 4km3/dnsmasq is a small, widely used dnsmasq image.
const (
	proxyImage = "nginx:alpine"
	dnsImage   = "4km3/dnsmasq:2.90"
)

// Controller owns the daemon's one-time start-up bring-up sequence. It
// holds exactly the process-wide state §9 allows: the engine client, the
// store, and the daemon configuration struct, all already initialised by
// the time Bootstrap is called.
type Controller struct {
	store  *store.Store
	engine *engine.Client
	cfg    *config.AppConfig
	logger *slog.Logger
}

func New(st *store.Store, eng *engine.Client, cfg *config.AppConfig, logger *slog.Logger) *Controller {
	return &Controller{store: st, engine: eng, cfg: cfg, logger: logger}
}

// Bootstrap runs the full §4.5 sequence. It is idempotent: every step
// tolerates the row or container already existing, so it is safe to call
// on every daemon start, not only the first one.
func (c *Controller) Bootstrap(ctx context.Context) error {
	c.logger.Info("side-car bootstrap starting")

	netInfo, err := c.ensureSystemNetwork(ctx)
	if err != nil {
		return fmt.Errorf("failed to ensure system network: %w", err)
	}

	if err := c.ensureNamespace(ctx, config.DefaultNamespace); err != nil {
		return fmt.Errorf("failed to ensure default namespace: %w", err)
	}
	if err := c.ensureNamespace(ctx, config.SystemNamespace); err != nil {
		return fmt.Errorf("failed to ensure system namespace: %w", err)
	}

	cluster, err := c.ensureSystemCluster(ctx)
	if err != nil {
		return fmt.Errorf("failed to ensure system cluster: %w", err)
	}

	network, err := c.ensureSystemNetworkRow(ctx, cluster, netInfo)
	if err != nil {
		return fmt.Errorf("failed to ensure system network row: %w", err)
	}

	if err := c.ensureRowOnlyCargo(ctx, cluster, network, config.StoreCargoKey, "store"); err != nil {
		return fmt.Errorf("failed to ensure store cargo row: %w", err)
	}
	if err := c.ensureRowOnlyCargo(ctx, cluster, network, config.DaemonCargoKey, "daemon"); err != nil {
		return fmt.Errorf("failed to ensure daemon registration: %w", err)
	}

	if err := c.ensureSidecarContainer(ctx, cluster, network, config.ProxyCargoKey, "proxy", config.ProxyContainerName, proxyImage,
		[]string{c.cfg.StateDir + "/nginx:/etc/nginx/conf.d"}); err != nil {
		return fmt.Errorf("failed to ensure proxy side-car: %w", err)
	}
	if err := c.ensureSidecarContainer(ctx, cluster, network, config.DNSCargoKey, "dns", config.DNSContainerName, dnsImage,
		[]string{c.cfg.StateDir + "/dnsmasq/dnsmasq.d:/etc/dnsmasq.d"}); err != nil {
		return fmt.Errorf("failed to ensure dns side-car: %w", err)
	}

	c.logger.Info("side-car bootstrap complete")
	return nil
}

// ensureSystemNetwork ensures the bridge network used by every system-owned
// container exists, creating it if absent (§4.5 step 1).
func (c *Controller) ensureSystemNetwork(ctx context.Context) (*engine.NetworkInfo, error) {
	info, err := c.engine.InspectNetwork(ctx, c.cfg.SystemNetworkName)
	if err == nil {
		return info, nil
	}

	labels := map[string]string{"namespace": config.SystemNamespace}
	return c.engine.CreateNetwork(ctx, c.cfg.SystemNetworkName, labels, c.cfg.SystemBridgeName)
}

func (c *Controller) ensureNamespace(ctx context.Context, name string) error {
	if _, err := c.store.GetNamespace(ctx, name); err == nil {
		return nil
	}
	_, err := c.store.CreateNamespace(ctx, name)
	return err
}

func (c *Controller) ensureSystemCluster(ctx context.Context) (*model.Cluster, error) {
	cluster, err := c.store.GetCluster(ctx, config.SystemNamespace, "nano")
	if err == nil {
		return cluster, nil
	}
	return c.store.CreateCluster(ctx, config.SystemNamespace, "nano", nil)
}

func (c *Controller) ensureSystemNetworkRow(ctx context.Context, cluster *model.Cluster, netInfo *engine.NetworkInfo) (*model.ClusterNetwork, error) {
	network, err := c.store.GetClusterNetworkByKey(ctx, config.SystemNetworkKey)
	if err == nil {
		return network, nil
	}
	return c.store.CreateClusterNetwork(ctx, cluster.Key, config.SystemNamespace, "internal0", netInfo.ID, netInfo.DefaultGateway)
}

// ensureRowOnlyCargo registers a cargo + cargo-instance pair for an
// infrastructure dependency that has no engine container of its own: the
// embedded store, and the daemon process itself (§4.5 step 4: "cargo rows
// for the store... the daemon's own container is likewise registered").
// Unlike ensureSidecarContainer it never touches the engine -- there is no
// Uninstalled/Stopped/Running state to run when the thing being registered
// isn't an engine-managed container in this embedded-store architecture
// (see DESIGN.md's open-question resolution on this point).
func (c *Controller) ensureRowOnlyCargo(ctx context.Context, cluster *model.Cluster, network *model.ClusterNetwork, cargoKey, cargoName string) error {
	cargo, err := c.store.GetCargoByKey(ctx, cargoKey)
	if err != nil {
		cargo, err = c.store.CreateCargo(ctx, config.SystemNamespace, cargoName, json.RawMessage(`{}`), 1, "")
		if err != nil {
			return err
		}
	}

	if _, err := c.store.GetCargoInstance(ctx, cluster.Key, cargo.Key); err != nil {
		if _, err := c.store.CreateCargoInstance(ctx, cargo.Key, cluster.Key, network.Key); err != nil {
			return err
		}
	}
	return nil
}

// ensureSidecarContainer registers a cargo + cargo-instance for an
// infrastructure container (proxy/dns) if missing, then ensures the
// underlying engine container exists and is running -- the
// Uninstalled -> Stopped -> Running state machine §4.5 describes.
func (c *Controller) ensureSidecarContainer(ctx context.Context, cluster *model.Cluster, network *model.ClusterNetwork, cargoKey, cargoName, containerName, image string, binds []string) error {
	cargo, err := c.store.GetCargoByKey(ctx, cargoKey)
	if err != nil {
		spec := engine.ContainerSpec{Image: image, Binds: binds}
		raw, marshalErr := json.Marshal(spec)
		if marshalErr != nil {
			return fmt.Errorf("failed to marshal side-car container spec: %w", marshalErr)
		}
		cargo, err = c.store.CreateCargo(ctx, config.SystemNamespace, cargoName, raw, 1, "")
		if err != nil {
			return err
		}
	}

	if _, err := c.store.GetCargoInstance(ctx, cluster.Key, cargo.Key); err != nil {
		if _, err := c.store.CreateCargoInstance(ctx, cargo.Key, cluster.Key, network.Key); err != nil {
			return err
		}
	}

	state, err := c.engine.InspectContainer(ctx, containerName)
	if err != nil {
		return err
	}

	switch state {
	case engine.StateAbsent:
		spec, err := engine.ParseContainerSpec(cargo.Config)
		if err != nil {
			return err
		}
		labels := map[string]string{"namespace": config.SystemNamespace, "cluster": cluster.Key, "cargo": cargo.Key}
		id, err := c.engine.CreateContainer(ctx, containerName, spec, labels, nil)
		if err != nil {
			return err
		}
		if err := c.engine.StartContainer(ctx, id); err != nil {
			return err
		}
		if err := c.engine.ConnectNetwork(ctx, network.Key, containerName); err != nil {
			return err
		}
	case engine.StateStopped:
		if err := c.engine.StartContainer(ctx, containerName); err != nil {
			return err
		}
	case engine.StateRunning:
		// already up, nothing to do
	}

	return nil
}
