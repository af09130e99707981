package engine

import (
	"context"
	"fmt"

	dockernetwork "github.com/docker/docker/api/types/network"

	"github.com/corvus-sh/orchd/corvuserr"
)

// NetworkInfo is what the core needs back from a network create or
// inspect: the engine-assigned id and the gateway of the first IPAM
// config, which §3 says is captured onto the ClusterNetwork row.
type NetworkInfo struct {
	ID             string
	DefaultGateway string
}

// CreateNetwork asks the engine to create a bridge network with the given
// labels, returning its id and the gateway of its first IPAM config (§4.1).
// bridgeName, when non-empty, pins the host-side bridge device name -- used
// only for the side-car controller's system network (§4.5).
func (c *Client) CreateNetwork(ctx context.Context, name string, labels map[string]string, bridgeName string) (*NetworkInfo, error) {
	opts := dockernetwork.CreateOptions{
		Driver: "bridge",
		Labels: labels,
	}
	if bridgeName != "" {
		opts.Options = map[string]string{"com.docker.network.bridge.name": bridgeName}
	}

	resp, err := c.sdk.NetworkCreate(ctx, name, opts)
	if err != nil {
		return nil, corvuserr.Wrap(corvuserr.Internal, fmt.Sprintf("failed to create network %q", name), err)
	}

	return c.InspectNetwork(ctx, resp.ID)
}

// InspectNetwork fetches a network by id or name and extracts the gateway
// of its first IPAM config, if any.
func (c *Client) InspectNetwork(ctx context.Context, idOrName string) (*NetworkInfo, error) {
	resource, err := c.sdk.NetworkInspect(ctx, idOrName, dockernetwork.InspectOptions{})
	if err != nil {
		if dockerclientIsNotFound(err) {
			return nil, corvuserr.New(corvuserr.NotFound, fmt.Sprintf("network %q not found", idOrName))
		}
		return nil, corvuserr.Wrap(corvuserr.EngineUnavailable, fmt.Sprintf("failed to inspect network %q", idOrName), err)
	}

	gateway := ""
	if len(resource.IPAM.Config) > 0 {
		gateway = resource.IPAM.Config[0].Gateway
	}

	return &NetworkInfo{ID: resource.ID, DefaultGateway: gateway}, nil
}

// RemoveNetwork removes a network by id or name. "not found" is success
// (§3: "Deleted by deleting the engine network then the row; a missing
// engine network is not an error").
func (c *Client) RemoveNetwork(ctx context.Context, idOrName string) error {
	err := c.sdk.NetworkRemove(ctx, idOrName)
	if err != nil && !dockerclientIsNotFound(err) {
		return corvuserr.Wrap(corvuserr.EngineUnavailable, fmt.Sprintf("failed to remove network %q", idOrName), err)
	}
	return nil
}
