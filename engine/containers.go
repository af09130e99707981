package engine

import (
	"context"
	"encoding/json"
	"fmt"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	dockernetwork "github.com/docker/docker/api/types/network"
	dockerclient "github.com/docker/docker/client"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/corvus-sh/orchd/corvuserr"
)

// ContainerState is the lifecycle state InspectContainer returns. The cargo
// `config` field stays opaque JSON everywhere except at this boundary,
// where it is parsed into ContainerSpec -- the structural-merge overlay
// point §9 calls out ("Overlays ... are applied as structural merges just
// before the engine call").
type ContainerState string

const (
	StateAbsent  ContainerState = "absent"
	StateStopped ContainerState = "stopped"
	StateRunning ContainerState = "running"
)

// ContainerSpec is the parsed form of a cargo's opaque `config` JSON: the
// container-engine creation payload, with image and host-config. Only this
// package ever unmarshals a cargo's config into a concrete type.
type ContainerSpec struct {
	Image         string   `json:"image"`
	Cmd           []string `json:"cmd,omitempty"`
	Env           []string `json:"env,omitempty"`
	NetworkMode   string   `json:"network_mode,omitempty"`
	RestartPolicy string   `json:"restart_policy,omitempty"`
	Binds         []string `json:"binds,omitempty"`
	Labels        map[string]string `json:"labels,omitempty"`
}

// ParseContainerSpec decodes a cargo's opaque config document. Returns
// BadInput if the document is not valid JSON or has no image set.
func ParseContainerSpec(raw json.RawMessage) (*ContainerSpec, error) {
	var spec ContainerSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, corvuserr.Wrap(corvuserr.BadInput, "malformed container spec", err)
	}
	if spec.Image == "" {
		return nil, corvuserr.New(corvuserr.BadInput, "container spec missing image")
	}
	return &spec, nil
}

// InspectContainer returns the lifecycle state of a container by name.
func (c *Client) InspectContainer(ctx context.Context, name string) (ContainerState, error) {
	info, err := c.sdk.ContainerInspect(ctx, name)
	if err != nil {
		if dockerclientIsNotFound(err) {
			return StateAbsent, nil
		}
		return "", corvuserr.Wrap(corvuserr.EngineUnavailable, fmt.Sprintf("failed to inspect container %q", name), err)
	}
	if info.State != nil && info.State.Running {
		return StateRunning, nil
	}
	return StateStopped, nil
}

// CreateContainer creates (but does not start) a container named `name`
// from spec, with the given extra labels merged in and env overriding/
// extending spec.Env. Returns the new container's id.
func (c *Client) CreateContainer(ctx context.Context, name string, spec *ContainerSpec, labels map[string]string, env []string) (string, error) {
	mergedLabels := map[string]string{}
	for k, v := range spec.Labels {
		mergedLabels[k] = v
	}
	for k, v := range labels {
		mergedLabels[k] = v
	}

	config := &dockercontainer.Config{
		Image:  spec.Image,
		Cmd:    spec.Cmd,
		Env:    append(append([]string{}, spec.Env...), env...),
		Labels: mergedLabels,
	}

	restartPolicyName := dockercontainer.RestartPolicyMode(spec.RestartPolicy)
	if restartPolicyName == "" {
		restartPolicyName = "unless-stopped"
	}

	hostConfig := &dockercontainer.HostConfig{
		Binds:         spec.Binds,
		NetworkMode:   dockercontainer.NetworkMode(spec.NetworkMode),
		RestartPolicy: dockercontainer.RestartPolicy{Name: restartPolicyName},
	}

	var platform *v1.Platform
	resp, err := c.sdk.ContainerCreate(ctx, config, hostConfig, nil, platform, name)
	if err != nil {
		return "", corvuserr.Wrap(corvuserr.Internal, fmt.Sprintf("failed to create container %q", name), err)
	}

	c.logger.Info("container created", "name", name, "id", shortID(resp.ID))
	return resp.ID, nil
}

// StartContainer starts a previously created container by id or name.
func (c *Client) StartContainer(ctx context.Context, idOrName string) error {
	err := c.sdk.ContainerStart(ctx, idOrName, dockercontainer.StartOptions{})
	if err != nil {
		return corvuserr.Wrap(corvuserr.EngineUnavailable, fmt.Sprintf("failed to start container %q", idOrName), err)
	}
	return nil
}

// RestartContainer restarts a running or stopped container by id or name,
// used by template projection to bounce the DNS side-car after the
// aggregate DNS file changes (§4.4: "restart the DNS side-car container").
func (c *Client) RestartContainer(ctx context.Context, idOrName string) error {
	err := c.sdk.ContainerRestart(ctx, idOrName, dockercontainer.StopOptions{})
	if err != nil {
		return corvuserr.Wrap(corvuserr.EngineUnavailable, fmt.Sprintf("failed to restart container %q", idOrName), err)
	}
	return nil
}

// RemoveContainer force-removes a container by id or name. "not found" is
// not surfaced as an error -- the desired end state (container gone) is
// already satisfied, mirroring the teacher's StopAndRemoveContainer
// semantics and §4.1's RemoveContainer contract.
func (c *Client) RemoveContainer(ctx context.Context, idOrName string) error {
	err := c.sdk.ContainerRemove(ctx, idOrName, dockercontainer.RemoveOptions{Force: true})
	if err != nil && !dockerclientIsNotFound(err) {
		return corvuserr.Wrap(corvuserr.EngineUnavailable, fmt.Sprintf("failed to remove container %q", idOrName), err)
	}
	return nil
}

// RenameContainer renames a container, used by UpdateCargoInstance to move
// old containers out of the way (`cargo.name-tmp-N`) before new ones take
// their names.
func (c *Client) RenameContainer(ctx context.Context, idOrName, newName string) error {
	err := c.sdk.ContainerRename(ctx, idOrName, newName)
	if err != nil {
		return corvuserr.Wrap(corvuserr.EngineUnavailable, fmt.Sprintf("failed to rename container %q", idOrName), err)
	}
	return nil
}

// InspectContainerNetworks returns a map of network-name to resolved IP for
// every network the container is attached to.
func (c *Client) InspectContainerNetworks(ctx context.Context, name string) (map[string]string, error) {
	info, err := c.sdk.ContainerInspect(ctx, name)
	if err != nil {
		return nil, corvuserr.Wrap(corvuserr.EngineUnavailable, fmt.Sprintf("failed to inspect container %q", name), err)
	}

	ips := map[string]string{}
	if info.NetworkSettings != nil {
		for netName, settings := range info.NetworkSettings.Networks {
			ips[netName] = settings.IPAddress
		}
	}
	return ips, nil
}

// ListContainers returns every container (including stopped ones) matching
// every key/value pair in labelFilters.
func (c *Client) ListContainers(ctx context.Context, labelFilters map[string]string) ([]ContainerSummary, error) {
	args := filters.NewArgs()
	for k, v := range labelFilters {
		args.Add("label", fmt.Sprintf("%s=%s", k, v))
	}

	list, err := c.sdk.ContainerList(ctx, dockercontainer.ListOptions{All: true, Filters: args})
	if err != nil {
		return nil, corvuserr.Wrap(corvuserr.EngineUnavailable, "failed to list containers", err)
	}

	out := make([]ContainerSummary, 0, len(list))
	for _, item := range list {
		name := ""
		if len(item.Names) > 0 {
			name = item.Names[0][1:] // strip the leading "/" Docker always prefixes names with
		}
		out = append(out, ContainerSummary{ID: item.ID, Name: name, State: item.State, Labels: item.Labels})
	}
	return out, nil
}

// ContainerSummary is the trimmed-down container listing shape the core
// needs: enough to drive label-based reconciliation and the /containers
// passthrough endpoint, nothing more.
type ContainerSummary struct {
	ID     string
	Name   string
	State  string
	Labels map[string]string
}

// CreateExec creates an exec instance inside a running container, used only
// to trigger "reload config" on the proxy side-car (§4.1).
func (c *Client) CreateExec(ctx context.Context, containerName string, argv []string) (string, error) {
	resp, err := c.sdk.ContainerExecCreate(ctx, containerName, dockercontainer.ExecOptions{
		Cmd:          argv,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", corvuserr.Wrap(corvuserr.EngineUnavailable, fmt.Sprintf("failed to create exec in %q", containerName), err)
	}
	return resp.ID, nil
}

// StartExec runs a previously created exec instance to completion
// (detach=false), discarding its output -- callers only need success/failure.
func (c *Client) StartExec(ctx context.Context, execID string) error {
	resp, err := c.sdk.ContainerExecAttach(ctx, execID, dockercontainer.ExecAttachOptions{})
	if err != nil {
		return corvuserr.Wrap(corvuserr.EngineUnavailable, fmt.Sprintf("failed to start exec %q", execID), err)
	}
	defer resp.Close()

	// Drain the attached stream so the exec actually runs to completion;
	// the reload command's own output is not needed by callers.
	buf := make([]byte, 4096)
	for {
		if _, err := resp.Reader.Read(buf); err != nil {
			break
		}
	}
	return nil
}

// ConnectNetwork attaches a running or created container to a named
// network by engine network name.
func (c *Client) ConnectNetwork(ctx context.Context, networkName, containerName string) error {
	err := c.sdk.NetworkConnect(ctx, networkName, containerName, &dockernetwork.EndpointSettings{})
	if err != nil {
		return corvuserr.Wrap(corvuserr.EngineUnavailable, fmt.Sprintf("failed to connect %q to network %q", containerName, networkName), err)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// dockerclientIsNotFound reports whether err represents the engine's
// "no such container/network" response. The SDK's client package exposes
// IsErrNotFound for exactly this, kept local so call sites above read
// as plain bool checks.
func dockerclientIsNotFound(err error) bool {
	return dockerclient.IsErrNotFound(err)
}
