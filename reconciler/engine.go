package reconciler

import (
	"context"

	"github.com/corvus-sh/orchd/engine"
)

// EngineClient is the narrow slice of *engine.Client the reconciler
// actually calls. Declaring it here, rather than depending on the
// concrete type directly, is what lets tests drive JoinCargo, StartCluster,
// UpdateCargoInstance, DeleteCargoInstance, and RemoveCluster against a
// small fake instead of a real container engine (SPEC_FULL.md §8).
type EngineClient interface {
	ImageExists(ctx context.Context, ref string) (bool, error)
	CreateContainer(ctx context.Context, name string, spec *engine.ContainerSpec, labels map[string]string, env []string) (string, error)
	StartContainer(ctx context.Context, idOrName string) error
	RestartContainer(ctx context.Context, idOrName string) error
	RemoveContainer(ctx context.Context, idOrName string) error
	RenameContainer(ctx context.Context, idOrName, newName string) error
	ListContainers(ctx context.Context, labelFilters map[string]string) ([]engine.ContainerSummary, error)
	InspectContainerNetworks(ctx context.Context, name string) (map[string]string, error)
	ConnectNetwork(ctx context.Context, networkName, containerName string) error
	CreateExec(ctx context.Context, containerName string, argv []string) (string, error)
	StartExec(ctx context.Context, execID string) error
	CreateNetwork(ctx context.Context, name string, labels map[string]string, bridgeName string) (*engine.NetworkInfo, error)
	RemoveNetwork(ctx context.Context, idOrName string) error
}
