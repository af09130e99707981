package reconciler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/corvus-sh/orchd/engine"
)

// fakeEngine is a small in-memory stand-in for *engine.Client, implementing
// EngineClient so the core reconciler operations can be tested without a
// real container engine (SPEC_FULL.md §8).
type fakeEngine struct {
	mu sync.Mutex

	containers  map[string]*fakeContainer
	networks    map[string]*engine.NetworkInfo
	nextID      int
	ipCounter   int
	imageExists bool

	removedNetworks []string
	execCalls       []string
	restarted       []string
}

type fakeContainer struct {
	id       string
	name     string
	labels   map[string]string
	state    string
	networks map[string]string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		containers:  map[string]*fakeContainer{},
		networks:    map[string]*engine.NetworkInfo{},
		imageExists: true,
	}
}

func (f *fakeEngine) find(idOrName string) *fakeContainer {
	if c, ok := f.containers[idOrName]; ok {
		return c
	}
	for _, c := range f.containers {
		if c.name == idOrName {
			return c
		}
	}
	return nil
}

func matchesLabels(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

func (f *fakeEngine) ImageExists(ctx context.Context, ref string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.imageExists, nil
}

func (f *fakeEngine) CreateContainer(ctx context.Context, name string, spec *engine.ContainerSpec, labels map[string]string, env []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("ctr-%d", f.nextID)
	f.containers[id] = &fakeContainer{id: id, name: name, labels: labels, state: "stopped", networks: map[string]string{}}
	return id, nil
}

func (f *fakeEngine) StartContainer(ctx context.Context, idOrName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ctr := f.find(idOrName); ctr != nil {
		ctr.state = "running"
	}
	return nil
}

func (f *fakeEngine) RestartContainer(ctx context.Context, idOrName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restarted = append(f.restarted, idOrName)
	if ctr := f.find(idOrName); ctr != nil {
		ctr.state = "running"
	}
	return nil
}

func (f *fakeEngine) RemoveContainer(ctx context.Context, idOrName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ctr := f.find(idOrName); ctr != nil {
		delete(f.containers, ctr.id)
	}
	return nil
}

func (f *fakeEngine) RenameContainer(ctx context.Context, idOrName, newName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ctr := f.find(idOrName); ctr != nil {
		ctr.name = newName
	}
	return nil
}

func (f *fakeEngine) ListContainers(ctx context.Context, labelFilters map[string]string) ([]engine.ContainerSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []engine.ContainerSummary
	for _, c := range f.containers {
		if matchesLabels(c.labels, labelFilters) {
			out = append(out, engine.ContainerSummary{ID: c.id, Name: c.name, State: c.state, Labels: c.labels})
		}
	}
	return out, nil
}

func (f *fakeEngine) InspectContainerNetworks(ctx context.Context, name string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ctr := f.find(name)
	if ctr == nil {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(ctr.networks))
	for k, v := range ctr.networks {
		out[k] = v
	}
	return out, nil
}

func (f *fakeEngine) ConnectNetwork(ctx context.Context, networkName, containerName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ctr := f.find(containerName)
	if ctr == nil {
		return nil
	}
	f.ipCounter++
	ctr.networks[networkName] = fmt.Sprintf("172.18.0.%d", f.ipCounter)
	return nil
}

func (f *fakeEngine) CreateExec(ctx context.Context, containerName string, argv []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.execCalls = append(f.execCalls, containerName+":"+strings.Join(argv, " "))
	return fmt.Sprintf("exec-%d", f.nextID), nil
}

func (f *fakeEngine) StartExec(ctx context.Context, execID string) error {
	return nil
}

func (f *fakeEngine) CreateNetwork(ctx context.Context, name string, labels map[string]string, bridgeName string) (*engine.NetworkInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info := &engine.NetworkInfo{ID: "net-" + name, DefaultGateway: "172.18.0.1"}
	f.networks[name] = info
	return info, nil
}

func (f *fakeEngine) RemoveNetwork(ctx context.Context, idOrName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removedNetworks = append(f.removedNetworks, idOrName)
	delete(f.networks, idOrName)
	return nil
}
