package reconciler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvus-sh/orchd/corvuserr"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// joinedFixture builds a namespace/cluster/network/cargo and joins the
// cargo into the cluster, returning everything a core-operation test needs.
func joinedFixture(t *testing.T, replicas int) (*Reconciler, *fakeEngine, string, string) {
	t.Helper()
	ctx := context.Background()
	s := newTestStore(t)
	eng := newFakeEngine()
	r := New(s, eng, t.TempDir(), discardLogger())

	_, err := s.CreateNamespace(ctx, "global")
	require.NoError(t, err)
	cluster, err := s.CreateCluster(ctx, "global", "web", nil)
	require.NoError(t, err)
	network, err := s.CreateClusterNetwork(ctx, cluster.Key, "global", "front", "net-front", "172.18.0.1")
	require.NoError(t, err)
	cargo, err := s.CreateCargo(ctx, "global", "api", json.RawMessage(`{"image":"nginx:alpine"}`), replicas, "")
	require.NoError(t, err)

	_, err = r.JoinCargo(ctx, cluster, cargo, network, true)
	require.NoError(t, err)

	return r, eng, cluster.Key, cargo.Key
}

func TestJoinCargoCreatesContainersAndInstanceRow(t *testing.T) {
	r, eng, clusterKey, cargoKey := joinedFixture(t, 2)

	require.Len(t, eng.containers, 2)
	inst, err := r.store.GetCargoInstance(context.Background(), clusterKey, cargoKey)
	require.NoError(t, err)
	require.Equal(t, cargoKey, inst.CargoKey)
}

func TestJoinCargoWithoutRelationCreatesContainersOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	eng := newFakeEngine()
	r := New(s, eng, t.TempDir(), discardLogger())

	_, err := s.CreateNamespace(ctx, "global")
	require.NoError(t, err)
	cluster, err := s.CreateCluster(ctx, "global", "web", nil)
	require.NoError(t, err)
	network, err := s.CreateClusterNetwork(ctx, cluster.Key, "global", "front", "net-front", "172.18.0.1")
	require.NoError(t, err)
	cargo, err := s.CreateCargo(ctx, "global", "api", json.RawMessage(`{"image":"nginx:alpine"}`), 1, "")
	require.NoError(t, err)

	inst, err := r.JoinCargo(ctx, cluster, cargo, network, false)
	require.NoError(t, err)
	require.Nil(t, inst)
	require.Len(t, eng.containers, 1)

	_, err = s.GetCargoInstance(ctx, cluster.Key, cargo.Key)
	require.Equal(t, corvuserr.NotFound, corvuserr.KindOf(err))
}

func TestJoinCargoFailsWithImageMissingKind(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	eng := newFakeEngine()
	eng.imageExists = false
	r := New(s, eng, t.TempDir(), discardLogger())

	_, err := s.CreateNamespace(ctx, "global")
	require.NoError(t, err)
	cluster, err := s.CreateCluster(ctx, "global", "web", nil)
	require.NoError(t, err)
	network, err := s.CreateClusterNetwork(ctx, cluster.Key, "global", "front", "net-front", "172.18.0.1")
	require.NoError(t, err)
	cargo, err := s.CreateCargo(ctx, "global", "api", json.RawMessage(`{"image":"nginx:alpine"}`), 1, "")
	require.NoError(t, err)

	_, err = r.JoinCargo(ctx, cluster, cargo, network, true)
	require.Equal(t, corvuserr.ImageMissing, corvuserr.KindOf(err))
	require.Empty(t, eng.containers)
}

func TestStartClusterResolvesTargetIPs(t *testing.T) {
	r, eng, clusterKey, _ := joinedFixture(t, 2)

	err := r.StartCluster(context.Background(), clusterKey)
	require.NoError(t, err)

	for _, c := range eng.containers {
		require.Equal(t, "running", c.state)
		require.NotEmpty(t, c.networks["global-web-front"])
	}
	// an empty proxy_templates list must not trigger the best-effort
	// side-car reload/restart (§8: "does not reload the proxy").
	require.Empty(t, eng.restarted)
	require.Empty(t, eng.execCalls)
}

func TestUpdateCargoInstanceReplacesContainersKeepingBinding(t *testing.T) {
	ctx := context.Background()
	r, eng, clusterKey, cargoKey := joinedFixture(t, 1)
	require.NoError(t, r.StartCluster(ctx, clusterKey))

	var oldID string
	for id := range eng.containers {
		oldID = id
	}

	err := r.UpdateCargoInstance(ctx, clusterKey, cargoKey)
	require.NoError(t, err)

	_, stillExists := eng.containers[oldID]
	require.False(t, stillExists, "old container must be removed after the update completes")
	require.Len(t, eng.containers, 1)

	inst, err := r.store.GetCargoInstance(ctx, clusterKey, cargoKey)
	require.NoError(t, err)
	require.Equal(t, cargoKey, inst.CargoKey)
}

func TestDeleteCargoInstanceRemovesRowAndContainers(t *testing.T) {
	ctx := context.Background()
	r, eng, clusterKey, cargoKey := joinedFixture(t, 2)

	err := r.DeleteCargoInstance(ctx, clusterKey, cargoKey)
	require.NoError(t, err)

	require.Empty(t, eng.containers)
	_, err = r.store.GetCargoInstance(ctx, clusterKey, cargoKey)
	require.Equal(t, corvuserr.NotFound, corvuserr.KindOf(err))
}

func TestRemoveClusterTearsDownNetworksAndClusterRow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	eng := newFakeEngine()
	r := New(s, eng, t.TempDir(), discardLogger())

	_, err := s.CreateNamespace(ctx, "global")
	require.NoError(t, err)
	cluster, err := s.CreateCluster(ctx, "global", "web", nil)
	require.NoError(t, err)
	network, err := s.CreateClusterNetwork(ctx, cluster.Key, "global", "front", "net-front", "172.18.0.1")
	require.NoError(t, err)

	err = r.RemoveCluster(ctx, cluster.Key)
	require.NoError(t, err)

	require.Contains(t, eng.removedNetworks, network.DockerNetworkID)
	_, err = s.GetClusterByKey(ctx, cluster.Key)
	require.Equal(t, corvuserr.NotFound, corvuserr.KindOf(err))
	_, err = s.GetClusterNetworkByKey(ctx, network.Key)
	require.Equal(t, corvuserr.NotFound, corvuserr.KindOf(err))
}

func TestRemoveClusterRefusesWhenInstancesStillExist(t *testing.T) {
	ctx := context.Background()
	r, _, clusterKey, _ := joinedFixture(t, 1)

	err := r.RemoveCluster(ctx, clusterKey)
	require.Equal(t, corvuserr.Conflict, corvuserr.KindOf(err))

	_, getErr := r.store.GetClusterByKey(ctx, clusterKey)
	require.NoError(t, getErr, "a rejected cascade must leave the cluster row intact")
}
