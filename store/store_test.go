package store_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvus-sh/orchd/corvuserr"
	"github.com/corvus-sh/orchd/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "corvus.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	s, err := store.Open(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNamespaceCreateThenGetRoundTrips(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateNamespace(ctx, "global")
	require.NoError(t, err)

	got, err := s.GetNamespace(ctx, "global")
	require.NoError(t, err)
	require.Equal(t, "global", got.Name)
}

func TestNamespaceDuplicateCreateConflicts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateNamespace(ctx, "global")
	require.NoError(t, err)

	_, err = s.CreateNamespace(ctx, "global")
	require.Error(t, err)
	require.Equal(t, corvuserr.Conflict, corvuserr.KindOf(err))
}

func TestClusterKeyIsNamespaceDashName(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateNamespace(ctx, "global")
	require.NoError(t, err)

	cluster, err := s.CreateCluster(ctx, "global", "web", nil)
	require.NoError(t, err)
	require.Equal(t, "global-web", cluster.Key)
}

func TestCargoInstanceKeyIsClusterKeyDashCargoKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateNamespace(ctx, "global")
	require.NoError(t, err)
	cluster, err := s.CreateCluster(ctx, "global", "web", nil)
	require.NoError(t, err)
	cargo, err := s.CreateCargo(ctx, "global", "api", json.RawMessage(`{}`), 1, "")
	require.NoError(t, err)
	net, err := s.CreateClusterNetwork(ctx, cluster.Key, "global", "front", "netid", "172.18.0.1")
	require.NoError(t, err)

	inst, err := s.CreateCargoInstance(ctx, cargo.Key, cluster.Key, net.Key)
	require.NoError(t, err)
	require.Equal(t, cluster.Key+"-"+cargo.Key, inst.Key)
}

func TestSecondJoinOnSamePairConflicts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateNamespace(ctx, "global")
	require.NoError(t, err)
	cluster, err := s.CreateCluster(ctx, "global", "web", nil)
	require.NoError(t, err)
	cargo, err := s.CreateCargo(ctx, "global", "api", json.RawMessage(`{}`), 2, "")
	require.NoError(t, err)
	net, err := s.CreateClusterNetwork(ctx, cluster.Key, "global", "front", "netid", "172.18.0.1")
	require.NoError(t, err)

	_, err = s.CreateCargoInstance(ctx, cargo.Key, cluster.Key, net.Key)
	require.NoError(t, err)

	_, err = s.CreateCargoInstance(ctx, cargo.Key, cluster.Key, net.Key)
	require.Error(t, err)
	require.Equal(t, corvuserr.Conflict, corvuserr.KindOf(err))
}

func TestDeleteNamespaceWithCargoConflicts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateNamespace(ctx, "global")
	require.NoError(t, err)
	_, err = s.CreateCargo(ctx, "global", "api", json.RawMessage(`{}`), 1, "")
	require.NoError(t, err)

	err = s.DeleteNamespace(ctx, "global")
	require.Error(t, err)
	require.Equal(t, corvuserr.Conflict, corvuserr.KindOf(err))
}

func TestDeleteCargoOrderInstancesEnvCargo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateNamespace(ctx, "global")
	require.NoError(t, err)
	cluster, err := s.CreateCluster(ctx, "global", "web", nil)
	require.NoError(t, err)
	cargo, err := s.CreateCargo(ctx, "global", "api", json.RawMessage(`{}`), 1, "")
	require.NoError(t, err)
	net, err := s.CreateClusterNetwork(ctx, cluster.Key, "global", "front", "netid", "172.18.0.1")
	require.NoError(t, err)
	_, err = s.CreateCargoInstance(ctx, cargo.Key, cluster.Key, net.Key)
	require.NoError(t, err)
	_, err = s.CreateCargoEnv(ctx, cargo.Key, "MODE", "prod")
	require.NoError(t, err)

	// deleting the cargo while an instance references it must fail
	err = s.DeleteCargo(ctx, cargo.Key)
	require.Error(t, err)
	require.Equal(t, corvuserr.Conflict, corvuserr.KindOf(err))

	require.NoError(t, s.DeleteCargoInstance(ctx, cluster.Key, cargo.Key))
	require.NoError(t, s.DeleteCargoEnvsByCargo(ctx, cargo.Key))
	require.NoError(t, s.DeleteCargo(ctx, cargo.Key))
}
