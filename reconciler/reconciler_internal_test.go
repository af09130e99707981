package reconciler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvus-sh/orchd/model"
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

func TestContainerNameFirstReplicaHasNoSuffix(t *testing.T) {
	cluster := &model.Cluster{Key: "global-web"}
	cargo := &model.Cargo{Name: "api"}

	require.Equal(t, "global-web-api", containerName(cluster, cargo, 0))
}

func TestContainerNameSubsequentReplicasAreSuffixedByIndex(t *testing.T) {
	cluster := &model.Cluster{Key: "global-web"}
	cargo := &model.Cargo{Name: "api"}

	require.Equal(t, "global-web-api-1", containerName(cluster, cargo, 1))
	require.Equal(t, "global-web-api-2", containerName(cluster, cargo, 2))
}

func TestRenderCargoEnvEmptyWhenCargoHasNoEnvRows(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := New(s, nil, t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := s.CreateNamespace(ctx, "global")
	require.NoError(t, err)
	cluster, err := s.CreateCluster(ctx, "global", "web", nil)
	require.NoError(t, err)
	cargo, err := s.CreateCargo(ctx, "global", "api", json.RawMessage(`{}`), 1, "")
	require.NoError(t, err)

	env, err := r.renderCargoEnv(ctx, cluster.Key, cargo.Key)
	require.NoError(t, err)
	require.Empty(t, env)
}

func TestRenderCargoEnvExpandsClusterVariables(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := New(s, nil, t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := s.CreateNamespace(ctx, "global")
	require.NoError(t, err)
	cluster, err := s.CreateCluster(ctx, "global", "web", nil)
	require.NoError(t, err)
	cargo, err := s.CreateCargo(ctx, "global", "api", json.RawMessage(`{}`), 1, "")
	require.NoError(t, err)

	_, err = s.CreateClusterVariable(ctx, cluster.Key, "host", "db.internal")
	require.NoError(t, err)
	_, err = s.CreateCargoEnv(ctx, cargo.Key, "DATABASE_URL", "postgres://{{vars.host}}/app")
	require.NoError(t, err)

	env, err := r.renderCargoEnv(ctx, cluster.Key, cargo.Key)
	require.NoError(t, err)
	require.Equal(t, []string{"DATABASE_URL=postgres://db.internal/app"}, env)
}

func TestClusterVarMapKeysByName(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := New(s, nil, t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := s.CreateNamespace(ctx, "global")
	require.NoError(t, err)
	cluster, err := s.CreateCluster(ctx, "global", "web", nil)
	require.NoError(t, err)
	_, err = s.CreateClusterVariable(ctx, cluster.Key, "region", "eu")
	require.NoError(t, err)

	vars, err := r.clusterVarMap(ctx, cluster.Key)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"region": "eu"}, vars)
}
