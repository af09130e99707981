package httpapi_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvus-sh/orchd/httpapi"
	"github.com/corvus-sh/orchd/reconciler"
	"github.com/corvus-sh/orchd/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "corvus.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := store.Open(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	rec := reconciler.New(s, nil, t.TempDir(), logger)

	return httpapi.NewRouter(httpapi.RouterDependencies{
		Store:         s,
		Engine:        nil,
		Reconciler:    rec,
		Logger:        logger,
		AllowedOrigin: "*",
	})
}

func TestVersionEndpointReturnsBuildMetadata(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Contains(t, body, "version")
	require.Contains(t, body, "commit")
}

func TestNamespaceCreateThenInspect(t *testing.T) {
	router := newTestRouter(t)

	createReq := httptest.NewRequest(http.MethodPost, "/namespaces/", strings.NewReader(`{"name":"global"}`))
	createRR := httptest.NewRecorder()
	router.ServeHTTP(createRR, createReq)
	require.Equal(t, http.StatusCreated, createRR.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/namespaces/global", nil)
	getRR := httptest.NewRecorder()
	router.ServeHTTP(getRR, getReq)
	require.Equal(t, http.StatusOK, getRR.Code)
}

func TestNamespaceInspectMissingReturnsNotFound(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/namespaces/does-not-exist", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestNamespaceDuplicateCreateReturnsConflict(t *testing.T) {
	router := newTestRouter(t)

	first := httptest.NewRequest(http.MethodPost, "/namespaces/", strings.NewReader(`{"name":"global"}`))
	router.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/namespaces/", strings.NewReader(`{"name":"global"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, second)

	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestCreateNamespaceMalformedBodyReturnsBadRequest(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/namespaces/", strings.NewReader(`{not-json`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestClusterCreateThenListUnderNamespace(t *testing.T) {
	router := newTestRouter(t)

	nsReq := httptest.NewRequest(http.MethodPost, "/namespaces/", strings.NewReader(`{"name":"global"}`))
	router.ServeHTTP(httptest.NewRecorder(), nsReq)

	clusterReq := httptest.NewRequest(http.MethodPost, "/clusters/?namespace=global", strings.NewReader(`{"name":"web"}`))
	clusterRR := httptest.NewRecorder()
	router.ServeHTTP(clusterRR, clusterReq)
	require.Equal(t, http.StatusCreated, clusterRR.Code)

	listReq := httptest.NewRequest(http.MethodGet, "/clusters/?namespace=global", nil)
	listRR := httptest.NewRecorder()
	router.ServeHTTP(listRR, listReq)
	require.Equal(t, http.StatusOK, listRR.Code)

	var clusters []map[string]any
	require.NoError(t, json.Unmarshal(listRR.Body.Bytes(), &clusters))
	require.Len(t, clusters, 1)
}
