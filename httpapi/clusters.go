package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/corvus-sh/orchd/reconciler"
	"github.com/corvus-sh/orchd/store"
)

// ClusterHandler serves cluster CRUD plus the start/join/update/delete
// operations that drive the reconciler (§6.1).
type ClusterHandler struct {
	store      *store.Store
	reconciler *reconciler.Reconciler
	logger     *slog.Logger
}

func NewClusterHandler(st *store.Store, rec *reconciler.Reconciler, logger *slog.Logger) *ClusterHandler {
	return &ClusterHandler{store: st, reconciler: rec, logger: logger}
}

func (h *ClusterHandler) List(w http.ResponseWriter, r *http.Request) {
	namespace := queryParam(r, "namespace", "global")
	clusters, err := h.store.ListClustersByNamespace(r.Context(), namespace)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, clusters)
}

func (h *ClusterHandler) Count(w http.ResponseWriter, r *http.Request) {
	namespace := queryParam(r, "namespace", "global")
	count, err := h.store.CountClustersByNamespace(r.Context(), namespace)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, map[string]int{"count": count})
}

type createClusterRequest struct {
	Name           string   `json:"name"`
	ProxyTemplates []string `json:"proxy_templates"`
}

func (h *ClusterHandler) Create(w http.ResponseWriter, r *http.Request) {
	namespace := queryParam(r, "namespace", "global")

	var req createClusterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}

	cluster, err := h.store.CreateCluster(r.Context(), namespace, req.Name, req.ProxyTemplates)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusCreated, cluster)
}

func (h *ClusterHandler) Inspect(w http.ResponseWriter, r *http.Request) {
	namespace := queryParam(r, "namespace", "global")
	name := chi.URLParam(r, "name")

	cluster, err := h.store.GetCluster(r.Context(), namespace, name)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, cluster)
}

func (h *ClusterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	namespace := queryParam(r, "namespace", "global")
	name := chi.URLParam(r, "name")

	cluster, err := h.store.GetCluster(r.Context(), namespace, name)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	if err := h.reconciler.RemoveCluster(r.Context(), cluster.Key); err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, map[string]string{"key": cluster.Key})
}

// Start handles POST /clusters/{name}/start.
func (h *ClusterHandler) Start(w http.ResponseWriter, r *http.Request) {
	namespace := queryParam(r, "namespace", "global")
	name := chi.URLParam(r, "name")

	cluster, err := h.store.GetCluster(r.Context(), namespace, name)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	if err := h.reconciler.StartCluster(r.Context(), cluster.Key); err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, map[string]string{"key": cluster.Key})
}

type joinClusterRequest struct {
	Cargo   string `json:"cargo"`
	Network string `json:"network"`
}

// Join handles POST /clusters/{name}/join.
func (h *ClusterHandler) Join(w http.ResponseWriter, r *http.Request) {
	namespace := queryParam(r, "namespace", "global")
	name := chi.URLParam(r, "name")

	var req joinClusterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}

	cluster, err := h.store.GetCluster(r.Context(), namespace, name)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	cargo, err := h.store.GetCargo(r.Context(), namespace, req.Cargo)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	network, err := h.store.GetClusterNetworkByKey(r.Context(), cluster.Key+"-"+req.Network)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}

	inst, err := h.reconciler.JoinCargo(r.Context(), cluster, cargo, network, true)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusCreated, inst)
}

// UpdateCargoInstance handles PATCH /clusters/{name}/cargoes/{cargo}.
func (h *ClusterHandler) UpdateCargoInstance(w http.ResponseWriter, r *http.Request) {
	namespace := queryParam(r, "namespace", "global")
	name := chi.URLParam(r, "name")
	cargoName := chi.URLParam(r, "cargo")

	cluster, err := h.store.GetCluster(r.Context(), namespace, name)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	cargo, err := h.store.GetCargo(r.Context(), namespace, cargoName)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}

	if err := h.reconciler.UpdateCargoInstance(r.Context(), cluster.Key, cargo.Key); err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, map[string]string{"cargo": cargo.Key, "cluster": cluster.Key})
}

// DeleteCargoInstance handles DELETE /clusters/{name}/cargoes/{cargo}.
func (h *ClusterHandler) DeleteCargoInstance(w http.ResponseWriter, r *http.Request) {
	namespace := queryParam(r, "namespace", "global")
	name := chi.URLParam(r, "name")
	cargoName := chi.URLParam(r, "cargo")

	cluster, err := h.store.GetCluster(r.Context(), namespace, name)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	cargo, err := h.store.GetCargo(r.Context(), namespace, cargoName)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}

	if err := h.reconciler.DeleteCargoInstance(r.Context(), cluster.Key, cargo.Key); err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, map[string]string{"cargo": cargo.Key, "cluster": cluster.Key})
}
