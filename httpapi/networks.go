package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/corvus-sh/orchd/reconciler"
	"github.com/corvus-sh/orchd/store"
)

// NetworkHandler serves cluster-network CRUD, nested under a cluster
// (§6.1: "/clusters/{c}/networks[...], /networks/count").
type NetworkHandler struct {
	store      *store.Store
	reconciler *reconciler.Reconciler
	logger     *slog.Logger
}

func NewNetworkHandler(st *store.Store, rec *reconciler.Reconciler, logger *slog.Logger) *NetworkHandler {
	return &NetworkHandler{store: st, reconciler: rec, logger: logger}
}

func (h *NetworkHandler) List(w http.ResponseWriter, r *http.Request) {
	namespace := queryParam(r, "namespace", "global")
	clusterName := chi.URLParam(r, "cluster")

	cluster, err := h.store.GetCluster(r.Context(), namespace, clusterName)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	networks, err := h.store.ListClusterNetworksByCluster(r.Context(), cluster.Key)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, networks)
}

func (h *NetworkHandler) Count(w http.ResponseWriter, r *http.Request) {
	namespace := queryParam(r, "namespace", "global")
	count, err := h.store.CountNetworksByNamespace(r.Context(), namespace)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, map[string]int{"count": count})
}

type createNetworkRequest struct {
	Name string `json:"name"`
}

func (h *NetworkHandler) Create(w http.ResponseWriter, r *http.Request) {
	namespace := queryParam(r, "namespace", "global")
	clusterName := chi.URLParam(r, "cluster")

	var req createNetworkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}

	cluster, err := h.store.GetCluster(r.Context(), namespace, clusterName)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}

	network, err := h.reconciler.CreateClusterNetwork(r.Context(), cluster, req.Name)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusCreated, network)
}

func (h *NetworkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	namespace := queryParam(r, "namespace", "global")
	clusterName := chi.URLParam(r, "cluster")
	name := chi.URLParam(r, "name")

	cluster, err := h.store.GetCluster(r.Context(), namespace, clusterName)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	network, err := h.store.GetClusterNetworkByKey(r.Context(), cluster.Key+"-"+name)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}

	if err := h.reconciler.DeleteClusterNetwork(r.Context(), network); err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, map[string]string{"key": network.Key})
}
