package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/corvus-sh/orchd/store"
)

// VariableHandler serves cluster-variable CRUD, nested under a cluster
// (§6.1: "/clusters/{c}/variables[...]").
type VariableHandler struct {
	store  *store.Store
	logger *slog.Logger
}

func NewVariableHandler(st *store.Store, logger *slog.Logger) *VariableHandler {
	return &VariableHandler{store: st, logger: logger}
}

func (h *VariableHandler) List(w http.ResponseWriter, r *http.Request) {
	namespace := queryParam(r, "namespace", "global")
	clusterName := chi.URLParam(r, "cluster")

	cluster, err := h.store.GetCluster(r.Context(), namespace, clusterName)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	vars, err := h.store.ListClusterVariables(r.Context(), cluster.Key)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, vars)
}

type createVariableRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (h *VariableHandler) Create(w http.ResponseWriter, r *http.Request) {
	namespace := queryParam(r, "namespace", "global")
	clusterName := chi.URLParam(r, "cluster")

	var req createVariableRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}

	cluster, err := h.store.GetCluster(r.Context(), namespace, clusterName)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}

	v, err := h.store.CreateClusterVariable(r.Context(), cluster.Key, req.Name, req.Value)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusCreated, v)
}

func (h *VariableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	namespace := queryParam(r, "namespace", "global")
	clusterName := chi.URLParam(r, "cluster")
	name := chi.URLParam(r, "name")

	cluster, err := h.store.GetCluster(r.Context(), namespace, clusterName)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}

	if err := h.store.DeleteClusterVariable(r.Context(), cluster.Key+"-"+name); err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, map[string]string{"name": name})
}
