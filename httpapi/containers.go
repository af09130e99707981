package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/corvus-sh/orchd/engine"
)

// ContainerHandler serves GET /containers, a read-only listing filtered by
// the core's own labels (§6.1).
type ContainerHandler struct {
	engine *engine.Client
	logger *slog.Logger
}

func NewContainerHandler(eng *engine.Client, logger *slog.Logger) *ContainerHandler {
	return &ContainerHandler{engine: eng, logger: logger}
}

func (h *ContainerHandler) List(w http.ResponseWriter, r *http.Request) {
	labels := map[string]string{}
	if namespace := r.URL.Query().Get("namespace"); namespace != "" {
		labels["namespace"] = namespace
	}
	if cluster := r.URL.Query().Get("cluster"); cluster != "" {
		labels["cluster"] = cluster
	}
	if cargo := r.URL.Query().Get("cargo"); cargo != "" {
		labels["cargo"] = cargo
	}

	containers, err := h.engine.ListContainers(r.Context(), labels)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, containers)
}
