package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/corvus-sh/orchd/store"
)

// NamespaceHandler serves namespace CRUD (§6.1).
type NamespaceHandler struct {
	store  *store.Store
	logger *slog.Logger
}

func NewNamespaceHandler(st *store.Store, logger *slog.Logger) *NamespaceHandler {
	return &NamespaceHandler{store: st, logger: logger}
}

func (h *NamespaceHandler) List(w http.ResponseWriter, r *http.Request) {
	namespaces, err := h.store.ListNamespaces(r.Context())
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, namespaces)
}

type createNamespaceRequest struct {
	Name string `json:"name"`
}

func (h *NamespaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createNamespaceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}

	ns, err := h.store.CreateNamespace(r.Context(), req.Name)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusCreated, ns)
}

func (h *NamespaceHandler) Inspect(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ns, err := h.store.GetNamespace(r.Context(), name)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, ns)
}

func (h *NamespaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.store.DeleteNamespace(r.Context(), name); err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, map[string]string{"name": name})
}
