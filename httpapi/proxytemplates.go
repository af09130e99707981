package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/corvus-sh/orchd/model"
	"github.com/corvus-sh/orchd/store"
)

// ProxyTemplateHandler serves proxy-template CRUD (§6.1).
type ProxyTemplateHandler struct {
	store  *store.Store
	logger *slog.Logger
}

func NewProxyTemplateHandler(st *store.Store, logger *slog.Logger) *ProxyTemplateHandler {
	return &ProxyTemplateHandler{store: st, logger: logger}
}

func (h *ProxyTemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.ListProxyTemplates(r.Context())
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, templates)
}

type createProxyTemplateRequest struct {
	Name    string                  `json:"name"`
	Mode    model.ProxyTemplateMode `json:"mode"`
	Content string                  `json:"content"`
}

func (h *ProxyTemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProxyTemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}

	tpl, err := h.store.CreateProxyTemplate(r.Context(), req.Name, req.Mode, req.Content)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusCreated, tpl)
}

func (h *ProxyTemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.store.DeleteProxyTemplate(r.Context(), name); err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, map[string]string{"name": name})
}
