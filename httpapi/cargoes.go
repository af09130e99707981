package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/corvus-sh/orchd/engine"
	"github.com/corvus-sh/orchd/reconciler"
	"github.com/corvus-sh/orchd/store"
)

// CargoHandler serves cargo CRUD and the image passthrough endpoints
// (§6.1).
type CargoHandler struct {
	store      *store.Store
	reconciler *reconciler.Reconciler
	engine     *engine.Client
	logger     *slog.Logger
}

func NewCargoHandler(st *store.Store, rec *reconciler.Reconciler, eng *engine.Client, logger *slog.Logger) *CargoHandler {
	return &CargoHandler{store: st, reconciler: rec, engine: eng, logger: logger}
}

func (h *CargoHandler) List(w http.ResponseWriter, r *http.Request) {
	namespace := queryParam(r, "namespace", "global")
	cargoes, err := h.store.ListCargoesByNamespace(r.Context(), namespace)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, cargoes)
}

func (h *CargoHandler) Count(w http.ResponseWriter, r *http.Request) {
	namespace := queryParam(r, "namespace", "global")
	count, err := h.store.CountCargoesByNamespace(r.Context(), namespace)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, map[string]int{"count": count})
}

type createCargoRequest struct {
	Name     string          `json:"name"`
	Config   json.RawMessage `json:"config"`
	Replicas int             `json:"replicas"`
	DNSEntry string          `json:"dns_entry"`
}

func (h *CargoHandler) Create(w http.ResponseWriter, r *http.Request) {
	namespace := queryParam(r, "namespace", "global")

	var req createCargoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}

	cargo, err := h.store.CreateCargo(r.Context(), namespace, req.Name, req.Config, req.Replicas, req.DNSEntry)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusCreated, cargo)
}

func (h *CargoHandler) Inspect(w http.ResponseWriter, r *http.Request) {
	namespace := queryParam(r, "namespace", "global")
	name := chi.URLParam(r, "name")

	cargo, err := h.store.GetCargo(r.Context(), namespace, name)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, cargo)
}

// Delete cascades instances, env, and engine containers (§6.1).
func (h *CargoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	namespace := queryParam(r, "namespace", "global")
	name := chi.URLParam(r, "name")

	cargo, err := h.store.GetCargo(r.Context(), namespace, name)
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}

	if err := h.reconciler.DeleteCargo(r.Context(), cargo.Key); err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, map[string]string{"key": cargo.Key})
}

// ListImages handles GET /cargoes/images, a passthrough to the engine's
// image listing.
func (h *CargoHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.engine.ListImages(r.Context())
	if err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, images)
}

// PullImage handles POST /cargoes/images: a streamed progress body in the
// §6.2 length-prefixed JSON format.
func (h *CargoHandler) PullImage(w http.ResponseWriter, r *http.Request) {
	ref := queryParam(r, "ref", "")
	if ref == "" {
		writeErrorJSONAndLogIt(w, h.logger, missingRefErr())
		return
	}

	w.Header().Set("Content-Type", "nanocl/streaming-v1")
	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)

	err := h.engine.PullImage(r.Context(), ref, func(evt engine.PullProgressEvent) {
		writeStreamedRecord(w, evt)
		if canFlush {
			flusher.Flush()
		}
	})
	if err != nil {
		h.logger.Error("image pull stream ended with an error", "ref", ref, "error", err)
	}
}

// RemoveImage handles DELETE /cargoes/images/{ref}.
func (h *CargoHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	if err := h.engine.RemoveImage(r.Context(), ref); err != nil {
		writeErrorJSONAndLogIt(w, h.logger, err)
		return
	}
	writeJSONAndRespond(w, http.StatusOK, map[string]string{"ref": ref})
}
