// Package httpapi is the HTTP surface (§6.1): request decoding, routing,
// and error-to-status mapping over the reconciler, store, and engine
// packages. Handlers are thin translation layers; no reconciliation logic
// lives here, mirroring the teacher's handlers package.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/corvus-sh/orchd/corvuserr"
)

// writeJSONAndRespond marshals payload and writes it with the given status
// code, deduplicating the header-set/marshal/write triplet every handler
// would otherwise repeat.
func writeJSONAndRespond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"msg":"internal encoding error"}`, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	w.Write(data) //nolint:errcheck
}

// writeErrorJSONAndLogIt converts err into the {status, msg} wire shape
// §7 mandates, logging the underlying error server-side first.
func writeErrorJSONAndLogIt(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusForKind(corvuserr.KindOf(err))
	logger.Error("request error", "status", status, "error", err)
	msg := err.Error()
	var cerr *corvuserr.Error
	if errors.As(err, &cerr) {
		msg = cerr.Msg
	}
	writeJSONAndRespond(w, status, map[string]string{"msg": msg})
}

// statusForKind maps the error taxonomy of §7 onto HTTP status codes.
func statusForKind(kind corvuserr.Kind) int {
	switch kind {
	case corvuserr.NotFound:
		return http.StatusNotFound
	case corvuserr.Conflict:
		return http.StatusConflict
	case corvuserr.BadInput:
		return http.StatusBadRequest
	case corvuserr.ImageMissing:
		return http.StatusUnprocessableEntity
	case corvuserr.EngineUnavailable, corvuserr.StoreUnavailable:
		return http.StatusServiceUnavailable
	case corvuserr.TemplateRender, corvuserr.FilesystemError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes the request body into dst, returning a BadInput error
// on malformed JSON so handlers can route it straight through
// writeErrorJSONAndLogIt.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return corvuserr.Wrap(corvuserr.BadInput, "malformed request body", err)
	}
	return nil
}

func queryParam(r *http.Request, name, fallback string) string {
	if v := r.URL.Query().Get(name); v != "" {
		return v
	}
	return fallback
}
