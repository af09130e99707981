package httpapi

import (
	"net/http"
)

// Version and Commit are overridden at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

type versionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// VersionHandler serves GET /version (§6.1).
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONAndRespond(w, http.StatusOK, versionInfo{Version: Version, Commit: Commit})
}
