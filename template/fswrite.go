// Package template renders proxy and DNS configuration from live cluster
// state and writes it into the on-disk layout §6.4 defines, mirroring the
// teacher's util.CopyDirectory in its care around directory creation and
// truncating writes -- but scoped to single rendered files, not whole trees.
package template

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/corvus-sh/orchd/corvuserr"
)

// WriteFile writes data to path, creating any missing parent directories
// and truncating prior content (§4.4 step 5: "Write the rendered bytes to
// the output path, truncating any prior content").
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return corvuserr.Wrap(corvuserr.FilesystemError, fmt.Sprintf("failed to create directory for %q", path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return corvuserr.Wrap(corvuserr.FilesystemError, fmt.Sprintf("failed to write %q", path), err)
	}
	return nil
}

// ReadFileOrEmpty reads path, returning an empty byte slice (not an error)
// if the file does not yet exist -- the DNS entry file starts out absent
// and is created on first upsert.
func ReadFileOrEmpty(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []byte{}, nil
		}
		return nil, corvuserr.Wrap(corvuserr.FilesystemError, fmt.Sprintf("failed to read %q", path), err)
	}
	return data, nil
}

// SitesEnabledDir returns the directory http-mode proxy templates render
// into, relative to stateDir (§6.4).
func SitesEnabledDir(stateDir string) string {
	return filepath.Join(stateDir, "nginx", "sites-enabled")
}

// StreamsEnabledDir returns the directory stream-mode proxy templates
// render into, relative to stateDir (§6.4).
func StreamsEnabledDir(stateDir string) string {
	return filepath.Join(stateDir, "nginx", "streams-enabled")
}

// DNSEntryPath returns the aggregate DNS mapping file path (§6.4).
func DNSEntryPath(stateDir string) string {
	return filepath.Join(stateDir, "dnsmasq", "dnsmasq.d", "dns_entry.conf")
}

// ProxyConfigPath computes <dir>/<clusterKey>.<templateName>.conf (§4.4
// step 3).
func ProxyConfigPath(dir, clusterKey, templateName string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s.conf", clusterKey, templateName))
}
