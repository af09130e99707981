/*
Package config handles loading and validating daemon configuration from
environment variables. All values have sensible defaults so the daemon can
start with zero environment setup during local development.
*/
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/corvus-sh/orchd/corvuserr"
)

// AppConfig holds all configuration values for the daemon. Values are read
// once at startup and passed through the app via dependency injection; no
// package-level config variable is used, so every caller's dependencies stay
// visible in its constructor signature.
type AppConfig struct {
	// Hosts is the parsed list of listen addresses, each "unix://" or
	// "tcp://" prefixed, per §6.5. Populated by ParseHosts from the raw
	// CORVUS_HOSTS value.
	Hosts []Host

	// StateDir is the root directory for rendered proxy/DNS config and the
	// store's bind-mounted data volume (§6.4's on-disk layout).
	StateDir string

	// EngineSocket is the engine host address with its scheme, e.g.
	// "unix:///var/run/docker.sock" (or "" for the SDK's own FromEnv
	// default), that the engine adapter connects to.
	EngineSocket string

	// DBPath is the file path to the SQLite database file.
	DBPath string

	// NodeMode records the daemon's role. Only "master" runs side-car
	// bring-up in this implementation; multi-node scheduling is a
	// declared non-goal, so "worker"/"proxy" are accepted but inert.
	NodeMode string

	// SystemNetworkName is the engine-visible network name ensured by the
	// side-car controller. Fixed at "system-nano-internal0" per the
	// resolved open question (SPEC_FULL.md §4.5); kept as a config field
	// rather than a constant so tests can point it at a throwaway name.
	SystemNetworkName string

	// SystemBridgeName is the host bridge interface backing SystemNetworkName.
	SystemBridgeName string

	// LogFormat controls the output format of slog. "text" for local
	// development, anything else (including "json") for production.
	LogFormat string

	// CORSAllowedOrigin is the value sent back as
	// Access-Control-Allow-Origin for every response.
	CORSAllowedOrigin string
}

// Fixed identity strings for the daemon's own entities (§4.5). These never
// vary with configuration: the side-car controller and the reconciler both
// need to agree on them without passing them through every call, so they
// live here as the one place both packages import.
const (
	DefaultNamespace = "global"
	SystemNamespace  = "system"
	SystemClusterKey = "system-nano"
	SystemNetworkKey = "system-nano-internal0"

	StoreCargoKey  = "system-store"
	ProxyCargoKey  = "system-proxy"
	DNSCargoKey    = "system-dns"
	DaemonCargoKey = "system-daemon"

	// Container names follow the reconciler's namespace-cluster-cargo
	// naming convention (§4.3 step 5), using the side-car cargoes' short
	// names ("proxy", "dns") rather than their store keys.
	StoreContainerName  = SystemClusterKey + "-store"
	ProxyContainerName  = SystemClusterKey + "-proxy"
	DNSContainerName    = SystemClusterKey + "-dns"
	DaemonContainerName = SystemClusterKey + "-daemon"
)

// Host is one parsed listen address from CORVUS_HOSTS.
type Host struct {
	// Scheme is "unix" or "tcp".
	Scheme string
	// Address is the part after "scheme://" -- a socket path for unix,
	// a host:port for tcp.
	Address string
}

// NewLogger constructs a *slog.Logger based on the LogFormat field, the same
// construction the teacher's config.AppConfig.NewLogger used: AddSource for
// file:line context, ReplaceAttr trimming the source path to its basename so
// log lines stay readable in a terminal.
func (config *AppConfig) NewLogger() *slog.Logger {
	var handler slog.Handler

	options := &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelDebug,
		ReplaceAttr: func(groups []string, attribute slog.Attr) slog.Attr {
			if attribute.Key == slog.SourceKey {
				source := attribute.Value.Any().(*slog.Source)
				source.File = filepath.Base(source.File)
			}
			return attribute
		},
	}

	if config.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, options)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, options)
	}

	return slog.New(handler)
}

// Load reads configuration from environment variables, parses the host
// list, and returns a populated *AppConfig or a BadInput error if
// CORVUS_HOSTS contains an address with an unrecognized scheme.
func Load() (*AppConfig, error) {
	hosts, err := ParseHosts(getEnv("CORVUS_HOSTS", "unix:///var/run/corvus.sock"))
	if err != nil {
		return nil, err
	}

	return &AppConfig{
		Hosts:             hosts,
		StateDir:          getEnv("CORVUS_STATE_DIR", "./data/state"),
		EngineSocket:      getEnv("CORVUS_ENGINE_SOCKET", ""),
		DBPath:            getEnv("CORVUS_DB_PATH", "./data/corvus.db"),
		NodeMode:          getEnv("CORVUS_NODE_MODE", "master"),
		SystemNetworkName: "system-nano-internal0",
		SystemBridgeName:  "nanoclinternal0",
		LogFormat:         getEnv("CORVUS_LOG_FORMAT", "text"),
		CORSAllowedOrigin: getEnv("CORVUS_CORS_ORIGIN", "*"),
	}, nil
}

// ParseHosts splits a comma-separated CORVUS_HOSTS value into Hosts,
// rejecting any entry whose scheme is neither "unix" nor "tcp" with a
// BadInput error (§6.5, §7).
func ParseHosts(raw string) ([]Host, error) {
	var hosts []Host
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		switch {
		case strings.HasPrefix(entry, "unix://"):
			hosts = append(hosts, Host{Scheme: "unix", Address: strings.TrimPrefix(entry, "unix://")})
		case strings.HasPrefix(entry, "tcp://"):
			hosts = append(hosts, Host{Scheme: "tcp", Address: strings.TrimPrefix(entry, "tcp://")})
		default:
			return nil, corvuserr.New(corvuserr.BadInput, fmt.Sprintf("unrecognized host scheme in %q", entry))
		}
	}
	if len(hosts) == 0 {
		return nil, corvuserr.New(corvuserr.BadInput, "CORVUS_HOSTS must list at least one host")
	}
	return hosts, nil
}

// getEnv retrieves the value of an environment variable by key, falling
// back to fallbackValue when unset or empty. Avoids scattered os.Getenv
// calls with inline fallback logic throughout the codebase.
func getEnv(key, fallbackValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallbackValue
}
