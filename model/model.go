// Package model defines the typed entities reconciled by the rest of the
// daemon: namespaces, cargoes, clusters, cluster-networks, cluster-variables,
// cargo-instances, and proxy templates. This package has no imports from any
// other internal package, which keeps it the bottom of the dependency graph,
// the same position models.go occupies in the teacher's layout.
package model

import "encoding/json"

// Namespace is the root of the entity hierarchy. Name is both the display
// name and the primary key; there is no separate surrogate ID. Two rows
// always exist once the side-car controller has run once: "global" and
// "system".
type Namespace struct {
	Name string `json:"name" db:"name"`
}

// Cargo is a container template: an opaque engine-create payload plus a
// desired replica count. Key is deterministic, never generated.
type Cargo struct {
	Key       string          `json:"key" db:"key"`
	Namespace string          `json:"namespace" db:"namespace"`
	Name      string          `json:"name" db:"name"`
	// Config is the container-engine creation payload verbatim (image,
	// command, host config overrides) stored as opaque JSON. Only the
	// engine adapter boundary ever unmarshals it into a concrete type.
	Config json.RawMessage `json:"config" db:"config"`
	// Replicas is the desired instance count per cluster this cargo joins.
	// Always >= 1; store.CreateCargo stores 1 for any value below that.
	Replicas int `json:"replicas" db:"replicas"`
	// DNSEntry, when non-empty, has the form "ip-placeholder:fqdn" where
	// ip-placeholder is a template expression resolved at projection time,
	// e.g. "{{cargoes.api.target_ip}}:api.local".
	DNSEntry string `json:"dns_entry,omitempty" db:"dns_entry"`
}

// CargoEnv is a single environment-variable definition owned by a cargo.
// Value may itself be a template expression ("{{vars.ENV}}"), expanded
// against the joining cluster's variable scope before container creation.
type CargoEnv struct {
	Key      string `json:"key" db:"key"`
	CargoKey string `json:"cargo_key" db:"cargo_key"`
	Name     string `json:"name" db:"name"`
	Value    string `json:"value" db:"value"`
}

// Cluster is a named grouping of networks, variables, and cargo-instances
// within a namespace. ProxyTemplates is the ordered list of template names
// rendered at the end of every StartCluster.
type Cluster struct {
	Key            string   `json:"key" db:"key"`
	Namespace      string   `json:"namespace" db:"namespace"`
	Name           string   `json:"name" db:"name"`
	ProxyTemplates []string `json:"proxy_templates" db:"proxy_templates"`
}

// ClusterNetwork is a bridge network belonging to a cluster, backed by a
// real engine network. DockerNetworkID and DefaultGateway are captured once,
// at creation time, from the engine's response.
type ClusterNetwork struct {
	Key             string `json:"key" db:"key"`
	ClusterKey      string `json:"cluster_key" db:"cluster_key"`
	Namespace       string `json:"namespace" db:"namespace"`
	Name            string `json:"name" db:"name"`
	DockerNetworkID string `json:"docker_network_id" db:"docker_network_id"`
	DefaultGateway  string `json:"default_gateway" db:"default_gateway"`
}

// ClusterVariable is a per-cluster named string used during template
// expansion of cargo env values, proxy templates, and DNS entries.
type ClusterVariable struct {
	Key        string `json:"key" db:"key"`
	ClusterKey string `json:"cluster_key" db:"cluster_key"`
	Name       string `json:"name" db:"name"`
	Value      string `json:"value" db:"value"`
}

// CargoInstance is the binding row asserting "this cargo is deployed into
// this cluster's network". Its key enforces at-most-one binding per
// (cluster, cargo) pair. No engine container id is stored here; container
// identity is always recovered by label search against the engine.
type CargoInstance struct {
	Key        string `json:"key" db:"key"`
	CargoKey   string `json:"cargo_key" db:"cargo_key"`
	ClusterKey string `json:"cluster_key" db:"cluster_key"`
	NetworkKey string `json:"network_key" db:"network_key"`
}

// ProxyTemplateMode selects the output directory a rendered proxy template
// is written into.
type ProxyTemplateMode string

const (
	ProxyModeHTTP   ProxyTemplateMode = "http"
	ProxyModeStream ProxyTemplateMode = "stream"
)

// ProxyTemplate is a named Mustache-style template rendered into a proxy
// configuration file whenever a cluster that references it is started.
type ProxyTemplate struct {
	Name    string            `json:"name" db:"name"`
	Mode    ProxyTemplateMode `json:"mode" db:"mode"`
	Content string            `json:"content" db:"content"`
}

// CargoTemplateData is the per-cargo record built by StartCluster and fed
// into proxy/DNS template rendering as `cargoes.<name>`.
type CargoTemplateData struct {
	Name string `json:"name"`
	// TargetIP is the address used by proxy templates: the first element
	// of TargetIPs after it has been reversed (see the target_ips quirk
	// comment in reconciler's startAndResolve).
	TargetIP string `json:"target_ip"`
	// TargetIPs is every resolved instance address, in the reversed order
	// described above.
	TargetIPs []string `json:"target_ips"`
	DNSEntry  string   `json:"dns_entry,omitempty"`
}

// NetworkTemplateData is the per-network record fed into proxy templates as
// `networks.<name>`.
type NetworkTemplateData struct {
	Gateway string `json:"gateway"`
}

// TemplateData is the root Mustache context for proxy-template rendering,
// assembled fresh by every StartCluster call.
type TemplateData struct {
	Vars     map[string]string             `json:"vars"`
	Networks map[string]NetworkTemplateData `json:"networks"`
	Cargoes  map[string]CargoTemplateData    `json:"cargoes"`
}
