// Package policy implements the capability-policy data model: parsing,
// validation, deterministic serialization, and grant/revoke mutation.
// Grounded on the teacher's internal/domain/capabilities package
// (Capability/Grant) and internal/infrastructure/capabilities/file_store.go
// (deterministic goccy/go-yaml round-trip), generalized from a flat
// capability list to the spec's four orthogonal permission sections.
package policy

// Policy is a versioned capability document with four orthogonal
// permission sections, per §3 of the spec.
type Policy struct {
	Version     string      `yaml:"version" json:"version"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	Permissions Permissions `yaml:"permissions" json:"permissions"`
}

// Permissions groups the four orthogonal sections. Each is optional;
// an absent section grants nothing in that dimension.
type Permissions struct {
	Storage     *StorageSection     `yaml:"storage,omitempty" json:"storage,omitempty"`
	Network     *NetworkSection     `yaml:"network,omitempty" json:"network,omitempty"`
	Environment *EnvironmentSection `yaml:"environment,omitempty" json:"environment,omitempty"`
	Resources   *ResourcesSection   `yaml:"resources,omitempty" json:"resources,omitempty"`
}

// StorageSection allow-lists filesystem URIs with a read/write access set.
type StorageSection struct {
	Allow []StorageRule `yaml:"allow,omitempty" json:"allow,omitempty"`
}

// StorageRule grants access to uri (a fs:// URI with optional */** glob
// tail) for the listed access modes.
type StorageRule struct {
	URI    string   `yaml:"uri" json:"uri"`
	Access []string `yaml:"access" json:"access"`
}

const (
	AccessRead  = "read"
	AccessWrite = "write"
)

// NetworkSection allow-lists outbound network destinations.
type NetworkSection struct {
	Allow []NetworkRule `yaml:"allow,omitempty" json:"allow,omitempty"`
}

// NetworkRule is exactly one of Host (exact or glob host pattern) or
// CIDR (a well-formed CIDR block).
type NetworkRule struct {
	Host string `yaml:"host,omitempty" json:"host,omitempty"`
	CIDR string `yaml:"cidr,omitempty" json:"cidr,omitempty"`
}

// EnvironmentSection allow-lists environment-variable key patterns.
type EnvironmentSection struct {
	Allow []EnvironmentRule `yaml:"allow,omitempty" json:"allow,omitempty"`
}

type EnvironmentRule struct {
	Key string `yaml:"key" json:"key"`
}

// ResourcesSection carries optional resource limits and runtime tuning.
type ResourcesSection struct {
	Limits *Limits `yaml:"limits,omitempty" json:"limits,omitempty"`
}

// Limits holds Kubernetes-style quantity strings, parsed by quantity.go.
type Limits struct {
	CPU    string `yaml:"cpu,omitempty" json:"cpu,omitempty"`
	Memory string `yaml:"memory,omitempty" json:"memory,omitempty"`
}

// RecognizedVersions are the policy schema versions this runtime accepts.
var RecognizedVersions = []string{"1.0"}

// Default returns the empty-allow-list policy attached to a component
// when load-component specifies none.
func Default() *Policy {
	return &Policy{Version: "1.0", Permissions: Permissions{}}
}

// Clone returns a deep copy, used before a trial mutation so a failed
// validation can restore the prior policy atomically (§4.5).
func (p *Policy) Clone() *Policy {
	if p == nil {
		return nil
	}
	c := &Policy{Version: p.Version, Description: p.Description}
	if p.Permissions.Storage != nil {
		c.Permissions.Storage = &StorageSection{Allow: append([]StorageRule{}, p.Permissions.Storage.Allow...)}
	}
	if p.Permissions.Network != nil {
		c.Permissions.Network = &NetworkSection{Allow: append([]NetworkRule{}, p.Permissions.Network.Allow...)}
	}
	if p.Permissions.Environment != nil {
		c.Permissions.Environment = &EnvironmentSection{Allow: append([]EnvironmentRule{}, p.Permissions.Environment.Allow...)}
	}
	if p.Permissions.Resources != nil {
		c.Permissions.Resources = &ResourcesSection{}
		if p.Permissions.Resources.Limits != nil {
			l := *p.Permissions.Resources.Limits
			c.Permissions.Resources.Limits = &l
		}
	}
	return c
}
