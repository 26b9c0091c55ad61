// Package sandbox projects a policy.Policy into a SandboxRecipe, the
// pure-data description the lifecycle manager realizes into a wazero
// ModuleConfig at instantiation. Grounded on the teacher's
// internal/infrastructure/wasm/plugin.go (createModuleConfig,
// extractFilesystemMounts, injectEnvironmentVariables) and runtime.go
// (NewRuntimeWithCapabilities's MB→pages conversion), generalized from
// a single fixed root mount and a flat capability list to the policy's
// full {uri, access}/{host|cidr}/{key} allow-lists.
package sandbox

import (
	"net"
	"strings"
	"time"

	"github.com/wassette-dev/wassette/internal/domain/policy"
	"github.com/wassette-dev/wassette/internal/domain/wassetteerr"
)

// Mount is one pre-opened directory for the guest.
type Mount struct {
	HostPath  string
	GuestPath string
	ReadOnly  bool
}

// NetworkRule is one allowed outbound destination.
type NetworkRule struct {
	Host string // exact host or glob pattern; empty when CIDR is set
	CIDR string
}

// Recipe is the pure-data projection of a policy into sandbox terms.
// It is realized by the lifecycle manager's instance factory, never by
// this package directly — sandbox stays free of any wazero.Runtime
// reference so a recipe can be computed (and diffed across a
// policy-mutation-with-rollback) without a live runtime.
type Recipe struct {
	Mounts         []Mount
	AllowedNetwork []NetworkRule
	EnvAllow       []string // glob patterns, matched against host env keys
	MemoryPages    uint32   // 0 means default (256MB worth of pages)
	CPUDeadline    time.Duration
}

const defaultMemoryMB = 256

// pageSize is wazero's linear-memory page size (64KiB).
const pageSize = 64 * 1024

// Build projects p into a Recipe. A nil p yields the zero-capability
// recipe: no mounts, no network, no environment, default memory, no
// deadline.
func Build(p *policy.Policy) (*Recipe, error) {
	r := &Recipe{MemoryPages: uint32(defaultMemoryMB * 1024 * 1024 / pageSize)}
	if p == nil {
		return r, nil
	}

	if p.Permissions.Storage != nil {
		r.Mounts = buildMounts(p.Permissions.Storage.Allow)
	}
	if p.Permissions.Network != nil {
		for _, rule := range p.Permissions.Network.Allow {
			r.AllowedNetwork = append(r.AllowedNetwork, NetworkRule{Host: rule.Host, CIDR: rule.CIDR})
		}
	}
	if p.Permissions.Environment != nil {
		for _, rule := range p.Permissions.Environment.Allow {
			r.EnvAllow = append(r.EnvAllow, rule.Key)
		}
	}
	if p.Permissions.Resources != nil && p.Permissions.Resources.Limits != nil {
		limits := p.Permissions.Resources.Limits
		if limits.Memory != "" {
			bytes, err := policy.ParseMemory(limits.Memory)
			if err != nil {
				return nil, err
			}
			pages := uint32(bytes / pageSize)
			if pages == 0 {
				pages = 1
			}
			r.MemoryPages = pages
		}
		if limits.CPU != "" {
			cores, err := policy.ParseCPU(limits.CPU)
			if err != nil {
				return nil, err
			}
			// A fractional CPU allotment is translated to a wall-clock
			// deadline per invocation: one full core buys one second of
			// uninterrupted compute, the same ratio the teacher assumes
			// implicitly by not bounding CPU at all.
			if cores > 0 {
				r.CPUDeadline = time.Duration(float64(time.Second) / cores)
			}
		}
	}
	return r, nil
}

// buildMounts derives one Mount per storage rule, generalizing the
// teacher's extractMountPath from a capability pattern string
// ("read:/var/log/**") to the policy's structured {uri, access} rule.
// Read and write access to the same uri become two mounts only when
// they disagree; a rule granting both collapses to one read-write
// mount.
func buildMounts(rules []policy.StorageRule) []Mount {
	var mounts []Mount
	for _, rule := range rules {
		path := strings.TrimPrefix(rule.URI, "fs://")
		mountPath := extractMountPath(path)
		if mountPath == "" {
			continue
		}
		readOnly := true
		for _, access := range rule.Access {
			if access == policy.AccessWrite {
				readOnly = false
			}
		}
		mounts = append(mounts, Mount{HostPath: mountPath, GuestPath: mountPath, ReadOnly: readOnly})
	}
	return mounts
}

// extractMountPath returns the directory to pre-open for a glob
// pattern: "/var/log/**" and "/var/log/*" mount "/var/log"; "/**" and
// "/*" mount "/"; a path with no wildcard mounts its parent directory.
func extractMountPath(pattern string) string {
	switch {
	case pattern == "/**" || pattern == "/*" || pattern == "/":
		return "/"
	case strings.HasSuffix(pattern, "/**"):
		return strings.TrimSuffix(pattern, "/**")
	case strings.HasSuffix(pattern, "/*"):
		return strings.TrimSuffix(pattern, "/*")
	}
	if i := strings.LastIndex(pattern, "/"); i > 0 {
		return pattern[:i]
	}
	return "/"
}

const opAllowed = "sandbox.Recipe.NetworkAllowed"

// NetworkAllowed reports whether host is permitted to be dialed under
// this recipe, matching an exact/glob host rule or a CIDR rule against
// a pre-resolved IP. Returns a NotFound-kind error (not a bool false)
// when nothing in the recipe matches, so callers can distinguish
// "blocked" from a malformed host argument upstream.
func (r *Recipe) NetworkAllowed(host string) error {
	for _, rule := range r.AllowedNetwork {
		if rule.Host != "" && policy.MatchGlob(rule.Host, host) {
			return nil
		}
	}
	return wassetteerr.New(wassetteerr.Invoke, opAllowed, "NetworkDenied", "host "+host+" is not in the allowed-network list", nil)
}

// NetworkAllowedIP additionally consults any CIDR rules against a
// resolved destination IP, used once DNS pinning has produced the
// concrete address a connection will target.
func (r *Recipe) NetworkAllowedIP(host string, ip net.IP) error {
	if r.NetworkAllowed(host) == nil {
		return nil
	}
	for _, rule := range r.AllowedNetwork {
		if rule.CIDR == "" {
			continue
		}
		_, block, err := net.ParseCIDR(rule.CIDR)
		if err != nil {
			continue
		}
		if block.Contains(ip) {
			return nil
		}
	}
	return wassetteerr.New(wassetteerr.Invoke, opAllowed, "NetworkDenied", "host "+host+" is not in the allowed-network list", nil)
}
