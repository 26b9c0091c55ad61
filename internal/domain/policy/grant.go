package policy

import (
	"sort"

	"github.com/wassette-dev/wassette/internal/domain/wassetteerr"
)

const opGrant = "policy.Grant"

// GrantStorage adds access for uri, merging into an existing rule for
// the same uri if one exists.
func (p *Policy) GrantStorage(uri string, access []string) error {
	if err := ValidateGlob(uri); err != nil {
		return err
	}
	if p.Permissions.Storage == nil {
		p.Permissions.Storage = &StorageSection{}
	}
	for i, rule := range p.Permissions.Storage.Allow {
		if rule.URI == uri {
			p.Permissions.Storage.Allow[i].Access = unionStrings(rule.Access, access)
			return nil
		}
	}
	p.Permissions.Storage.Allow = append(p.Permissions.Storage.Allow, StorageRule{URI: uri, Access: dedupStrings(access)})
	return nil
}

// RevokeStorage removes access for uri from an exact-match rule, is a
// no-op when uri is not granted at all, and rejects a uri that only
// partially overlaps an existing granted pattern (Open Question
// decision, §9/§4.1: partial-overlap revokes are a Validation error).
func (p *Policy) RevokeStorage(uri string, access []string) error {
	if p.Permissions.Storage == nil {
		return nil
	}
	for i, rule := range p.Permissions.Storage.Allow {
		if rule.URI == uri {
			remaining := subtractStrings(rule.Access, access)
			if len(remaining) == 0 {
				p.Permissions.Storage.Allow = append(p.Permissions.Storage.Allow[:i], p.Permissions.Storage.Allow[i+1:]...)
			} else {
				p.Permissions.Storage.Allow[i].Access = remaining
			}
			return nil
		}
	}
	for _, rule := range p.Permissions.Storage.Allow {
		if MatchGlob(rule.URI, uri) {
			return wassetteerr.Validationf(opGrant, "PartialOverlapRevoke", "revoke uri %q partially overlaps granted pattern %q; revoke must exactly match a granted rule", uri, rule.URI)
		}
	}
	return nil // no matching grant: no-op
}

// GrantNetworkHost adds an exact/pattern host entry.
func (p *Policy) GrantNetworkHost(host string) error {
	if err := ValidateGlob(host); err != nil {
		return err
	}
	if p.Permissions.Network == nil {
		p.Permissions.Network = &NetworkSection{}
	}
	for _, rule := range p.Permissions.Network.Allow {
		if rule.Host == host {
			return nil
		}
	}
	p.Permissions.Network.Allow = append(p.Permissions.Network.Allow, NetworkRule{Host: host})
	return nil
}

// RevokeNetworkHost mirrors RevokeStorage's exact/no-op/partial-overlap
// decision for network host entries.
func (p *Policy) RevokeNetworkHost(host string) error {
	if p.Permissions.Network == nil {
		return nil
	}
	for i, rule := range p.Permissions.Network.Allow {
		if rule.Host == host {
			p.Permissions.Network.Allow = append(p.Permissions.Network.Allow[:i], p.Permissions.Network.Allow[i+1:]...)
			return nil
		}
	}
	for _, rule := range p.Permissions.Network.Allow {
		if rule.Host != "" && MatchGlob(rule.Host, host) {
			return wassetteerr.Validationf(opGrant, "PartialOverlapRevoke", "revoke host %q partially overlaps granted pattern %q", host, rule.Host)
		}
	}
	return nil
}

// GrantEnvironmentKey adds an environment-variable key pattern.
func (p *Policy) GrantEnvironmentKey(key string) error {
	if err := ValidateGlob(key); err != nil {
		return err
	}
	if p.Permissions.Environment == nil {
		p.Permissions.Environment = &EnvironmentSection{}
	}
	for _, rule := range p.Permissions.Environment.Allow {
		if rule.Key == key {
			return nil
		}
	}
	p.Permissions.Environment.Allow = append(p.Permissions.Environment.Allow, EnvironmentRule{Key: key})
	return nil
}

// RevokeEnvironmentKey mirrors RevokeStorage's decision for environment
// key patterns.
func (p *Policy) RevokeEnvironmentKey(key string) error {
	if p.Permissions.Environment == nil {
		return nil
	}
	for i, rule := range p.Permissions.Environment.Allow {
		if rule.Key == key {
			p.Permissions.Environment.Allow = append(p.Permissions.Environment.Allow[:i], p.Permissions.Environment.Allow[i+1:]...)
			return nil
		}
	}
	for _, rule := range p.Permissions.Environment.Allow {
		if MatchGlob(rule.Key, key) {
			return wassetteerr.Validationf(opGrant, "PartialOverlapRevoke", "revoke key %q partially overlaps granted pattern %q", key, rule.Key)
		}
	}
	return nil
}

// GrantMemory sets the memory limit quantity.
func (p *Policy) GrantMemory(limit string) error {
	if _, err := ParseMemory(limit); err != nil {
		return err
	}
	if p.Permissions.Resources == nil {
		p.Permissions.Resources = &ResourcesSection{}
	}
	if p.Permissions.Resources.Limits == nil {
		p.Permissions.Resources.Limits = &Limits{}
	}
	p.Permissions.Resources.Limits.Memory = limit
	return nil
}

// RevokeMemory clears the memory limit.
func (p *Policy) RevokeMemory() error {
	if p.Permissions.Resources == nil || p.Permissions.Resources.Limits == nil {
		return nil
	}
	p.Permissions.Resources.Limits.Memory = ""
	return nil
}

// Reset replaces the policy's permissions with the empty default,
// backing reset-permission.
func (p *Policy) Reset() {
	p.Permissions = Permissions{}
}

func unionStrings(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func dedupStrings(a []string) []string {
	return unionStrings(a, nil)
}

func subtractStrings(a, b []string) []string {
	remove := map[string]bool{}
	for _, s := range b {
		remove[s] = true
	}
	var out []string
	for _, s := range a {
		if !remove[s] {
			out = append(out, s)
		}
	}
	return out
}
