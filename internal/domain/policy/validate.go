package policy

import (
	"net"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/wassette-dev/wassette/internal/domain/wassetteerr"
)

const opValidate = "policy.Validate"

// Validate checks all invariants from §3: recognized version, no
// duplicate storage URI with contradictory access sets, well-formed
// CIDRs, parseable resource quantities, supported glob metacharacters.
func (p *Policy) Validate() error {
	if err := validateVersion(p.Version); err != nil {
		return err
	}
	if err := validateStorage(p.Permissions.Storage); err != nil {
		return err
	}
	if err := validateNetwork(p.Permissions.Network); err != nil {
		return err
	}
	if err := validateEnvironment(p.Permissions.Environment); err != nil {
		return err
	}
	if err := validateResources(p.Permissions.Resources); err != nil {
		return err
	}
	return nil
}

func validateVersion(v string) error {
	if v == "" {
		return wassetteerr.New(wassetteerr.Parse, opValidate, "UnknownVersion", "policy version is required", nil)
	}
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return wassetteerr.New(wassetteerr.Parse, opValidate, "UnknownVersion", "policy version \""+v+"\" is not a valid version", nil)
	}
	for _, rv := range RecognizedVersions {
		recognized, err := semver.NewVersion(rv)
		if err == nil && parsed.Equal(recognized) {
			return nil
		}
	}
	return wassetteerr.New(wassetteerr.Parse, opValidate, "UnknownVersion", "policy version "+v+" is not recognized", nil)
}

func validateStorage(s *StorageSection) error {
	if s == nil {
		return nil
	}
	access := map[string][]string{}
	for _, rule := range s.Allow {
		for _, a := range rule.Access {
			if a != AccessRead && a != AccessWrite {
				return wassetteerr.Validationf(opValidate, "InvalidAccess", "storage rule %q: unknown access mode %q", rule.URI, a)
			}
		}
		if err := ValidateGlob(rule.URI); err != nil {
			return err
		}
		sorted := append([]string{}, rule.Access...)
		sort.Strings(sorted)
		if prev, ok := access[rule.URI]; ok {
			if !stringsEqual(prev, sorted) {
				return wassetteerr.New(wassetteerr.Parse, opValidate, "DuplicateRule", "storage URI "+rule.URI+" has contradictory access sets", nil)
			}
		} else {
			access[rule.URI] = sorted
		}
	}
	return nil
}

func validateNetwork(n *NetworkSection) error {
	if n == nil {
		return nil
	}
	for _, rule := range n.Allow {
		hasHost := rule.Host != ""
		hasCIDR := rule.CIDR != ""
		if hasHost == hasCIDR {
			return wassetteerr.Validationf(opValidate, "InvalidNetworkRule", "network rule must set exactly one of host or cidr")
		}
		if hasCIDR {
			if _, _, err := net.ParseCIDR(rule.CIDR); err != nil {
				return wassetteerr.New(wassetteerr.Parse, opValidate, "InvalidCIDR", "invalid cidr "+rule.CIDR, err)
			}
		}
		if hasHost {
			if err := ValidateGlob(rule.Host); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateEnvironment(e *EnvironmentSection) error {
	if e == nil {
		return nil
	}
	for _, rule := range e.Allow {
		if strings.TrimSpace(rule.Key) == "" {
			return wassetteerr.Validationf(opValidate, "InvalidEnvironmentRule", "environment rule key must not be empty")
		}
		if err := ValidateGlob(rule.Key); err != nil {
			return err
		}
	}
	return nil
}

func validateResources(r *ResourcesSection) error {
	if r == nil || r.Limits == nil {
		return nil
	}
	if r.Limits.CPU != "" {
		if _, err := ParseCPU(r.Limits.CPU); err != nil {
			return err
		}
	}
	if r.Limits.Memory != "" {
		if _, err := ParseMemory(r.Limits.Memory); err != nil {
			return err
		}
	}
	return nil
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
