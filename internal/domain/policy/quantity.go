package policy

import (
	"regexp"
	"strconv"

	"github.com/wassette-dev/wassette/internal/domain/wassetteerr"
)

// Kubernetes-style quantity parsing. No k8s.io/apimachinery (or any
// other quantity library) appears anywhere in the example pack;
// hand-rolled here the same way the teacher hand-rolls its
// memory-limit-MB-to-pages conversion in
// internal/infrastructure/wasm/runtime.go (NewRuntimeWithCapabilities).

var cpuPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)(m)?$`)

// ParseCPU parses a CPU quantity such as "500m" (0.5 CPU) or "2" (2
// CPU) into a fractional CPU-seconds-per-wall-second budget.
func ParseCPU(s string) (float64, error) {
	m := cpuPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, wassetteerr.Parsef("policy.ParseCPU", "InvalidQuantity", "invalid cpu quantity %q", s)
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, wassetteerr.Parsef("policy.ParseCPU", "InvalidQuantity", "invalid cpu quantity %q: %v", s, err)
	}
	if m[2] == "m" {
		n /= 1000
	}
	if n <= 0 {
		return 0, wassetteerr.Parsef("policy.ParseCPU", "InvalidQuantity", "cpu quantity %q must be positive", s)
	}
	return n, nil
}

var memoryPattern = regexp.MustCompile(`^(\d+)(Ki|Mi|Gi|Ti|k|M|G|T)?$`)

var memoryMultipliers = map[string]int64{
	"":   1,
	"k":  1_000,
	"M":  1_000_000,
	"G":  1_000_000_000,
	"T":  1_000_000_000_000,
	"Ki": 1 << 10,
	"Mi": 1 << 20,
	"Gi": 1 << 30,
	"Ti": 1 << 40,
}

// ParseMemory parses a memory quantity such as "512Mi" or "1Gi" into a
// byte count.
func ParseMemory(s string) (int64, error) {
	m := memoryPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, wassetteerr.Parsef("policy.ParseMemory", "InvalidQuantity", "invalid memory quantity %q", s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, wassetteerr.Parsef("policy.ParseMemory", "InvalidQuantity", "invalid memory quantity %q: %v", s, err)
	}
	if n <= 0 {
		return 0, wassetteerr.Parsef("policy.ParseMemory", "InvalidQuantity", "memory quantity %q must be positive", s)
	}
	return n * memoryMultipliers[m[2]], nil
}
