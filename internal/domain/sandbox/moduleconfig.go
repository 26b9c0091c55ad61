package sandbox

import (
	"crypto/rand"
	"io"
	"os"
	"strings"

	"github.com/tetratelabs/wazero"

	"github.com/wassette-dev/wassette/internal/domain/policy"
)

// ModuleConfig builds a wazero.ModuleConfig from r. stdout/stderr are
// the (already redaction-wrapped, by the caller) guest output sinks;
// env is the host's frozen environment snapshot to filter against
// r.EnvAllow, mirroring the teacher's injectEnvironmentVariables
// taking a frozen snapshot rather than the live os.Environ().
func (r *Recipe) ModuleConfig(stdout, stderr io.Writer, env []string) wazero.ModuleConfig {
	fsConfig := wazero.NewFSConfig()
	for _, mount := range r.Mounts {
		if mount.ReadOnly {
			fsConfig = fsConfig.WithReadOnlyDirMount(mount.HostPath, mount.GuestPath)
		} else {
			fsConfig = fsConfig.WithDirMount(mount.HostPath, mount.GuestPath)
		}
	}

	cfg := wazero.NewModuleConfig().
		WithFSConfig(fsConfig).
		WithSysWalltime().
		WithSysNanotime().
		WithSysNanosleep().
		WithRandSource(rand.Reader).
		WithStdout(stdout).
		WithStderr(stderr)

	for _, envVar := range filterEnv(env, r.EnvAllow) {
		parts := strings.SplitN(envVar, "=", 2)
		if len(parts) == 2 {
			cfg = cfg.WithEnv(parts[0], parts[1])
		}
	}
	return cfg
}

// filterEnv keeps only KEY=VALUE entries whose key matches one of the
// allow patterns.
func filterEnv(env []string, allow []string) []string {
	if len(allow) == 0 {
		return nil
	}
	var out []string
	for _, envVar := range env {
		parts := strings.SplitN(envVar, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := parts[0]
		for _, pattern := range allow {
			if policy.MatchGlob(pattern, key) {
				out = append(out, envVar)
				break
			}
		}
	}
	return out
}

// FrozenEnviron snapshots the host environment once at process
// startup, the same freeze the teacher's Runtime performs in
// NewRuntimeWithCapabilities to prevent a later os.Setenv from leaking
// into an already-running guest.
func FrozenEnviron() []string {
	return os.Environ()
}

// RuntimeConfig builds the shared wazero.RuntimeConfig: a process-wide
// compilation cache plus a memory-limit-pages ceiling taken from the
// recipe with the widest grant seen so far (callers size the shared
// runtime once; a recipe with a tighter limit is still enforced
// per-module by wazero's per-instance memory pages, not by this
// config).
func RuntimeConfig(maxPages uint32) wazero.RuntimeConfig {
	cfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if maxPages > 0 {
		cfg = cfg.WithMemoryLimitPages(maxPages)
	}
	return cfg
}
