// Package policystore persists per-component policy documents to disk
// so grants survive a server restart. Grounded on the teacher's
// internal/infrastructure/capabilities/file_store.go (goccy/go-yaml
// round-trip, os.MkdirAll-then-WriteFile discipline), generalized from
// one flat ~/.reglet/config.yaml holding every grant to one YAML file
// per component, keyed by the component's canonical URI.
package policystore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/wassette-dev/wassette/internal/domain/policy"
)

// Store reads and writes policy documents under dir, one file per
// component id. A nil *Store is valid and a no-op throughout — the
// server runs with persistence disabled when no directory is
// configured, matching how the teacher's FileStore.Load treats a
// missing config file as "no grants yet" rather than an error.
type Store struct {
	dir string
}

// New returns a Store rooted at dir. dir is created lazily on first
// Save, not here.
func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, sanitize(id)+".yaml")
}

// sanitize turns a component id (a canonical URI, e.g.
// "oci://ghcr.io/example/tool:v1") into a single path-safe filename
// component.
func sanitize(id string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		":", "_",
		"?", "_",
		"#", "_",
		"\\", "_",
	)
	return replacer.Replace(id)
}

// Load returns id's persisted policy, if any. The second return value
// is false when nothing is persisted for id (not an error) or when s
// is nil.
func (s *Store) Load(id string) (*policy.Policy, bool, error) {
	if s == nil || s.dir == "" {
		return nil, false, nil
	}
	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	pol, err := policy.Parse(data)
	if err != nil {
		return nil, false, err
	}
	return pol, true, nil
}

// Save persists pol under id, creating the store's directory on first
// use. A nil s or unconfigured directory makes Save a no-op.
func (s *Store) Save(id string, pol *policy.Policy) error {
	if s == nil || s.dir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil { //nolint:gosec // G301: matches the teacher's config-directory permissions
		return err
	}
	data, err := pol.Serialize()
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(id), data, 0o600)
}

// Delete removes id's persisted policy, if any. Missing files are not
// an error.
func (s *Store) Delete(id string) error {
	if s == nil || s.dir == "" {
		return nil
	}
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
