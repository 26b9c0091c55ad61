package policy

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/wassette-dev/wassette/internal/domain/wassetteerr"
)

const opParse = "policy.Parse"

// Parse decodes YAML text into a validated Policy.
func Parse(text []byte) (*Policy, error) {
	var p Policy
	if err := yaml.UnmarshalWithOptions(text, &p, yaml.Strict()); err != nil {
		return nil, wassetteerr.New(wassetteerr.Parse, opParse, "SchemaMismatch", "malformed policy YAML", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// ParsePath reads and parses the policy document at path.
func ParsePath(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wassetteerr.New(wassetteerr.Parse, opParse, "SchemaMismatch", "reading policy file", err)
	}
	return Parse(data)
}

// Serialize renders p as deterministic YAML text. Uses
// yaml.IndentSequence(true) the way the teacher's file_store.go does,
// so that serialize(parse(text)) reproduces a stable byte-for-byte
// document across runs — the basis of the parse∘serialize round-trip
// law (§8, invariant 1).
func (p *Policy) Serialize() ([]byte, error) {
	out, err := yaml.MarshalWithOptions(p, yaml.IndentSequence(true))
	if err != nil {
		return nil, wassetteerr.Internalf("policy.Serialize", err, "marshal policy")
	}
	return out, nil
}
