package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validPolicyYAML() []byte {
	return []byte(`version: "1.0"
description: test policy
permissions:
  storage:
    allow:
      - uri: fs:///data/**
        access: ["read", "write"]
  network:
    allow:
      - host: api.example.com
      - cidr: 10.0.0.0/8
  environment:
    allow:
      - key: PATH
  resources:
    limits:
      cpu: "500m"
      memory: "512Mi"
`)
}

func TestParseValid(t *testing.T) {
	p, err := Parse(validPolicyYAML())
	require.NoError(t, err)
	require.Equal(t, "1.0", p.Version)
	require.Len(t, p.Permissions.Storage.Allow, 1)
	require.Len(t, p.Permissions.Network.Allow, 2)
}

func TestParseSerializeRoundTrip(t *testing.T) {
	p, err := Parse(validPolicyYAML())
	require.NoError(t, err)

	out, err := p.Serialize()
	require.NoError(t, err)

	p2, err := Parse(out)
	require.NoError(t, err)
	require.Equal(t, p, p2)

	out2, err := p2.Serialize()
	require.NoError(t, err)
	require.Equal(t, out, out2)
}

func TestParseUnknownVersion(t *testing.T) {
	_, err := Parse([]byte(`version: "9.9"
permissions: {}
`))
	require.Error(t, err)
}

func TestParseInvalidCIDR(t *testing.T) {
	_, err := Parse([]byte(`version: "1.0"
permissions:
  network:
    allow:
      - cidr: "not-a-cidr"
`))
	require.Error(t, err)
}

func TestParseInvalidQuantity(t *testing.T) {
	_, err := Parse([]byte(`version: "1.0"
permissions:
  resources:
    limits:
      memory: "not-a-quantity"
`))
	require.Error(t, err)
}

func TestParseContradictoryStorageAccess(t *testing.T) {
	_, err := Parse([]byte(`version: "1.0"
permissions:
  storage:
    allow:
      - uri: "fs:///data/**"
        access: ["read"]
      - uri: "fs:///data/**"
        access: ["write"]
`))
	require.Error(t, err)
}

func TestGrantRevokeStorageExactMatch(t *testing.T) {
	p := Default()
	require.NoError(t, p.GrantStorage("fs:///data/**", []string{AccessRead}))
	require.NoError(t, p.RevokeStorage("fs:///data/**", []string{AccessRead}))
	require.Empty(t, p.Permissions.Storage.Allow)
}

func TestRevokePartialOverlapRejected(t *testing.T) {
	p := Default()
	require.NoError(t, p.GrantStorage("fs:///data/**", []string{AccessRead}))
	err := p.RevokeStorage("fs:///data/a.txt", []string{AccessRead})
	require.Error(t, err)
}

func TestRevokeNoGrantIsNoop(t *testing.T) {
	p := Default()
	require.NoError(t, p.RevokeStorage("fs:///nowhere/**", []string{AccessRead}))
}

func FuzzParse(f *testing.F) {
	f.Add(string(validPolicyYAML()))
	f.Add("version: \"1.0\"\npermissions: {}\n")
	f.Add("not: yaml: [")
	f.Add("")

	f.Fuzz(func(t *testing.T, text string) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("panic on input %q: %v", text, r)
			}
		}()
		_, _ = Parse([]byte(text))
	})
}

func FuzzMatchGlob(f *testing.F) {
	f.Add("fs:///data/**", "fs:///data/a/b.txt")
	f.Add("*", "anything")
	f.Add("", "")

	f.Fuzz(func(t *testing.T, pattern, candidate string) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("panic on pattern %q candidate %q: %v", pattern, candidate, r)
			}
		}()
		_ = MatchGlob(pattern, candidate)
	})
}
