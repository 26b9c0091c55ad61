package sandbox

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wassette-dev/wassette/internal/domain/policy"
)

func TestBuildNilPolicyYieldsEmptyRecipe(t *testing.T) {
	r, err := Build(nil)
	require.NoError(t, err)
	require.Empty(t, r.Mounts)
	require.Empty(t, r.AllowedNetwork)
	require.NotZero(t, r.MemoryPages)
}

func TestBuildStorageMounts(t *testing.T) {
	p := policy.Default()
	require.NoError(t, p.GrantStorage("fs:///var/log/**", []string{policy.AccessRead}))
	require.NoError(t, p.GrantStorage("fs:///data/**", []string{policy.AccessRead, policy.AccessWrite}))

	r, err := Build(p)
	require.NoError(t, err)
	require.Len(t, r.Mounts, 2)

	var sawReadOnly, sawReadWrite bool
	for _, m := range r.Mounts {
		switch m.HostPath {
		case "/var/log":
			sawReadOnly = m.ReadOnly
		case "/data":
			sawReadWrite = !m.ReadOnly
		}
	}
	require.True(t, sawReadOnly)
	require.True(t, sawReadWrite)
}

func TestBuildMemoryLimit(t *testing.T) {
	p := policy.Default()
	require.NoError(t, p.GrantMemory("128Mi"))

	r, err := Build(p)
	require.NoError(t, err)
	require.Equal(t, uint32(128*1024*1024/pageSize), r.MemoryPages)
}

func TestNetworkAllowedHostGlob(t *testing.T) {
	p := policy.Default()
	require.NoError(t, p.GrantNetworkHost("*.example.com"))

	r, err := Build(p)
	require.NoError(t, err)
	require.NoError(t, r.NetworkAllowed("api.example.com"))
	require.Error(t, r.NetworkAllowed("api.other.com"))
}
