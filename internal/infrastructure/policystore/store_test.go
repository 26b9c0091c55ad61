package policystore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wassette-dev/wassette/internal/domain/policy"
)

func TestStoreLoadMissingReturnsNotFound(t *testing.T) {
	t.Parallel()
	store := New(t.TempDir())

	pol, found, err := store.Load("oci://ghcr.io/example/tool:v1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, pol)
}

func TestStoreSaveThenLoadRoundTrips(t *testing.T) {
	t.Parallel()
	store := New(t.TempDir())

	pol := policy.Default()
	require.NoError(t, pol.GrantNetworkHost("example.com"))

	const id = "oci://ghcr.io/example/tool:v1"
	require.NoError(t, store.Save(id, pol))

	loaded, found, err := store.Load(id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, pol.Permissions.Network.Allow, loaded.Permissions.Network.Allow)
}

func TestStoreSaveCreatesNestedDirectory(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "nested", "policies")
	store := New(dir)

	require.NoError(t, store.Save("file:///component.wasm", policy.Default()))

	_, found, err := store.Load("file:///component.wasm")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	t.Parallel()
	store := New(t.TempDir())
	const id = "oci://ghcr.io/example/tool:v1"

	require.NoError(t, store.Save(id, policy.Default()))
	require.NoError(t, store.Delete(id))
	require.NoError(t, store.Delete(id)) // missing file is not an error

	_, found, err := store.Load(id)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNilStoreIsANoOp(t *testing.T) {
	t.Parallel()
	var store *Store

	_, found, err := store.Load("anything")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Save("anything", policy.Default()))
	require.NoError(t, store.Delete("anything"))
}
