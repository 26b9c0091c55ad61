package resolver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileFetcherAndCache(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "component.wasm")
	require.NoError(t, os.WriteFile(artifact, []byte("wasm-bytes"), 0o644))

	cacheRoot := t.TempDir()
	cache, err := NewCache(cacheRoot)
	require.NoError(t, err)

	fetcher := NewFileFetcher(t.TempDir())
	r := New(cache, DefaultBackoff(), fetcher)

	uri := "file://" + artifact
	res, err := r.Fetch(context.Background(), uri)
	require.NoError(t, err)
	require.NotEmpty(t, res.Digest)

	entry, ok := cache.Lookup(mustCanonical(t, uri))
	require.True(t, ok)
	require.Equal(t, res.Digest, entry.Digest)
}

func TestFetchIsCachedOnSecondCall(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "component.wasm")
	require.NoError(t, os.WriteFile(artifact, []byte("wasm-bytes"), 0o644))

	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	fetcher := NewFileFetcher(t.TempDir())
	r := New(cache, DefaultBackoff(), fetcher)

	uri := "file://" + artifact
	first, err := r.Fetch(context.Background(), uri)
	require.NoError(t, err)

	require.NoError(t, os.Remove(artifact)) // a cache hit must not re-read the source
	second, err := r.Fetch(context.Background(), uri)
	require.NoError(t, err)
	require.Equal(t, first.Digest, second.Digest)
}

func TestCanonicalizeNormalizesOCIReference(t *testing.T) {
	canonical, scheme, err := Canonicalize("oci://registry.example.com/components/echo")
	require.NoError(t, err)
	require.Equal(t, "oci", scheme)
	require.Equal(t, "oci://registry.example.com/components/echo:latest", canonical)
}

func TestCanonicalizeRejectsSchemelessURI(t *testing.T) {
	_, _, err := Canonicalize("not-a-uri")
	require.Error(t, err)
}

func FuzzCanonicalize(f *testing.F) {
	f.Add("file:///tmp/a.wasm")
	f.Add("https://example.com:443/a.wasm")
	f.Add("oci://example.com/a")
	f.Add("")

	f.Fuzz(func(t *testing.T, uri string) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("panic on input %q: %v", uri, r)
			}
		}()
		_, _, _ = Canonicalize(uri)
	})
}

func mustCanonical(t *testing.T, uri string) string {
	t.Helper()
	c, _, err := Canonicalize(uri)
	require.NoError(t, err)
	return c
}
