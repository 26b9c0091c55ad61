package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Parse([]byte(`[
		{"name": "Weather Server", "description": "A weather component", "uri": "oci://ghcr.io/microsoft/get-weather-js:latest"},
		{"name": "Time Server", "description": "A time component", "uri": "oci://example.com/time"}
	]`))
	require.NoError(t, err)
	return r
}

func TestSearchNoQueryReturnsAll(t *testing.T) {
	r := sampleRegistry(t)
	require.Len(t, r.Search(""), 2)
	require.Len(t, r.Search("   "), 2)
}

func TestSearchMatchesAnyTerm(t *testing.T) {
	r := sampleRegistry(t)
	results := r.Search("weather")
	require.Len(t, results, 1)
	require.Equal(t, "Weather Server", results[0].Name)
}

func TestSearchMultiTermMatchesEither(t *testing.T) {
	r := sampleRegistry(t)
	results := r.Search("weather time")
	require.Len(t, results, 2)
}

func TestFindByNameOrURI(t *testing.T) {
	r := sampleRegistry(t)
	e, ok := r.FindByNameOrURI("weather server")
	require.True(t, ok)
	require.Equal(t, "oci://ghcr.io/microsoft/get-weather-js:latest", e.URI)

	e, ok = r.FindByNameOrURI("oci://example.com/time")
	require.True(t, ok)
	require.Equal(t, "Time Server", e.Name)

	_, ok = r.FindByNameOrURI("does-not-exist")
	require.False(t, ok)
}
