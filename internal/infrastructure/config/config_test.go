package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, ":9001", cfg.SSEAddr)
	require.True(t, cfg.StdioMode)
}

func TestLoadReadsEnvironmentOverrides(t *testing.T) {
	t.Setenv("WASSETTE_LOG_LEVEL", "debug")
	t.Setenv("WASSETTE_SSE_ADDR", ":8080")
	t.Setenv("WASSETTE_REGISTRY_PATH", "/tmp/registry.json")
	t.Setenv("WASSETTE_POLICY_DIR", "/tmp/policies")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, ":8080", cfg.SSEAddr)
	require.Equal(t, "/tmp/registry.json", cfg.RegistryPath)
	require.Equal(t, "/tmp/policies", cfg.PolicyDir)
}
