// Package config loads the server process's environment-bound
// configuration. Grounded on the teacher's cmd/reglet/root.go
// initConfig (viper.AutomaticEnv, optional config file), generalized
// from a CLI flag-driven config path to a server process's
// WASSETTE_-prefixed environment variables plus an optional config
// file for the same keys.
package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full set of environment-bound settings the server
// process reads at startup.
type Config struct {
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string
	// LogJSON selects JSON-encoded log output over console encoding.
	LogJSON bool
	// CacheRoot is the directory the resolver's content-addressed
	// artifact cache is rooted at.
	CacheRoot string
	// StdioMode runs the MCP surface on stdio instead of SSE.
	StdioMode bool
	// SSEAddr is the listen address for the SSE transport, e.g. ":9001".
	SSEAddr string
	// RegistryPath is an optional path to a component-registry.json
	// catalog backing the search-registry built-in tool.
	RegistryPath string
	// PolicyDir is the directory attach-policy/get-policy persist
	// component policy documents under, when persistence is enabled.
	PolicyDir string
}

// Load reads configuration from WASSETTE_-prefixed environment
// variables, with an optional YAML file (configPath, empty to skip)
// providing defaults that the environment overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WASSETTE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("cache_root", defaultCacheRoot())
	v.SetDefault("stdio", true)
	v.SetDefault("sse_addr", ":9001")
	v.SetDefault("registry_path", "")
	v.SetDefault("policy_dir", defaultPolicyDir())

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	return &Config{
		LogLevel:     v.GetString("log_level"),
		LogJSON:      v.GetBool("log_json"),
		CacheRoot:    v.GetString("cache_root"),
		StdioMode:    v.GetBool("stdio"),
		SSEAddr:      v.GetString("sse_addr"),
		RegistryPath: v.GetString("registry_path"),
		PolicyDir:    v.GetString("policy_dir"),
	}, nil
}

func defaultCacheRoot() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".wassette/cache"
	}
	return dir + "/wassette"
}

func defaultPolicyDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".wassette/policies"
	}
	return dir + "/wassette/policies"
}
