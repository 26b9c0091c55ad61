package main

import (
	"github.com/spf13/cobra"
)

var configFile string

// rootCmd is the application entry point. Grounded on the teacher's
// cmd/reglet/root.go, generalized from a one-shot "check a profile"
// CLI to a server process with a single "serve" subcommand.
var rootCmd = &cobra.Command{
	Use:   "wassette",
	Short: "A security-oriented WebAssembly Component Model runtime for MCP",
	Long: `Wassette loads WebAssembly components, enforces a capability
policy around their filesystem, network, and environment access, and
exposes each component's exported functions as Model Context Protocol
tools.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: WASSETTE_-prefixed environment variables only)")
	rootCmd.AddCommand(serveCmd)
}
