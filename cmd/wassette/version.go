package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wassette-dev/wassette/internal/version"
)

// versionCmd implements the version command. Grounded on the teacher's
// cmd/reglet/version.go.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of wassette",
	Run: func(_ *cobra.Command, _ []string) {
		info := version.Get()
		fmt.Printf("wassette version %s\n", info.Full())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
