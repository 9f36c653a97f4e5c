package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// set by the build via -ldflags
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("flagenv %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
