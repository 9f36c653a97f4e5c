package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "flagenv",
	Short: "Materialize Flagsmith feature flags as environment variables",
	Long: `flagenv retrieves feature-flag state from a Flagsmith-compatible
service and exposes it to local processes as environment variables,
either written to a dotenv file or injected into a launched command.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
