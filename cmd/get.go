package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flagsmith-community/flagenv/pkg/config"
	"github.com/flagsmith-community/flagenv/pkg/flagsmith"
	"github.com/flagsmith-community/flagenv/pkg/runner"
)

var getCmd = &cobra.Command{
	Use:   "get [flags] [-- command [args...]]",
	Short: "Fetch flags and materialize them as environment variables",
	Long: `Fetch feature flags for an environment and materialize them as
environment variables: printed to stdout, written to a dotenv file
(--output), or injected into a command's environment.

EXAMPLES
  $ flagenv get --api-key <ENVIRONMENT_API_KEY>

  $ FLAGSMITH_API_KEY=x flagenv get -o ./flags.env

  $ flagenv get -a https://flagsmith.example.com/api/v1 -i some_identity

  $ flagenv get --interval 30 -o ./flags.env

  $ flagenv get -- ./server --port 8080`,
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			log.SetLevel(log.DebugLevel)
		}

		v := viper.New()
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			log.Error(err)
			os.Exit(1)
		}
		cfg, err := config.Resolve(v, args)
		if err != nil {
			log.Error(err)
			os.Exit(1)
		}

		if cfg.EnvironmentID != "" {
			log.Infof("retrieving flags for environment %s from %s", cfg.EnvironmentID, cfg.BaseURL)
		} else {
			log.Infof("retrieving flags from %s", cfg.BaseURL)
		}
		if cfg.Identity != "" {
			log.Infof("scoped to identity %s", cfg.Identity)
		}

		client := flagsmith.NewClient(cfg.BaseURL, cfg.APIKey, cfg.EnvironmentID, cfg.Identity, cfg.RequestTimeout)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		code, err := runner.New(client, cfg).Run(ctx)
		if err != nil {
			log.Errorf("fatal: %v", err)
			os.Exit(1)
		}
		if code == runner.ExitCancelled {
			log.Info("shutdown requested")
		}
		if code != 0 {
			os.Exit(code)
		}
	},
}

func init() {
	f := getCmd.Flags()
	f.String("api-key", "", "API key for the environment (or FLAGSMITH_API_KEY)")
	f.String("env-id", "", "environment identifier (or FLAGSMITH_ENVIRONMENT)")
	f.StringP("api", "a", "", "base API URL to fetch flags from (or FLAGSMITH_HOST)")
	f.StringP("output", "o", "", "dotenv file to write; stdout when unset and no command given")
	f.StringP("identity", "i", "", "fetch flags for this identity")
	f.Int("interval", 0, "re-fetch every N seconds (watch mode); 0 runs once")
	f.Int("retries", 3, "retries for transient fetch failures")
	f.Duration("retry-backoff", 0, "initial backoff between retries (default 1s)")
	f.Duration("timeout", 0, "HTTP request timeout (default 10s)")
	f.Bool("include-disabled", false, "write disabled flags as \"false\" instead of omitting them")
	f.String("env-file", "", "local .env file supplying defaults (default .env if present)")
	f.BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(getCmd)
}
