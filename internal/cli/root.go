// Package cli is the cobra front end of the hub. Commands stay thin: they
// load configuration, construct the relevant component, and print results.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"sentinelhive/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "svh",
	Short: "SentinelHive server hub",
	Long: `svh manages the SentinelHive control plane: the client-facing
authentication API, the database-facing ingestion API, and the host
firewall.

Examples:
  svh server start all
  svh server status
  svh login --u admin
  svh server firewall status`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&cfgFile, "config", "c", "", "Path to the configuration file")
}

// loadConfig resolves configuration for the current invocation, honoring
// the --config flag over the SVH_CONFIG_FILE default.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		if err := os.Setenv("SVH_CONFIG_FILE", cfgFile); err != nil {
			return nil, err
		}
	}
	return config.Load()
}
