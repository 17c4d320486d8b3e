package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"mercator-hq/quaestor/pkg/cli"
	"mercator-hq/quaestor/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "quaestor",
	Short: "Quaestor - budget-enforcing proxy for the Anthropic API",
	Long: `Quaestor is a local proxy that keeps Anthropic API spending inside a
fixed budget.

It accepts Messages API requests on localhost and forwards them upstream,
providing:
  - Heuristic tier routing with cheap-model classifier escalation
  - Daily and monthly budgets with month-to-month rollover
  - Forced downgrades once spending limits are reached
  - Streaming passthrough with per-request cost accounting
  - A SQLite usage ledger served by the status and usage commands

For more information, visit: https://github.com/mercator-hq/quaestor`,
	Version: Version,
}

// Execute runs the root command. Config errors exit 2, runtime
// failures exit 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the configuration for one command invocation and
// returns it with the path it was read from. The default config file is
// optional: when it does not exist, built-in defaults apply and the
// returned path is empty. An explicitly given path must exist.
func loadConfig() (*config.Config, string, error) {
	path := cfgFile
	if path == config.DefaultConfigFile {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, "", cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg, path, nil
}
