package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "finsight",
	Short: "FinSight - scheduled market data pipeline with a live read API",
	Long: `FinSight Unified CLI

Scheduled multi-stage pipeline: fetch -> transform -> forecast/insight -> persist,
plus a hybrid live-vs-cached read API.

Usage:
  go run ./cmd/finsight [command]

Examples:
  go run ./cmd/finsight api
  go run ./cmd/finsight pipeline run
  go run ./cmd/finsight scheduler start`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
