// ABOUTME: Root command for the dab-tps CLI
// ABOUTME: Handles global flags and shared configuration loading

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dablab/dab-tps-analyzer/config"
	"github.com/dablab/dab-tps-analyzer/logger"
)

var jsonOutput bool

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "dab-tps",
	Short: "CLI for the DAB TPS analyzer",
	Long: `dab-tps generates minimum-RMS-current lookup tables for dual-active-bridge
converters under triple-phase-shift control.

Converter and sweep settings come from the environment (or a .env file);
see config.Load for the variable names and defaults.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
}

// loadConfig is the shared fail-fast configuration step.
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}
