package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "beacon",
	Short: "Beacon - HTTP instrumentation sidecar",
	Long: `Beacon is an HTTP instrumentation sidecar. It proxies requests to an
application backend and records Prometheus metrics for every one of them:

  - Request counts, latency and sizes per normalized route
  - In-flight requests and open connections
  - Error responses classified by kind and message
  - Dependency health and query timings

Configuration is read from a YAML file and BEACON_* environment variables.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "beacon.yaml", "config file path")
}
