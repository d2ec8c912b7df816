package main

import (
	"github.com/spf13/cobra"

	"storefront/beacon/pkg/cli"
	"storefront/beacon/pkg/config"
)

// redacted replaces secrets in printed configuration.
const redacted = "********"

var configFlags struct {
	output string
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration beacon would run with: the file, then defaults,
then BEACON_* environment overrides. Secrets are redacted.

Examples:
  beacon config
  beacon config --config /etc/beacon/beacon.yaml --output json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := cli.NewFormatter(cli.OutputFormat(configFlags.output))
		if err != nil {
			return err
		}

		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return cli.NewCommandError("config", err)
		}
		return formatter.FormatTo(cmd.OutOrStdout(), redactConfig(cfg))
	},
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().StringVarP(&configFlags.output, "output", "o", "yaml", "output format: yaml, json")
}

// redactConfig returns a copy of cfg with secrets masked.
func redactConfig(cfg *config.Config) *config.Config {
	out := *cfg
	if out.Redis.Password != "" {
		out.Redis.Password = redacted
	}
	return &out
}
