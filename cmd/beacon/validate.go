package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storefront/beacon/pkg/cli"
	"storefront/beacon/pkg/config"
)

var validateFlags struct {
	env    bool
	output string
}

// validationResult is the structured output of the validate command.
type validationResult struct {
	File   string             `json:"file" yaml:"file"`
	Valid  bool               `json:"valid" yaml:"valid"`
	Errors []*cli.ConfigError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func (r validationResult) String() string {
	if r.Valid {
		return fmt.Sprintf("✓ Configuration valid: %s", r.File)
	}
	s := fmt.Sprintf("✗ Configuration invalid: %s", r.File)
	for _, e := range r.Errors {
		if e.Field == "" {
			s += fmt.Sprintf("\n  - %s", e.Message)
			continue
		}
		s += fmt.Sprintf("\n  - %s: %s", e.Field, e.Message)
	}
	return s
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load and validate a beacon configuration file without starting the server.

All invalid fields are reported together. The command exits non-zero when the
configuration is invalid.

Examples:
  # Validate the default configuration file
  beacon validate

  # Validate with BEACON_* environment overrides applied
  beacon validate --config /etc/beacon/beacon.yaml --env

  # Machine-readable result
  beacon validate --output json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.env, "env", false, "apply BEACON_* environment overrides before validating")
	validateCmd.Flags().StringVarP(&validateFlags.output, "output", "o", "text", "output format: text, json, yaml")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(validateFlags.output))
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("cannot read %s: %v", cfgFile, err))
	}

	if validateFlags.env {
		_, err = config.LoadConfigWithEnvOverrides(cfgFile)
	} else {
		_, err = config.LoadConfig(cfgFile)
	}

	result := validationResult{File: cfgFile, Valid: err == nil, Errors: cli.ConfigErrors(err)}
	if ferr := formatter.FormatTo(cmd.OutOrStdout(), result); ferr != nil {
		return ferr
	}
	if !result.Valid {
		return cli.NewCommandError("validate", fmt.Errorf("%d configuration error(s)", len(result.Errors)))
	}
	return nil
}
