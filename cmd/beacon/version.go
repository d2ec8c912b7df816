package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"storefront/beacon/pkg/cli"
)

var (
	// Version is the semantic version (set by build flags)
	Version = "0.1.0"
	// GitCommit is the git commit hash (set by build flags)
	GitCommit = "unknown"
	// BuildDate is the build timestamp (set by build flags)
	BuildDate = "unknown"
)

// versionInfo is the output of the version command.
type versionInfo struct {
	Version   string `json:"version" yaml:"version"`
	GitCommit string `json:"git_commit" yaml:"git_commit"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

func currentVersion() versionInfo {
	return versionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (v versionInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Beacon %s\n", v.Version)
	fmt.Fprintf(&sb, "Git Commit: %s\n", v.GitCommit)
	fmt.Fprintf(&sb, "Build Date: %s\n", v.BuildDate)
	fmt.Fprintf(&sb, "Go Version: %s\n", v.GoVersion)
	fmt.Fprintf(&sb, "OS/Arch: %s\n", v.Platform)
	return sb.String()
}

var versionFlags struct {
	output string
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print detailed version information including Git commit and build date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := cli.NewFormatter(cli.OutputFormat(versionFlags.output))
		if err != nil {
			return err
		}
		return formatter.FormatTo(cmd.OutOrStdout(), currentVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVarP(&versionFlags.output, "output", "o", "text", "output format: text, json, yaml")
}
