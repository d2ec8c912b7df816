package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"storefront/beacon/pkg/cli"
	"storefront/beacon/pkg/config"
	"storefront/beacon/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	upstream      string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the beacon sidecar",
	Long: `Start the beacon sidecar with the specified configuration.

The server listens on the configured address, serves /metrics and the health
endpoints, and instruments and proxies every other request to the upstream
application.

Examples:
  # Start with default config
  beacon run

  # Start with custom config
  beacon run --config /etc/beacon/beacon.yaml

  # Override listen address and upstream
  beacon run --listen 0.0.0.0:9400 --upstream http://127.0.0.1:3000

  # Validate config without starting server
  beacon run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVarP(&runFlags.upstream, "upstream", "u", "", "override upstream application URL")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.upstream != "" {
		cfg.Proxy.UpstreamURL = runFlags.upstream
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	logger, err := logging.New(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		Writer:    os.Stdout,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger.Slog())

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	printBanner(cmd, cfg)

	a, err := newApp(cfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	runErr := a.run(ctx, cfgFile)

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.close(closeCtx)

	if runErr != nil {
		return cli.NewCommandError("run", runErr)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Server stopped")
	return nil
}

func printBanner(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Beacon v%s\n", Version)
	fmt.Fprintf(out, "Loading configuration from: %s\n", cfgFile)
	fmt.Fprintf(out, "✓ Listening on %s\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(out, "✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintf(out, "✓ Health endpoint: http://%s/health\n", cfg.Server.ListenAddress)
	if cfg.Proxy.UpstreamURL != "" {
		fmt.Fprintf(out, "✓ Upstream: %s\n", cfg.Proxy.UpstreamURL)
	} else {
		fmt.Fprintln(out, "! No upstream configured, application routes answer 404")
	}
}
