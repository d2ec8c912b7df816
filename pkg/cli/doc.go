/*
Package cli provides command-line helpers shared by the beacon commands.

Output Formatting:

Commands that print results accept --output text, json or yaml:

	formatter, err := cli.NewFormatter(cli.FormatJSON)
	if err != nil {
		return err
	}
	return formatter.FormatTo(cmd.OutOrStdout(), info)

Configuration Errors:

ConfigErrors splits a configuration load failure into one error per
invalid field so that beacon validate can list all of them.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
