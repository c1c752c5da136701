/*
Package cli holds the helpers shared by the curve command: typed command
errors with their exit codes, text and JSON output formatting, and a
signal-aware root context.

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, summary); err != nil {
		return err
	}
*/
package cli
