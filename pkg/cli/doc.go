/*
Package cli provides command-line interface utilities for quaestor.

The cli package includes output formatters, budget bar rendering, and
common CLI helpers used by the quaestor command.

Output Formatting:

The cli package supports multiple output formats (text, JSON, CSV) for
displaying command results:

	formatter := cli.NewFormatter(cli.FormatJSON)
	data := MyCommandResult{...}
	if err := formatter.FormatTo(os.Stdout, data); err != nil {
		return err
	}

Tabular data renders aligned in text mode and as records in CSV mode:

	table := &cli.Table{
		Headers: []string{"TIME", "MODEL", "COST"},
		Rows:    rows,
	}
	formatter.FormatTo(os.Stdout, table)

Budget Bars:

Budget percentages render as colored progress bars, green under 50%,
yellow from 50%, red from 80%:

	bar := cli.Colorize(cli.Bar(status.DailyPercent, 20), cli.ColorForPercent(status.DailyPercent))

Colors honor NO_COLOR and are disabled when stdout is not a terminal.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.ShutdownContext(context.Background())
	defer stop()
	// Use ctx for operations that should end on shutdown
*/
package cli
