package cmd

import (
	"time"

	"github.com/huangsam/indexhist/internal/outwriter"
	"github.com/huangsam/indexhist/internal/parser"
	"github.com/spf13/cobra"
)

// fetchCmd prints the history of one index without storing it.
var fetchCmd = &cobra.Command{
	Use:   "fetch <index>",
	Short: "Print the history of an index.",
	Long: `Fetch the historical series of an index from the producer and print it.

Nothing is written to the database. The series comes from the state block
embedded in the public index page (page), from the producer JSON API (api),
or from a headless Chrome rendering of the page (browser).

When the requested period has no data, the year series is used instead.

Examples:
  # Show the last 10 points of the yearly series
  indexhist fetch tipous --last 10

  # Full history as CSV
  indexhist fetch imoex --period all --output csv --output-file imoex.csv

  # Use the JSON API instead of the page
  indexhist fetch tipous --strategy api --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: configSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		start := time.Now()
		fetcher, err := newFetcher(cfg.Strategy)
		if err != nil {
			return err
		}
		p, err := parser.New(args[0], cfg.Period, fetcher, nil, parser.WithLogger(logger))
		if err != nil {
			return err
		}
		points, err := p.GetData(rootCtx, cfg.Last)
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter().WritePoints(p.Key(), points, cfg, time.Since(start))
	},
}
