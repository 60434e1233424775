package cmd

import (
	"time"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/internal/outwriter"
	"github.com/huangsam/indexhist/internal/parser"
	"github.com/spf13/cobra"
)

// saveCmd fetches one or more indexes and stores them.
var saveCmd = &cobra.Command{
	Use:   "save <index>...",
	Short: "Fetch and store the history of one or more indexes.",
	Long: `Fetch the historical series of each index and insert it into its own table.

Each index is stored in a table named after the upper-cased index. Rows are
unique on (timestamp, value), so saving the same series again inserts nothing.
Timestamps are stored in UTC with whole-second precision.

Indexes are processed concurrently, bounded by --workers. The first failure
stops the remaining work and is reported.

Examples:
  # Store the yearly series of one index
  indexhist save tipous

  # Store several indexes into PostgreSQL and record each run
  DB_HOST=localhost DB_PORT=5432 DB_NAME=quotes DB_USER=app DB_PASS=secret \
    indexhist save tipous imoex rgbi --db-backend postgresql --record-runs yes

  # Only the newest 5 points
  indexhist save tipous --last 5`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		start := time.Now()

		// One fetcher keeps one rate limiter across all indexes
		fetcher, err := newFetcher(cfg.Strategy)
		if err != nil {
			return err
		}

		opts := []parser.Option{parser.WithLogger(logger)}
		if runs := stores.Runs(); runs != nil {
			opts = append(opts, parser.WithRunStore(runs))
		}

		parsers := make([]contract.IndexParser, 0, len(args))
		for _, index := range args {
			p, err := parser.New(index, cfg.Period, fetcher, stores.Points(), opts...)
			if err != nil {
				return err
			}
			parsers = append(parsers, p)
		}

		results, err := parser.SaveAll(rootCtx, parsers, cfg.Last, cfg.Workers)
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter().WriteSaveResults(results, cfg, time.Since(start))
	},
}
