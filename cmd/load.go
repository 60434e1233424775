package cmd

import (
	"time"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/internal/outwriter"
	"github.com/huangsam/indexhist/schema"
	"github.com/spf13/cobra"
)

// loadCmd reads stored points of one index back.
var loadCmd = &cobra.Command{
	Use:   "load <index>",
	Short: "Print the stored history of an index.",
	Long: `Read the points stored for an index, in insertion order.

Both --start and --end are inclusive and optional. A bare date for --end
covers that whole day. An index that was never saved prints no rows.

Examples:
  # Everything stored for one index
  indexhist load tipous

  # One month as JSON
  indexhist load tipous --start 2024-01-01 --end 2024-01-31 --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		start := time.Now()
		if err := contract.ValidateUnitName(args[0]); err != nil {
			return err
		}
		points, err := stores.Points().Load(rootCtx, args[0], cfg.Start, cfg.End)
		if err != nil {
			return err
		}
		key := schema.SeriesKey{Index: args[0], Period: cfg.Period}
		return outwriter.NewOutWriter().WritePoints(key, points, cfg, time.Since(start))
	},
}
