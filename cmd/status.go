package cmd

import (
	"os"

	"github.com/huangsam/indexhist/internal/iostore"
	"github.com/spf13/cobra"
)

// statusCmd shows what the database holds.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display stored units and row counts.",
	Long: `Show the configured backend, whether it is reachable, and the row count of
every stored index. When --record-runs is enabled the run log summary follows.

Examples:
  indexhist status
  indexhist status --db-backend mysql --record-runs yes`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		status, err := stores.Points().GetStatus(rootCtx)
		if err != nil {
			return err
		}
		iostore.PrintStoreStatus(os.Stdout, status)

		runs := stores.Runs()
		if runs == nil {
			return nil
		}
		runStatus, err := runs.GetStatus(rootCtx)
		if err != nil {
			return err
		}
		iostore.PrintRunStatus(os.Stdout, runStatus)
		return nil
	},
}
