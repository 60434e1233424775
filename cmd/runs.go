package cmd

import (
	"fmt"

	"github.com/huangsam/indexhist/internal/iostore"
	"github.com/huangsam/indexhist/internal/outwriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runsCmd focused on the ingest run log.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect and migrate the ingest run log",
	Long: `Manage the ingest run log kept alongside the index tables.

With --record-runs enabled, every save writes one row holding the unit,
period, strategy, requested and inserted counts, timing and any error.

Subcommands:
  list    - Show the most recent runs
  migrate - Run database schema migrations

Examples:
  indexhist runs list --limit 5
  indexhist runs list --output parquet --output-file runs.parquet
  indexhist runs migrate --target-version 0`,
}

// runsListCmd prints recent runs.
var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the most recent ingest runs",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Listing implies the run log, whatever --record-runs says
		viper.Set("record-runs", "yes")
		return sharedSetupWrapper(cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		runs, err := stores.Runs().ListRuns(rootCtx, viper.GetInt("limit"))
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter().WriteRuns(runs, cfg)
	},
}

// runsMigrateCmd runs database migrations for the run log.
var runsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage schema versions of the ingest run log.

By default, migrates to the latest version. Use --target-version for specific versions.
Index tables are not versioned; they are created on first use.

Examples:
  # Migrate to latest version (default)
  indexhist runs migrate

  # Rollback to the initial state
  indexhist runs migrate --target-version 0`,
	PreRunE: configSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		msg, err := iostore.MigrateRuns(cfg.DBBackend, cfg.DBConnect, viper.GetInt("target-version"))
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		fmt.Println(msg)
		return nil
	},
}
