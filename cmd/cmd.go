// Package cmd defines the command-line interface for indexhist.
package cmd

import (
	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the runs subcommands to the parent runs command
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("period", string(schema.PeriodYear), "History period: year or all")
	rootCmd.PersistentFlags().IntP("last", "n", contract.DefaultLast, "Keep only the last N points (0 keeps all)")
	rootCmd.PersistentFlags().String("strategy", string(schema.PageStrategy), "Fetch strategy: page or api or browser")
	rootCmd.PersistentFlags().String("base-url", "", "Override the producer base URL")
	rootCmd.PersistentFlags().String("fetch-timeout", contract.DefaultFetchTimeout.String(), "Per-request fetch timeout")
	rootCmd.PersistentFlags().Int("rate-limit", contract.DefaultRateLimit, "Maximum producer requests per second")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("log-level", contract.DefaultLogLevel, "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("record-runs", "no", "Write one ingest run row per save (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("db-backend", string(schema.SQLiteBackend), "Database backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("db-path", "", "SQLite database file (default $HOME/.indexhist.db)")
	rootCmd.PersistentFlags().String("db-host", "", "Database host for mysql/postgresql (env DB_HOST)")
	rootCmd.PersistentFlags().String("db-port", "", "Database port for mysql/postgresql (env DB_PORT)")
	rootCmd.PersistentFlags().String("db-name", "", "Database name for mysql/postgresql (env DB_NAME)")
	rootCmd.PersistentFlags().String("db-user", "", "Database user for mysql/postgresql (env DB_USER)")
	rootCmd.PersistentFlags().String("db-pass", "", "Database password for mysql/postgresql (prefer env DB_PASS)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of loadCmd to Viper
	loadCmd.Flags().String("start", "", "Inclusive lower bound, RFC3339 or YYYY-MM-DD")
	loadCmd.Flags().String("end", "", "Inclusive upper bound, RFC3339 or YYYY-MM-DD")
	if err := viper.BindPFlags(loadCmd.Flags()); err != nil {
		contract.LogFatal("Error binding load flags", err)
	}

	// Bind all flags of runsListCmd to Viper
	runsListCmd.Flags().Int("limit", 20, "Number of runs to display (0 = all)")
	if err := viper.BindPFlags(runsListCmd.Flags()); err != nil {
		contract.LogFatal("Error binding runs list flags", err)
	}

	// Bind all flags of runsMigrateCmd to Viper
	runsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(runsMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding runs migrate flags", err)
	}
}
