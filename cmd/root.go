package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/internal/fetch"
	"github.com/huangsam/indexhist/internal/iostore"
	"github.com/huangsam/indexhist/internal/outwriter"
	"github.com/huangsam/indexhist/schema"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// logger is built from --log-level during setup.
var logger = contract.NewSilentLogger()

// stores is opened by sharedSetup and closed by Execute.
var stores *iostore.StoreManager

// dbEnvBindings maps database keys to the bare env vars used by deployments.
var dbEnvBindings = map[string]string{
	"db-host": "DB_HOST",
	"db-port": "DB_PORT",
	"db-name": "DB_NAME",
	"db-user": "DB_USER",
	"db-pass": "DB_PASS",
}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "indexhist",
	Short:              "Fetch and store the price history of financial indexes.",
	Long:               `Indexhist pulls index history from the producer's page or API and keeps an idempotent copy in SQL.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in the .env file and ENV variables if set.
func initConfig() {
	// A missing .env is the common case
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		contract.LogWarn("Cannot load .env file", err)
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("INDEXHIST")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	for key, env := range dbEnvBindings {
		if err := viper.BindEnv(key, "INDEXHIST_"+env, env); err != nil {
			contract.LogWarn("Cannot bind "+env, err)
		}
	}

	// Set defaults in Viper
	viper.SetDefault("period", schema.PeriodYear)
	viper.SetDefault("last", contract.DefaultLast)
	viper.SetDefault("strategy", schema.PageStrategy)
	viper.SetDefault("fetch-timeout", contract.DefaultFetchTimeout.String())
	viper.SetDefault("rate-limit", contract.DefaultRateLimit)
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("color", "yes")
	viper.SetDefault("log-level", contract.DefaultLogLevel)
	viper.SetDefault("record-runs", "no")
	viper.SetDefault("db-backend", schema.SQLiteBackend)
}

// loadConfigFile handles config file loading logic common to all setup functions.
func loadConfigFile() error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".indexhist") // Name of config file (without extension)
		viper.SetConfigType("yaml")       // We'll use YAML format
		viper.AddConfigPath(".")          // Look in the current directory
		viper.AddConfigPath("$HOME")      // Look in the home directory
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// configSetup resolves and validates the configuration without touching the database.
func configSetup() error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing before any fetch.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}

	// Colors only make sense on a terminal
	cfg.UseColors = cfg.UseColors && outwriter.ColorsSupported()
	logger = contract.NewLogger(cfg.LogLevel)
	return nil
}

// sharedSetup validates the config and opens the stores.
func sharedSetup(_ context.Context, _ *cobra.Command, _ []string) error {
	if err := configSetup(); err != nil {
		return err
	}

	// 4. Initialize persistence layer with validated config
	mgr, err := iostore.OpenStores(cfg.DBBackend, cfg.DBConnect, cfg.RecordRuns, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	stores = mgr
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// configSetupWrapper is the PreRunE of commands that never open the point store.
func configSetupWrapper(_ *cobra.Command, _ []string) error {
	return configSetup()
}

// newFetcher builds a fetcher for the strategy using the resolved config.
func newFetcher(strategy schema.FetchStrategy) (contract.Fetcher, error) {
	opts := []fetch.Option{
		fetch.WithTimeout(cfg.FetchTimeout),
		fetch.WithRateLimit(cfg.RateLimit),
		fetch.WithLogger(logger),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, fetch.WithBaseURL(cfg.BaseURL))
	}
	return fetch.NewFetcher(strategy, opts...)
}

// Execute runs the root command and closes whatever stores it opened.
func Execute() error {
	err := rootCmd.Execute()
	if stores != nil {
		err = errors.Join(err, stores.Close())
	}
	return err
}
