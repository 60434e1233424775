package contract

import (
	"fmt"
	"net"
	"runtime"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/indexhist/schema"
)

// Default values for configuration.
const (
	DefaultLast         = 0
	DefaultPrecision    = 2
	MaxPrecision        = 6
	DefaultFetchTimeout = 10 * time.Second
	DefaultRateLimit    = 2 // requests per second
	DefaultLogLevel     = "warn"
)

// DefaultWorkers is the default number of concurrent workers to use for multi-index saves.
var DefaultWorkers = min(runtime.GOMAXPROCS(0), 4)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// DateFormat is the accepted short form for range filters.
const DateFormat = "2006-01-02"

// DBSettings holds the discrete connection settings for a server backend.
type DBSettings struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string // Please use env var as this is plaintext
}

// Config holds the runtime configuration.
// This struct remains the "final, validated" config.
type Config struct {
	Period   schema.Period
	Last     int
	Strategy schema.FetchStrategy
	BaseURL  string // Optional producer base URL override

	FetchTimeout time.Duration
	RateLimit    int
	Workers      int

	Output     schema.OutputMode
	OutputFile string
	Precision  int
	UseColors  bool

	// Inclusive range filters for reads; nil means unbounded.
	Start *time.Time
	End   *time.Time

	DBBackend  schema.DatabaseBackend
	DB         DBSettings
	DBPath     string // SQLite file path
	DBConnect  string // Resolved driver connection string
	RecordRuns bool   // Write one ingest run row per save

	LogLevel string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file, .env).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Period       string `mapstructure:"period"`
	Last         int    `mapstructure:"last"`
	Strategy     string `mapstructure:"strategy"`
	BaseURL      string `mapstructure:"base-url"`
	FetchTimeout string `mapstructure:"fetch-timeout"`
	RateLimit    int    `mapstructure:"rate-limit"`
	Workers      int    `mapstructure:"workers"`
	Output       string `mapstructure:"output"`
	OutputFile   string `mapstructure:"output-file"`
	Precision    int    `mapstructure:"precision"`
	Color        string `mapstructure:"color"`
	LogLevel     string `mapstructure:"log-level"`
	RecordRuns   string `mapstructure:"record-runs"`

	// --- Fields from loadCmd.Flags() ---
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`

	// --- Database settings; also bound to the bare DB_* env vars ---
	DBBackend string `mapstructure:"db-backend"`
	DBHost    string `mapstructure:"db-host"`
	DBPort    string `mapstructure:"db-port"`
	DBName    string `mapstructure:"db-name"`
	DBUser    string `mapstructure:"db-user"`
	DBPass    string `mapstructure:"db-pass"`
	DBPath    string `mapstructure:"db-path"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Start != nil {
		start := *c.Start
		clone.Start = &start
	}
	if c.End != nil {
		end := *c.End
		clone.End = &end
	}
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct. It runs before any fetch or store access.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processTimeRange(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	return nil
}

// validateSimpleInputs processes and validates all non-database fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.BaseURL = strings.TrimRight(input.BaseURL, "/")
	cfg.LogLevel = strings.ToLower(input.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	period, err := schema.ParsePeriod(input.Period)
	if err != nil {
		return err
	}
	cfg.Period = period

	if input.Last < 0 {
		return fmt.Errorf("last must not be negative (received %d)", input.Last)
	}
	cfg.Last = input.Last

	cfg.Strategy = schema.FetchStrategy(strings.ToLower(input.Strategy))
	if _, ok := schema.ValidFetchStrategies[cfg.Strategy]; !ok {
		return fmt.Errorf("invalid strategy '%s'. must be page, api, browser", input.Strategy)
	}

	cfg.FetchTimeout = DefaultFetchTimeout
	if input.FetchTimeout != "" {
		d, err := time.ParseDuration(input.FetchTimeout)
		if err != nil {
			return fmt.Errorf("invalid fetch-timeout '%s': %w", input.FetchTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("fetch-timeout must be positive (received %s)", input.FetchTimeout)
		}
		cfg.FetchTimeout = d
	}

	if input.RateLimit <= 0 {
		return fmt.Errorf("rate-limit must be greater than 0 (received %d)", input.RateLimit)
	}
	cfg.RateLimit = input.RateLimit

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	if input.Precision < 0 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 0 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	record, err := ParseBoolString(input.RecordRuns)
	if err != nil {
		return fmt.Errorf("invalid --record-runs value: %w", err)
	}
	cfg.RecordRuns = record

	return nil
}

// processTimeRange parses the optional inclusive range filters.
func processTimeRange(cfg *Config, input *ConfigRawInput) error {
	start, end, err := ParseRange(input.Start, input.End)
	if err != nil {
		return err
	}
	cfg.Start, cfg.End = start, end
	return nil
}

// ParseRange parses optional inclusive range bounds; an empty string leaves that side unbounded.
// A bare date for end covers that whole day.
func ParseRange(startStr, endStr string) (start, end *time.Time, err error) {
	if startStr != "" {
		t, _, err := ParseRangeTime(startStr)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid start time '%s': %w", startStr, err)
		}
		start = &t
	}
	if endStr != "" {
		t, dateOnly, err := ParseRangeTime(endStr)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid end time '%s': %w", endStr, err)
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Second)
		}
		end = &t
	}
	if start != nil && end != nil && start.After(*end) {
		return nil, nil, fmt.Errorf("start time (%s) cannot be after end time (%s)", start.Format(DateTimeFormat), end.Format(DateTimeFormat))
	}
	return start, end, nil
}

// ParseRangeTime accepts RFC3339 or YYYY-MM-DD and returns the time in UTC.
// The bool result reports whether the input was a bare date.
func ParseRangeTime(s string) (time.Time, bool, error) {
	if t, err := time.Parse(DateTimeFormat, s); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.ParseInLocation(DateFormat, s, time.UTC)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("expected %s or %s", DateTimeFormat, DateFormat)
	}
	return t, true, nil
}

// validateBackendConfigs validates the backend and resolves its connection string.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	cfg.DBBackend = schema.DatabaseBackend(strings.ToLower(input.DBBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.DBBackend]; !ok {
		return fmt.Errorf("invalid db backend '%s'. must be sqlite, mysql, postgresql, none", input.DBBackend)
	}
	cfg.DB = DBSettings{
		Host:     input.DBHost,
		Port:     input.DBPort,
		Name:     input.DBName,
		User:     input.DBUser,
		Password: input.DBPass,
	}
	cfg.DBPath = input.DBPath

	switch cfg.DBBackend {
	case schema.SQLiteBackend:
		if cfg.DBPath == "" {
			cfg.DBPath = GetDBFilePath()
		}
		cfg.DBConnect = cfg.DBPath
	case schema.MySQLBackend, schema.PostgreSQLBackend:
		if err := cfg.DB.Validate(); err != nil {
			return fmt.Errorf("%s backend: %w", cfg.DBBackend, err)
		}
		dsn, err := BuildConnectionString(cfg.DBBackend, cfg.DB)
		if err != nil {
			return err
		}
		cfg.DBConnect = dsn
	case schema.NoneBackend:
		cfg.DBConnect = ""
	}
	return nil
}

// Validate reports every missing required setting at once.
func (s DBSettings) Validate() error {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"DB_HOST", s.Host},
		{"DB_PORT", s.Port},
		{"DB_NAME", s.Name},
		{"DB_USER", s.User},
		{"DB_PASS", s.Password},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// BuildConnectionString turns discrete settings into a driver connection string.
func BuildConnectionString(backend schema.DatabaseBackend, s DBSettings) (string, error) {
	switch backend {
	case schema.MySQLBackend:
		mc := mysql.NewConfig()
		mc.User = s.User
		mc.Passwd = s.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(s.Host, s.Port)
		mc.DBName = s.Name
		mc.ParseTime = true
		mc.Loc = time.UTC
		return mc.FormatDSN(), nil
	case schema.PostgreSQLBackend:
		parts := []string{
			"host=" + pgQuote(s.Host),
			"port=" + pgQuote(s.Port),
			"user=" + pgQuote(s.User),
			"password=" + pgQuote(s.Password),
			"dbname=" + pgQuote(s.Name),
		}
		return strings.Join(parts, " "), nil
	default:
		return "", fmt.Errorf("connection settings are not used by the %s backend", backend)
	}
}

// pgQuote quotes a keyword/value connection parameter when needed.
func pgQuote(v string) string {
	if v != "" && !strings.ContainsAny(v, " '\\") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
