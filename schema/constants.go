package schema

import (
	"fmt"
	"strings"
)

// Custom string types for type safety.
type (
	// Period selects which historical sub-series of an index to use.
	Period string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for persistence.
	DatabaseBackend string

	// FetchStrategy represents how the raw payload is obtained from the producer.
	FetchStrategy string

	// PayloadFormat describes what kind of document a fetcher returned.
	PayloadFormat string
)

// All periods supported by the producer. The producer serves the same
// data set for half-year and year, so only these two exist.
const (
	PeriodYear Period = "year" // default
	PeriodAll  Period = "all"
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All fetch strategies supported.
const (
	PageStrategy    FetchStrategy = "page" // default
	APIStrategy     FetchStrategy = "api"
	BrowserStrategy FetchStrategy = "browser"
)

// All payload formats a fetcher can produce.
const (
	MarkupPayload PayloadFormat = "markup"
	APIPayload    PayloadFormat = "api"
)

// ValidPeriods lists all valid periods.
var ValidPeriods = map[Period]struct{}{
	PeriodYear: {},
	PeriodAll:  {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidFetchStrategies lists all valid fetch strategies.
var ValidFetchStrategies = map[FetchStrategy]struct{}{
	PageStrategy:    {},
	APIStrategy:     {},
	BrowserStrategy: {},
}

// ParsePeriod converts user input into a Period, ignoring case and surrounding space.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := ValidPeriods[p]; !ok {
		return "", fmt.Errorf("invalid period '%s'. Must be year or all", s)
	}
	return p, nil
}
