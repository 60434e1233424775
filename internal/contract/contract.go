// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/indexhist/schema"
)

// Payload is the raw document a Fetcher returned for a series.
type Payload struct {
	Format schema.PayloadFormat // Tells the extractor how to decode Body
	Body   []byte               // Raw markup or JSON as received
	Source string               // URL the payload was read from
}

// Fetcher obtains the raw payload for a series from the producer.
// This allows the extraction logic to be tested without network access.
type Fetcher interface {
	// Fetch returns the raw payload or a *TransportError.
	Fetch(ctx context.Context, key schema.SeriesKey) (Payload, error)

	// Strategy reports which fetch strategy the implementation uses.
	Strategy() schema.FetchStrategy
}

// PointStore defines the interface for per-index point storage.
// This allows mocking the store for testing.
type PointStore interface {
	// EnsureUnit creates the storage unit for the index if it does not exist yet.
	EnsureUnit(ctx context.Context, index string) error

	// Save writes points into the unit of the index, skipping (timestamp, value) collisions.
	Save(ctx context.Context, index string, points []schema.Point) (schema.SaveResult, error)

	// Load reads points for the index, optionally bounded by inclusive start/end.
	Load(ctx context.Context, index string, start, end *time.Time) ([]schema.Point, error)

	// GetStatus returns status information about the store.
	GetStatus(ctx context.Context) (schema.StoreStatus, error)

	// Close closes the underlying connection pool.
	Close() error
}

// RunStore defines the interface for the ingest run log.
type RunStore interface {
	// RecordRun stores a finished run and returns its unique ID.
	RecordRun(ctx context.Context, run schema.IngestRun) (int64, error)

	// ListRuns returns the most recent runs first, at most limit rows.
	ListRuns(ctx context.Context, limit int) ([]schema.IngestRun, error)

	// GetStatus returns status information about the run log.
	GetStatus(ctx context.Context) (schema.RunStatus, error)

	// Close closes the underlying connection pool.
	Close() error
}

// IndexParser is the unit client code drives: one index/period pair fixed at construction.
type IndexParser interface {
	// GetData fetches, extracts and windows the series to its last points.
	GetData(ctx context.Context, last int) ([]schema.Point, error)

	// SaveToDB runs GetData and persists the result.
	SaveToDB(ctx context.Context, last int) (schema.SaveResult, error)
}
