// Package parquet exports index points and ingest runs to Parquet files
// using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/indexhist/schema"
	"github.com/parquet-go/parquet-go"
)

// PointRow is one point of one storage unit.
type PointRow struct {
	// Unit is the storage unit (upper-cased index name) the point belongs to
	Unit string `parquet:"unit,snappy,dict"`

	// Timestamp is the instant of the observation (stored as TIMESTAMP with nanosecond precision)
	Timestamp time.Time `parquet:"timestamp,snappy"`

	// Value is the index value at Timestamp
	Value float64 `parquet:"value,snappy"`
}

// IngestRunRow maps to the indexhist_ingest_runs database table.
type IngestRunRow struct {
	RunID     int64     `parquet:"run_id,snappy"`
	Unit      string    `parquet:"unit_name,snappy,dict"`
	Period    string    `parquet:"period,snappy,dict"`
	Strategy  string    `parquet:"strategy,snappy,dict"`
	Requested int32     `parquet:"requested,snappy"`
	Inserted  int32     `parquet:"inserted,snappy"`
	StartTime time.Time `parquet:"start_time,snappy"`
	EndTime   time.Time `parquet:"end_time,snappy"`

	// ErrorText is set only for failed runs (nullable)
	ErrorText *string `parquet:"error_text,optional,snappy"`
}

// writeRows writes rows of any struct type to a new file at outputPath.
func writeRows[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// The schema is derived from the struct tags of T
	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	// Close flushes the footer, so its error matters
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return file.Close()
}

// WritePointsParquet writes a slice of PointRow structs to a Parquet file.
func WritePointsParquet(data []PointRow, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteIngestRunsParquet writes a slice of IngestRunRow structs to a Parquet file.
func WriteIngestRunsParquet(data []IngestRunRow, outputPath string) error {
	return writeRows(data, outputPath)
}

// ConvertPoints converts the points of one unit to PointRow for Parquet export.
func ConvertPoints(unit string, points []schema.Point) []PointRow {
	result := make([]PointRow, len(points))
	for i, p := range points {
		result[i] = PointRow{
			Unit:      unit,
			Timestamp: p.Timestamp,
			Value:     p.Value,
		}
	}
	return result
}

// ConvertIngestRuns converts schema.IngestRun to IngestRunRow for Parquet export.
func ConvertIngestRuns(runs []schema.IngestRun) []IngestRunRow {
	result := make([]IngestRunRow, len(runs))
	for i, run := range runs {
		result[i] = IngestRunRow{
			RunID:     run.RunID,
			Unit:      run.Unit,
			Period:    string(run.Period),
			Strategy:  string(run.Strategy),
			Requested: int32(run.Requested),
			Inserted:  int32(run.Inserted),
			StartTime: run.StartTime,
			EndTime:   run.EndTime,
			ErrorText: run.ErrorText,
		}
	}
	return result
}
