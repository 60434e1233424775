package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/internal/parquet"
	"github.com/huangsam/indexhist/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// seriesDocument is the JSON shape of a printed series.
type seriesDocument struct {
	Unit   string         `json:"unit"`
	Period schema.Period  `json:"period"`
	Count  int            `json:"count"`
	Points []schema.Point `json:"points"`
}

// WritePointResults outputs points, dispatching based on the output format configured.
func WritePointResults(w io.Writer, key schema.SeriesKey, points []schema.Point, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, fmtDelta := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		doc := seriesDocument{Unit: key.Unit(), Period: key.Period, Count: len(points), Points: points}
		if err := writeWithFile(w, cfg.OutputFile, func(out io.Writer) error {
			return writeJSON(out, doc)
		}, "Wrote JSON points"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(w, cfg.OutputFile, func(out io.Writer) error {
			return writeCSVPoints(out, key.Unit(), points, fmtFloat)
		}, "Wrote CSV points"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := parquet.WritePointsParquet(parquet.ConvertPoints(key.Unit(), points), cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
		_, _ = fmt.Fprintf(w, "Wrote %d points to %s\n", len(points), cfg.OutputFile)
	default:
		// Default to human-readable table
		if err := writePointsTable(w, key, points, cfg, fmtFloat, fmtDelta, duration); err != nil {
			return fmt.Errorf("error writing points table output: %w", err)
		}
	}
	return nil
}

// writeCSVPoints writes one row per point.
func writeCSVPoints(w io.Writer, unit string, points []schema.Point, fmtFloat func(float64) string) error {
	return writeCSVWithHeader(w, []string{"unit", "timestamp", "value"}, func(cw *csv.Writer) error {
		for _, p := range points {
			row := []string{unit, p.Timestamp.Format(contract.DateTimeFormat), fmtFloat(p.Value)}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// writePointsTable prints the points with the change against the previous point.
func writePointsTable(w io.Writer, key schema.SeriesKey, points []schema.Point, cfg *contract.Config,
	fmtFloat, fmtDelta func(float64) string, duration time.Duration,
) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"#", "Timestamp", "Value", "Change"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for i, p := range points {
		change := ""
		if i > 0 {
			change = formatChange(p.Value-points[i-1].Value, fmtDelta, cfg.UseColors)
		}
		data = append(data, []string{
			strconv.Itoa(i + 1),
			p.Timestamp.Format(contract.DateTimeFormat),
			fmtFloat(p.Value),
			change,
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "Fetched %d points for %s (%s) in %v\n", len(points), key.Unit(), key.Period, duration)
	return nil
}

// formatChange renders a delta, colored by direction when colors are enabled.
func formatChange(delta float64, fmtDelta func(float64) string, useColors bool) string {
	s := fmtDelta(delta)
	if !useColors {
		return s
	}
	switch {
	case delta > 0:
		return contract.UpColor.Sprint(s)
	case delta < 0:
		return contract.DownColor.Sprint(s)
	default:
		return contract.FlatColor.Sprint(s)
	}
}
