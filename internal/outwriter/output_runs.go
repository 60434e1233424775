package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/internal/parquet"
	"github.com/huangsam/indexhist/schema"
	"github.com/olekukonko/tablewriter"
)

// WriteRunResults outputs ingest runs, dispatching based on the output format configured.
func WriteRunResults(w io.Writer, runs []schema.IngestRun, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(w, cfg.OutputFile, func(out io.Writer) error {
			return writeJSON(out, runs)
		}, "Wrote JSON runs")
	case schema.CSVOut:
		return writeWithFile(w, cfg.OutputFile, func(out io.Writer) error {
			return writeCSVWithHeader(out, runHeader, func(cw *csv.Writer) error {
				for _, run := range runs {
					if err := cw.Write(runRow(run, false)); err != nil {
						return err
					}
				}
				return nil
			})
		}, "Wrote CSV runs")
	case schema.ParquetOut:
		if err := parquet.WriteIngestRunsParquet(parquet.ConvertIngestRuns(runs), cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
		_, _ = fmt.Fprintf(w, "Wrote %d runs to %s\n", len(runs), cfg.OutputFile)
		return nil
	default:
		table := tablewriter.NewWriter(w)
		table.Header(runHeader)
		var data [][]string
		for _, run := range runs {
			data = append(data, runRow(run, cfg.UseColors))
		}
		if err := table.Bulk(data); err != nil {
			return err
		}
		return table.Render()
	}
}

var runHeader = []string{"run_id", "unit", "period", "strategy", "requested", "inserted", "started", "duration", "error"}

func runRow(run schema.IngestRun, useColors bool) []string {
	errText := ""
	if run.ErrorText != nil {
		errText = *run.ErrorText
		if useColors {
			errText = contract.DownColor.Sprint(errText)
		}
	}
	return []string{
		strconv.FormatInt(run.RunID, 10),
		run.Unit,
		string(run.Period),
		string(run.Strategy),
		strconv.Itoa(run.Requested),
		strconv.Itoa(run.Inserted),
		run.StartTime.Format(contract.DateTimeFormat),
		run.EndTime.Sub(run.StartTime).String(),
		errText,
	}
}
