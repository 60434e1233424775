package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteSaveResults outputs save outcomes, dispatching based on the output format configured.
// Parquet has no meaning for save outcomes and falls back to the table.
func WriteSaveResults(w io.Writer, results []schema.SaveResult, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(w, cfg.OutputFile, func(out io.Writer) error {
			return writeJSON(out, results)
		}, "Wrote JSON save results")
	case schema.CSVOut:
		return writeWithFile(w, cfg.OutputFile, func(out io.Writer) error {
			return writeCSVWithHeader(out, []string{"unit", "requested", "inserted", "skipped"}, func(cw *csv.Writer) error {
				for _, r := range results {
					if err := cw.Write(saveRow(r)); err != nil {
						return err
					}
				}
				return nil
			})
		}, "Wrote CSV save results")
	default:
		return writeSaveTable(w, results, cfg, duration)
	}
}

func saveRow(r schema.SaveResult) []string {
	return []string{r.Unit, strconv.Itoa(r.Requested), strconv.Itoa(r.Inserted), strconv.Itoa(r.Skipped())}
}

func writeSaveTable(w io.Writer, results []schema.SaveResult, cfg *contract.Config, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Unit", "Requested", "Inserted", "Skipped"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, r := range results {
		data = append(data, saveRow(r))
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "Saved %d series in %v with %d workers. Database backend: %s\n", len(results), duration, cfg.Workers, cfg.DBBackend)
	return nil
}
