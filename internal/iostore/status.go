package iostore

import (
	"fmt"
	"io"
	"sort"

	"github.com/huangsam/indexhist/schema"
)

const statusTimeFormat = "2006-01-02 15:04:05"

// PrintStoreStatus prints point store status information.
func PrintStoreStatus(w io.Writer, status schema.StoreStatus) {
	_, _ = fmt.Fprintf(w, "Store Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Units: %d\n", len(status.Units))

	units := make([]string, 0, len(status.Units))
	for unit := range status.Units {
		units = append(units, unit)
	}
	sort.Strings(units)
	for _, unit := range units {
		_, _ = fmt.Fprintf(w, "  %s: %d rows\n", unit, status.Units[unit])
	}
}

// PrintRunStatus prints run log status information.
func PrintRunStatus(w io.Writer, status schema.RunStatus) {
	_, _ = fmt.Fprintf(w, "Run Log Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Runs: %d\n", status.TotalRuns)
	if status.TotalRuns > 0 {
		_, _ = fmt.Fprintf(w, "Failed Runs: %d\n", status.FailedRuns)
		_, _ = fmt.Fprintf(w, "Last Run ID: %d\n", status.LastRunID)
		_, _ = fmt.Fprintf(w, "Last Run: %s\n", status.LastRunTime.Format(statusTimeFormat))
		_, _ = fmt.Fprintf(w, "Oldest Run: %s\n", status.OldestRunTime.Format(statusTimeFormat))
	}
}
