package schema

import "time"

// SaveResult summarizes one bulk write into a storage unit.
type SaveResult struct {
	Unit      string `json:"unit"`      // Storage unit that was written
	Requested int    `json:"requested"` // Number of points passed in
	Inserted  int    `json:"inserted"`  // Number of rows actually added; the rest collided on (timestamp, value)
}

// Skipped returns how many points collided with rows already stored.
func (r SaveResult) Skipped() int {
	return r.Requested - r.Inserted
}

// IngestRun represents a row from the indexhist_ingest_runs table.
type IngestRun struct {
	RunID     int64
	Unit      string
	Period    Period
	Strategy  FetchStrategy
	Requested int
	Inserted  int
	StartTime time.Time
	EndTime   time.Time
	ErrorText *string
}

// Succeeded reports whether the run finished without an error.
func (r IngestRun) Succeeded() bool {
	return r.ErrorText == nil
}
