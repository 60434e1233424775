package schema

import "time"

// StoreStatus represents the status of the point store.
type StoreStatus struct {
	Backend   string           `json:"backend"`
	Connected bool             `json:"connected"`
	Units     map[string]int64 `json:"units"` // Row count per storage unit found in the database
}

// RunStatus represents the status of the ingest run log.
type RunStatus struct {
	Backend       string    `json:"backend"`
	Connected     bool      `json:"connected"`
	TotalRuns     int       `json:"total_runs"`
	FailedRuns    int       `json:"failed_runs"`
	LastRunID     int64     `json:"last_run_id"`
	LastRunTime   time.Time `json:"last_run_time"`
	OldestRunTime time.Time `json:"oldest_run_time"`
}
