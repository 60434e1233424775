package iostore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/schema"
)

// runsTable records one row per ingest attempt.
const runsTable = "indexhist_ingest_runs"

const runColumns = "run_id, unit_name, period, strategy, requested, inserted, start_time, end_time, error_text"

// RunStoreImpl implements the RunStore interface.
type RunStoreImpl struct {
	db      *sql.DB
	ownsDB  bool // False when the handle is shared through a StoreManager
	backend schema.DatabaseBackend
	logger  *contract.Logger
}

var _ contract.RunStore = &RunStoreImpl{} // Compile-time check

// NewRunStore migrates the run log to the latest version and opens it.
func NewRunStore(backend schema.DatabaseBackend, connStr string, logger *contract.Logger) (contract.RunStore, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled tracking
		return newRunStore(nil, backend, logger, false), nil
	}

	if err := migrateRunsLatest(backend, connStr, logger); err != nil {
		return nil, err
	}

	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, contract.NewPersistenceError("open run log", err)
	}
	return newRunStore(db, backend, logger, true), nil
}

func newRunStore(db *sql.DB, backend schema.DatabaseBackend, logger *contract.Logger, ownsDB bool) *RunStoreImpl {
	if logger == nil {
		logger = contract.NewSilentLogger()
	}
	return &RunStoreImpl{db: db, ownsDB: ownsDB, backend: backend, logger: logger}
}

// migrateRunsLatest brings the run log to the latest schema version.
func migrateRunsLatest(backend schema.DatabaseBackend, connStr string, logger *contract.Logger) error {
	msg, err := MigrateRuns(backend, connStr, -1)
	if err != nil {
		return contract.NewPersistenceError("migrate run log", err)
	}
	if logger != nil {
		logger.Debug().Str("backend", string(backend)).Msg(msg)
	}
	return nil
}

// getInsertRunQuery returns the INSERT statement for a run row.
func getInsertRunQuery(backend schema.DatabaseBackend) string {
	switch backend {
	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			INSERT INTO %s (unit_name, period, strategy, requested, inserted, start_time, end_time, error_text)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING run_id
		`, runsTable)
	default: // MySQL and SQLite
		return fmt.Sprintf(`
			INSERT INTO %s (unit_name, period, strategy, requested, inserted, start_time, end_time, error_text)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, runsTable)
	}
}

// RecordRun stores a finished run and returns its ID. NoneBackend returns 0.
func (rs *RunStoreImpl) RecordRun(ctx context.Context, run schema.IngestRun) (int64, error) {
	if rs.backend == schema.NoneBackend || rs.db == nil {
		return 0, nil
	}

	var errorText any
	if run.ErrorText != nil {
		errorText = *run.ErrorText
	}
	args := []any{
		run.Unit,
		string(run.Period),
		string(run.Strategy),
		run.Requested,
		run.Inserted,
		formatTime(run.StartTime, rs.backend),
		formatTime(run.EndTime, rs.backend),
		errorText,
	}

	var runID int64
	err := withConn(ctx, rs.db, func(conn *sql.Conn) error {
		query := getInsertRunQuery(rs.backend)
		if rs.backend == schema.PostgreSQLBackend {
			return conn.QueryRowContext(ctx, query, args...).Scan(&runID)
		}
		res, err := conn.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		runID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, contract.NewPersistenceError("failed to record ingest run", err)
	}

	rs.logger.Debug().Int64("run_id", runID).Str("unit", run.Unit).Msg("recorded ingest run")
	return runID, nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns all runs.
func (rs *RunStoreImpl) ListRuns(ctx context.Context, limit int) ([]schema.IngestRun, error) {
	runs := []schema.IngestRun{}
	if rs.backend == schema.NoneBackend || rs.db == nil {
		return runs, nil
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY run_id DESC", runColumns, runsTable)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	err := withConn(ctx, rs.db, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			run, err := scanRun(rows)
			if err != nil {
				return err
			}
			runs = append(runs, run)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, contract.NewPersistenceError("failed to list ingest runs", err)
	}
	return runs, nil
}

// scanRun reads one row selected with runColumns.
func scanRun(rows *sql.Rows) (schema.IngestRun, error) {
	var run schema.IngestRun
	var period, strategy string
	var rawStart, rawEnd any
	var errorText sql.NullString

	if err := rows.Scan(&run.RunID, &run.Unit, &period, &strategy, &run.Requested, &run.Inserted,
		&rawStart, &rawEnd, &errorText); err != nil {
		return run, err
	}

	var err error
	if run.StartTime, err = parseTime(rawStart); err != nil {
		return run, err
	}
	if run.EndTime, err = parseTime(rawEnd); err != nil {
		return run, err
	}
	run.Period = schema.Period(period)
	run.Strategy = schema.FetchStrategy(strategy)
	if errorText.Valid {
		run.ErrorText = &errorText.String
	}
	return run, nil
}

// GetStatus returns status information about the run log.
func (rs *RunStoreImpl) GetStatus(ctx context.Context) (schema.RunStatus, error) {
	status := schema.RunStatus{
		Backend:   string(rs.backend),
		Connected: rs.db != nil,
	}
	if rs.backend == schema.NoneBackend || rs.db == nil {
		return status, nil
	}

	err := withConn(ctx, rs.db, func(conn *sql.Conn) error {
		query := fmt.Sprintf(`SELECT COUNT(*), COUNT(error_text), COALESCE(MAX(run_id), 0) FROM %s`, runsTable)
		if err := conn.QueryRowContext(ctx, query).Scan(&status.TotalRuns, &status.FailedRuns, &status.LastRunID); err != nil {
			return err
		}
		if status.TotalRuns == 0 {
			return nil
		}

		var rawOldest, rawLatest any
		query = fmt.Sprintf(`SELECT MIN(start_time), MAX(start_time) FROM %s`, runsTable)
		if err := conn.QueryRowContext(ctx, query).Scan(&rawOldest, &rawLatest); err != nil {
			return err
		}
		var err error
		if status.OldestRunTime, err = parseTime(rawOldest); err != nil {
			return err
		}
		status.LastRunTime, err = parseTime(rawLatest)
		return err
	})
	if err != nil {
		return status, contract.NewPersistenceError("failed to get run log status", err)
	}
	return status, nil
}

// Close closes the underlying DB connection pool unless it is shared.
func (rs *RunStoreImpl) Close() error {
	if rs.db != nil && rs.ownsDB {
		return rs.db.Close()
	}
	return nil
}

// NewRun starts a run record for the unit with the current time as its start.
func NewRun(unit string, period schema.Period, strategy schema.FetchStrategy) schema.IngestRun {
	return schema.IngestRun{
		Unit:      unit,
		Period:    period,
		Strategy:  strategy,
		StartTime: time.Now().UTC(),
	}
}
