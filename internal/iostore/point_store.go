package iostore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/schema"
	"github.com/jackc/pgx/v5/pgconn"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// PostgreSQL error codes raised when two sessions create the same table at once.
const (
	pgUniqueViolation = "23505"
	pgDuplicateTable  = "42P07"
)

// PointStoreImpl persists index points into one table per index.
// Every operation acquires its own connection and releases it before returning.
type PointStoreImpl struct {
	db      *sql.DB
	ownsDB  bool // False when the handle is shared through a StoreManager
	backend schema.DatabaseBackend
	logger  *contract.Logger
}

var _ contract.PointStore = &PointStoreImpl{} // Compile-time check

// NewPointStore initializes and returns a new PointStore based on the backend type.
func NewPointStore(backend schema.DatabaseBackend, connStr string, logger *contract.Logger) (contract.PointStore, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for dry runs
		return newPointStore(nil, backend, logger, false), nil
	}

	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, contract.NewPersistenceError("open point store", err)
	}
	return newPointStore(db, backend, logger, true), nil
}

func newPointStore(db *sql.DB, backend schema.DatabaseBackend, logger *contract.Logger, ownsDB bool) *PointStoreImpl {
	if logger == nil {
		logger = contract.NewSilentLogger()
	}
	return &PointStoreImpl{db: db, ownsDB: ownsDB, backend: backend, logger: logger}
}

// getCreateUnitQuery returns the CREATE TABLE query for a storage unit.
func getCreateUnitQuery(unit string, backend schema.DatabaseBackend) string {
	table := quoteIdent(unit, backend)
	ts := quoteIdent("timestamp", backend)
	val := quoteIdent("value", backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				%s DATETIME NOT NULL,
				%s DOUBLE NOT NULL,
				UNIQUE KEY unique_timestamp_value (%s, %s)
			);
		`, table, ts, val, ts, val)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				%s TIMESTAMP NOT NULL,
				%s DOUBLE PRECISION NOT NULL,
				UNIQUE (%s, %s)
			);
		`, table, ts, val, ts, val)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				%s TEXT NOT NULL,
				%s REAL NOT NULL,
				UNIQUE (%s, %s)
			);
		`, table, ts, val, ts, val)
	}
}

// getInsertIgnoreQuery returns the insert statement that skips (timestamp, value) collisions.
func getInsertIgnoreQuery(unit string, backend schema.DatabaseBackend) string {
	table := quoteIdent(unit, backend)
	ts := quoteIdent("timestamp", backend)
	val := quoteIdent("value", backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT IGNORE INTO %s (%s, %s) VALUES (?, ?)`, table, ts, val)
	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES ($1, $2) ON CONFLICT (%s, %s) DO NOTHING`, table, ts, val, ts, val)
	default: // SQLite
		return fmt.Sprintf(`INSERT OR IGNORE INTO %s (%s, %s) VALUES (?, ?)`, table, ts, val)
	}
}

// getSelectQuery returns the ranged select for a unit along with its bind arguments.
func getSelectQuery(unit string, backend schema.DatabaseBackend, start, end *time.Time) (string, []any) {
	ts := quoteIdent("timestamp", backend)
	query := fmt.Sprintf(`SELECT %s, %s FROM %s`, ts, quoteIdent("value", backend), quoteIdent(unit, backend))

	var conditions []string
	var args []any
	if start != nil {
		args = append(args, formatTime(*start, backend))
		conditions = append(conditions, fmt.Sprintf("%s >= %s", ts, placeholder(len(args), backend)))
	}
	if end != nil {
		args = append(args, formatTime(*end, backend))
		conditions = append(conditions, fmt.Sprintf("%s <= %s", ts, placeholder(len(args), backend)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	return query + " ORDER BY id", args
}

// resolveUnit validates the index and returns its storage unit name.
func resolveUnit(index string) (string, error) {
	if err := contract.ValidateUnitName(index); err != nil {
		return "", contract.NewPersistenceError("invalid storage unit", err)
	}
	return schema.UnitName(index), nil
}

// EnsureUnit creates the storage unit for the index if it does not exist yet.
func (ps *PointStoreImpl) EnsureUnit(ctx context.Context, index string) error {
	unit, err := resolveUnit(index)
	if err != nil {
		return err
	}
	if ps.backend == schema.NoneBackend || ps.db == nil {
		return nil
	}
	return ps.ensureUnit(ctx, unit)
}

func (ps *PointStoreImpl) ensureUnit(ctx context.Context, unit string) error {
	err := withConn(ctx, ps.db, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, getCreateUnitQuery(unit, ps.backend))
		return err
	})
	if err != nil && !isConcurrentCreate(err) {
		return contract.NewPersistenceError("failed to create table "+unit, err)
	}
	return nil
}

// isConcurrentCreate reports whether a CREATE TABLE IF NOT EXISTS lost a race
// against another session creating the same table.
func isConcurrentCreate(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation || pgErr.Code == pgDuplicateTable
	}
	return false
}

// Save writes points into the unit of the index within one transaction.
// Timestamps are truncated to whole seconds; rows colliding on (timestamp, value) are skipped.
func (ps *PointStoreImpl) Save(ctx context.Context, index string, points []schema.Point) (schema.SaveResult, error) {
	unit, err := resolveUnit(index)
	if err != nil {
		return schema.SaveResult{}, err
	}
	result := schema.SaveResult{Unit: unit, Requested: len(points)}
	if ps.backend == schema.NoneBackend || ps.db == nil {
		return result, nil
	}

	if err := ps.ensureUnit(ctx, unit); err != nil {
		return result, err
	}

	query := getInsertIgnoreQuery(unit, ps.backend)
	err = withConn(ctx, ps.db, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, p := range points {
			res, err := stmt.ExecContext(ctx, formatTime(TruncatePoint(p).Timestamp, ps.backend), p.Value)
			if err != nil {
				return fmt.Errorf("failed to insert point at %s: %w", p.Timestamp.Format(time.RFC3339), err)
			}
			if n, err := res.RowsAffected(); err == nil {
				result.Inserted += int(n)
			}
		}
		return tx.Commit()
	})
	if err != nil {
		result.Inserted = 0
		return result, contract.NewPersistenceError("failed to save points into "+unit, err)
	}

	ps.logger.Debug().Str("unit", unit).Int("requested", result.Requested).Int("inserted", result.Inserted).Msg("saved points")
	return result, nil
}

// TruncatePoint drops the sub-second part of the point timestamp and moves it to UTC.
func TruncatePoint(p schema.Point) schema.Point {
	return schema.Point{Timestamp: p.Timestamp.UTC().Truncate(time.Second), Value: p.Value}
}

// Load reads points of the index in insertion order, optionally bounded by inclusive start/end.
func (ps *PointStoreImpl) Load(ctx context.Context, index string, start, end *time.Time) ([]schema.Point, error) {
	unit, err := resolveUnit(index)
	if err != nil {
		return nil, err
	}
	if ps.backend == schema.NoneBackend || ps.db == nil {
		return []schema.Point{}, nil
	}

	if err := ps.ensureUnit(ctx, unit); err != nil {
		return nil, err
	}

	query, args := getSelectQuery(unit, ps.backend, start, end)
	points := []schema.Point{}
	err = withConn(ctx, ps.db, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var rawTS any
			var value float64
			if err := rows.Scan(&rawTS, &value); err != nil {
				return err
			}
			ts, err := parseTime(rawTS)
			if err != nil {
				return err
			}
			points = append(points, schema.Point{Timestamp: ts, Value: value})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, contract.NewPersistenceError("failed to load points from "+unit, err)
	}
	return points, nil
}

// getListUnitsQuery lists tables whose names are upper case, which is how units are named.
func getListUnitsQuery(backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return `SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND BINARY table_name = UPPER(table_name)`
	case schema.PostgreSQLBackend:
		return `SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = UPPER(table_name)`
	default: // SQLite
		return `SELECT name FROM sqlite_master WHERE type = 'table' AND name = UPPER(name) AND name NOT LIKE 'SQLITE%'`
	}
}

// GetStatus returns the row count of every storage unit in the database.
func (ps *PointStoreImpl) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:   string(ps.backend),
		Connected: ps.db != nil,
		Units:     map[string]int64{},
	}
	if ps.backend == schema.NoneBackend || ps.db == nil {
		return status, nil
	}

	err := withConn(ctx, ps.db, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, getListUnitsQuery(ps.backend))
		if err != nil {
			return err
		}
		var units []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				_ = rows.Close()
				return err
			}
			if contract.ValidateUnitName(name) == nil {
				units = append(units, name)
			}
		}
		_ = rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		sort.Strings(units)

		for _, unit := range units {
			var count int64
			query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(unit, ps.backend))
			if err := conn.QueryRowContext(ctx, query).Scan(&count); err != nil {
				return fmt.Errorf("failed to count rows in %s: %w", unit, err)
			}
			status.Units[unit] = count
		}
		return nil
	})
	if err != nil {
		return status, contract.NewPersistenceError("failed to get store status", err)
	}
	return status, nil
}

// Close closes the underlying DB connection pool unless it is shared.
func (ps *PointStoreImpl) Close() error {
	if ps.db != nil && ps.ownsDB {
		return ps.db.Close()
	}
	return nil
}
