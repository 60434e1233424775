package iostore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/schema"
)

// sqliteTimeLayout is fixed-width so stored text timestamps compare lexically in time order.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000"

// driverName returns the database/sql driver registered for the backend.
func driverName(backend schema.DatabaseBackend) (string, error) {
	switch backend {
	case schema.SQLiteBackend:
		return "sqlite", nil
	case schema.MySQLBackend:
		return "mysql", nil
	case schema.PostgreSQLBackend:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported backend: %s. Must be sqlite, mysql, postgresql, or none", backend)
	}
}

// openDB opens and pings a connection pool for a SQL backend.
func openDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, error) {
	name, err := driverName(backend)
	if err != nil {
		return nil, err
	}

	if backend == schema.SQLiteBackend {
		if connStr == "" {
			connStr = contract.GetDBFilePath()
		}
		connStr = withBusyTimeout(connStr)
	}

	db, err := sql.Open(name, connStr)
	if err != nil {
		switch backend {
		case schema.MySQLBackend:
			return nil, fmt.Errorf("failed to open MySQL database: %w. Check connection format: user:password@tcp(host:port)/dbname", err)
		case schema.PostgreSQLBackend:
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w. Check connection format: host=localhost port=5432 user=postgres dbname=mydb", err)
		default:
			return nil, fmt.Errorf("failed to open SQLite database at %q: %w. Ensure the directory is writable", connStr, err)
		}
	}
	if backend == schema.SQLiteBackend {
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database. Check that the server is running and connection parameters are valid: %w", backend, err)
	}
	return db, nil
}

// sqliteBusyTimeout is how long a SQLite writer waits on a lock held by another handle.
const sqliteBusyTimeout = "_pragma=busy_timeout(5000)"

// withBusyTimeout adds the busy timeout pragma to a SQLite DSN unless one is already set.
func withBusyTimeout(connStr string) string {
	if strings.Contains(connStr, "busy_timeout") {
		return connStr
	}
	if strings.Contains(connStr, "?") {
		return connStr + "&" + sqliteBusyTimeout
	}
	return connStr + "?" + sqliteBusyTimeout
}

// quoteIdent returns the properly quoted identifier for the given backend.
// Callers validate identifiers first; quoting only guards reserved words.
func quoteIdent(name string, backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return "`" + name + "`"
	default: // SQLite and PostgreSQL
		return `"` + name + `"`
	}
}

// placeholder returns the nth (1-based) bind parameter for the backend.
func placeholder(n int, backend schema.DatabaseBackend) string {
	if backend == schema.PostgreSQLBackend {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// formatTime converts a time into the bind value stored by the backend. Times are kept in UTC.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	t = t.UTC()
	if backend == schema.SQLiteBackend {
		return t.Format(sqliteTimeLayout)
	}
	return t
}

// parseTime converts a scanned column value back into a UTC time.
func parseTime(v any) (time.Time, error) {
	switch tv := v.(type) {
	case time.Time:
		return tv.UTC(), nil
	case string:
		return parseTimeText(tv)
	case []byte:
		return parseTimeText(string(tv))
	default:
		return time.Time{}, fmt.Errorf("unexpected time column type %T", v)
	}
}

func parseTimeText(s string) (time.Time, error) {
	for _, layout := range []string{sqliteTimeLayout, "2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized stored time %q", s)
}

// withConn runs fn on a dedicated connection that is released on every exit path.
func withConn(ctx context.Context, db *sql.DB, fn func(*sql.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()
	return fn(conn)
}
