//go:build database

package integration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/internal/iostore"
	"github.com/huangsam/indexhist/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// dbTarget is a running database container described by the bare DB_* settings.
type dbTarget struct {
	backend  schema.DatabaseBackend
	settings contract.DBSettings
}

func (d dbTarget) env() []string {
	return []string{
		"INDEXHIST_DB_BACKEND=" + string(d.backend),
		"DB_HOST=" + d.settings.Host,
		"DB_PORT=" + d.settings.Port,
		"DB_NAME=" + d.settings.Name,
		"DB_USER=" + d.settings.User,
		"DB_PASS=" + d.settings.Password,
	}
}

func (d dbTarget) connStr(t *testing.T) string {
	t.Helper()
	connStr, err := contract.BuildConnectionString(d.backend, d.settings)
	require.NoError(t, err)
	return connStr
}

func startMySQL(t *testing.T) dbTarget {
	ctx := context.Background()

	// Start MySQL container
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "indexhist",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mysqlC.Terminate(ctx) })

	// Get connection details
	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	return dbTarget{
		backend: schema.MySQLBackend,
		settings: contract.DBSettings{
			Host: host, Port: port.Port(), Name: "indexhist", User: "root", Password: "secret123",
		},
	}
}

func startPostgres(t *testing.T) dbTarget {
	ctx := context.Background()

	// Start Postgres container
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "secret123",
			"POSTGRES_DB":       "indexhist",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	// Get connection details
	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return dbTarget{
		backend: schema.PostgreSQLBackend,
		settings: contract.DBSettings{
			Host: host, Port: port.Port(), Name: "indexhist", User: "postgres", Password: "secret123",
		},
	}
}

// TestIndexhistWithMySQL tests the point store, run log and CLI with a MySQL backend.
func TestIndexhistWithMySQL(t *testing.T) {
	db := startMySQL(t)
	verifyPointStore(t, db)
	verifyRunMigrations(t, db)
	verifyCLI(t, db)
}

// TestIndexhistWithPostgres tests the point store, run log and CLI with a PostgreSQL backend.
func TestIndexhistWithPostgres(t *testing.T) {
	db := startPostgres(t)
	verifyPointStore(t, db)
	verifyRunMigrations(t, db)
	verifyCLI(t, db)
}

func verifyPointStore(t *testing.T, db dbTarget) {
	ctx := context.Background()
	store, err := iostore.NewPointStore(db.backend, db.connStr(t), nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	base := time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)
	points := []schema.Point{
		{Timestamp: base.Add(250 * time.Millisecond), Value: 100.5},
		{Timestamp: base.Add(24 * time.Hour), Value: 101.25},
		{Timestamp: base.Add(48 * time.Hour), Value: 99.75},
	}

	result, err := store.Save(ctx, "storetest", points)
	require.NoError(t, err)
	assert.Equal(t, schema.SaveResult{Unit: "STORETEST", Requested: 3, Inserted: 3}, result)

	result, err = store.Save(ctx, "storetest", points)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)

	loaded, err := store.Load(ctx, "storetest", nil, nil)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.True(t, base.Equal(loaded[0].Timestamp), "sub-second part is dropped, got %s", loaded[0].Timestamp)

	start, end := base.Add(time.Hour), base.Add(24*time.Hour)
	loaded, err = store.Load(ctx, "storetest", &start, &end)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.InDelta(t, 101.25, loaded[0].Value, 1e-9)

	status, err := store.GetStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, int64(3), status.Units["STORETEST"])
}

func verifyRunMigrations(t *testing.T, db dbTarget) {
	connStr := db.connStr(t)

	msg, err := iostore.MigrateRuns(db.backend, connStr, -1)
	require.NoError(t, err)
	assert.Contains(t, msg, "to version 2")

	msg, err = iostore.MigrateRuns(db.backend, connStr, 0)
	require.NoError(t, err)
	assert.Contains(t, msg, "rolled back")

	runs, err := iostore.NewRunStore(db.backend, connStr, nil)
	require.NoError(t, err)
	defer func() { _ = runs.Close() }()

	run := iostore.NewRun("STORETEST", schema.PeriodYear, schema.PageStrategy)
	run.Requested, run.Inserted = 3, 3
	run.EndTime = run.StartTime.Add(time.Second)
	id, err := runs.RecordRun(context.Background(), run)
	require.NoError(t, err)
	assert.Positive(t, id)

	listed, err := runs.ListRuns(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, id, listed[0].RunID)
	assert.True(t, listed[0].Succeeded())
}

func verifyCLI(t *testing.T, db dbTarget) {
	producer := newProducer(t)
	env := append(db.env(),
		"INDEXHIST_BASE_URL="+producer.URL,
		"INDEXHIST_RECORD_RUNS=yes",
		// Not used by server backends, but keeps a stray default file out of $HOME
		"INDEXHIST_DB_PATH="+filepath.Join(t.TempDir(), "unused.db"),
	)

	_, err := runIndexhist(t, env, "save", "tipous")
	require.NoError(t, err)
	_, err = runIndexhist(t, env, "save", "tipous")
	require.NoError(t, err)

	out, err := runIndexhist(t, env, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "TIPOUS: 3 rows")

	out, err = runIndexhist(t, env, "load", "tipous", "--output", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "TIPOUS,2024-03-01T07:00:00Z,1012.50")
}
