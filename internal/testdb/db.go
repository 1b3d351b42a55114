package testdb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/phrazzld/lectern/internal/platform/logger"
	"github.com/phrazzld/lectern/internal/platform/postgres"
)

// TestTimeout bounds database setup in tests.
const TestTimeout = 10 * time.Second

// Dialect is the dialect of databases returned by Open.
const Dialect = postgres.DialectSQLite

// MemoryDSN opens a private in-memory SQLite database. Times are written
// in SQLite's own format so they sort correctly as text.
const MemoryDSN = "file::memory:?_pragma=foreign_keys(1)&_time_format=sqlite"

// GetTestDatabaseURL returns DATABASE_URL, falling back to
// LECTERN_TEST_DB_URL.
func GetTestDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return os.Getenv("LECTERN_TEST_DB_URL")
}

// ShouldSkipDatabaseTest reports whether no PostgreSQL database is
// configured for integration tests.
func ShouldSkipDatabaseTest() bool {
	return GetTestDatabaseURL() == ""
}

// Open returns a migrated in-memory SQLite database that is closed when
// the test ends. An in-memory database lives on a single connection, so
// the pool is capped at one.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open(string(postgres.DialectSQLite), MemoryDSN)
	require.NoError(t, err, "failed to open sqlite database")
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { CleanupDB(t, db) })

	migrate(t, db, postgres.DialectSQLite)
	return db
}

// OpenPostgres returns a migrated PostgreSQL database from
// GetTestDatabaseURL, skipping the test when none is configured.
func OpenPostgres(t *testing.T) *sql.DB {
	t.Helper()

	if ShouldSkipDatabaseTest() {
		t.Skip("DATABASE_URL not set - skipping integration test")
	}

	db, err := sql.Open(string(postgres.DialectPostgres), GetTestDatabaseURL())
	require.NoError(t, err, "failed to open postgres database")
	t.Cleanup(func() { CleanupDB(t, db) })

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "failed to ping postgres database")

	migrate(t, db, postgres.DialectPostgres)
	return db
}

func migrate(t *testing.T, db *sql.DB, dialect postgres.Dialect) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	err := postgres.Migrate(ctx, db, dialect, "up", logger.Discard())
	require.NoError(t, err, "failed to run migrations")
}

// WithTx runs fn in a transaction that is rolled back afterwards.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "failed to begin transaction")

	defer func() {
		err := tx.Rollback()
		if err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("Warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// CleanupDB closes db, logging any error.
func CleanupDB(t *testing.T, db *sql.DB) {
	t.Helper()
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		t.Logf("Warning: failed to close database connection: %v", err)
	}
}
