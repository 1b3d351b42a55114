package testdb_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/lectern/internal/testdb"
)

func TestOpenAppliesMigrations(t *testing.T) {
	db := testdb.Open(t)

	for _, table := range []string{"lessons", "tasks"} {
		var name string
		err := db.QueryRowContext(context.Background(),
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestOpenIsolatesDatabases(t *testing.T) {
	first := testdb.Open(t)
	second := testdb.Open(t)

	_, err := first.Exec(`INSERT INTO lessons (filename, created_at, updated_at) VALUES ('a.mp3', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	var n int
	require.NoError(t, second.QueryRow(`SELECT COUNT(*) FROM lessons`).Scan(&n))
	assert.Zero(t, n)
}

func TestWithTxRollsBack(t *testing.T) {
	db := testdb.Open(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		_, err := tx.Exec(`INSERT INTO lessons (filename, created_at, updated_at) VALUES ('a.mp3', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
		require.NoError(t, err)
	})

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM lessons`).Scan(&n))
	assert.Zero(t, n)
}

func TestShouldSkipDatabaseTest(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LECTERN_TEST_DB_URL", "")
	assert.True(t, testdb.ShouldSkipDatabaseTest())

	t.Setenv("LECTERN_TEST_DB_URL", "postgres://localhost/lectern_test")
	assert.False(t, testdb.ShouldSkipDatabaseTest())
	assert.Equal(t, "postgres://localhost/lectern_test", testdb.GetTestDatabaseURL())
}
