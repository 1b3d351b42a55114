// Package testdb opens migrated databases for store tests.
//
// Open returns a private in-memory SQLite database with every migration
// applied, so store tests run without external services. OpenPostgres
// connects to DATABASE_URL instead and skips the test when it is unset.
// WithTx runs a test body in a transaction that is always rolled back.
//
//	func TestTaskStore(t *testing.T) {
//	    db := testdb.Open(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        tasks := postgres.NewTaskStore(tx, testdb.Dialect, nil)
//	        ...
//	    })
//	}
package testdb
