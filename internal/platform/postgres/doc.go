// Package postgres implements the lesson and task stores on database/sql.
//
// PostgreSQL through the pgx stdlib driver is the production target. The
// same stores run against SQLite (modernc.org/sqlite) for single-machine
// deployments and tests: queries are written with $N placeholders and
// rebound for SQLite, and JSON columns are exchanged as text so both
// JSONB and TEXT columns work.
package postgres
