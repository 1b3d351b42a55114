package postgres

import (
	"fmt"
	"regexp"
)

// Dialect identifies the SQL database behind a store.
type Dialect string

// Supported dialects, named after their database/sql driver.
const (
	DialectPostgres Dialect = "pgx"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect maps a database/sql driver name to its Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch Dialect(driver) {
	case DialectPostgres, DialectSQLite:
		return Dialect(driver), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

var placeholderPattern = regexp.MustCompile(`\$\d+`)

// Rebind converts $N placeholders for the dialect. Queries must use each
// placeholder once and in ascending order.
func (d Dialect) Rebind(query string) string {
	if d != DialectSQLite {
		return query
	}
	return placeholderPattern.ReplaceAllString(query, "?")
}
