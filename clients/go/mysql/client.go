// Package mysql is a thin client helper for applications talking to dbmesh.
// It prepends the cache hint the proxy understands so callers can opt
// individual queries into result caching.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

// DB wraps sql.DB to provide TTL-aware query methods
type DB struct {
	*sql.DB
}

// Open opens a database specified by its database driver name and a
// driver-specific data source name, typically consisting of at least a
// database name and connection information.
func Open(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	return &DB{DB: db}, nil
}

// Wrap wraps an existing *sql.DB
func Wrap(db *sql.DB) *DB {
	return &DB{DB: db}
}

// hint formats the comment the proxy strips and interprets.
func hint(ttl int) string {
	return fmt.Sprintf("/* ttl:%d */", ttl)
}

// QueryWithTTL executes a query with a cache TTL hint. The proxy serves
// repeats of the same query from its result cache for ttl seconds.
func (db *DB) QueryWithTTL(ctx context.Context, ttl int, query string, args ...any) (*sql.Rows, error) {
	return db.DB.QueryContext(ctx, hint(ttl)+" "+query, args...)
}

// QueryRowWithTTL executes a query that is expected to return at most one row
func (db *DB) QueryRowWithTTL(ctx context.Context, ttl int, query string, args ...any) *sql.Row {
	return db.DB.QueryRowContext(ctx, hint(ttl)+" "+query, args...)
}
