// Package store defines the persistence interfaces for tasks and users,
// their shared error taxonomy, and transaction helpers. Implementations
// live under internal/platform.
package store

import (
	"context"
	"database/sql"
)

// DBTX abstracts the database access layer for the task and user stores.
// Both *sql.DB and *sql.Tx satisfy it, so a store can run against the shared
// pool or against a transaction handed out by RunInTransaction without
// knowing which it holds.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
