// Package postgres provides PostgreSQL implementations of the store
// interfaces, built on database/sql with the pgx stdlib driver. All
// database errors are translated into store sentinel errors via MapError
// so callers never depend on driver error types.
package postgres
