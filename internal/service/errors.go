// Package service provides application-level services for managing tasks and users.
package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// These errors represent conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in service-specific error types
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrNoTasksAvailable indicates that a random pick was requested but no
	// open tasks exist. API layer should map this to HTTP 404 Not Found.
	ErrNoTasksAvailable = errors.New("no tasks available")

	// ErrMaintenanceBusy indicates that a manual maintenance run was skipped
	// because a scheduled tick is already in progress.
	// API layer should map this to HTTP 409 Conflict.
	ErrMaintenanceBusy = errors.New("maintenance already running")
)
