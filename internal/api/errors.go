package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/taskward-api/internal/domain"
	"github.com/phrazzld/taskward-api/internal/printing"
	"github.com/phrazzld/taskward-api/internal/service"
	"github.com/phrazzld/taskward-api/internal/service/auth"
	"github.com/phrazzld/taskward-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized

	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, service.ErrNoTasksAvailable):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists):
		return http.StatusConflict

	case errors.Is(err, service.ErrMaintenanceBusy):
		return http.StatusConflict

	// Rejected state changes
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusUnprocessableEntity

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest

	// Printing errors: a missing or busy device is the server's problem
	// from the client's point of view, but distinguishable.
	case errors.Is(err, printing.ErrDeviceNotFound):
		return http.StatusServiceUnavailable
	case errors.Is(err, printing.ErrAccessDenied):
		return http.StatusServiceUnavailable
	case errors.Is(err, printing.ErrPrint):
		return http.StatusInternalServerError

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid credentials"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, service.ErrNoTasksAvailable):
		return "No tasks available"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case errors.Is(err, service.ErrMaintenanceBusy):
		return "Maintenance is already running"

	case errors.Is(err, domain.ErrInvalidTransition):
		var transitionErr *domain.InvalidTransitionError
		if errors.As(err, &transitionErr) {
			return "Invalid state transition from " +
				string(transitionErr.From) + " to " + string(transitionErr.To)
		}
		return "Invalid state transition"

	case errors.Is(err, printing.ErrDeviceNotFound):
		return "Printer device not found"

	case errors.Is(err, printing.ErrAccessDenied):
		return "Printer device busy or access denied"

	case errors.Is(err, printing.ErrPrint):
		return "Printing failed"

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation):
		return "Invalid entity data"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid identifier"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes an error response using the standard mapping.
// An empty userMessage selects the safe message derived from the error.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, userMessage string) {
	status := MapErrorToStatusCode(err)
	if userMessage == "" {
		userMessage = GetSafeErrorMessage(err)
	}
	RespondWithErrorAndLog(w, r, status, userMessage, err)
}
