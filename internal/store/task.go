package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskward-api/internal/domain"
)

// ListTasksParams narrows a List call. The zero value lists the first page
// of non-archived tasks in any state.
type ListTasksParams struct {
	// State filters to a single lifecycle state when non-empty.
	State domain.TaskState

	// IncludeArchived also returns archived tasks. Ignored when State
	// explicitly selects the archived state.
	IncludeArchived bool

	// Offset/Limit page the result. A zero Limit applies the store default.
	Offset int
	Limit  int
}

// TaskStore defines the interface for task data persistence.
// Each call is applied atomically by the implementation; no multi-call
// transaction is implied unless the caller uses WithTxTaskStore.
type TaskStore interface {
	// Create saves a new task to the store.
	// Returns validation errors if the task data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// List retrieves tasks matching the given parameters, ordered by
	// creation time.
	List(ctx context.Context, params ListTasksParams) ([]*domain.Task, error)

	// FindByState retrieves all tasks in the given state, ordered by
	// creation time. Used by the archival scheduler to select done tasks.
	FindByState(ctx context.Context, state domain.TaskState) ([]*domain.Task, error)

	// FindDueBetween retrieves non-archived, non-done tasks whose due date
	// falls within [from, to], ordered by due date.
	FindDueBetween(ctx context.Context, from, to time.Time) ([]*domain.Task, error)

	// Update persists the current state of the task, matched by ID.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task from the store by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTxTaskStore returns a new TaskStore instance that uses the provided
	// transaction. The transaction should be created and managed by the
	// caller, typically via RunInTransaction.
	WithTxTaskStore(tx *sql.Tx) TaskStore

	// DB returns the underlying database handle for use with
	// RunInTransaction, or nil when the store is not database-backed or is
	// already scoped to a transaction.
	DB() *sql.DB
}
