package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskward-api/internal/domain"
	"github.com/phrazzld/taskward-api/internal/store"
)

// defaultListLimit caps List results when the caller passes no limit.
const defaultListLimit = 100

// taskColumns is the column list shared by every task SELECT.
const taskColumns = `id, title, description, state, due_date, reward,
	started_at, completed_at, created_at, updated_at`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO tasks (id, title, description, state, due_date, reward,
			started_at, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID, task.Title, task.Description, task.State, task.DueDate,
		nullString(task.Reward), task.StartedAt, task.CompletedAt,
		task.CreatedAt, task.UpdatedAt)
	if err != nil {
		s.logger.Error("failed to create task",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return nil
}

// GetByID implements store.TaskStore.GetByID
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrTaskNotFound
		}
		return nil, MapError(err)
	}

	return task, nil
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(
	ctx context.Context,
	params store.ListTasksParams,
) ([]*domain.Task, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	args := []any{}

	switch {
	case params.State != "":
		args = append(args, params.State)
		query += fmt.Sprintf(" WHERE state = $%d", len(args))
	case !params.IncludeArchived:
		args = append(args, domain.TaskStateArchived)
		query += fmt.Sprintf(" WHERE state <> $%d", len(args))
	}

	args = append(args, limit, params.Offset)
	query += fmt.Sprintf(" ORDER BY created_at LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	return s.queryTasks(ctx, query, args...)
}

// FindByState implements store.TaskStore.FindByState
func (s *PostgresTaskStore) FindByState(
	ctx context.Context,
	state domain.TaskState,
) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE state = $1 ORDER BY created_at`
	return s.queryTasks(ctx, query, state)
}

// FindDueBetween implements store.TaskStore.FindDueBetween
// Archived and done tasks are excluded: they no longer need attention.
func (s *PostgresTaskStore) FindDueBetween(
	ctx context.Context,
	from, to time.Time,
) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE due_date >= $1 AND due_date <= $2
		  AND state NOT IN ($3, $4)
		ORDER BY due_date`
	return s.queryTasks(ctx, query, from, to, domain.TaskStateDone, domain.TaskStateArchived)
}

// Update implements store.TaskStore.Update
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE tasks
		SET title = $2, description = $3, state = $4, due_date = $5,
			reward = $6, started_at = $7, completed_at = $8, updated_at = $9
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query,
		task.ID, task.Title, task.Description, task.State, task.DueDate,
		nullString(task.Reward), task.StartedAt, task.CompletedAt, task.UpdatedAt)
	if err != nil {
		s.logger.Error("failed to update task",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return CheckRowsAffected(result, "task")
}

// Delete implements store.TaskStore.Delete
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		s.logger.Error("failed to delete task",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return CheckRowsAffected(result, "task")
}

// WithTxTaskStore implements store.TaskStore.WithTxTaskStore
func (s *PostgresTaskStore) WithTxTaskStore(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// DB implements store.TaskStore.DB
// Returns nil when the store is already scoped to a transaction.
func (s *PostgresTaskStore) DB() *sql.DB {
	if db, ok := s.db.(*sql.DB); ok {
		return db
	}
	return nil
}

// queryTasks runs a multi-row task query and scans the results.
func (s *PostgresTaskStore) queryTasks(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, MapError(err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return tasks, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask reads one task row in taskColumns order.
func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task   domain.Task
		reward sql.NullString
	)

	err := row.Scan(
		&task.ID, &task.Title, &task.Description, &task.State, &task.DueDate,
		&reward, &task.StartedAt, &task.CompletedAt,
		&task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if reward.Valid {
		task.Reward = reward.String
	}

	return &task, nil
}

// nullString maps an empty string to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
