package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskward-api/internal/domain"
	"github.com/phrazzld/taskward-api/internal/platform/logger"
	"github.com/phrazzld/taskward-api/internal/printing"
	"github.com/phrazzld/taskward-api/internal/store"
	"github.com/phrazzld/taskward-api/internal/task"
)

// TaskServiceError is a custom error type for task service errors.
type TaskServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
func NewTaskServiceError(operation, message string, err error) *TaskServiceError {
	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// CreateTaskParams carries the caller-supplied fields for a new task.
type CreateTaskParams struct {
	Title       string
	Description string
	DueDate     *time.Time
	Reward      string
}

// UpdateTaskParams carries a partial update. Nil pointer fields are left
// unchanged; ClearDueDate removes an existing due date.
type UpdateTaskParams struct {
	Title        *string
	Description  *string
	DueDate      *time.Time
	ClearDueDate bool
	Reward       *string
}

// MaintenanceRunner triggers one scheduler pass on demand.
type MaintenanceRunner interface {
	// RunTick executes a single tick. Returns false if a tick was already
	// in progress and this run was skipped.
	RunTick(ctx context.Context) bool
}

// TaskService provides task-related operations
type TaskService interface {
	// CreateTask creates a new task in the todo state
	CreateTask(ctx context.Context, params CreateTaskParams) (*domain.Task, error)

	// GetTask retrieves a task by its ID
	GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)

	// ListTasks retrieves tasks matching the given filter
	ListTasks(ctx context.Context, params store.ListTasksParams) ([]*domain.Task, error)

	// UpdateTask applies a partial update to an existing task
	UpdateTask(ctx context.Context, taskID uuid.UUID, params UpdateTaskParams) (*domain.Task, error)

	// DeleteTask removes a task permanently
	DeleteTask(ctx context.Context, taskID uuid.UUID) error

	// TransitionTask moves a task to the target lifecycle state.
	// Illegal transitions fail with domain.ErrInvalidTransition.
	TransitionTask(ctx context.Context, taskID uuid.UUID, target domain.TaskState) (*domain.Task, error)

	// StartTask moves a todo task to in_progress
	StartTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)

	// CompleteTask moves a task to done
	CompleteTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)

	// ArchiveTask moves a done task to archived
	ArchiveTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)

	// DueTasks retrieves open tasks due within the given window.
	// A non-positive window applies the default of 24 hours.
	DueTasks(ctx context.Context, window time.Duration) ([]*domain.Task, error)

	// PickRandomTask selects a todo task at random, weighted by due-date
	// urgency. Fails with ErrNoTasksAvailable when no todo tasks exist.
	PickRandomTask(ctx context.Context) (*domain.Task, error)

	// PrintTask renders the task to the configured printer backend and
	// returns a reference to the produced artifact.
	PrintTask(ctx context.Context, taskID uuid.UUID) (string, error)

	// RunMaintenance triggers one scheduler pass immediately.
	// Fails with ErrMaintenanceBusy if a tick is already in progress.
	RunMaintenance(ctx context.Context) error
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	taskStore   store.TaskStore
	printer     printing.Printer
	maintenance MaintenanceRunner
	clock       task.Clock
	logger      *slog.Logger

	// intn is the random source for PickRandomTask, replaceable in tests
	intn func(n int) int
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
// The maintenance runner may be nil, in which case RunMaintenance fails.
func NewTaskService(
	taskStore store.TaskStore,
	printer printing.Printer,
	maintenance MaintenanceRunner,
	clock task.Clock,
	logger *slog.Logger,
) (TaskService, error) {
	if taskStore == nil {
		return nil, fmt.Errorf("%w: taskStore cannot be nil", domain.ErrValidation)
	}
	if printer == nil {
		return nil, fmt.Errorf("%w: printer cannot be nil", domain.ErrValidation)
	}
	if clock == nil {
		clock = task.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		taskStore:   taskStore,
		printer:     printer,
		maintenance: maintenance,
		clock:       clock,
		logger:      logger.With(slog.String("component", "task_service")),
		intn:        rand.Intn,
	}, nil
}

// CreateTask implements TaskService.CreateTask
func (s *taskServiceImpl) CreateTask(
	ctx context.Context,
	params CreateTaskParams,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	t, err := domain.NewTask(params.Title, params.Description)
	if err != nil {
		return nil, NewTaskServiceError("create_task", "invalid task", err)
	}
	t.DueDate = params.DueDate
	t.Reward = params.Reward

	if err := s.taskStore.Create(ctx, t); err != nil {
		log.Error("failed to save task",
			slog.String("error", err.Error()),
			slog.String("task_id", t.ID.String()))
		return nil, NewTaskServiceError("create_task", "failed to save task", err)
	}

	log.Info("task created",
		slog.String("task_id", t.ID.String()),
		slog.String("title", t.Title))
	return t, nil
}

// GetTask implements TaskService.GetTask
func (s *taskServiceImpl) GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	return getTask(ctx, s.taskStore, log, taskID)
}

// getTask loads a task from the given store, mapping missing tasks to
// store.ErrTaskNotFound. Shared by the plain and transaction-scoped paths.
func getTask(
	ctx context.Context,
	ts store.TaskStore,
	log *slog.Logger,
	taskID uuid.UUID,
) (*domain.Task, error) {
	t, err := ts.GetByID(ctx, taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, NewTaskServiceError("get_task", "task not found", store.ErrTaskNotFound)
		}
		log.Error("failed to retrieve task",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, NewTaskServiceError("get_task", "failed to retrieve task", err)
	}

	return t, nil
}

// withTx runs fn against a transaction-scoped store when the underlying
// store is database-backed, so read-modify-write sequences are atomic.
// Mock-backed stores run fn directly.
func (s *taskServiceImpl) withTx(ctx context.Context, fn func(ts store.TaskStore) error) error {
	db := s.taskStore.DB()
	if db == nil {
		return fn(s.taskStore)
	}

	return store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(s.taskStore.WithTxTaskStore(tx))
	})
}

// ListTasks implements TaskService.ListTasks
func (s *taskServiceImpl) ListTasks(
	ctx context.Context,
	params store.ListTasksParams,
) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	tasks, err := s.taskStore.List(ctx, params)
	if err != nil {
		log.Error("failed to list tasks", slog.String("error", err.Error()))
		return nil, NewTaskServiceError("list_tasks", "failed to list tasks", err)
	}

	return tasks, nil
}

// UpdateTask implements TaskService.UpdateTask
func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	taskID uuid.UUID,
	params UpdateTaskParams,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.Task
	err := s.withTx(ctx, func(ts store.TaskStore) error {
		t, err := getTask(ctx, ts, log, taskID)
		if err != nil {
			return err
		}

		if params.Title != nil {
			t.Title = *params.Title
		}
		if params.Description != nil {
			t.Description = *params.Description
		}
		if params.ClearDueDate {
			t.DueDate = nil
		} else if params.DueDate != nil {
			t.DueDate = params.DueDate
		}
		if params.Reward != nil {
			t.Reward = *params.Reward
		}
		t.UpdatedAt = s.clock.Now().UTC()

		if err := t.Validate(); err != nil {
			return NewTaskServiceError("update_task", "invalid task", err)
		}

		if err := ts.Update(ctx, t); err != nil {
			log.Error("failed to update task",
				slog.String("error", err.Error()),
				slog.String("task_id", taskID.String()))
			return NewTaskServiceError("update_task", "failed to update task", err)
		}

		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("task updated", slog.String("task_id", taskID.String()))
	return updated, nil
}

// DeleteTask implements TaskService.DeleteTask
func (s *taskServiceImpl) DeleteTask(ctx context.Context, taskID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.taskStore.Delete(ctx, taskID); err != nil {
		if store.IsNotFoundError(err) {
			return NewTaskServiceError("delete_task", "task not found", store.ErrTaskNotFound)
		}
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return NewTaskServiceError("delete_task", "failed to delete task", err)
	}

	log.Info("task deleted", slog.String("task_id", taskID.String()))
	return nil
}

// TransitionTask implements TaskService.TransitionTask
func (s *taskServiceImpl) TransitionTask(
	ctx context.Context,
	taskID uuid.UUID,
	target domain.TaskState,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var transitioned *domain.Task
	err := s.withTx(ctx, func(ts store.TaskStore) error {
		t, err := getTask(ctx, ts, log, taskID)
		if err != nil {
			return err
		}

		if err := t.Transition(target, s.clock.Now()); err != nil {
			// Surfaced to the caller untouched so the API layer can reject it.
			return err
		}

		if err := ts.Update(ctx, t); err != nil {
			log.Error("failed to persist transition",
				slog.String("error", err.Error()),
				slog.String("task_id", taskID.String()),
				slog.String("target", string(target)))
			return NewTaskServiceError("transition_task", "failed to persist transition", err)
		}

		transitioned = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("task transitioned",
		slog.String("task_id", taskID.String()),
		slog.String("state", string(transitioned.State)))
	return transitioned, nil
}

// StartTask implements TaskService.StartTask
func (s *taskServiceImpl) StartTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	return s.TransitionTask(ctx, taskID, domain.TaskStateInProgress)
}

// CompleteTask implements TaskService.CompleteTask
func (s *taskServiceImpl) CompleteTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	return s.TransitionTask(ctx, taskID, domain.TaskStateDone)
}

// ArchiveTask implements TaskService.ArchiveTask
func (s *taskServiceImpl) ArchiveTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	return s.TransitionTask(ctx, taskID, domain.TaskStateArchived)
}

// DueTasks implements TaskService.DueTasks
func (s *taskServiceImpl) DueTasks(
	ctx context.Context,
	window time.Duration,
) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if window <= 0 {
		window = 24 * time.Hour
	}

	now := s.clock.Now().UTC()
	tasks, err := s.taskStore.FindDueBetween(ctx, now, now.Add(window))
	if err != nil {
		log.Error("failed to find due tasks", slog.String("error", err.Error()))
		return nil, NewTaskServiceError("due_tasks", "failed to find due tasks", err)
	}

	return tasks, nil
}

// Due-date urgency weights for random task selection. A task overdue now is
// five times as likely to be picked as one due more than a week out.
const (
	weightOverdue   = 10
	weightDueToday  = 8
	weightDueSoon   = 6 // within two days
	weightDueWeek   = 4 // within seven days
	weightDueLater  = 2
	weightNoDueDate = 1
)

// dueWeight returns the selection weight for a task given the current time.
func dueWeight(t *domain.Task, now time.Time) int {
	if t.DueDate == nil {
		return weightNoDueDate
	}

	due := t.DueDate.UTC()
	switch {
	case due.Before(now):
		return weightOverdue
	case sameDay(due, now):
		return weightDueToday
	case due.Sub(now) <= 48*time.Hour:
		return weightDueSoon
	case due.Sub(now) <= 7*24*time.Hour:
		return weightDueWeek
	default:
		return weightDueLater
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// PickRandomTask implements TaskService.PickRandomTask
func (s *taskServiceImpl) PickRandomTask(ctx context.Context) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	candidates, err := s.taskStore.FindByState(ctx, domain.TaskStateTodo)
	if err != nil {
		log.Error("failed to load candidate tasks", slog.String("error", err.Error()))
		return nil, NewTaskServiceError("pick_random_task", "failed to load candidate tasks", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoTasksAvailable
	}

	now := s.clock.Now().UTC()
	total := 0
	for _, t := range candidates {
		total += dueWeight(t, now)
	}

	r := s.intn(total)
	for _, t := range candidates {
		r -= dueWeight(t, now)
		if r < 0 {
			log.Debug("picked random task",
				slog.String("task_id", t.ID.String()),
				slog.Int("pool_size", len(candidates)))
			return t, nil
		}
	}

	// Unreachable: weights are positive and r < total.
	return candidates[len(candidates)-1], nil
}

// PrintTask implements TaskService.PrintTask
func (s *taskServiceImpl) PrintTask(ctx context.Context, taskID uuid.UUID) (string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	t, err := s.GetTask(ctx, taskID)
	if err != nil {
		return "", err
	}

	artifact, err := s.printer.Print(ctx, printing.Snapshot(t))
	if err != nil {
		log.Error("failed to print task",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()),
			slog.String("backend", s.printer.Name()))
		// Print errors keep their variant so callers can distinguish them.
		return "", err
	}

	log.Info("task printed",
		slog.String("task_id", taskID.String()),
		slog.String("artifact", artifact))
	return artifact, nil
}

// RunMaintenance implements TaskService.RunMaintenance
func (s *taskServiceImpl) RunMaintenance(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if s.maintenance == nil {
		return NewTaskServiceError("run_maintenance", "no maintenance runner configured", nil)
	}

	if !s.maintenance.RunTick(ctx) {
		return ErrMaintenanceBusy
	}

	log.Info("manual maintenance pass completed")
	return nil
}
