package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskState represents the lifecycle state of a task
type TaskState string

// Possible task state values
const (
	TaskStateTodo       TaskState = "todo"
	TaskStateInProgress TaskState = "in_progress"
	TaskStateDone       TaskState = "done"
	TaskStateArchived   TaskState = "archived"
)

// Task-specific validation errors
var (
	// ErrTaskIDEmpty is returned when a task ID is empty or nil.
	ErrTaskIDEmpty = errors.New("task ID cannot be empty")

	// ErrTaskTitleEmpty is returned when a task's title is empty.
	ErrTaskTitleEmpty = errors.New("task title cannot be empty")

	// ErrInvalidTaskState is returned when a task state is not a known value.
	ErrInvalidTaskState = errors.New("invalid task state")

	// ErrInvalidTransition is returned when a state change is not permitted
	// by the transition table. Use errors.As with *InvalidTransitionError
	// to recover the attempted pair.
	ErrInvalidTransition = errors.New("invalid task state transition")
)

// InvalidTransitionError carries the (from, to) pair of a rejected state change.
// It wraps ErrInvalidTransition so callers can match with errors.Is.
type InvalidTransitionError struct {
	From TaskState
	To   TaskState
}

// Error implements the error interface for InvalidTransitionError.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid task state transition: %s -> %s", e.From, e.To)
}

// Unwrap returns ErrInvalidTransition to support errors.Is.
func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// validTransitions is the authoritative transition table. A (from, to) pair
// absent from this table is rejected, including same-state transitions.
var validTransitions = map[TaskState][]TaskState{
	TaskStateTodo:       {TaskStateInProgress, TaskStateDone},
	TaskStateInProgress: {TaskStateDone, TaskStateTodo},
	TaskStateDone:       {TaskStateInProgress, TaskStateArchived},
	TaskStateArchived:   {},
}

// Task represents a unit of trackable work with a lifecycle state.
// State changes must go through Transition so the completed/started
// timestamps stay consistent with the state value.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	State       TaskState  `json:"state"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Reward      string     `json:"reward,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewTask creates a new Task in the todo state with the given title and
// description. It generates a new UUID for the task ID and sets the
// creation/update timestamps. Returns an error if validation fails.
func NewTask(title, description string) (*Task, error) {
	task := &Task{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		State:       TaskStateTodo,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTaskIDEmpty
	}

	if t.Title == "" {
		return ErrTaskTitleEmpty
	}

	if !IsValidTaskState(t.State) {
		return ErrInvalidTaskState
	}

	return nil
}

// CanTransition reports whether the transition table permits moving
// from the task's current state to the target state.
func (t *Task) CanTransition(target TaskState) bool {
	for _, allowed := range validTransitions[t.State] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Transition moves the task to the target state, applying the timestamp
// side effects defined by the transition table:
//
//	todo        -> in_progress  sets StartedAt (first entry only)
//	todo        -> done         sets CompletedAt
//	in_progress -> done         sets CompletedAt
//	in_progress -> todo         no side effect
//	done        -> in_progress  clears CompletedAt (reopen)
//	done        -> archived     CompletedAt retained
//
// Any pair not in the table, including same-state transitions, fails with
// an *InvalidTransitionError and leaves the task unchanged. The state and
// its timestamps are mutated together, never separately.
func (t *Task) Transition(target TaskState, now time.Time) error {
	if !IsValidTaskState(target) {
		return ErrInvalidTaskState
	}

	if !t.CanTransition(target) {
		return &InvalidTransitionError{From: t.State, To: target}
	}

	now = now.UTC()

	switch target {
	case TaskStateInProgress:
		if t.State == TaskStateDone {
			// Reopen: the task is no longer completed.
			t.CompletedAt = nil
		}
		if t.StartedAt == nil {
			startedAt := now
			t.StartedAt = &startedAt
		}
	case TaskStateDone:
		completedAt := now
		t.CompletedAt = &completedAt
	case TaskStateArchived:
		// CompletedAt retained.
	}

	t.State = target
	t.UpdatedAt = now
	return nil
}

// IsEligibleForArchival decides whether a task should be archived given the
// current time and the configured retention period. Pure function: no I/O,
// no clock access. Only done tasks with a completion timestamp at least
// retention old are eligible; archived tasks are never re-selected.
func IsEligibleForArchival(task *Task, now time.Time, retention time.Duration) bool {
	if task == nil || task.State != TaskStateDone || task.CompletedAt == nil {
		return false
	}
	return now.Sub(*task.CompletedAt) >= retention
}

// IsValidTaskState checks if the given state is a valid TaskState.
func IsValidTaskState(state TaskState) bool {
	switch state {
	case TaskStateTodo, TaskStateInProgress, TaskStateDone, TaskStateArchived:
		return true
	default:
		return false
	}
}
