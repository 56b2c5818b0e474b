package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	t.Parallel()

	t.Run("valid task", func(t *testing.T) {
		t.Parallel()

		task, err := NewTask("Water the plants", "Front porch and kitchen")
		require.NoError(t, err)

		assert.NotEqual(t, "", task.ID.String())
		assert.Equal(t, TaskStateTodo, task.State)
		assert.Nil(t, task.StartedAt)
		assert.Nil(t, task.CompletedAt)
		assert.False(t, task.CreatedAt.IsZero())
	})

	t.Run("empty title", func(t *testing.T) {
		t.Parallel()

		task, err := NewTask("", "no title")
		assert.Nil(t, task)
		assert.ErrorIs(t, err, ErrTaskTitleEmpty)
	})
}

func TestTask_Transition_Table(t *testing.T) {
	t.Parallel()

	states := []TaskState{TaskStateTodo, TaskStateInProgress, TaskStateDone, TaskStateArchived}
	allowed := map[TaskState][]TaskState{
		TaskStateTodo:       {TaskStateInProgress, TaskStateDone},
		TaskStateInProgress: {TaskStateDone, TaskStateTodo},
		TaskStateDone:       {TaskStateInProgress, TaskStateArchived},
		TaskStateArchived:   {},
	}

	isAllowed := func(from, to TaskState) bool {
		for _, s := range allowed[from] {
			if s == to {
				return true
			}
		}
		return false
	}

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, from := range states {
		for _, to := range states {
			from, to := from, to
			t.Run(string(from)+"_to_"+string(to), func(t *testing.T) {
				t.Parallel()

				task := newTaskInState(t, from, now)
				err := task.Transition(to, now)

				if isAllowed(from, to) {
					require.NoError(t, err)
					assert.Equal(t, to, task.State)
					return
				}

				require.ErrorIs(t, err, ErrInvalidTransition)

				var transErr *InvalidTransitionError
				require.ErrorAs(t, err, &transErr)
				assert.Equal(t, from, transErr.From)
				assert.Equal(t, to, transErr.To)

				// Rejected transitions leave the task unchanged.
				assert.Equal(t, from, task.State)
			})
		}
	}
}

func TestTask_Transition_SideEffects(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("todo to in_progress sets started_at", func(t *testing.T) {
		t.Parallel()

		task := newTaskInState(t, TaskStateTodo, now)
		require.NoError(t, task.Transition(TaskStateInProgress, now))

		require.NotNil(t, task.StartedAt)
		assert.Equal(t, now, *task.StartedAt)
		assert.Nil(t, task.CompletedAt)
	})

	t.Run("completing sets completed_at", func(t *testing.T) {
		t.Parallel()

		task := newTaskInState(t, TaskStateInProgress, now)
		require.NoError(t, task.Transition(TaskStateDone, now))

		require.NotNil(t, task.CompletedAt)
		assert.Equal(t, now, *task.CompletedAt)
	})

	t.Run("reopening clears completed_at", func(t *testing.T) {
		t.Parallel()

		task := newTaskInState(t, TaskStateDone, now)
		require.NotNil(t, task.CompletedAt)

		require.NoError(t, task.Transition(TaskStateInProgress, now.Add(time.Hour)))
		assert.Nil(t, task.CompletedAt)
	})

	t.Run("archiving retains completed_at", func(t *testing.T) {
		t.Parallel()

		task := newTaskInState(t, TaskStateDone, now)
		completedAt := *task.CompletedAt

		require.NoError(t, task.Transition(TaskStateArchived, now.Add(time.Hour)))

		require.NotNil(t, task.CompletedAt)
		assert.Equal(t, completedAt, *task.CompletedAt)
	})

	t.Run("started_at survives round trip through todo", func(t *testing.T) {
		t.Parallel()

		task := newTaskInState(t, TaskStateInProgress, now)
		started := *task.StartedAt

		require.NoError(t, task.Transition(TaskStateTodo, now.Add(time.Minute)))
		require.NoError(t, task.Transition(TaskStateInProgress, now.Add(2*time.Minute)))

		// First start wins.
		assert.Equal(t, started, *task.StartedAt)
	})

	t.Run("unknown target state", func(t *testing.T) {
		t.Parallel()

		task := newTaskInState(t, TaskStateTodo, now)
		err := task.Transition(TaskState("bogus"), now)
		assert.ErrorIs(t, err, ErrInvalidTaskState)
	})
}

// TestTask_CompletedAtInvariant checks that after every legal transition,
// the completion timestamp is present exactly when the state is done or
// archived.
func TestTask_CompletedAtInvariant(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	task := newTaskInState(t, TaskStateTodo, now)
	path := []TaskState{
		TaskStateInProgress,
		TaskStateDone,
		TaskStateInProgress,
		TaskStateDone,
		TaskStateArchived,
	}

	checkInvariant := func(task *Task) {
		completed := task.State == TaskStateDone || task.State == TaskStateArchived
		if completed {
			assert.NotNil(t, task.CompletedAt, "state %s must carry completed_at", task.State)
		} else {
			assert.Nil(t, task.CompletedAt, "state %s must not carry completed_at", task.State)
		}
	}

	checkInvariant(task)
	for i, target := range path {
		require.NoError(t, task.Transition(target, now.Add(time.Duration(i)*time.Minute)))
		checkInvariant(task)
	}
}

func TestIsEligibleForArchival(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
	retention := 24 * time.Hour

	doneTask := func(completedAt time.Time) *Task {
		task := newTaskInState(t, TaskStateDone, completedAt)
		return task
	}

	t.Run("exactly at retention boundary is eligible", func(t *testing.T) {
		t.Parallel()
		task := doneTask(now.Add(-24 * time.Hour))
		assert.True(t, IsEligibleForArchival(task, now, retention))
	})

	t.Run("one second inside retention is not eligible", func(t *testing.T) {
		t.Parallel()
		task := doneTask(now.Add(-24*time.Hour + time.Second))
		assert.False(t, IsEligibleForArchival(task, now, retention))
	})

	t.Run("older than retention is eligible", func(t *testing.T) {
		t.Parallel()
		task := doneTask(now.Add(-48 * time.Hour))
		assert.True(t, IsEligibleForArchival(task, now, retention))
	})

	t.Run("non-done states are never eligible", func(t *testing.T) {
		t.Parallel()
		for _, state := range []TaskState{TaskStateTodo, TaskStateInProgress, TaskStateArchived} {
			task := newTaskInState(t, state, now.Add(-48*time.Hour))
			assert.False(t, IsEligibleForArchival(task, now, retention), "state %s", state)
		}
	})

	t.Run("done without completed_at is not eligible", func(t *testing.T) {
		t.Parallel()
		task := doneTask(now.Add(-48 * time.Hour))
		task.CompletedAt = nil
		assert.False(t, IsEligibleForArchival(task, now, retention))
	})

	t.Run("nil task is not eligible", func(t *testing.T) {
		t.Parallel()
		assert.False(t, IsEligibleForArchival(nil, now, retention))
	})
}

// newTaskInState builds a task and walks it to the requested state at the
// given time, so the timestamps are consistent with the state.
func newTaskInState(t *testing.T, state TaskState, at time.Time) *Task {
	t.Helper()

	task, err := NewTask("test task", "")
	require.NoError(t, err)

	switch state {
	case TaskStateTodo:
	case TaskStateInProgress:
		require.NoError(t, task.Transition(TaskStateInProgress, at))
	case TaskStateDone:
		require.NoError(t, task.Transition(TaskStateInProgress, at))
		require.NoError(t, task.Transition(TaskStateDone, at))
	case TaskStateArchived:
		require.NoError(t, task.Transition(TaskStateInProgress, at))
		require.NoError(t, task.Transition(TaskStateDone, at))
		require.NoError(t, task.Transition(TaskStateArchived, at))
	}

	return task
}

func TestInvalidTransitionError_Message(t *testing.T) {
	t.Parallel()

	err := &InvalidTransitionError{From: TaskStateArchived, To: TaskStateTodo}
	assert.Equal(t, "invalid task state transition: archived -> todo", err.Error())
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}
