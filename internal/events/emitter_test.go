package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler captures handled events and optionally fails.
type recordingHandler struct {
	events []*TaskEvent
	err    error
}

func (h *recordingHandler) HandleEvent(ctx context.Context, event *TaskEvent) error {
	h.events = append(h.events, event)
	return h.err
}

func newTestEmitter() *InMemoryEventEmitter {
	return NewInMemoryEventEmitter(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNewTaskEvent(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()
	due := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)

	event, err := NewTaskEvent(EventTaskDue, TaskDuePayload{TaskID: taskID, DueDate: &due})
	require.NoError(t, err)
	assert.Equal(t, EventTaskDue, event.Type)

	var payload TaskDuePayload
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, taskID, payload.TaskID)
	require.NotNil(t, payload.DueDate)
	assert.True(t, due.Equal(*payload.DueDate))
}

func TestInMemoryEventEmitter_EmitEvent(t *testing.T) {
	t.Parallel()

	t.Run("delivers to all handlers", func(t *testing.T) {
		t.Parallel()

		emitter := newTestEmitter()
		first := &recordingHandler{}
		second := &recordingHandler{}
		emitter.RegisterHandler(first)
		emitter.RegisterHandler(second)

		event, err := NewTaskEvent(EventTaskArchived,
			TaskArchivedPayload{TaskID: uuid.New(), CompletedAt: time.Now().UTC()})
		require.NoError(t, err)

		require.NoError(t, emitter.EmitEvent(context.Background(), event))
		assert.Len(t, first.events, 1)
		assert.Len(t, second.events, 1)
	})

	t.Run("handler failure does not block other handlers", func(t *testing.T) {
		t.Parallel()

		emitter := newTestEmitter()
		failing := &recordingHandler{err: errors.New("printer on fire")}
		healthy := &recordingHandler{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(healthy)

		event, err := NewTaskEvent(EventTaskDue, TaskDuePayload{TaskID: uuid.New()})
		require.NoError(t, err)

		emitErr := emitter.EmitEvent(context.Background(), event)
		assert.EqualError(t, emitErr, "printer on fire")
		assert.Len(t, healthy.events, 1, "healthy handler still ran")
	})

	t.Run("no handlers is not an error", func(t *testing.T) {
		t.Parallel()

		emitter := newTestEmitter()
		event, err := NewTaskEvent(EventTaskDue, TaskDuePayload{TaskID: uuid.New()})
		require.NoError(t, err)

		assert.NoError(t, emitter.EmitEvent(context.Background(), event))
	})
}
