package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskward-api/internal/domain"
	"github.com/phrazzld/taskward-api/internal/events"
	"github.com/phrazzld/taskward-api/internal/printing"
	"github.com/phrazzld/taskward-api/internal/store"
)

// DueTaskHandler reacts to EventTaskDue events by printing a ticket for the
// task and auto-starting it when it is still in the todo state. It is
// registered with the event emitter during application assembly.
type DueTaskHandler struct {
	taskStore store.TaskStore
	printer   printing.Printer
	clock     Clock
	logger    *slog.Logger
}

// NewDueTaskHandler creates a handler wired to the given store and printer.
func NewDueTaskHandler(
	taskStore store.TaskStore,
	printer printing.Printer,
	clock Clock,
	logger *slog.Logger,
) *DueTaskHandler {
	if clock == nil {
		clock = SystemClock{}
	}

	return &DueTaskHandler{
		taskStore: taskStore,
		printer:   printer,
		clock:     clock,
		logger:    logger.With(slog.String("component", "due_task_handler")),
	}
}

// Ensure DueTaskHandler implements events.EventHandler interface
var _ events.EventHandler = (*DueTaskHandler)(nil)

// HandleEvent implements events.EventHandler.HandleEvent
// Events of other types are ignored. The task is re-read from the store
// before acting: the event may be stale by the time it is handled.
func (h *DueTaskHandler) HandleEvent(ctx context.Context, event *events.TaskEvent) error {
	if event.Type != events.EventTaskDue {
		return nil
	}

	var payload events.TaskDuePayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to unmarshal due event payload: %w", err)
	}

	log := h.logger.With(slog.String("task_id", payload.TaskID.String()))

	t, err := h.taskStore.GetByID(ctx, payload.TaskID)
	if err != nil {
		return fmt.Errorf("failed to load due task: %w", err)
	}

	if t.State != domain.TaskStateTodo && t.State != domain.TaskStateInProgress {
		log.Debug("skipping due task in terminal state", slog.String("state", string(t.State)))
		return nil
	}

	artifact, err := h.printer.Print(ctx, printing.Snapshot(t))
	if err != nil {
		return fmt.Errorf("failed to print due task ticket: %w", err)
	}
	log.Info("due task ticket printed", slog.String("artifact", artifact))

	if t.State != domain.TaskStateTodo {
		return nil
	}

	if err := t.Transition(domain.TaskStateInProgress, h.clock.Now()); err != nil {
		return fmt.Errorf("failed to start due task: %w", err)
	}
	if err := h.taskStore.Update(ctx, t); err != nil {
		return fmt.Errorf("failed to persist started due task: %w", err)
	}

	log.Info("due task auto-started")
	return nil
}
