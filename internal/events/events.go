package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the task lifecycle.
const (
	// EventTaskDue is emitted when the scheduler finds a task due soon.
	// Payload: TaskDuePayload.
	EventTaskDue = "task.due"

	// EventTaskArchived is emitted after the scheduler archives a task.
	// Payload: TaskArchivedPayload.
	EventTaskArchived = "task.archived"
)

// TaskDuePayload is the payload of an EventTaskDue event.
type TaskDuePayload struct {
	TaskID  uuid.UUID  `json:"task_id"`
	DueDate *time.Time `json:"due_date,omitempty"`
}

// TaskArchivedPayload is the payload of an EventTaskArchived event.
type TaskArchivedPayload struct {
	TaskID      uuid.UUID `json:"task_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// TaskEvent represents a task lifecycle notification. It carries the task
// data serialized as JSON so handlers have no direct dependency on the
// emitting component.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates what happened (see the Event* constants)
	Type string `json:"type"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *TaskEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewTaskEvent creates a new TaskEvent with the specified type and payload.
func NewTaskEvent(eventType string, payload interface{}) (*TaskEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &TaskEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
// Handlers are responsible for processing events and taking appropriate actions.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows the scheduler and services to publish events without direct
// knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}
