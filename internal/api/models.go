package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/taskward-api/internal/domain"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	// UserID is the unique identifier for the authenticated user
	UserID uuid.UUID `json:"user_id"`

	// AccessToken is the JWT token used for API authorization
	AccessToken string `json:"token"`

	// RefreshToken is the JWT token used to obtain new access tokens
	RefreshToken string `json:"refresh_token,omitempty"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token refresh endpoint.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// CreateTaskRequest defines the payload for the task creation endpoint.
type CreateTaskRequest struct {
	Title       string     `json:"title"       validate:"required,min=1,max=255"`
	Description string     `json:"description" validate:"max=4096"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Reward      string     `json:"reward"      validate:"max=255"`
}

// UpdateTaskRequest defines the payload for the task update endpoint.
// Omitted fields are left unchanged; clear_due_date removes the due date.
type UpdateTaskRequest struct {
	Title        *string    `json:"title,omitempty"       validate:"omitempty,min=1,max=255"`
	Description  *string    `json:"description,omitempty" validate:"omitempty,max=4096"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	ClearDueDate bool       `json:"clear_due_date,omitempty"`
	Reward       *string    `json:"reward,omitempty"      validate:"omitempty,max=255"`
}

// TaskResponse represents the response data for a task.
type TaskResponse struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	State       string     `json:"state"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Reward      string     `json:"reward,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PrintResponse represents the response data for a print request.
type PrintResponse struct {
	TaskID   uuid.UUID `json:"task_id"`
	Artifact string    `json:"artifact"`
}

// taskToResponse transforms a domain task into its API representation.
func taskToResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		State:       string(t.State),
		DueDate:     t.DueDate,
		Reward:      t.Reward,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// tasksToResponse transforms a slice of domain tasks. Always returns a
// non-nil slice so empty results serialize as [] rather than null.
func tasksToResponse(tasks []*domain.Task) []TaskResponse {
	responses := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		responses = append(responses, taskToResponse(t))
	}
	return responses
}
