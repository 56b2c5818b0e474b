// Package api provides HTTP handlers for the API.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/taskward-api/internal/api/shared"
	"github.com/phrazzld/taskward-api/internal/domain"
	"github.com/phrazzld/taskward-api/internal/platform/logger"
	"github.com/phrazzld/taskward-api/internal/service"
	"github.com/phrazzld/taskward-api/internal/store"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskService service.TaskService
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService service.TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		taskService: taskService,
		logger:      logger.With(slog.String("component", "task_handler")),
	}
}

// CreateTask handles POST /tasks requests
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateTaskRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	task, err := h.taskService.CreateTask(r.Context(), service.CreateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Reward:      req.Reward,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Debug("task created via API", slog.String("task_id", task.ID.String()))
	RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// GetTask handles GET /tasks/{id} requests
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.taskService.GetTask(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// ListTasks handles GET /tasks requests.
// Supported query parameters: state, include_archived, offset, limit.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	params := store.ListTasksParams{}

	if state := r.URL.Query().Get("state"); state != "" {
		if !domain.IsValidTaskState(domain.TaskState(state)) {
			RespondWithError(w, r, http.StatusBadRequest, "Invalid state filter")
			return
		}
		params.State = domain.TaskState(state)
	}
	if r.URL.Query().Get("include_archived") == "true" {
		params.IncludeArchived = true
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			RespondWithError(w, r, http.StatusBadRequest, "Invalid offset")
			return
		}
		params.Offset = n
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			RespondWithError(w, r, http.StatusBadRequest, "Invalid limit")
			return
		}
		params.Limit = n
	}

	tasks, err := h.taskService.ListTasks(r.Context(), params)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// UpdateTask handles PATCH /tasks/{id} requests
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req UpdateTaskRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	task, err := h.taskService.UpdateTask(r.Context(), id, service.UpdateTaskParams{
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
		Reward:       req.Reward,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// DeleteTask handles DELETE /tasks/{id} requests
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.taskService.DeleteTask(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// StartTask handles POST /tasks/{id}/start requests
func (h *TaskHandler) StartTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, domain.TaskStateInProgress)
}

// CompleteTask handles POST /tasks/{id}/complete requests
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, domain.TaskStateDone)
}

// ArchiveTask handles POST /tasks/{id}/archive requests
func (h *TaskHandler) ArchiveTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, domain.TaskStateArchived)
}

func (h *TaskHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	target domain.TaskState,
) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.taskService.TransitionTask(r.Context(), id, target)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			log.Debug("transition rejected",
				slog.String("task_id", id.String()),
				slog.String("target", string(target)))
		}
		HandleAPIError(w, r, err, "")
		return
	}

	RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// DueTasks handles GET /tasks/due requests.
// The optional window query parameter takes a Go duration string.
func (h *TaskHandler) DueTasks(w http.ResponseWriter, r *http.Request) {
	var window time.Duration
	if raw := r.URL.Query().Get("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			RespondWithError(w, r, http.StatusBadRequest, "Invalid window duration")
			return
		}
		window = parsed
	}

	tasks, err := h.taskService.DueTasks(r.Context(), window)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// RandomTask handles GET /tasks/random requests
func (h *TaskHandler) RandomTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskService.PickRandomTask(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// PrintTask handles POST /tasks/{id}/print requests
func (h *TaskHandler) PrintTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	artifact, err := h.taskService.PrintTask(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	RespondWithJSON(w, r, http.StatusOK, PrintResponse{
		TaskID:   id,
		Artifact: artifact,
	})
}

// RunMaintenance handles POST /maintenance requests
func (h *TaskHandler) RunMaintenance(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if err := h.taskService.RunMaintenance(r.Context()); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("maintenance pass triggered via API")
	w.WriteHeader(http.StatusAccepted)
}
