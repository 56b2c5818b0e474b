package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskward-api/internal/api/shared"
	"github.com/phrazzld/taskward-api/internal/domain"
	"github.com/phrazzld/taskward-api/internal/printing"
	"github.com/phrazzld/taskward-api/internal/service"
	"github.com/phrazzld/taskward-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// taskServiceStub implements service.TaskService with overridable behavior.
type taskServiceStub struct {
	createFn      func(ctx context.Context, params service.CreateTaskParams) (*domain.Task, error)
	getFn         func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	listFn        func(ctx context.Context, params store.ListTasksParams) ([]*domain.Task, error)
	updateFn      func(ctx context.Context, id uuid.UUID, params service.UpdateTaskParams) (*domain.Task, error)
	deleteFn      func(ctx context.Context, id uuid.UUID) error
	transitionFn  func(ctx context.Context, id uuid.UUID, target domain.TaskState) (*domain.Task, error)
	dueFn         func(ctx context.Context, window time.Duration) ([]*domain.Task, error)
	randomFn      func(ctx context.Context) (*domain.Task, error)
	printFn       func(ctx context.Context, id uuid.UUID) (string, error)
	maintenanceFn func(ctx context.Context) error
}

func (s *taskServiceStub) CreateTask(
	ctx context.Context,
	params service.CreateTaskParams,
) (*domain.Task, error) {
	return s.createFn(ctx, params)
}

func (s *taskServiceStub) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.getFn(ctx, id)
}

func (s *taskServiceStub) ListTasks(
	ctx context.Context,
	params store.ListTasksParams,
) ([]*domain.Task, error) {
	return s.listFn(ctx, params)
}

func (s *taskServiceStub) UpdateTask(
	ctx context.Context,
	id uuid.UUID,
	params service.UpdateTaskParams,
) (*domain.Task, error) {
	return s.updateFn(ctx, id, params)
}

func (s *taskServiceStub) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return s.deleteFn(ctx, id)
}

func (s *taskServiceStub) TransitionTask(
	ctx context.Context,
	id uuid.UUID,
	target domain.TaskState,
) (*domain.Task, error) {
	return s.transitionFn(ctx, id, target)
}

func (s *taskServiceStub) StartTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.transitionFn(ctx, id, domain.TaskStateInProgress)
}

func (s *taskServiceStub) CompleteTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.transitionFn(ctx, id, domain.TaskStateDone)
}

func (s *taskServiceStub) ArchiveTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.transitionFn(ctx, id, domain.TaskStateArchived)
}

func (s *taskServiceStub) DueTasks(
	ctx context.Context,
	window time.Duration,
) ([]*domain.Task, error) {
	return s.dueFn(ctx, window)
}

func (s *taskServiceStub) PickRandomTask(ctx context.Context) (*domain.Task, error) {
	return s.randomFn(ctx)
}

func (s *taskServiceStub) PrintTask(ctx context.Context, id uuid.UUID) (string, error) {
	return s.printFn(ctx, id)
}

func (s *taskServiceStub) RunMaintenance(ctx context.Context) error {
	return s.maintenanceFn(ctx)
}

func handlerTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTaskRouter mounts the handler the same way the server router does.
func newTaskRouter(h *TaskHandler) chi.Router {
	r := chi.NewRouter()
	r.Route("/tasks", func(r chi.Router) {
		r.Post("/", h.CreateTask)
		r.Get("/", h.ListTasks)
		r.Get("/due", h.DueTasks)
		r.Get("/random", h.RandomTask)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetTask)
			r.Patch("/", h.UpdateTask)
			r.Delete("/", h.DeleteTask)
			r.Post("/start", h.StartTask)
			r.Post("/complete", h.CompleteTask)
			r.Post("/archive", h.ArchiveTask)
			r.Post("/print", h.PrintTask)
		})
	})
	r.Post("/maintenance", h.RunMaintenance)
	return r
}

func testTask(t *testing.T) *domain.Task {
	t.Helper()

	task, err := domain.NewTask("sample task", "a test fixture")
	require.NoError(t, err)
	return task
}

func TestTaskHandler_CreateTask(t *testing.T) {
	t.Parallel()

	t.Run("returns 201 with created task", func(t *testing.T) {
		t.Parallel()

		created := testTask(t)
		stub := &taskServiceStub{
			createFn: func(ctx context.Context, params service.CreateTaskParams) (*domain.Task, error) {
				assert.Equal(t, "sample task", params.Title)
				return created, nil
			},
		}

		router := newTaskRouter(NewTaskHandler(stub, handlerTestLogger()))

		body := bytes.NewBufferString(`{"title": "sample task", "description": "x"}`)
		req := httptest.NewRequest(http.MethodPost, "/tasks", body)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp TaskResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, created.ID, resp.ID)
		assert.Equal(t, "todo", resp.State)
	})

	t.Run("rejects missing title", func(t *testing.T) {
		t.Parallel()

		router := newTaskRouter(NewTaskHandler(&taskServiceStub{}, handlerTestLogger()))

		req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewBufferString(`{}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		t.Parallel()

		router := newTaskRouter(NewTaskHandler(&taskServiceStub{}, handlerTestLogger()))

		req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewBufferString(`{not json`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTaskHandler_GetTask(t *testing.T) {
	t.Parallel()

	t.Run("returns task", func(t *testing.T) {
		t.Parallel()

		task := testTask(t)
		stub := &taskServiceStub{
			getFn: func(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
				assert.Equal(t, task.ID, id)
				return task, nil
			},
		}
		router := newTaskRouter(NewTaskHandler(stub, handlerTestLogger()))

		req := httptest.NewRequest(http.MethodGet, "/tasks/"+task.ID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("maps not found to 404", func(t *testing.T) {
		t.Parallel()

		stub := &taskServiceStub{
			getFn: func(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
				return nil, store.ErrTaskNotFound
			},
		}
		router := newTaskRouter(NewTaskHandler(stub, handlerTestLogger()))

		req := httptest.NewRequest(http.MethodGet, "/tasks/"+uuid.NewString(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("rejects malformed id", func(t *testing.T) {
		t.Parallel()

		router := newTaskRouter(NewTaskHandler(&taskServiceStub{}, handlerTestLogger()))

		req := httptest.NewRequest(http.MethodGet, "/tasks/not-a-uuid", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTaskHandler_ListTasks(t *testing.T) {
	t.Parallel()

	t.Run("parses filters", func(t *testing.T) {
		t.Parallel()

		stub := &taskServiceStub{
			listFn: func(ctx context.Context, params store.ListTasksParams) ([]*domain.Task, error) {
				assert.Equal(t, domain.TaskStateDone, params.State)
				assert.Equal(t, 5, params.Offset)
				assert.Equal(t, 10, params.Limit)
				return nil, nil
			},
		}
		router := newTaskRouter(NewTaskHandler(stub, handlerTestLogger()))

		req := httptest.NewRequest(http.MethodGet, "/tasks?state=done&offset=5&limit=10", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		// Empty result serializes as [], not null.
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("rejects unknown state", func(t *testing.T) {
		t.Parallel()

		router := newTaskRouter(NewTaskHandler(&taskServiceStub{}, handlerTestLogger()))

		req := httptest.NewRequest(http.MethodGet, "/tasks?state=bogus", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTaskHandler_Transitions(t *testing.T) {
	t.Parallel()

	t.Run("start routes to in_progress", func(t *testing.T) {
		t.Parallel()

		task := testTask(t)
		stub := &taskServiceStub{
			transitionFn: func(ctx context.Context, id uuid.UUID, target domain.TaskState) (*domain.Task, error) {
				assert.Equal(t, domain.TaskStateInProgress, target)
				require.NoError(t, task.Transition(target, time.Now().UTC()))
				return task, nil
			},
		}
		router := newTaskRouter(NewTaskHandler(stub, handlerTestLogger()))

		req := httptest.NewRequest(http.MethodPost, "/tasks/"+task.ID.String()+"/start", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp TaskResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "in_progress", resp.State)
	})

	t.Run("invalid transition maps to 422", func(t *testing.T) {
		t.Parallel()

		stub := &taskServiceStub{
			transitionFn: func(ctx context.Context, id uuid.UUID, target domain.TaskState) (*domain.Task, error) {
				return nil, &domain.InvalidTransitionError{
					From: domain.TaskStateTodo,
					To:   domain.TaskStateArchived,
				}
			},
		}
		router := newTaskRouter(NewTaskHandler(stub, handlerTestLogger()))

		req := httptest.NewRequest(http.MethodPost, "/tasks/"+uuid.NewString()+"/archive", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var resp shared.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Contains(t, resp.Error, "todo")
		assert.Contains(t, resp.Error, "archived")
	})
}

func TestTaskHandler_DueTasks(t *testing.T) {
	t.Parallel()

	t.Run("passes parsed window to the service", func(t *testing.T) {
		t.Parallel()

		stub := &taskServiceStub{
			dueFn: func(ctx context.Context, window time.Duration) ([]*domain.Task, error) {
				assert.Equal(t, 6*time.Hour, window)
				return nil, nil
			},
		}
		router := newTaskRouter(NewTaskHandler(stub, handlerTestLogger()))

		req := httptest.NewRequest(http.MethodGet, "/tasks/due?window=6h", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects bad window", func(t *testing.T) {
		t.Parallel()

		router := newTaskRouter(NewTaskHandler(&taskServiceStub{}, handlerTestLogger()))

		req := httptest.NewRequest(http.MethodGet, "/tasks/due?window=banana", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTaskHandler_RandomTask(t *testing.T) {
	t.Parallel()

	t.Run("empty pool maps to 404", func(t *testing.T) {
		t.Parallel()

		stub := &taskServiceStub{
			randomFn: func(ctx context.Context) (*domain.Task, error) {
				return nil, service.ErrNoTasksAvailable
			},
		}
		router := newTaskRouter(NewTaskHandler(stub, handlerTestLogger()))

		req := httptest.NewRequest(http.MethodGet, "/tasks/random", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestTaskHandler_PrintTask(t *testing.T) {
	t.Parallel()

	t.Run("returns artifact reference", func(t *testing.T) {
		t.Parallel()

		taskID := uuid.New()
		stub := &taskServiceStub{
			printFn: func(ctx context.Context, id uuid.UUID) (string, error) {
				return "/var/tickets/task.pdf", nil
			},
		}
		router := newTaskRouter(NewTaskHandler(stub, handlerTestLogger()))

		req := httptest.NewRequest(http.MethodPost, "/tasks/"+taskID.String()+"/print", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp PrintResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, taskID, resp.TaskID)
		assert.Equal(t, "/var/tickets/task.pdf", resp.Artifact)
	})

	t.Run("device not found maps to 503", func(t *testing.T) {
		t.Parallel()

		stub := &taskServiceStub{
			printFn: func(ctx context.Context, id uuid.UUID) (string, error) {
				return "", printing.ErrDeviceNotFound
			},
		}
		router := newTaskRouter(NewTaskHandler(stub, handlerTestLogger()))

		req := httptest.NewRequest(http.MethodPost, "/tasks/"+uuid.NewString()+"/print", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestTaskHandler_RunMaintenance(t *testing.T) {
	t.Parallel()

	t.Run("returns 202 on success", func(t *testing.T) {
		t.Parallel()

		stub := &taskServiceStub{
			maintenanceFn: func(ctx context.Context) error { return nil },
		}
		router := newTaskRouter(NewTaskHandler(stub, handlerTestLogger()))

		req := httptest.NewRequest(http.MethodPost, "/maintenance", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("busy maps to 409", func(t *testing.T) {
		t.Parallel()

		stub := &taskServiceStub{
			maintenanceFn: func(ctx context.Context) error { return service.ErrMaintenanceBusy },
		}
		router := newTaskRouter(NewTaskHandler(stub, handlerTestLogger()))

		req := httptest.NewRequest(http.MethodPost, "/maintenance", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestTaskHandler_DeleteTask(t *testing.T) {
	t.Parallel()

	stub := &taskServiceStub{
		deleteFn: func(ctx context.Context, id uuid.UUID) error { return nil },
	}
	router := newTaskRouter(NewTaskHandler(stub, handlerTestLogger()))

	req := httptest.NewRequest(http.MethodDelete, "/tasks/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTaskHandler_UpdateTask(t *testing.T) {
	t.Parallel()

	task := testTask(t)
	stub := &taskServiceStub{
		updateFn: func(ctx context.Context, id uuid.UUID, params service.UpdateTaskParams) (*domain.Task, error) {
			require.NotNil(t, params.Title)
			assert.Equal(t, "renamed", *params.Title)
			assert.True(t, params.ClearDueDate)
			task.Title = *params.Title
			return task, nil
		},
	}
	router := newTaskRouter(NewTaskHandler(stub, handlerTestLogger()))

	body := bytes.NewBufferString(`{"title": "renamed", "clear_due_date": true}`)
	req := httptest.NewRequest(http.MethodPatch, "/tasks/"+task.ID.String(), body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp TaskResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "renamed", resp.Title)
}
