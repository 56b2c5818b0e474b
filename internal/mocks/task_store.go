package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskward-api/internal/domain"
	"github.com/phrazzld/taskward-api/internal/store"
)

// MockTaskStore implements store.TaskStore for testing.
// Each method first consults its Fn field for customized behavior and
// otherwise falls back to an in-memory map keyed by task ID.
type MockTaskStore struct {
	// Function fields for customizable behavior
	CreateFn         func(ctx context.Context, task *domain.Task) error
	GetByIDFn        func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	ListFn           func(ctx context.Context, params store.ListTasksParams) ([]*domain.Task, error)
	FindByStateFn    func(ctx context.Context, state domain.TaskState) ([]*domain.Task, error)
	FindDueBetweenFn func(ctx context.Context, from, to time.Time) ([]*domain.Task, error)
	UpdateFn         func(ctx context.Context, task *domain.Task) error
	DeleteFn         func(ctx context.Context, id uuid.UUID) error

	mu    sync.Mutex
	Tasks map[uuid.UUID]*domain.Task
}

// NewMockTaskStore creates a new mock store with initialized defaults.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{
		Tasks: make(map[uuid.UUID]*domain.Task),
	}
}

// Put seeds the store with a task, bypassing validation.
func (m *MockTaskStore) Put(task *domain.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tasks[task.ID] = cloneTask(task)
}

// Get returns the stored task by ID, or nil.
func (m *MockTaskStore) Get(id uuid.UUID) *domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneTask(m.Tasks[id])
}

// Create implements the TaskStore interface
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.Tasks[task.ID]; exists {
		return store.ErrDuplicate
	}
	m.Tasks[task.ID] = cloneTask(task)
	return nil
}

// GetByID implements the TaskStore interface
func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.Tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return cloneTask(task), nil
}

// List implements the TaskStore interface
func (m *MockTaskStore) List(
	ctx context.Context,
	params store.ListTasksParams,
) ([]*domain.Task, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, params)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var tasks []*domain.Task
	for _, task := range m.Tasks {
		if params.State != "" && task.State != params.State {
			continue
		}
		if params.State == "" && !params.IncludeArchived &&
			task.State == domain.TaskStateArchived {
			continue
		}
		tasks = append(tasks, cloneTask(task))
	}
	sortTasksByCreation(tasks)
	return pageTasks(tasks, params.Offset, params.Limit), nil
}

// FindByState implements the TaskStore interface
func (m *MockTaskStore) FindByState(
	ctx context.Context,
	state domain.TaskState,
) ([]*domain.Task, error) {
	if m.FindByStateFn != nil {
		return m.FindByStateFn(ctx, state)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var tasks []*domain.Task
	for _, task := range m.Tasks {
		if task.State == state {
			tasks = append(tasks, cloneTask(task))
		}
	}
	sortTasksByCreation(tasks)
	return tasks, nil
}

// FindDueBetween implements the TaskStore interface
func (m *MockTaskStore) FindDueBetween(
	ctx context.Context,
	from, to time.Time,
) ([]*domain.Task, error) {
	if m.FindDueBetweenFn != nil {
		return m.FindDueBetweenFn(ctx, from, to)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var tasks []*domain.Task
	for _, task := range m.Tasks {
		if task.DueDate == nil ||
			task.State == domain.TaskStateDone ||
			task.State == domain.TaskStateArchived {
			continue
		}
		if !task.DueDate.Before(from) && !task.DueDate.After(to) {
			tasks = append(tasks, cloneTask(task))
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].DueDate.Before(*tasks[j].DueDate)
	})
	return tasks, nil
}

// Update implements the TaskStore interface
func (m *MockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, task)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.Tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	m.Tasks[task.ID] = cloneTask(task)
	return nil
}

// Delete implements the TaskStore interface
func (m *MockTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.Tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(m.Tasks, id)
	return nil
}

// WithTxTaskStore implements the TaskStore interface.
// The mock has no transaction semantics; it returns itself.
func (m *MockTaskStore) WithTxTaskStore(tx *sql.Tx) store.TaskStore {
	return m
}

// DB implements the TaskStore interface. The mock is not database-backed,
// so callers fall back to non-transactional paths.
func (m *MockTaskStore) DB() *sql.DB {
	return nil
}

// Ensure MockTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*MockTaskStore)(nil)

func cloneTask(task *domain.Task) *domain.Task {
	if task == nil {
		return nil
	}
	clone := *task
	return &clone
}

func sortTasksByCreation(tasks []*domain.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID.String() < tasks[j].ID.String()
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}

func pageTasks(tasks []*domain.Task, offset, limit int) []*domain.Task {
	if offset >= len(tasks) {
		return nil
	}
	tasks = tasks[offset:]
	if limit > 0 && limit < len(tasks) {
		tasks = tasks[:limit]
	}
	return tasks
}
