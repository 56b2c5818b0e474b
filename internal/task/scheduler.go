package task

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/taskward-api/internal/domain"
	"github.com/phrazzld/taskward-api/internal/events"
	"github.com/phrazzld/taskward-api/internal/store"
)

// SchedulerConfig holds configuration for the maintenance scheduler.
type SchedulerConfig struct {
	// Interval is how often a maintenance tick fires.
	Interval time.Duration

	// ArchivalRetention is how long a task must remain done before it is
	// archived.
	ArchivalRetention time.Duration

	// DueSoonWindow is how far ahead the due pass looks for tasks that
	// need attention.
	DueSoonWindow time.Duration

	// ShutdownGracePeriod bounds how long Stop waits for an in-flight
	// tick before abandoning it.
	ShutdownGracePeriod time.Duration
}

// DefaultSchedulerConfig returns a SchedulerConfig with reasonable defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:            time.Hour,
		ArchivalRetention:   7 * 24 * time.Hour,
		DueSoonWindow:       6 * time.Hour,
		ShutdownGracePeriod: 10 * time.Second,
	}
}

// Scheduler is the recurring background activity that archives completed
// tasks once their retention window has passed and flags tasks that are due
// soon. It reads and writes task state only through the store; request
// handlers share the same store, and the store's per-call atomicity is the
// only consistency guarantee between the two.
type Scheduler struct {
	taskStore store.TaskStore
	emitter   events.EventEmitter
	clock     Clock
	config    SchedulerConfig
	logger    *slog.Logger

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup

	// tickMu serializes ticks. A trigger firing while a tick is still
	// running is skipped, never queued and never run concurrently.
	tickMu sync.Mutex
}

// NewScheduler creates a new Scheduler. The emitter may be nil, in which
// case lifecycle events are simply not published.
func NewScheduler(
	taskStore store.TaskStore,
	emitter events.EventEmitter,
	clock Clock,
	config SchedulerConfig,
	logger *slog.Logger,
) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.ShutdownGracePeriod <= 0 {
		config.ShutdownGracePeriod = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		taskStore:  taskStore,
		emitter:    emitter,
		clock:      clock,
		config:     config,
		logger:     logger.With(slog.String("component", "scheduler")),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the background loop. It returns immediately; ticks run on
// a dedicated goroutine until Stop is called.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()

	s.logger.Info("scheduler started",
		slog.Duration("interval", s.config.Interval),
		slog.Duration("archival_retention", s.config.ArchivalRetention),
		slog.Duration("due_soon_window", s.config.DueSoonWindow))
}

// Stop cancels the loop and waits for an in-flight tick to finish, up to
// the configured grace period. No tick is scheduled after Stop begins.
func (s *Scheduler) Stop() {
	s.cancelFunc()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
	case <-time.After(s.config.ShutdownGracePeriod):
		s.logger.Warn("scheduler shutdown grace period elapsed, abandoning in-flight tick",
			slog.Duration("grace_period", s.config.ShutdownGracePeriod))
	}
}

// RunTick executes one maintenance pass immediately. It is used by the
// manual maintenance endpoint and shares the loop's mutual exclusion: if a
// scheduled tick is already running, RunTick returns false without running.
func (s *Scheduler) RunTick(ctx context.Context) bool {
	if !s.tickMu.TryLock() {
		s.logger.Debug("tick already running, skipping trigger")
		return false
	}
	defer s.tickMu.Unlock()

	s.tick(ctx)
	return true
}

// run is the scheduler loop: sleep until the next trigger or shutdown.
func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			// Detach the tick from the shutdown cancellation so Stop
			// cannot abort a persistence call mid-write; the grace
			// period still bounds how long the tick may linger.
			tickCtx, cancel := context.WithTimeout(
				context.WithoutCancel(s.ctx), s.config.ShutdownGracePeriod)
			s.RunTick(tickCtx)
			cancel()
		}
	}
}

// tick performs one maintenance pass: the archive pass, then the due pass.
// Each pass catches its own failures; a broken tick never terminates the
// loop.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.clock.Now()
	s.logger.Debug("maintenance tick started", slog.Time("now", now))

	s.archivePass(ctx, now)
	s.duePass(ctx, now)
}

// archivePass archives every done task whose retention window has passed.
// One task's persistence failure is logged and never blocks the rest of
// the batch; already-archived tasks are excluded by the state filter, so
// rerunning an interrupted pass causes no double transitions.
func (s *Scheduler) archivePass(ctx context.Context, now time.Time) {
	tasks, err := s.taskStore.FindByState(ctx, domain.TaskStateDone)
	if err != nil {
		s.logger.Error("archive pass: failed to query done tasks",
			slog.String("error", err.Error()))
		return
	}

	archived := 0
	for _, t := range tasks {
		if !domain.IsEligibleForArchival(t, now, s.config.ArchivalRetention) {
			continue
		}

		completedAt := *t.CompletedAt

		if err := t.Transition(domain.TaskStateArchived, now); err != nil {
			// Cannot happen for a done task; guard anyway.
			s.logger.Error("archive pass: transition rejected",
				slog.String("task_id", t.ID.String()),
				slog.String("error", err.Error()))
			continue
		}

		if err := s.taskStore.Update(ctx, t); err != nil {
			s.logger.Error("archive pass: failed to persist archived task",
				slog.String("task_id", t.ID.String()),
				slog.String("error", err.Error()))
			continue
		}

		archived++
		s.logger.Info("task archived",
			slog.String("task_id", t.ID.String()),
			slog.Time("completed_at", completedAt))

		s.emit(ctx, events.EventTaskArchived, events.TaskArchivedPayload{
			TaskID:      t.ID,
			CompletedAt: completedAt,
		})
	}

	s.logger.Debug("archive pass finished",
		slog.Int("done_tasks", len(tasks)),
		slog.Int("archived", archived))
}

// duePass publishes an event for every task due inside the soon window.
// Handlers decide what attention means (printing a ticket, auto-starting).
func (s *Scheduler) duePass(ctx context.Context, now time.Time) {
	tasks, err := s.taskStore.FindDueBetween(ctx, now, now.Add(s.config.DueSoonWindow))
	if err != nil {
		s.logger.Error("due pass: failed to query due tasks",
			slog.String("error", err.Error()))
		return
	}

	for _, t := range tasks {
		s.logger.Debug("task due soon",
			slog.String("task_id", t.ID.String()),
			slog.String("state", string(t.State)))

		s.emit(ctx, events.EventTaskDue, events.TaskDuePayload{
			TaskID:  t.ID,
			DueDate: t.DueDate,
		})
	}

	s.logger.Debug("due pass finished", slog.Int("due_tasks", len(tasks)))
}

// emit publishes an event if an emitter is wired, logging emit failures
// instead of propagating them into the tick.
func (s *Scheduler) emit(ctx context.Context, eventType string, payload interface{}) {
	if s.emitter == nil {
		return
	}

	event, err := events.NewTaskEvent(eventType, payload)
	if err != nil {
		s.logger.Error("failed to build event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.Error("failed to emit event",
			slog.String("event_type", eventType),
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()))
	}
}
