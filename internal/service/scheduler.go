package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"agent-scheduler/config"
	"agent-scheduler/internal/model"
	"agent-scheduler/pkg/logger"
	"agent-scheduler/pkg/telegram"
	"agent-scheduler/pkg/utils"

	"golang.org/x/sync/semaphore"
)

// SchedulerService drives execution. A single timer with a fixed polling
// period detects due tasks and dispatches each one independently, so a slow
// execution never delays detection or dispatch of the others. Execution of
// the same task id never overlaps: an in-flight guard keyed by id skips tasks
// whose previous run is still going; they stay due and are retried next tick.
type SchedulerService interface {
	Start(ctx context.Context)
	Stop(ctx context.Context) error
	RunTask(ctx context.Context, taskID string) error
}

type schedulerService struct {
	cfg      *config.Config
	log      *logger.Logger
	store    TaskStore
	history  *ResultHistory
	executor TaskExecutor
	notifier *telegram.Notifier
	sem      *semaphore.Weighted
	loc      *time.Location
	now      func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

func NewSchedulerService(
	cfg *config.Config,
	log *logger.Logger,
	store TaskStore,
	history *ResultHistory,
	executor TaskExecutor,
	notifier *telegram.Notifier,
	loc *time.Location,
) SchedulerService {
	return &schedulerService{
		cfg:      cfg,
		log:      log,
		store:    store,
		history:  history,
		executor: executor,
		notifier: notifier,
		sem:      semaphore.NewWeighted(int64(cfg.Scheduler.MaxConcurrency)),
		loc:      loc,
		now:      func() time.Time { return time.Now().In(loc) },
		inflight: make(map[string]struct{}),
	}
}

// Start launches the polling loop. It returns immediately; the loop runs for
// the lifetime of ctx.
func (s *schedulerService) Start(ctx context.Context) {
	s.log.Info("Starting scheduler loop",
		logger.Field("poll_interval", s.cfg.Scheduler.PollInterval),
		logger.IntField("max_concurrency", s.cfg.Scheduler.MaxConcurrency),
	)

	utils.GoSafe(func() {
		ticker := time.NewTicker(s.cfg.Scheduler.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.log.Info("Scheduler loop stopped")
				return
			case <-ticker.C:
				s.runTick(ctx)
			}
		}
	})
}

// runTick recovers panics per tick so one bad tick never kills the loop.
func (s *schedulerService) runTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Recovered from panic in scheduler tick", logger.Field("panic", r))
		}
	}()
	s.tick(ctx)
}

// Stop waits for in-flight executions to finish, up to ctx's deadline.
// Executions outliving the deadline are abandoned; their goroutines still
// record results when they eventually return.
func (s *schedulerService) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("All in-flight executions completed")
		return nil
	case <-ctx.Done():
		s.log.Warn("Timed out waiting for in-flight executions")
		return ctx.Err()
	}
}

// RunTask executes one task immediately, outside its schedule. Subject to the
// same exclusivity guard and concurrency bound as scheduled runs.
func (s *schedulerService) RunTask(ctx context.Context, taskID string) error {
	task, err := s.store.Get(ctx, taskID)
	if err != nil {
		return err
	}
	return s.dispatch(ctx, *task)
}

// tick snapshots due tasks and dispatches each one. Dispatch failures
// (already running, at capacity) are not errors: the task stays due and is
// retried on a later tick.
func (s *schedulerService) tick(ctx context.Context) {
	now := s.now()
	due := s.store.Due(now)
	if len(due) == 0 {
		return
	}

	s.log.DebugContext(ctx, "Dispatching due tasks", logger.IntField("due_count", len(due)))
	for _, task := range due {
		if err := s.dispatch(ctx, task); err != nil {
			s.log.DebugContext(ctx, "Task dispatch skipped",
				logger.StringField("task_id", task.ID),
				logger.StringField("task_name", task.Name),
				logger.ErrorField(err),
			)
		}
	}
}

func (s *schedulerService) dispatch(ctx context.Context, task model.Task) error {
	if !s.tryAcquire(task.ID) {
		return fmt.Errorf("%w: %s", ErrTaskAlreadyRunning, task.ID)
	}
	if !s.sem.TryAcquire(1) {
		s.release(task.ID)
		return ErrAtCapacity
	}

	s.wg.Add(1)
	utils.GoSafe(func() {
		defer func() {
			s.sem.Release(1)
			s.release(task.ID)
			s.wg.Done()
		}()
		s.execute(task)
	})
	return nil
}

// execute runs detached from the tick context so cancellation of the loop
// never drops an outcome; the invoker call is bounded by the configured
// execution timeout instead.
func (s *schedulerService) execute(task model.Task) {
	executedAt := s.now()
	execCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Scheduler.ExecutionTimeout)
	result := s.executor.Execute(execCtx, task, executedAt)
	cancel()

	// Bookkeeping gets a fresh context: when the invoker call is what hit
	// the deadline, execCtx is already expired and would fail the mirror
	// writes and the alert.
	ctx := context.Background()
	s.store.RecordExecution(ctx, task.ID, executedAt)
	s.history.Append(ctx, result)

	if !result.Success && !s.cfg.Telegram.DisableFailureAlerts {
		alert := fmt.Sprintf("Task %q (agent %s) failed at %s:\n%s",
			result.TaskName, result.AgentName, executedAt.Format(datetimeLayout), result.Error)
		if err := s.notifier.Send(ctx, alert); err != nil {
			s.log.Warn("Failed to send failure alert", logger.ErrorField(err))
		}
	}
}

func (s *schedulerService) tryAcquire(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, running := s.inflight[taskID]; running {
		return false
	}
	s.inflight[taskID] = struct{}{}
	return true
}

func (s *schedulerService) release(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, taskID)
}
