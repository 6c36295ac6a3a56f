package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"agent-scheduler/config"
	"agent-scheduler/internal/model"
	"agent-scheduler/internal/repository"
	"agent-scheduler/pkg/logger"

	"github.com/google/uuid"
)

// TaskStore owns the task collection. All access to tasks and their mutable
// fields goes through its mutex so user commands and scheduler ticks never
// interleave into an inconsistent record.
type TaskStore interface {
	Load(ctx context.Context) error
	Create(ctx context.Context, name, agentID, promptTemplate string, schedule model.Schedule) (*model.Task, error)
	List(ctx context.Context) []model.Task
	Get(ctx context.Context, taskID string) (*model.Task, error)
	Delete(ctx context.Context, taskID string) error
	Toggle(ctx context.Context, taskID string, enabled bool) (*model.Task, error)
	RecordExecution(ctx context.Context, taskID string, executedAt time.Time)
	Due(now time.Time) []model.Task
}

type taskStore struct {
	cfg      *config.Config
	log      *logger.Logger
	taskRepo repository.TaskRepository
	registry repository.AgentRegistry
	loc      *time.Location
	now      func() time.Time

	mu    sync.RWMutex
	tasks map[string]*model.Task
	order []string
}

// NewTaskStore creates the authoritative in-memory store. taskRepo may be nil
// to disable the persistence mirror.
func NewTaskStore(
	cfg *config.Config,
	log *logger.Logger,
	taskRepo repository.TaskRepository,
	registry repository.AgentRegistry,
	loc *time.Location,
) TaskStore {
	return &taskStore{
		cfg:      cfg,
		log:      log,
		taskRepo: taskRepo,
		registry: registry,
		loc:      loc,
		now:      func() time.Time { return time.Now().In(loc) },
		tasks:    make(map[string]*model.Task),
	}
}

// Load restores persisted tasks. Stale next_run values are kept as-is: a task
// that became due while the process was down fires once on the first tick,
// and RecordExecution rebases it from that execution.
func (s *taskStore) Load(ctx context.Context) error {
	if s.taskRepo == nil {
		return nil
	}

	tasks, err := s.taskRepo.LoadTasks(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make(map[string]*model.Task, len(tasks))
	s.order = make([]string, 0, len(tasks))
	for i := range tasks {
		task := tasks[i]
		s.tasks[task.ID] = &task
		s.order = append(s.order, task.ID)
	}

	s.log.InfoContext(ctx, "Restored tasks from database", logger.IntField("count", len(tasks)))
	return nil
}

func (s *taskStore) Create(ctx context.Context, name, agentID, promptTemplate string, schedule model.Schedule) (*model.Task, error) {
	if strings.TrimSpace(name) == "" {
		return nil, NewValidationError("task name must not be empty")
	}
	if strings.TrimSpace(promptTemplate) == "" {
		return nil, NewValidationError("prompt template must not be empty")
	}
	if err := schedule.Validate(); err != nil {
		return nil, NewValidationError("invalid schedule: %v", err)
	}
	if _, err := s.registry.Resolve(ctx, agentID); err != nil {
		if errors.Is(err, repository.ErrAgentNotFound) {
			return nil, NewValidationError("unknown agent: %s", agentID)
		}
		return nil, err
	}

	now := s.now()
	nextRun := schedule.Next(now)
	task := &model.Task{
		ID:             uuid.NewString(),
		Name:           name,
		AgentID:        agentID,
		PromptTemplate: promptTemplate,
		Schedule:       schedule,
		Enabled:        true,
		CreatedAt:      now,
		NextRun:        &nextRun,
	}

	s.mu.Lock()
	s.tasks[task.ID] = task
	s.order = append(s.order, task.ID)
	created := task.Clone()
	s.mu.Unlock()

	s.persist(ctx, created)
	s.log.InfoContext(ctx, "Task created",
		logger.StringField("task_id", created.ID),
		logger.StringField("task_name", created.Name),
		logger.StringField("agent_id", created.AgentID),
	)
	return &created, nil
}

// List returns all tasks in creation order.
func (s *taskStore) List(ctx context.Context) []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]model.Task, 0, len(s.order))
	for _, id := range s.order {
		if task, ok := s.tasks[id]; ok {
			tasks = append(tasks, task.Clone())
		}
	}
	return tasks
}

func (s *taskStore) Get(ctx context.Context, taskID string) (*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	cloned := task.Clone()
	return &cloned, nil
}

func (s *taskStore) Delete(ctx context.Context, taskID string) error {
	s.mu.Lock()
	if _, ok := s.tasks[taskID]; !ok {
		s.mu.Unlock()
		return ErrTaskNotFound
	}
	delete(s.tasks, taskID)
	for i, id := range s.order {
		if id == taskID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if s.taskRepo != nil {
		if err := s.taskRepo.DeleteTask(ctx, taskID); err != nil {
			s.log.WarnContext(ctx, "Failed to delete task from database",
				logger.StringField("task_id", taskID),
				logger.ErrorField(err),
			)
		}
	}

	s.log.InfoContext(ctx, "Task deleted", logger.StringField("task_id", taskID))
	return nil
}

// Toggle flips the enabled flag. Re-enabling recomputes next_run from the
// current instant, never from the stale value, so disabled time never accrues
// a backlog of missed occurrences. Disabling clears next_run.
func (s *taskStore) Toggle(ctx context.Context, taskID string, enabled bool) (*model.Task, error) {
	s.mu.Lock()
	task, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrTaskNotFound
	}

	wasEnabled := task.Enabled
	task.Enabled = enabled
	if enabled && !wasEnabled {
		nextRun := task.Schedule.Next(s.now())
		task.NextRun = &nextRun
	} else if !enabled {
		task.NextRun = nil
	}
	updated := task.Clone()
	s.mu.Unlock()

	s.persist(ctx, updated)
	s.log.InfoContext(ctx, "Task toggled",
		logger.StringField("task_id", taskID),
		logger.Field("enabled", enabled),
	)
	return &updated, nil
}

// RecordExecution updates last_run, run_count and next_run after an execution
// completes. The basis for next_run is the execution start time, not the tick
// time, preventing schedule drift across ticks. A no-op when the task was
// deleted while the execution was in flight.
func (s *taskStore) RecordExecution(ctx context.Context, taskID string, executedAt time.Time) {
	s.mu.Lock()
	task, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return
	}

	lastRun := executedAt
	nextRun := task.Schedule.Next(executedAt)
	task.LastRun = &lastRun
	task.RunCount++
	task.NextRun = &nextRun
	updated := task.Clone()
	s.mu.Unlock()

	s.persist(ctx, updated)
}

// Due snapshots all enabled tasks whose next_run is at or before now.
func (s *taskStore) Due(now time.Time) []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []model.Task
	for _, id := range s.order {
		if task, ok := s.tasks[id]; ok && task.Due(now) {
			due = append(due, task.Clone())
		}
	}
	return due
}

// persist mirrors a task into the database. Memory is authoritative; a write
// failure is logged and the command still succeeds.
func (s *taskStore) persist(ctx context.Context, task model.Task) {
	if s.taskRepo == nil {
		return
	}
	if err := s.taskRepo.SaveTask(ctx, task); err != nil {
		s.log.WarnContext(ctx, "Failed to persist task",
			logger.StringField("task_id", task.ID),
			logger.ErrorField(err),
		)
	}
}
