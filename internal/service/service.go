package service

import (
	"context"
	"time"

	"agent-scheduler/config"
	"agent-scheduler/internal/model"
	"agent-scheduler/internal/repository"
	"agent-scheduler/pkg/logger"
	"agent-scheduler/pkg/telegram"
)

type Service struct {
	TaskStore     TaskStore
	History       *ResultHistory
	TaskExecutor  TaskExecutor
	Scheduler     SchedulerService
	AgentRegistry repository.AgentRegistry
	Invokers      map[model.AgentProvider]repository.AgentInvoker
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	notifier *telegram.Notifier,
	loc *time.Location,
) *Service {
	store := NewTaskStore(cfg, log, repo.TaskRepo, repo.AgentRegistry, loc)
	history := NewResultHistory(cfg.Scheduler.HistorySize, repo.TaskRepo, log)
	executor := NewTaskExecutor(cfg, log, repo.AgentRegistry, repo.Invokers)
	scheduler := NewSchedulerService(cfg, log, store, history, executor, notifier, loc)

	return &Service{
		TaskStore:     store,
		History:       history,
		TaskExecutor:  executor,
		Scheduler:     scheduler,
		AgentRegistry: repo.AgentRegistry,
		Invokers:      repo.Invokers,
	}
}

// Bootstrap restores persisted state before the scheduler starts ticking.
func (s *Service) Bootstrap(ctx context.Context) error {
	if err := s.TaskStore.Load(ctx); err != nil {
		return err
	}
	return s.History.Load(ctx)
}
