package repository

import (
	"agent-scheduler/config"
	"agent-scheduler/internal/model"
	"agent-scheduler/pkg/cache"
	"agent-scheduler/pkg/logger"

	"gorm.io/gorm"
)

type Repository struct {
	TaskRepo      TaskRepository
	AgentRegistry AgentRegistry
	Invokers      map[model.AgentProvider]AgentInvoker
}

func NewRepository(cfg *config.Config, inmemoryCache cache.Cache, db *gorm.DB, log *logger.Logger) (*Repository, error) {
	invokers := map[model.AgentProvider]AgentInvoker{
		model.ProviderOllama: NewOllamaRepository(cfg, log),
	}

	// Gemini is optional; agents routed to it fail their executions with a
	// descriptive error when no API key is configured.
	if cfg.Gemini.APIKey != "" {
		geminiRepo, err := NewGeminiRepository(cfg, log)
		if err != nil {
			return nil, err
		}
		invokers[model.ProviderGemini] = geminiRepo
	}

	// A nil db disables the persistence mirror; the in-memory store carries
	// the process's state alone.
	var taskRepo TaskRepository
	if db != nil {
		taskRepo = NewTaskRepository(db)
	}

	return &Repository{
		TaskRepo:      taskRepo,
		AgentRegistry: NewAgentRegistry(cfg, inmemoryCache, log),
		Invokers:      invokers,
	}, nil
}
