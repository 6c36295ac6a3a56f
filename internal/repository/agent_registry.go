package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"agent-scheduler/config"
	"agent-scheduler/internal/model"
	"agent-scheduler/pkg/cache"
	"agent-scheduler/pkg/logger"
)

var ErrAgentNotFound = errors.New("agent not found")

const agentConfigCacheKey = "agents:config"

// AgentRegistry resolves agent identifiers to their definitions. Used at task
// creation for validation and at execution time to populate the denormalized
// agent name on results.
type AgentRegistry interface {
	Resolve(ctx context.Context, agentID string) (*model.Agent, error)
	List(ctx context.Context) []model.Agent
}

type agentRegistry struct {
	cfg           *config.Config
	inmemoryCache cache.Cache
	log           *logger.Logger
}

func NewAgentRegistry(cfg *config.Config, inmemoryCache cache.Cache, log *logger.Logger) AgentRegistry {
	return &agentRegistry{
		cfg:           cfg,
		inmemoryCache: inmemoryCache,
		log:           log,
	}
}

func (r *agentRegistry) Resolve(ctx context.Context, agentID string) (*model.Agent, error) {
	agents := r.loadAgents(ctx)
	if agent, ok := agents[agentID]; ok {
		return &agent, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
}

func (r *agentRegistry) List(ctx context.Context) []model.Agent {
	agents := r.loadAgents(ctx)
	list := make([]model.Agent, 0, len(agents))
	for _, agent := range agents {
		list = append(list, agent)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// loadAgents reads the agent config file, falling back to the built-in
// defaults. The parsed set is cached so edits to the file get picked up
// without a restart once the cache entry expires.
func (r *agentRegistry) loadAgents(ctx context.Context) map[string]model.Agent {
	if cached, found := r.inmemoryCache.Get(agentConfigCacheKey); found {
		if agents, ok := cached.(map[string]model.Agent); ok {
			return agents
		}
	}

	agents := r.loadFromFile(ctx)
	if agents == nil {
		agents = defaultAgents()
	}

	r.inmemoryCache.Set(agentConfigCacheKey, agents, r.cfg.Cache.DefaultExpiration)
	return agents
}

func (r *agentRegistry) loadFromFile(ctx context.Context) map[string]model.Agent {
	contents, err := os.ReadFile(r.cfg.Agents.ConfigPath)
	if err != nil {
		r.log.DebugContext(ctx, "No agent config file, using default agents",
			logger.StringField("path", r.cfg.Agents.ConfigPath),
			logger.ErrorField(err),
		)
		return nil
	}

	var agentList []model.Agent
	if err := json.Unmarshal(contents, &agentList); err != nil {
		r.log.WarnContext(ctx, "Failed to parse agent config file, using default agents",
			logger.StringField("path", r.cfg.Agents.ConfigPath),
			logger.ErrorField(err),
		)
		return nil
	}

	agents := make(map[string]model.Agent, len(agentList))
	for _, agent := range agentList {
		if agent.Provider == "" {
			agent.Provider = model.ProviderOllama
		}
		agents[agent.ID] = agent
	}
	r.log.InfoContext(ctx, "Loaded agents from config file", logger.IntField("count", len(agents)))
	return agents
}

func defaultAgents() map[string]model.Agent {
	defaults := []model.Agent{
		{
			ID:           "general",
			Name:         "General Assistant",
			Role:         "general",
			Description:  "General purpose AI assistant for various tasks",
			Capabilities: []string{"conversation", "reasoning", "analysis"},
			Model:        "llama3.2",
			Provider:     model.ProviderOllama,
		},
		{
			ID:           "coder",
			Name:         "Code Assistant",
			Role:         "coder",
			Description:  "Specialized in programming, code review, and debugging",
			Capabilities: []string{"code_generation", "code_review", "debugging", "refactoring"},
			Model:        "codellama",
			Provider:     model.ProviderOllama,
		},
		{
			ID:           "analyst",
			Name:         "Data Analyst",
			Role:         "analyst",
			Description:  "Analyzes data, files, and provides insights",
			Capabilities: []string{"file_analysis", "data_processing", "visualization"},
			Model:        "llama3.2",
			Provider:     model.ProviderOllama,
		},
	}

	agents := make(map[string]model.Agent, len(defaults))
	for _, agent := range defaults {
		agents[agent.ID] = agent
	}
	return agents
}
