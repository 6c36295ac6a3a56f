package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"agent-scheduler/config"
	"agent-scheduler/internal/model"
	"agent-scheduler/internal/repository"
	"agent-scheduler/pkg/logger"

	"go.uber.org/zap"
)

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

func testConfig() *config.Config {
	return &config.Config{
		Scheduler: config.Scheduler{
			PollInterval:     time.Second,
			MaxConcurrency:   4,
			ExecutionTimeout: 5 * time.Second,
			HistorySize:      500,
			TimeZone:         "UTC",
		},
		Telegram: config.TelegramConfig{DisableFailureAlerts: true},
	}
}

type stubRegistry struct {
	agents map[string]model.Agent
}

func newStubRegistry(agents ...model.Agent) *stubRegistry {
	m := make(map[string]model.Agent, len(agents))
	for _, a := range agents {
		m[a.ID] = a
	}
	return &stubRegistry{agents: m}
}

func (s *stubRegistry) Resolve(ctx context.Context, agentID string) (*model.Agent, error) {
	if agent, ok := s.agents[agentID]; ok {
		return &agent, nil
	}
	return nil, fmt.Errorf("%w: %s", repository.ErrAgentNotFound, agentID)
}

func (s *stubRegistry) List(ctx context.Context) []model.Agent {
	list := make([]model.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		list = append(list, a)
	}
	return list
}

// stubInvoker counts concurrent invocations per agent call and can block or
// fail on demand.
type stubInvoker struct {
	mu            sync.Mutex
	response      string
	err           error
	block         chan struct{} // when non-nil, Invoke waits here
	calls         int
	concurrent    int
	maxConcurrent int
	lastPrompt    string
}

func (s *stubInvoker) Invoke(ctx context.Context, agent model.Agent, prompt string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.lastPrompt = prompt
	s.concurrent++
	if s.concurrent > s.maxConcurrent {
		s.maxConcurrent = s.concurrent
	}
	block := s.block
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
		}
	}

	s.mu.Lock()
	s.concurrent--
	s.mu.Unlock()

	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubInvoker) Ping(ctx context.Context) error {
	return nil
}

func (s *stubInvoker) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubInvoker) maxObservedConcurrency() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxConcurrent
}

func (s *stubInvoker) promptSeen() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPrompt
}

var testAgent = model.Agent{
	ID:       "general",
	Name:     "General Assistant",
	Model:    "llama3.2",
	Provider: model.ProviderOllama,
}

func newTestStore(cfg *config.Config) (*taskStore, *stubRegistry) {
	registry := newStubRegistry(testAgent)
	store := NewTaskStore(cfg, testLogger(), nil, registry, time.UTC).(*taskStore)
	return store, registry
}
