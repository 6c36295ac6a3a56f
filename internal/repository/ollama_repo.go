package repository

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"agent-scheduler/config"
	"agent-scheduler/internal/dto"
	"agent-scheduler/internal/model"
	"agent-scheduler/pkg/httpclient"
	"agent-scheduler/pkg/logger"

	"golang.org/x/time/rate"
)

// AgentInvoker performs the actual model call for one backend. It may be slow
// or fail independently of scheduling logic; callers bound it with a context
// deadline.
type AgentInvoker interface {
	Invoke(ctx context.Context, agent model.Agent, prompt string) (string, error)
	Ping(ctx context.Context) error
}

type ollamaRepository struct {
	httpClient     httpclient.HTTPClient
	requestLimiter *rate.Limiter
	cfg            *config.Config
	log            *logger.Logger
}

// NewOllamaRepository creates an invoker backed by a local Ollama server.
func NewOllamaRepository(cfg *config.Config, log *logger.Logger) AgentInvoker {
	secondsPerRequest := time.Minute / time.Duration(cfg.Ollama.MaxRequestPerMin)
	return &ollamaRepository{
		httpClient:     httpclient.New(cfg.Ollama.BaseURL, cfg.Ollama.Timeout, ""),
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		cfg:            cfg,
		log:            log,
	}
}

func (r *ollamaRepository) Invoke(ctx context.Context, agent model.Agent, prompt string) (string, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for ollama request limit: %w", err)
	}

	payload := dto.OllamaGenerateRequest{
		Model:  agent.Model,
		Prompt: prompt,
		Stream: false,
	}

	var result dto.OllamaGenerateResponse
	resp, err := r.httpClient.Post(ctx, "/api/generate", payload, nil, &result)
	if err != nil {
		return "", fmt.Errorf("failed to reach ollama: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(resp.Body))
	}
	if result.Response == "" {
		return "", fmt.Errorf("ollama returned an empty response for model %s", agent.Model)
	}

	return result.Response, nil
}

func (r *ollamaRepository) Ping(ctx context.Context) error {
	var result dto.OllamaTagsResponse
	resp, err := r.httpClient.Get(ctx, "/api/tags", nil, nil, &result)
	if err != nil {
		return fmt.Errorf("failed to reach ollama: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	return nil
}
