package repository

import (
	"context"
	"fmt"
	"time"

	"agent-scheduler/config"
	"agent-scheduler/internal/model"
	"agent-scheduler/pkg/logger"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

type geminiRepository struct {
	genAiClient    *genai.Client
	requestLimiter *rate.Limiter
	cfg            *config.Config
	log            *logger.Logger
}

// NewGeminiRepository creates an invoker backed by the Google Gemini API.
func NewGeminiRepository(cfg *config.Config, log *logger.Logger) (AgentInvoker, error) {
	genAiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	secondsPerRequest := time.Minute / time.Duration(cfg.Gemini.MaxRequestPerMin)
	return &geminiRepository{
		genAiClient:    genAiClient,
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		cfg:            cfg,
		log:            log,
	}, nil
}

func (r *geminiRepository) Invoke(ctx context.Context, agent model.Agent, prompt string) (string, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for gemini request limit: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, "user"),
	}

	resp, err := r.genAiClient.Models.GenerateContent(ctx, agent.Model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to send request to gemini: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response for model %s", agent.Model)
	}
	return text, nil
}

// Ping verifies the API is reachable with the configured key by counting
// tokens on a trivial payload.
func (r *geminiRepository) Ping(ctx context.Context) error {
	contents := []*genai.Content{
		genai.NewContentFromText("ping", "user"),
	}
	if _, err := r.genAiClient.Models.CountTokens(ctx, "gemini-2.0-flash", contents, nil); err != nil {
		return fmt.Errorf("failed to reach gemini: %w", err)
	}
	return nil
}
