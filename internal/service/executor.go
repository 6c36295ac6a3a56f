package service

import (
	"context"
	"strings"
	"time"

	"agent-scheduler/config"
	"agent-scheduler/internal/model"
	"agent-scheduler/internal/repository"
	"agent-scheduler/pkg/logger"
)

// Prompt placeholder formats. The placeholders {date}, {time} and {datetime}
// expand to the execution start time in these layouts.
const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04:05"
	datetimeLayout = "2006-01-02 15:04:05"
)

// TaskExecutor expands a task's prompt template, invokes the agent backend
// and converts the outcome into a TaskResult. Invoker failures never
// propagate as errors; they become failed results.
type TaskExecutor interface {
	Execute(ctx context.Context, task model.Task, executedAt time.Time) model.TaskResult
}

type taskExecutor struct {
	cfg      *config.Config
	log      *logger.Logger
	registry repository.AgentRegistry
	invokers map[model.AgentProvider]repository.AgentInvoker
}

func NewTaskExecutor(
	cfg *config.Config,
	log *logger.Logger,
	registry repository.AgentRegistry,
	invokers map[model.AgentProvider]repository.AgentInvoker,
) TaskExecutor {
	return &taskExecutor{
		cfg:      cfg,
		log:      log,
		registry: registry,
		invokers: invokers,
	}
}

func (t *taskExecutor) Execute(ctx context.Context, task model.Task, executedAt time.Time) model.TaskResult {
	prompt := expandTemplate(task.PromptTemplate, executedAt)
	result := model.TaskResult{
		TaskID:     task.ID,
		TaskName:   task.Name,
		AgentName:  task.AgentID, // fallback when the agent no longer resolves
		ExecutedAt: executedAt,
		Prompt:     prompt,
	}

	agent, err := t.registry.Resolve(ctx, task.AgentID)
	if err != nil {
		return t.fail(ctx, result, "failed to resolve agent: "+err.Error())
	}
	result.AgentName = agent.Name

	invoker, ok := t.invokers[agent.Provider]
	if !ok {
		return t.fail(ctx, result, "no invoker configured for provider "+string(agent.Provider))
	}

	response, err := invoker.Invoke(ctx, *agent, prompt)
	if err != nil {
		return t.fail(ctx, result, err.Error())
	}

	result.Success = true
	result.Response = response
	t.log.InfoContext(ctx, "Task executed",
		logger.StringField("task_id", task.ID),
		logger.StringField("task_name", task.Name),
		logger.StringField("agent", agent.Name),
	)
	return result
}

func (t *taskExecutor) fail(ctx context.Context, result model.TaskResult, message string) model.TaskResult {
	result.Success = false
	result.Error = message
	t.log.WarnContext(ctx, "Task execution failed",
		logger.StringField("task_id", result.TaskID),
		logger.StringField("task_name", result.TaskName),
		logger.StringField("error", message),
	)
	return result
}

func expandTemplate(template string, now time.Time) string {
	replacer := strings.NewReplacer(
		"{date}", now.Format(dateLayout),
		"{time}", now.Format(timeLayout),
		"{datetime}", now.Format(datetimeLayout),
	)
	return replacer.Replace(template)
}
