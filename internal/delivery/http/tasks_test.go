package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"agent-scheduler/config"
	"agent-scheduler/internal/dto"
	"agent-scheduler/internal/model"
	"agent-scheduler/internal/repository"
	"agent-scheduler/internal/service"
	"agent-scheduler/pkg/logger"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRegistry struct {
	agents map[string]model.Agent
}

func (f *fakeRegistry) Resolve(ctx context.Context, agentID string) (*model.Agent, error) {
	if agent, ok := f.agents[agentID]; ok {
		return &agent, nil
	}
	return nil, fmt.Errorf("%w: %s", repository.ErrAgentNotFound, agentID)
}

func (f *fakeRegistry) List(ctx context.Context) []model.Agent {
	list := make([]model.Agent, 0, len(f.agents))
	for _, a := range f.agents {
		list = append(list, a)
	}
	return list
}

type fakeInvoker struct {
	response string
	pingErr  error
}

func (f *fakeInvoker) Invoke(ctx context.Context, agent model.Agent, prompt string) (string, error) {
	return f.response, nil
}

func (f *fakeInvoker) Ping(ctx context.Context) error {
	return f.pingErr
}

func newTestHandler(t *testing.T) (*HttpAPIHandler, *echo.Echo) {
	t.Helper()

	cfg := &config.Config{
		Scheduler: config.Scheduler{
			PollInterval:     time.Second,
			MaxConcurrency:   4,
			ExecutionTimeout: 5 * time.Second,
			HistorySize:      100,
			TimeZone:         "UTC",
		},
		Telegram: config.TelegramConfig{DisableFailureAlerts: true},
	}
	log := &logger.Logger{Logger: zap.NewNop()}
	repo := &repository.Repository{
		AgentRegistry: &fakeRegistry{agents: map[string]model.Agent{
			"general": {ID: "general", Name: "General Assistant", Model: "llama3.2", Provider: model.ProviderOllama},
		}},
		Invokers: map[model.AgentProvider]repository.AgentInvoker{
			model.ProviderOllama: &fakeInvoker{response: "ok"},
		},
	}
	svc := service.NewService(cfg, log, repo, nil, time.UTC)

	e := echo.New()
	handler := NewHttpAPIHandler(context.Background(), e, goValidator.New(), svc)
	handler.SetupRoutes()
	return handler, e
}

func doRequest(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) dto.CommandResponse {
	t.Helper()
	var resp dto.CommandResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func createTaskBody(name string) string {
	return fmt.Sprintf(`{
		"name": %q,
		"agent_id": "general",
		"prompt_template": "Summarize the news for {date}",
		"schedule_type": {"type": "Daily", "at_hour": 9, "at_minute": 0}
	}`, name)
}

func createdTaskID(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decodeEnvelope(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data must be a task object")
	id, _ := data["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestCreateTask(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doRequest(e, http.MethodPost, "/api/v1/tasks", createTaskBody("morning briefing"))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Error)

	task := resp.Data.(map[string]interface{})
	assert.Equal(t, "morning briefing", task["name"])
	assert.Equal(t, true, task["enabled"])
	assert.NotEmpty(t, task["next_run"])
}

func TestCreateTaskValidation(t *testing.T) {
	_, e := newTestHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"agent_id":"general","prompt_template":"p","schedule_type":{"type":"Interval","minutes":5}}`},
		{"missing prompt", `{"name":"n","agent_id":"general","schedule_type":{"type":"Interval","minutes":5}}`},
		{"unknown agent", `{"name":"n","agent_id":"ghost","prompt_template":"p","schedule_type":{"type":"Interval","minutes":5}}`},
		{"interval zero minutes", `{"name":"n","agent_id":"general","prompt_template":"p","schedule_type":{"type":"Interval","minutes":0}}`},
		{"unknown schedule type", `{"name":"n","agent_id":"general","prompt_template":"p","schedule_type":{"type":"Monthly"}}`},
		{"malformed json", `{"name":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(e, http.MethodPost, "/api/v1/tasks", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeEnvelope(t, rec)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
			assert.Nil(t, resp.Data)
		})
	}
}

func TestListTasks(t *testing.T) {
	_, e := newTestHandler(t)

	for _, name := range []string{"first", "second"} {
		rec := doRequest(e, http.MethodPost, "/api/v1/tasks", createTaskBody(name))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(e, http.MethodGet, "/api/v1/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeEnvelope(t, rec)
	require.True(t, resp.Success)
	tasks := resp.Data.([]interface{})
	require.Len(t, tasks, 2)
	assert.Equal(t, "first", tasks[0].(map[string]interface{})["name"])
	assert.Equal(t, "second", tasks[1].(map[string]interface{})["name"])
}

func TestDeleteTask(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doRequest(e, http.MethodPost, "/api/v1/tasks", createTaskBody("doomed"))
	id := createdTaskID(t, rec)

	rec = doRequest(e, http.MethodDelete, "/api/v1/tasks/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Success)

	rec = doRequest(e, http.MethodDelete, "/api/v1/tasks/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestToggleTask(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doRequest(e, http.MethodPost, "/api/v1/tasks", createTaskBody("toggled"))
	id := createdTaskID(t, rec)

	rec = doRequest(e, http.MethodPatch, "/api/v1/tasks/"+id+"/toggle", `{"enabled": false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.True(t, resp.Success)
	task := resp.Data.(map[string]interface{})
	assert.Equal(t, false, task["enabled"])
	assert.Nil(t, task["next_run"])

	rec = doRequest(e, http.MethodPatch, "/api/v1/tasks/"+id+"/toggle", `{"enabled": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	task = decodeEnvelope(t, rec).Data.(map[string]interface{})
	assert.Equal(t, true, task["enabled"])
	assert.NotEmpty(t, task["next_run"])
}

func TestToggleTaskMissingEnabled(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doRequest(e, http.MethodPost, "/api/v1/tasks", createTaskBody("toggled"))
	id := createdTaskID(t, rec)

	rec = doRequest(e, http.MethodPatch, "/api/v1/tasks/"+id+"/toggle", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Success)
}

func TestToggleTaskNotFound(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doRequest(e, http.MethodPatch, "/api/v1/tasks/missing/toggle", `{"enabled": true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunTaskNotFound(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doRequest(e, http.MethodPost, "/api/v1/tasks/missing/run", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Success)
}

func TestGetTaskResultsEmpty(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doRequest(e, http.MethodGet, "/api/v1/tasks/results?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Data)
}

func TestGetTaskResults(t *testing.T) {
	handler, e := newTestHandler(t)

	for i := 1; i <= 3; i++ {
		handler.service.History.Append(context.Background(), model.TaskResult{
			TaskID:     fmt.Sprintf("task-%d", i),
			TaskName:   fmt.Sprintf("task %d", i),
			AgentName:  "General Assistant",
			ExecutedAt: time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC),
			Prompt:     "prompt",
			Success:    true,
			Response:   "response",
		})
	}

	rec := doRequest(e, http.MethodGet, "/api/v1/tasks/results?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeEnvelope(t, rec)
	require.True(t, resp.Success)
	results := resp.Data.([]interface{})
	require.Len(t, results, 2)
	assert.Equal(t, "task-3", results[0].(map[string]interface{})["task_id"])
	assert.Equal(t, "task-2", results[1].(map[string]interface{})["task_id"])
}

func TestListAgents(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doRequest(e, http.MethodGet, "/api/v1/agents", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeEnvelope(t, rec)
	require.True(t, resp.Success)
	agents := resp.Data.([]interface{})
	require.Len(t, agents, 1)
	assert.Equal(t, "general", agents[0].(map[string]interface{})["id"])
}

func TestAgentBackendHealth(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doRequest(e, http.MethodGet, "/api/v1/agents/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeEnvelope(t, rec)
	require.True(t, resp.Success)
	status := resp.Data.(map[string]interface{})
	assert.Equal(t, "ok", status["ollama"])
}
