package dto

import (
	"agent-scheduler/internal/model"
)

type CreateTaskRequest struct {
	Name           string         `json:"name" validate:"required"`
	AgentID        string         `json:"agent_id" validate:"required"`
	PromptTemplate string         `json:"prompt_template" validate:"required"`
	ScheduleType   model.Schedule `json:"schedule_type"`
}

type ToggleTaskRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type GetTaskResultsRequest struct {
	Limit int `query:"limit"`
}
