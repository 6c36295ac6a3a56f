package model

import (
	"time"
)

// TaskResult is an immutable execution outcome. TaskName and AgentName are
// denormalized at execution time so history stays meaningful after the task
// or agent is deleted. Response is set only on success, Error only on failure.
type TaskResult struct {
	TaskID     string    `json:"task_id"`
	TaskName   string    `json:"task_name"`
	AgentName  string    `json:"agent_name"`
	ExecutedAt time.Time `json:"executed_at"`
	Prompt     string    `json:"prompt"`
	Response   string    `json:"response,omitempty"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
}
