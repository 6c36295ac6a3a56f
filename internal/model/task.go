package model

import (
	"time"
)

// Task is a recurring automated invocation of an agent. The id is immutable;
// Enabled, LastRun, NextRun and RunCount are the only mutable fields and are
// owned by the task store.
type Task struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	AgentID        string     `json:"agent_id"`
	PromptTemplate string     `json:"prompt_template"`
	Schedule       Schedule   `json:"schedule_type"`
	Enabled        bool       `json:"enabled"`
	CreatedAt      time.Time  `json:"created_at"`
	LastRun        *time.Time `json:"last_run"`
	NextRun        *time.Time `json:"next_run"`
	RunCount       int        `json:"run_count"`
}

// Clone returns a deep copy so snapshots handed to callers never alias the
// store's mutable timestamps.
func (t Task) Clone() Task {
	c := t
	if t.LastRun != nil {
		lr := *t.LastRun
		c.LastRun = &lr
	}
	if t.NextRun != nil {
		nr := *t.NextRun
		c.NextRun = &nr
	}
	return c
}

// Due reports whether the task should run at now.
func (t Task) Due(now time.Time) bool {
	return t.Enabled && t.NextRun != nil && !t.NextRun.After(now)
}
