package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"agent-scheduler/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyResult(i int) model.TaskResult {
	return model.TaskResult{
		TaskID:     fmt.Sprintf("task-%d", i),
		TaskName:   fmt.Sprintf("task %d", i),
		AgentName:  "General Assistant",
		ExecutedAt: time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC),
		Prompt:     "prompt",
		Success:    true,
		Response:   fmt.Sprintf("response %d", i),
	}
}

func TestResultHistoryEvictsOldest(t *testing.T) {
	history := NewResultHistory(3, nil, testLogger())

	for i := 1; i <= 5; i++ {
		history.Append(context.Background(), historyResult(i))
	}

	assert.Equal(t, 3, history.Size())

	recent := history.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "task-5", recent[0].TaskID)
	assert.Equal(t, "task-4", recent[1].TaskID)
	assert.Equal(t, "task-3", recent[2].TaskID)
}

func TestResultHistoryRecentLimit(t *testing.T) {
	history := NewResultHistory(10, nil, testLogger())
	for i := 1; i <= 5; i++ {
		history.Append(context.Background(), historyResult(i))
	}

	recent := history.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "task-5", recent[0].TaskID)
	assert.Equal(t, "task-4", recent[1].TaskID)

	assert.Len(t, history.Recent(100), 5, "limit beyond range clamps to everything retained")
	assert.Len(t, history.Recent(-1), 5, "negative limit clamps to everything retained")
}

func TestResultHistoryDefaultCapacity(t *testing.T) {
	history := NewResultHistory(0, nil, testLogger())
	assert.Equal(t, defaultHistoryCapacity, history.capacity)
}

func TestResultHistoryEmptyRecent(t *testing.T) {
	history := NewResultHistory(5, nil, testLogger())
	assert.Empty(t, history.Recent(10))
	assert.Equal(t, 0, history.Size())
}
