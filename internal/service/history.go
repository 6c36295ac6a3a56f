package service

import (
	"context"
	"sync"

	"agent-scheduler/internal/model"
	"agent-scheduler/internal/repository"
	"agent-scheduler/pkg/logger"
)

const defaultHistoryCapacity = 500

// ResultHistory is the append-only, bounded collection of execution outcomes.
// When capacity is exceeded the oldest entry is evicted first. Entries are
// never mutated or deleted individually.
type ResultHistory struct {
	log      *logger.Logger
	taskRepo repository.TaskRepository
	capacity int

	mu      sync.RWMutex
	entries []model.TaskResult // oldest first
}

// NewResultHistory creates a bounded history. taskRepo may be nil to disable
// the durable mirror.
func NewResultHistory(capacity int, taskRepo repository.TaskRepository, log *logger.Logger) *ResultHistory {
	if capacity <= 0 {
		capacity = defaultHistoryCapacity
	}
	return &ResultHistory{
		log:      log,
		taskRepo: taskRepo,
		capacity: capacity,
	}
}

// Load restores the most recent persisted results and prunes rows that fell
// out of the retention window.
func (h *ResultHistory) Load(ctx context.Context) error {
	if h.taskRepo == nil {
		return nil
	}

	recent, err := h.taskRepo.LoadRecentResults(ctx, h.capacity)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.entries = make([]model.TaskResult, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- { // newest-first to oldest-first
		h.entries = append(h.entries, recent[i])
	}
	h.mu.Unlock()

	if len(recent) > 0 {
		oldest := recent[len(recent)-1].ExecutedAt
		pruned, err := h.taskRepo.DeleteResultsBefore(ctx, oldest)
		if err != nil {
			h.log.WarnContext(ctx, "Failed to prune old task results", logger.ErrorField(err))
		} else if pruned > 0 {
			h.log.InfoContext(ctx, "Pruned old task results", logger.IntField("count", int(pruned)))
		}
	}

	h.log.InfoContext(ctx, "Restored task results from database", logger.IntField("count", len(recent)))
	return nil
}

// Append adds a result, evicting the oldest entry once capacity is exceeded.
func (h *ResultHistory) Append(ctx context.Context, result model.TaskResult) {
	h.mu.Lock()
	h.entries = append(h.entries, result)
	if len(h.entries) > h.capacity {
		h.entries = h.entries[len(h.entries)-h.capacity:]
	}
	h.mu.Unlock()

	if h.taskRepo != nil {
		if err := h.taskRepo.AppendResult(ctx, result); err != nil {
			h.log.WarnContext(ctx, "Failed to persist task result",
				logger.StringField("task_id", result.TaskID),
				logger.ErrorField(err),
			)
		}
	}
}

// Recent returns up to limit entries, newest first. A limit of zero or less,
// or one beyond the available range, clamps to everything retained.
func (h *ResultHistory) Recent(limit int) []model.TaskResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 || limit > len(h.entries) {
		limit = len(h.entries)
	}

	results := make([]model.TaskResult, 0, limit)
	for i := len(h.entries) - 1; i >= len(h.entries)-limit; i-- {
		results = append(results, h.entries[i])
	}
	return results
}

// Size reports the number of retained entries.
func (h *ResultHistory) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
