package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"agent-scheduler/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskRepository mirrors the in-memory task store into PostgreSQL so state
// survives restarts. The store stays authoritative at runtime; rows here are
// only read back during boot.
type TaskRepository interface {
	LoadTasks(ctx context.Context) ([]model.Task, error)
	SaveTask(ctx context.Context, task model.Task) error
	DeleteTask(ctx context.Context, id string) error
	AppendResult(ctx context.Context, result model.TaskResult) error
	LoadRecentResults(ctx context.Context, limit int) ([]model.TaskResult, error)
	DeleteResultsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

type taskRow struct {
	ID             string         `gorm:"primaryKey;type:varchar(64)"`
	Name           string         `gorm:"type:varchar(255);not null"`
	AgentID        string         `gorm:"type:varchar(255);not null"`
	PromptTemplate string         `gorm:"type:text;not null"`
	Schedule       datatypes.JSON `gorm:"type:jsonb;not null"`
	Enabled        bool           `gorm:"default:true"`
	CreatedAt      time.Time      `gorm:"not null"`
	LastRun        sql.NullTime
	NextRun        sql.NullTime
	RunCount       int `gorm:"default:0"`
}

func (taskRow) TableName() string {
	return "tasks"
}

type taskResultRow struct {
	ID           uint           `gorm:"primaryKey"`
	TaskID       string         `gorm:"type:varchar(64);not null"`
	TaskName     string         `gorm:"type:varchar(255);not null"`
	AgentName    string         `gorm:"type:varchar(255);not null"`
	ExecutedAt   time.Time      `gorm:"not null"`
	Prompt       string         `gorm:"type:text"`
	Response     sql.NullString `gorm:"type:text"`
	Success      bool
	ErrorMessage sql.NullString `gorm:"type:text"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
}

func (taskResultRow) TableName() string {
	return "task_results"
}

func toTaskRow(t model.Task) (*taskRow, error) {
	scheduleJSON, err := json.Marshal(t.Schedule)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schedule: %w", err)
	}

	row := &taskRow{
		ID:             t.ID,
		Name:           t.Name,
		AgentID:        t.AgentID,
		PromptTemplate: t.PromptTemplate,
		Schedule:       scheduleJSON,
		Enabled:        t.Enabled,
		CreatedAt:      t.CreatedAt,
		RunCount:       t.RunCount,
	}
	if t.LastRun != nil {
		row.LastRun = sql.NullTime{Time: *t.LastRun, Valid: true}
	}
	if t.NextRun != nil {
		row.NextRun = sql.NullTime{Time: *t.NextRun, Valid: true}
	}
	return row, nil
}

func (r *taskRow) toModel() (model.Task, error) {
	var schedule model.Schedule
	if err := json.Unmarshal(r.Schedule, &schedule); err != nil {
		return model.Task{}, fmt.Errorf("failed to unmarshal schedule for task %s: %w", r.ID, err)
	}

	t := model.Task{
		ID:             r.ID,
		Name:           r.Name,
		AgentID:        r.AgentID,
		PromptTemplate: r.PromptTemplate,
		Schedule:       schedule,
		Enabled:        r.Enabled,
		CreatedAt:      r.CreatedAt,
		RunCount:       r.RunCount,
	}
	if r.LastRun.Valid {
		lr := r.LastRun.Time
		t.LastRun = &lr
	}
	if r.NextRun.Valid {
		nr := r.NextRun.Time
		t.NextRun = &nr
	}
	return t, nil
}

// LoadTasks returns all persisted tasks in creation order.
func (r *taskRepository) LoadTasks(ctx context.Context) ([]model.Task, error) {
	var rows []taskRow
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		task, err := row.toModel()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (r *taskRepository) SaveTask(ctx context.Context, task model.Task) error {
	row, err := toTaskRow(task)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(row).Error
}

func (r *taskRepository) DeleteTask(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&taskRow{}, "id = ?", id).Error
}

func (r *taskRepository) AppendResult(ctx context.Context, result model.TaskResult) error {
	row := &taskResultRow{
		TaskID:     result.TaskID,
		TaskName:   result.TaskName,
		AgentName:  result.AgentName,
		ExecutedAt: result.ExecutedAt,
		Prompt:     result.Prompt,
		Success:    result.Success,
	}
	if result.Success {
		row.Response = sql.NullString{String: result.Response, Valid: true}
	} else {
		row.ErrorMessage = sql.NullString{String: result.Error, Valid: true}
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// LoadRecentResults returns up to limit results, newest first.
func (r *taskRepository) LoadRecentResults(ctx context.Context, limit int) ([]model.TaskResult, error) {
	var rows []taskResultRow
	if err := r.db.WithContext(ctx).Order("executed_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	results := make([]model.TaskResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, model.TaskResult{
			TaskID:     row.TaskID,
			TaskName:   row.TaskName,
			AgentName:  row.AgentName,
			ExecutedAt: row.ExecutedAt,
			Prompt:     row.Prompt,
			Response:   row.Response.String,
			Success:    row.Success,
			Error:      row.ErrorMessage.String,
		})
	}
	return results, nil
}

func (r *taskRepository) DeleteResultsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("executed_at < ?", cutoff).Delete(&taskResultRow{})
	return res.RowsAffected, res.Error
}
