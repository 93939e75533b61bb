package task

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no task has the requested ID.
var ErrNotFound = errors.New("task not found")

// Status is the workflow state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Priority ranks tasks; shared with weekly tasks.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Task is an entry in a project's main task list. Tasks created from a weekly
// plan carry Source* back-references to the weekly task they mirror.
type Task struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	Status               Status    `json:"status"`
	Priority             Priority  `json:"priority"`
	DueDate              *string   `json:"due_date,omitempty"` // YYYY-MM-DD
	DayOfWeek            *int      `json:"day_of_week,omitempty"`
	SourceWeeklyTaskID   *string   `json:"source_weekly_task_id,omitempty"`
	SourceWeekNumber     *int      `json:"source_week_number,omitempty"`
	SourceBusinessPlanID *string   `json:"source_business_plan_id,omitempty"`
	ProjectID            string    `json:"project_id"`
	UserID               string    `json:"user_id"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Store is the contract for task persistence.
type Store interface {
	Create(ctx context.Context, t *Task) (*Task, error)
	Get(ctx context.Context, id string) (*Task, error)
	Update(ctx context.Context, id string, updates map[string]any) (*Task, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, projectID string, status Status, limit int) ([]Task, error)
	// BySourceWeeklyTask returns the task mirroring the given weekly task.
	BySourceWeeklyTask(ctx context.Context, weeklyTaskID string) (*Task, error)
	// UpsertFromWeekly inserts t, or updates the task already mirroring
	// t.SourceWeeklyTaskID, in a single write. inserted reports which happened.
	UpsertFromWeekly(ctx context.Context, t *Task) (result *Task, inserted bool, err error)
	EnsureTable(ctx context.Context) error
}
