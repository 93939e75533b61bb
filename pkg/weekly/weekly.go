package weekly

import (
	"context"
	"errors"
	"time"

	"weekplan/pkg/task"
)

// ErrNotFound is returned when no weekly task has the requested ID.
var ErrNotFound = errors.New("weekly task not found")

// Type classifies what a weekly task contributes to the plan.
type Type string

const (
	TypeProject  Type = "project"
	TypeStrategy Type = "strategy"
	TypeAction   Type = "action"
)

// MaxWeek is the highest week number a plan can be written with.
const MaxWeek = 53

// Valid reports whether t is a known type. The empty type is allowed.
func (t Type) Valid() bool {
	switch t {
	case "", TypeProject, TypeStrategy, TypeAction:
		return true
	}
	return false
}

// Task is an entry in a business plan's generated weekly schedule.
type Task struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Priority       task.Priority `json:"priority"`
	IsCompleted    bool          `json:"is_completed"`
	WeekNumber     int           `json:"week_number"`
	DayOfWeek      *int          `json:"day_of_week"` // nil = no specific day
	TaskType       Type          `json:"task_type,omitempty"`
	BusinessPlanID string        `json:"business_plan_id"`
	LinkedTaskID   string        `json:"linked_task_id,omitempty"` // canonical task mirroring this one
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Day returns the scheduled day, or 0 when the task has none.
func (t *Task) Day() int {
	if t.DayOfWeek == nil {
		return 0
	}
	return *t.DayOfWeek
}

// Store is the contract for weekly task persistence.
type Store interface {
	Create(ctx context.Context, t *Task) (*Task, error)
	Get(ctx context.Context, id string) (*Task, error)
	// Update applies a sparse patch keyed by column name. Keys that are not
	// updatable columns are ignored.
	Update(ctx context.Context, id string, updates map[string]any) (*Task, error)
	Delete(ctx context.Context, id string) error
	// ByPlan lists a plan's tasks; week 0 means every week.
	ByPlan(ctx context.Context, planID string, week int) ([]Task, error)
	// Incomplete lists a plan's tasks that are not completed.
	Incomplete(ctx context.Context, planID string) ([]Task, error)
	EnsureTable(ctx context.Context) error
}

// Column names accepted by Store.Update.
const (
	ColTitle        = "title"
	ColDescription  = "description"
	ColPriority     = "priority"
	ColIsCompleted  = "is_completed"
	ColWeekNumber   = "week_number"
	ColDayOfWeek    = "day_of_week"
	ColTaskType     = "task_type"
	ColLinkedTaskID = "linked_task_id"
)

// updatable lists the patchable columns in the order they appear in SET.
var updatable = []string{
	ColTitle, ColDescription, ColPriority, ColIsCompleted,
	ColWeekNumber, ColDayOfWeek, ColTaskType, ColLinkedTaskID,
}

// IntPtr is a convenience for building DayOfWeek values.
func IntPtr(v int) *int { return &v }
