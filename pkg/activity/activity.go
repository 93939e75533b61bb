// Package activity records an append-only trail of schedule changes, so the
// original slot of a rescheduled task stays visible after it leaves the
// overdue list.
package activity

import (
	"context"
	"time"
)

// Kinds of recorded activity.
const (
	KindRescheduled = "weekly_task.rescheduled"
	KindCompleted   = "weekly_task.completed"
	KindSynced      = "weekly_task.synced"
	KindDeleted     = "weekly_task.deleted"
	KindGenerated   = "weekly_plan.generated"
)

// Entry is one recorded action.
type Entry struct {
	ID             string         `json:"id"` // UUID v7 (time-ordered)
	Kind           string         `json:"kind"`
	SubjectID      string         `json:"subject_id"` // weekly task the action touched
	BusinessPlanID string         `json:"business_plan_id"`
	Detail         map[string]any `json:"detail"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Store is the contract for activity persistence.
type Store interface {
	Append(ctx context.Context, kind, subjectID, planID string, detail map[string]any) (*Entry, error)
	BySubject(ctx context.Context, subjectID string, limit int) ([]Entry, error)
	Recent(ctx context.Context, planID string, limit int) ([]Entry, error)
	EnsureTable(ctx context.Context) error
}
