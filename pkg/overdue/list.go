package overdue

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"weekplan/pkg/weekly"
)

// List is a caller-held working set of overdue tasks. Successful operations
// drop the task from the set without re-fetching; failed ones leave it as is.
type List struct {
	planID string
	source Source
	engine *Engine
	log    logrus.FieldLogger

	mu    sync.Mutex
	items []Task
}

// NewList creates an empty List for a plan. Call Refresh to load it.
func NewList(planID string, source Source, engine *Engine, log logrus.FieldLogger) *List {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &List{planID: planID, source: source, engine: engine, log: log.WithField("plan_id", planID)}
}

// Refresh replaces the working set with a fresh view.
func (l *List) Refresh(ctx context.Context) error {
	items, err := l.source.Detect(ctx, l.planID)
	if err != nil {
		l.log.WithError(err).Error("overdue: refresh")
		return err
	}
	l.mu.Lock()
	l.items = items
	l.mu.Unlock()
	return nil
}

// Items returns a copy of the working set.
func (l *List) Items() []Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Task(nil), l.items...)
}

// Len returns the number of tasks in the working set.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// RescheduleToToday moves the task to today and drops it from the set.
func (l *List) RescheduleToToday(ctx context.Context, id string) bool {
	return l.apply(ctx, id, "reschedule to today", l.engine.RescheduleToToday)
}

// RescheduleToTomorrow moves the task to tomorrow and drops it from the set.
func (l *List) RescheduleToTomorrow(ctx context.Context, id string) bool {
	return l.apply(ctx, id, "reschedule to tomorrow", l.engine.RescheduleToTomorrow)
}

// Complete marks the task completed and drops it from the set.
func (l *List) Complete(ctx context.Context, id string) bool {
	return l.apply(ctx, id, "complete", l.engine.Complete)
}

func (l *List) apply(ctx context.Context, id, op string, fn func(context.Context, string) (*weekly.Task, error)) bool {
	if _, err := fn(ctx, id); err != nil {
		l.log.WithError(err).WithField("weekly_task_id", id).Errorf("overdue: %s", op)
		return false
	}
	l.remove(id)
	return true
}

func (l *List) remove(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.items[:0]
	for _, t := range l.items {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	l.items = kept
}
