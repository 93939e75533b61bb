package overdue

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"weekplan/pkg/activity"
	"weekplan/pkg/calendar"
	"weekplan/pkg/weekly"
)

// Invalidator drops a cached overdue view.
type Invalidator interface {
	Invalidate(ctx context.Context, planID string)
}

// Observer is told about every weekly task the engine changed. year is the
// week-numbering year of a new slot, or 0 when the slot did not move.
type Observer interface {
	WeeklyTaskChanged(ctx context.Context, t *weekly.Task, year int)
}

// Engine moves overdue tasks to today or tomorrow, or completes them. Every
// operation is a single-row update; concurrent writers race and the last
// one wins.
type Engine struct {
	tasks    weekly.Store
	activity activity.Store
	cache    Invalidator
	observer Observer
	clock    calendar.Clock
	loc      *time.Location
	log      logrus.FieldLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithActivity records each change in the activity log.
func WithActivity(s activity.Store) Option { return func(e *Engine) { e.activity = s } }

// WithInvalidator drops the plan's cached view after each change.
func WithInvalidator(c Invalidator) Option { return func(e *Engine) { e.cache = c } }

// WithObserver notifies o after each change.
func WithObserver(o Observer) Option { return func(e *Engine) { e.observer = o } }

// NewEngine creates an Engine.
func NewEngine(tasks weekly.Store, clock calendar.Clock, loc *time.Location, log logrus.FieldLogger, opts ...Option) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	e := &Engine{tasks: tasks, clock: clock, loc: loc, log: log}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RescheduleToToday moves the task to today's (week, day).
func (e *Engine) RescheduleToToday(ctx context.Context, id string) (*weekly.Task, error) {
	return e.reschedule(ctx, id, calendar.Today(e.clock, e.loc), "today")
}

// RescheduleToTomorrow moves the task to the day after today. On Sunday that
// is Monday of the next week number.
func (e *Engine) RescheduleToTomorrow(ctx context.Context, id string) (*weekly.Task, error) {
	return e.reschedule(ctx, id, calendar.Today(e.clock, e.loc).Tomorrow(), "tomorrow")
}

func (e *Engine) reschedule(ctx context.Context, id string, to calendar.Position, label string) (*weekly.Task, error) {
	before, err := e.tasks.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reschedule %s: %w", id, err)
	}
	updated, err := e.tasks.Update(ctx, id, map[string]any{
		weekly.ColWeekNumber: to.Week,
		weekly.ColDayOfWeek:  to.Day,
	})
	if err != nil {
		return nil, fmt.Errorf("reschedule %s to %s: %w", id, label, err)
	}

	e.after(ctx, updated, to.Year, activity.KindRescheduled, map[string]any{
		"target":               label,
		"original_week_number": before.WeekNumber,
		"original_day_of_week": before.DayOfWeek,
		"week_number":          to.Week,
		"day_of_week":          to.Day,
	})
	return updated, nil
}

// Complete marks the task completed without touching its slot.
func (e *Engine) Complete(ctx context.Context, id string) (*weekly.Task, error) {
	updated, err := e.tasks.Update(ctx, id, map[string]any{weekly.ColIsCompleted: true})
	if err != nil {
		return nil, fmt.Errorf("complete %s: %w", id, err)
	}
	e.after(ctx, updated, 0, activity.KindCompleted, map[string]any{
		"week_number": updated.WeekNumber,
		"day_of_week": updated.DayOfWeek,
	})
	return updated, nil
}

// after runs the best-effort follow-ups of a successful write. Their
// failures are logged and never undo the write.
func (e *Engine) after(ctx context.Context, t *weekly.Task, year int, kind string, detail map[string]any) {
	log := e.log.WithFields(logrus.Fields{"weekly_task_id": t.ID, "plan_id": t.BusinessPlanID})
	log.WithField("kind", kind).Info("overdue: task updated")

	if e.cache != nil {
		e.cache.Invalidate(ctx, t.BusinessPlanID)
	}
	if e.activity != nil {
		if _, err := e.activity.Append(ctx, kind, t.ID, t.BusinessPlanID, detail); err != nil {
			log.WithError(err).Warn("overdue: record activity")
		}
	}
	if e.observer != nil {
		e.observer.WeeklyTaskChanged(ctx, t, year)
	}
}
