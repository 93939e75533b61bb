// Package overdue finds weekly tasks whose slot has passed and moves them
// back onto the schedule.
//
// A task is overdue when it is not completed and its (week, day) is strictly
// before today's (week, day). Tasks without a day are due at the end of their
// week, so they only become overdue once the week is over.
package overdue

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"weekplan/pkg/calendar"
	"weekplan/pkg/weekly"
)

// endOfWeek is the effective day of a task scheduled without one.
const endOfWeek = 7

// Task is a weekly task snapshot annotated with how late it is.
type Task struct {
	weekly.Task
	DaysOverdue        int  `json:"days_overdue"`
	OriginalWeekNumber int  `json:"original_week_number"`
	OriginalDayOfWeek  *int `json:"original_day_of_week"`
}

func effectiveDay(t *weekly.Task) int {
	if t.DayOfWeek == nil {
		return endOfWeek
	}
	return *t.DayOfWeek
}

// IsOverdue reports whether t's slot is before now and t is still open.
func IsOverdue(t *weekly.Task, now calendar.Position) bool {
	if t.IsCompleted {
		return false
	}
	if t.WeekNumber < now.Week {
		return true
	}
	return t.WeekNumber == now.Week && effectiveDay(t) < now.Day
}

// DaysOverdue returns how many days t's slot lies before now, never negative.
func DaysOverdue(t *weekly.Task, now calendar.Position) int {
	return max(0, (now.Week-t.WeekNumber)*7+(now.Day-effectiveDay(t)))
}

// Classify returns the overdue subset of tasks, most overdue first. Ties keep
// the input order.
func Classify(tasks []weekly.Task, now calendar.Position) []Task {
	out := make([]Task, 0)
	for i := range tasks {
		t := &tasks[i]
		if !IsOverdue(t, now) {
			continue
		}
		o := Task{
			Task:               *t,
			DaysOverdue:        DaysOverdue(t, now),
			OriginalWeekNumber: t.WeekNumber,
		}
		if t.DayOfWeek != nil {
			o.OriginalDayOfWeek = weekly.IntPtr(*t.DayOfWeek)
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DaysOverdue > out[j].DaysOverdue
	})
	return out
}

// Source produces the overdue view of a plan.
type Source interface {
	Detect(ctx context.Context, planID string) ([]Task, error)
}

// Detector reads open tasks from the store and classifies them against today.
type Detector struct {
	tasks weekly.Store
	clock calendar.Clock
	loc   *time.Location
	log   logrus.FieldLogger
}

// NewDetector creates a Detector. A nil clock uses the wall clock and a nil
// loc uses time.Local.
func NewDetector(tasks weekly.Store, clock calendar.Clock, loc *time.Location, log logrus.FieldLogger) *Detector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Detector{tasks: tasks, clock: clock, loc: loc, log: log}
}

// Now returns today's position.
func (d *Detector) Now() calendar.Position {
	return calendar.Today(d.clock, d.loc)
}

// Detect returns the plan's overdue tasks. It only reads.
func (d *Detector) Detect(ctx context.Context, planID string) ([]Task, error) {
	open, err := d.tasks.Incomplete(ctx, planID)
	if err != nil {
		return nil, err
	}
	now := d.Now()
	out := Classify(open, now)
	d.log.WithFields(logrus.Fields{
		"plan_id": planID,
		"today":   now.String(),
		"open":    len(open),
		"overdue": len(out),
	}).Debug("overdue: detected")
	return out, nil
}
