// Package tasksync keeps a weekly plan's tasks and their mirrors in the
// project task list consistent.
//
// A weekly task and its mirror reference each other: weekly_tasks.linked_task_id
// points at the mirror and tasks.source_weekly_task_id points back. The mirror
// is written with a single upsert keyed on source_weekly_task_id, so syncing
// the same weekly task twice, or from two places at once, never produces a
// second mirror. The back-reference write and reverse propagation are separate
// round trips with no transaction spanning them.
package tasksync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"weekplan/pkg/activity"
	"weekplan/pkg/calendar"
	"weekplan/pkg/task"
	"weekplan/pkg/weekly"
)

// SourceMarker tags descriptions of tasks that came from a business plan.
const SourceMarker = "📋 Източник: Бизнес план"

// Syncer propagates changes between weekly tasks and their mirrors.
type Syncer struct {
	weekly   weekly.Store
	tasks    task.Store
	activity activity.Store
	log      logrus.FieldLogger
}

// New creates a Syncer. activity may be nil.
func New(weeklyStore weekly.Store, tasks task.Store, activityStore activity.Store, log logrus.FieldLogger) *Syncer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Syncer{weekly: weeklyStore, tasks: tasks, activity: activityStore, log: log}
}

// Description builds the mirror's description: the task's own text followed
// by where it came from in the plan.
func Description(t *weekly.Task, week int) string {
	var b strings.Builder
	if d := strings.TrimSpace(t.Description); d != "" {
		b.WriteString(d)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "📅 Седмица %d", week)
	if name := calendar.DayName(t.Day()); name != "" {
		b.WriteString(", ")
		b.WriteString(name)
	}
	b.WriteString("\n")
	b.WriteString(SourceMarker)
	return b.String()
}

// StatusOf maps a weekly task's completion flag to a task status.
func StatusOf(completed bool) task.Status {
	if completed {
		return task.StatusDone
	}
	return task.StatusTodo
}

// mirror builds the task that should mirror t.
func mirror(t *weekly.Task, week, year int, planID, projectID, userID string) *task.Task {
	m := &task.Task{
		Title:                t.Title,
		Description:          Description(t, week),
		Status:               StatusOf(t.IsCompleted),
		Priority:             t.Priority,
		SourceWeeklyTaskID:   strPtr(t.ID),
		SourceWeekNumber:     weekly.IntPtr(week),
		SourceBusinessPlanID: strPtr(planID),
		ProjectID:            projectID,
		UserID:               userID,
	}
	// A task without a day is due by the end of its week.
	dueDay := 7
	if t.DayOfWeek != nil {
		dueDay = *t.DayOfWeek
		m.DayOfWeek = weekly.IntPtr(dueDay)
	}
	m.DueDate = strPtr(calendar.DateFromWeekDay(year, week, dueDay))
	return m
}

// SyncWeeklyTask creates or refreshes the mirror of t and returns its ID.
// When the mirror is new (or t does not point at it yet) the mirror's ID is
// written back to t.linked_task_id. Failures are logged and return "".
func (s *Syncer) SyncWeeklyTask(ctx context.Context, t *weekly.Task, week, year int, planID, projectID, userID string) (string, error) {
	log := s.log.WithFields(logrus.Fields{"weekly_task_id": t.ID, "plan_id": planID})

	m, inserted, err := s.tasks.UpsertFromWeekly(ctx, mirror(t, week, year, planID, projectID, userID))
	if err != nil {
		log.WithError(err).Error("tasksync: upsert mirror")
		return "", err
	}

	if inserted || t.LinkedTaskID != m.ID {
		// A failure here leaves the mirror without its back-reference; the
		// next sync of t repairs it.
		if _, err := s.weekly.Update(ctx, t.ID, map[string]any{weekly.ColLinkedTaskID: m.ID}); err != nil {
			log.WithError(err).WithField("task_id", m.ID).Error("tasksync: link weekly task")
			return "", err
		}
		t.LinkedTaskID = m.ID
	}

	log.WithFields(logrus.Fields{"task_id": m.ID, "inserted": inserted}).Info("tasksync: synced weekly task")
	s.record(ctx, t.ID, planID, map[string]any{"task_id": m.ID, "inserted": inserted, "week_number": week})
	return m.ID, nil
}

// WeeklyTaskChanged pushes an already-linked weekly task to its mirror. It
// never creates a mirror. year is the week-numbering year of t's slot; 0
// keeps the year of the mirror's current due date.
func (s *Syncer) WeeklyTaskChanged(ctx context.Context, t *weekly.Task, year int) {
	if t.LinkedTaskID == "" {
		return
	}
	if year == 0 {
		year = s.mirrorYear(ctx, t)
	}
	m := mirror(t, t.WeekNumber, year, t.BusinessPlanID, "", "")
	updates := map[string]any{
		"title":              m.Title,
		"description":        m.Description,
		"priority":           string(m.Priority),
		"status":             string(m.Status),
		"day_of_week":        m.DayOfWeek,
		"due_date":           m.DueDate,
		"source_week_number": t.WeekNumber,
	}
	if year == 0 {
		delete(updates, "due_date")
	}
	if _, err := s.tasks.Update(ctx, t.LinkedTaskID, updates); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"weekly_task_id": t.ID,
			"task_id":        t.LinkedTaskID,
		}).Error("tasksync: push weekly change")
	}
}

// mirrorYear reads the year back from the mirror's due date, or returns 0
// when the mirror has no usable one.
func (s *Syncer) mirrorYear(ctx context.Context, t *weekly.Task) int {
	m, err := s.tasks.Get(ctx, t.LinkedTaskID)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"weekly_task_id": t.ID,
			"task_id":        t.LinkedTaskID,
		}).Warn("tasksync: load mirror")
		return 0
	}
	if m.DueDate == nil {
		return 0
	}
	pos, err := calendar.ParseDate(*m.DueDate)
	if err != nil {
		return 0
	}
	return pos.Year
}

// RetargetDue returns the date of day in the same week as due, for keeping a
// task's due date on its day after the day changes.
func RetargetDue(due string, day int) (string, bool) {
	pos, err := calendar.ParseDate(due)
	if err != nil || day < 1 || day > 7 {
		return "", false
	}
	return calendar.DateFromWeekDay(pos.Year, pos.Week, day), true
}

// Updates is a sparse change to a task. Nil fields are left untouched.
type Updates struct {
	Title     *string        `json:"title,omitempty"`
	Priority  *task.Priority `json:"priority,omitempty"`
	Status    *task.Status   `json:"status,omitempty"`
	DayOfWeek *int           `json:"day_of_week,omitempty"`
}

// Empty reports whether u changes nothing.
func (u Updates) Empty() bool {
	return u.Title == nil && u.Priority == nil && u.Status == nil && u.DayOfWeek == nil
}

// weeklyColumns translates u into weekly_tasks column updates.
func (u Updates) weeklyColumns() map[string]any {
	cols := map[string]any{}
	if u.Title != nil {
		cols[weekly.ColTitle] = *u.Title
	}
	if u.Priority != nil {
		cols[weekly.ColPriority] = string(*u.Priority)
	}
	if u.Status != nil {
		cols[weekly.ColIsCompleted] = *u.Status == task.StatusDone
	}
	if u.DayOfWeek != nil {
		cols[weekly.ColDayOfWeek] = *u.DayOfWeek
	}
	return cols
}

// SyncTaskToWeekly applies the fields present in u to the weekly task that
// taskID mirrors. Tasks that mirror nothing are left alone.
func (s *Syncer) SyncTaskToWeekly(ctx context.Context, taskID string, u Updates) error {
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		s.log.WithError(err).WithField("task_id", taskID).Error("tasksync: load task")
		return err
	}
	if t.SourceWeeklyTaskID == nil || *t.SourceWeeklyTaskID == "" || u.Empty() {
		return nil
	}

	weeklyID := *t.SourceWeeklyTaskID
	if _, err := s.weekly.Update(ctx, weeklyID, u.weeklyColumns()); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"task_id":        taskID,
			"weekly_task_id": weeklyID,
		}).Error("tasksync: update weekly task")
		return err
	}
	return nil
}

// DeleteLinkedTask deletes the mirror of a weekly task, if there is one. The
// weekly task's linked_task_id is not cleared.
func (s *Syncer) DeleteLinkedTask(ctx context.Context, weeklyTaskID string) error {
	m, err := s.tasks.BySourceWeeklyTask(ctx, weeklyTaskID)
	if errors.Is(err, task.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.log.WithError(err).WithField("weekly_task_id", weeklyTaskID).Error("tasksync: find mirror")
		return err
	}
	if err := s.tasks.Delete(ctx, m.ID); err != nil && !errors.Is(err, task.ErrNotFound) {
		s.log.WithError(err).WithFields(logrus.Fields{
			"weekly_task_id": weeklyTaskID,
			"task_id":        m.ID,
		}).Error("tasksync: delete mirror")
		return err
	}
	return nil
}

// DeleteWeeklyTask deletes a weekly task together with its mirror.
func (s *Syncer) DeleteWeeklyTask(ctx context.Context, weeklyTaskID string) error {
	t, err := s.weekly.Get(ctx, weeklyTaskID)
	if err != nil {
		return err
	}
	if err := s.DeleteLinkedTask(ctx, weeklyTaskID); err != nil {
		return err
	}
	if err := s.weekly.Delete(ctx, weeklyTaskID); err != nil {
		s.log.WithError(err).WithField("weekly_task_id", weeklyTaskID).Error("tasksync: delete weekly task")
		return err
	}
	if s.activity != nil {
		if _, err := s.activity.Append(ctx, activity.KindDeleted, t.ID, t.BusinessPlanID, map[string]any{
			"title":       t.Title,
			"week_number": t.WeekNumber,
		}); err != nil {
			s.log.WithError(err).WithField("weekly_task_id", t.ID).Warn("tasksync: record activity")
		}
	}
	return nil
}

func (s *Syncer) record(ctx context.Context, weeklyID, planID string, detail map[string]any) {
	if s.activity == nil {
		return
	}
	if _, err := s.activity.Append(ctx, activity.KindSynced, weeklyID, planID, detail); err != nil {
		s.log.WithError(err).WithField("weekly_task_id", weeklyID).Warn("tasksync: record activity")
	}
}

func strPtr(s string) *string { return &s }
