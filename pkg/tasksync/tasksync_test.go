package tasksync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekplan/internal/memstore"
	"weekplan/pkg/activity"
	"weekplan/pkg/task"
	"weekplan/pkg/weekly"
)

type fixture struct {
	weekly   *memstore.Weekly
	tasks    *memstore.Tasks
	activity *memstore.Activity
	syncer   *Syncer
	hook     *logtest.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log, hook := logtest.NewNullLogger()
	f := &fixture{
		weekly:   memstore.NewWeekly(),
		tasks:    memstore.NewTasks(),
		activity: memstore.NewActivity(),
		hook:     hook,
	}
	f.syncer = New(f.weekly, f.tasks, f.activity, log)
	return f
}

func (f *fixture) weeklyTask(t *testing.T, day *int) *weekly.Task {
	t.Helper()
	wt, err := f.weekly.Create(context.Background(), &weekly.Task{
		Title:          "Draft pricing page",
		Description:    "Three tiers",
		Priority:       task.PriorityHigh,
		WeekNumber:     2,
		DayOfWeek:      day,
		TaskType:       weekly.TypeAction,
		BusinessPlanID: "plan-1",
	})
	require.NoError(t, err)
	return wt
}

func TestDescription(t *testing.T) {
	wt := &weekly.Task{Description: "  Three tiers ", DayOfWeek: weekly.IntPtr(3)}
	got := Description(wt, 12)
	assert.Equal(t, "Three tiers\n\n📅 Седмица 12, Сряда\n"+SourceMarker, got)

	bare := Description(&weekly.Task{}, 5)
	assert.Equal(t, "📅 Седмица 5\n"+SourceMarker, bare)
}

func TestSyncWeeklyTaskCreatesMirror(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wt := f.weeklyTask(t, weekly.IntPtr(3))

	id, err := f.syncer.SyncWeeklyTask(ctx, wt, 2, 2024, "plan-1", "proj-1", "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	m, err := f.tasks.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Draft pricing page", m.Title)
	assert.Equal(t, task.StatusTodo, m.Status)
	assert.Equal(t, task.PriorityHigh, m.Priority)
	require.NotNil(t, m.DueDate)
	assert.Equal(t, "2024-01-10", *m.DueDate)
	assert.Equal(t, 3, *m.DayOfWeek)
	assert.Equal(t, wt.ID, *m.SourceWeeklyTaskID)
	assert.Equal(t, 2, *m.SourceWeekNumber)
	assert.Equal(t, "plan-1", *m.SourceBusinessPlanID)
	assert.Equal(t, "proj-1", m.ProjectID)
	assert.Equal(t, "user-1", m.UserID)
	assert.True(t, strings.HasSuffix(m.Description, SourceMarker))

	stored, err := f.weekly.Get(ctx, wt.ID)
	require.NoError(t, err)
	assert.Equal(t, id, stored.LinkedTaskID)
	assert.Equal(t, id, wt.LinkedTaskID)

	entries, _ := f.activity.BySubject(ctx, wt.ID, 10)
	require.Len(t, entries, 1)
	assert.Equal(t, activity.KindSynced, entries[0].Kind)
}

func TestSyncWeeklyTaskTwiceUpdatesSameMirror(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wt := f.weeklyTask(t, weekly.IntPtr(3))

	first, err := f.syncer.SyncWeeklyTask(ctx, wt, 2, 2024, "plan-1", "proj-1", "user-1")
	require.NoError(t, err)
	second, err := f.syncer.SyncWeeklyTask(ctx, wt, 2, 2024, "plan-1", "proj-1", "user-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.tasks.Len())
}

func TestSyncWeeklyTaskPropagatesChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wt := f.weeklyTask(t, weekly.IntPtr(3))
	id, err := f.syncer.SyncWeeklyTask(ctx, wt, 2, 2024, "plan-1", "proj-1", "user-1")
	require.NoError(t, err)

	wt.Title = "Publish pricing page"
	wt.IsCompleted = true
	wt.DayOfWeek = weekly.IntPtr(5)
	again, err := f.syncer.SyncWeeklyTask(ctx, wt, 2, 2024, "plan-1", "proj-1", "user-1")
	require.NoError(t, err)
	require.Equal(t, id, again)

	m, err := f.tasks.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Publish pricing page", m.Title)
	assert.Equal(t, task.StatusDone, m.Status)
	assert.Equal(t, "2024-01-12", *m.DueDate)
	assert.Contains(t, m.Description, "Петък")
}

func TestSyncWeeklyTaskWithoutDayDueEndOfWeek(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wt := f.weeklyTask(t, nil)

	id, err := f.syncer.SyncWeeklyTask(ctx, wt, 2, 2024, "plan-1", "proj-1", "user-1")
	require.NoError(t, err)
	m, err := f.tasks.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, m.DayOfWeek)
	assert.Equal(t, "2024-01-14", *m.DueDate)
}

func TestSyncWeeklyTaskConcurrentCallsShareMirror(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wt := f.weeklyTask(t, weekly.IntPtr(1))

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cp := *wt
			id, err := f.syncer.SyncWeeklyTask(ctx, &cp, 2, 2024, "plan-1", "proj-1", "user-1")
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, f.tasks.Len())
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestSyncWeeklyTaskUpsertFailure(t *testing.T) {
	f := newFixture(t)
	wt := f.weeklyTask(t, weekly.IntPtr(1))
	f.tasks.Faults = memstore.Faults{"UpsertFromWeekly": errors.New("network")}

	id, err := f.syncer.SyncWeeklyTask(context.Background(), wt, 2, 2024, "plan-1", "proj-1", "user-1")
	assert.Error(t, err)
	assert.Empty(t, id)
	assert.NotEmpty(t, f.hook.AllEntries())
}

func TestSyncWeeklyTaskLinkFailureRepairedOnRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wt := f.weeklyTask(t, weekly.IntPtr(1))

	f.weekly.Faults = memstore.Faults{"Update": errors.New("network")}
	id, err := f.syncer.SyncWeeklyTask(ctx, wt, 2, 2024, "plan-1", "proj-1", "user-1")
	require.Error(t, err)
	assert.Empty(t, id)
	assert.Equal(t, 1, f.tasks.Len(), "mirror is not rolled back")

	f.weekly.Faults = nil
	id, err = f.syncer.SyncWeeklyTask(ctx, wt, 2, 2024, "plan-1", "proj-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.tasks.Len())

	stored, err := f.weekly.Get(ctx, wt.ID)
	require.NoError(t, err)
	assert.Equal(t, id, stored.LinkedTaskID)
}

func TestSyncTaskToWeeklyStatusOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wt := f.weeklyTask(t, weekly.IntPtr(3))
	id, err := f.syncer.SyncWeeklyTask(ctx, wt, 2, 2024, "plan-1", "proj-1", "user-1")
	require.NoError(t, err)

	done := task.StatusDone
	require.NoError(t, f.syncer.SyncTaskToWeekly(ctx, id, Updates{Status: &done}))

	got, err := f.weekly.Get(ctx, wt.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	assert.Equal(t, "Draft pricing page", got.Title)
	assert.Equal(t, task.PriorityHigh, got.Priority)
	assert.Equal(t, 3, got.Day())
}

func TestSyncTaskToWeeklyAllFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wt := f.weeklyTask(t, weekly.IntPtr(3))
	id, err := f.syncer.SyncWeeklyTask(ctx, wt, 2, 2024, "plan-1", "proj-1", "user-1")
	require.NoError(t, err)

	title := "Renamed"
	prio := task.PriorityLow
	status := task.StatusInProgress
	day := 6
	require.NoError(t, f.syncer.SyncTaskToWeekly(ctx, id, Updates{Title: &title, Priority: &prio, Status: &status, DayOfWeek: &day}))

	got, err := f.weekly.Get(ctx, wt.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, task.PriorityLow, got.Priority)
	assert.False(t, got.IsCompleted)
	assert.Equal(t, 6, got.Day())
	assert.Equal(t, "Three tiers", got.Description)
}

func TestSyncTaskToWeeklyUnlinkedIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plain, err := f.tasks.Create(ctx, &task.Task{Title: "Standalone", ProjectID: "proj-1"})
	require.NoError(t, err)
	f.weekly.Faults = memstore.Faults{"Update": errors.New("must not be called")}

	done := task.StatusDone
	assert.NoError(t, f.syncer.SyncTaskToWeekly(ctx, plain.ID, Updates{Status: &done}))
}

func TestDeleteLinkedTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wt := f.weeklyTask(t, weekly.IntPtr(3))
	id, err := f.syncer.SyncWeeklyTask(ctx, wt, 2, 2024, "plan-1", "proj-1", "user-1")
	require.NoError(t, err)

	require.NoError(t, f.syncer.DeleteLinkedTask(ctx, wt.ID))
	_, err = f.tasks.Get(ctx, id)
	assert.ErrorIs(t, err, task.ErrNotFound)

	stored, err := f.weekly.Get(ctx, wt.ID)
	require.NoError(t, err)
	assert.Equal(t, id, stored.LinkedTaskID, "link is left for the caller to clear")

	assert.NoError(t, f.syncer.DeleteLinkedTask(ctx, wt.ID))
}

func TestDeleteWeeklyTaskCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wt := f.weeklyTask(t, weekly.IntPtr(3))
	_, err := f.syncer.SyncWeeklyTask(ctx, wt, 2, 2024, "plan-1", "proj-1", "user-1")
	require.NoError(t, err)

	require.NoError(t, f.syncer.DeleteWeeklyTask(ctx, wt.ID))
	assert.Equal(t, 0, f.tasks.Len())
	assert.Equal(t, 0, f.weekly.Len())

	entries, _ := f.activity.Recent(ctx, "plan-1", 1)
	require.Len(t, entries, 1)
	assert.Equal(t, activity.KindDeleted, entries[0].Kind)
}

func TestWeeklyTaskChangedPushesToMirror(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wt := f.weeklyTask(t, weekly.IntPtr(3))
	id, err := f.syncer.SyncWeeklyTask(ctx, wt, 2, 2024, "plan-1", "proj-1", "user-1")
	require.NoError(t, err)

	wt.WeekNumber = 3
	wt.DayOfWeek = weekly.IntPtr(1)
	f.syncer.WeeklyTaskChanged(ctx, wt, 2024)

	m, err := f.tasks.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", *m.DueDate)
	assert.Equal(t, 3, *m.SourceWeekNumber)
	assert.Equal(t, 1, *m.DayOfWeek)
	assert.Equal(t, "proj-1", m.ProjectID)
}

func TestWeeklyTaskChangedKeepsMirrorYear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wt := f.weeklyTask(t, weekly.IntPtr(5))
	wt.WeekNumber = 52
	id, err := f.syncer.SyncWeeklyTask(ctx, wt, 52, 2024, "plan-1", "proj-1", "user-1")
	require.NoError(t, err)

	wt.IsCompleted = true
	f.syncer.WeeklyTaskChanged(ctx, wt, 0)
	m, err := f.tasks.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "2024-12-27", *m.DueDate)
	assert.Equal(t, task.StatusDone, m.Status)

	wt.DayOfWeek = weekly.IntPtr(1)
	f.syncer.WeeklyTaskChanged(ctx, wt, 0)
	m, err = f.tasks.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "2024-12-23", *m.DueDate)
}

func TestWeeklyTaskChangedWithoutDueDateKeepsIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wt := f.weeklyTask(t, weekly.IntPtr(3))
	id, err := f.syncer.SyncWeeklyTask(ctx, wt, 2, 2024, "plan-1", "proj-1", "user-1")
	require.NoError(t, err)
	_, err = f.tasks.Update(ctx, id, map[string]any{"due_date": ""})
	require.NoError(t, err)

	wt.Title = "Renamed"
	f.syncer.WeeklyTaskChanged(ctx, wt, 0)
	m, err := f.tasks.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", m.Title)
	assert.Nil(t, m.DueDate)
}

func TestRetargetDue(t *testing.T) {
	got, ok := RetargetDue("2024-12-27", 1)
	assert.True(t, ok)
	assert.Equal(t, "2024-12-23", got)

	got, ok = RetargetDue("2025-12-29", 7)
	assert.True(t, ok)
	assert.Equal(t, "2026-01-04", got)

	_, ok = RetargetDue("soon", 1)
	assert.False(t, ok)
	_, ok = RetargetDue("2024-12-27", 8)
	assert.False(t, ok)
}

func TestWeeklyTaskChangedIgnoresUnlinked(t *testing.T) {
	f := newFixture(t)
	wt := f.weeklyTask(t, weekly.IntPtr(3))
	f.syncer.WeeklyTaskChanged(context.Background(), wt, 2024)
	assert.Equal(t, 0, f.tasks.Len())
}
