package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekplan/internal/config"
	"weekplan/internal/memstore"
	"weekplan/pkg/calendar"
	"weekplan/pkg/weekly"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg, err := config.Load(func(k string) string {
		return map[string]string{"DATABASE_URL": "postgres://unused", "PLAN_TZ": "UTC"}[k]
	})
	require.NoError(t, err)
	log, _ := logtest.NewNullLogger()

	a := &App{
		Config:   cfg,
		Log:      log,
		Clock:    calendar.FixedClock(time.Date(2024, 1, 14, 18, 0, 0, 0, time.UTC)),
		Weekly:   memstore.NewWeekly(),
		Tasks:    memstore.NewTasks(),
		Activity: memstore.NewActivity(),
	}
	a.wire()
	return a
}

func TestWireConnectsEngineToSync(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	assert.Equal(t, calendar.Position{Year: 2024, Week: 2, Day: 7}, a.Today())

	wt, err := a.Weekly.Create(ctx, &weekly.Task{Title: "Ship invoices", WeekNumber: 1, DayOfWeek: weekly.IntPtr(5), BusinessPlanID: "plan-1"})
	require.NoError(t, err)
	taskID, err := a.Syncer.SyncWeeklyTask(ctx, wt, wt.WeekNumber, 2024, "plan-1", "proj-1", "")
	require.NoError(t, err)

	view, err := a.Cache.Detect(ctx, "plan-1")
	require.NoError(t, err)
	require.Len(t, view, 1)

	// Sunday rolls tomorrow into the next week number.
	moved, err := a.Engine.RescheduleToTomorrow(ctx, wt.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, moved.WeekNumber)
	assert.Equal(t, 1, moved.Day())

	mirror, err := a.Tasks.Get(ctx, taskID)
	require.NoError(t, err)
	require.NotNil(t, mirror.DueDate)
	assert.Equal(t, "2024-01-15", *mirror.DueDate)
}

func TestAPIServesHealth(t *testing.T) {
	a := newTestApp(t)
	rec := httptest.NewRecorder()
	a.API().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ok"))
}
