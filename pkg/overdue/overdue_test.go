package overdue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekplan/pkg/calendar"
	"weekplan/pkg/weekly"
)

func wt(id string, week int, day *int, completed bool) weekly.Task {
	return weekly.Task{ID: id, Title: id, WeekNumber: week, DayOfWeek: day, IsCompleted: completed, BusinessPlanID: "plan-1"}
}

func day(d int) *int { return weekly.IntPtr(d) }

func TestClassifyOrdersMostOverdueFirst(t *testing.T) {
	now := calendar.Position{Year: 2024, Week: 10, Day: 3}
	tasks := []weekly.Task{
		wt("a", 9, day(5), false),
		wt("b", 10, day(1), false),
		wt("c", 10, day(3), false),
		wt("d", 8, day(7), false),
		wt("e", 5, day(1), true),
		wt("f", 9, nil, false),
		wt("g", 10, nil, false),
		wt("h", 11, day(1), false),
	}

	got := Classify(tasks, now)

	var ids []string
	days := map[string]int{}
	for _, o := range got {
		ids = append(ids, o.ID)
		days[o.ID] = o.DaysOverdue
	}
	assert.Equal(t, []string{"d", "a", "f", "b"}, ids)
	assert.Equal(t, map[string]int{"d": 10, "a": 5, "f": 3, "b": 2}, days)
}

func TestClassifyKeepsOriginalSlot(t *testing.T) {
	now := calendar.Position{Year: 2024, Week: 10, Day: 3}
	got := Classify([]weekly.Task{wt("a", 9, day(5), false), wt("b", 8, nil, false)}, now)
	require.Len(t, got, 2)

	assert.Equal(t, 8, got[0].OriginalWeekNumber)
	assert.Nil(t, got[0].OriginalDayOfWeek)
	assert.Equal(t, 9, got[1].OriginalWeekNumber)
	require.NotNil(t, got[1].OriginalDayOfWeek)
	assert.Equal(t, 5, *got[1].OriginalDayOfWeek)
}

func TestClassifyTiesKeepInputOrder(t *testing.T) {
	now := calendar.Position{Year: 2024, Week: 10, Day: 3}
	got := Classify([]weekly.Task{
		wt("x", 9, day(3), false),
		wt("y", 9, day(3), false),
		wt("z", 9, day(3), false),
	}, now)
	require.Len(t, got, 3)
	assert.Equal(t, "x", got[0].ID)
	assert.Equal(t, "y", got[1].ID)
	assert.Equal(t, "z", got[2].ID)
}

func TestClassifyEmpty(t *testing.T) {
	got := Classify(nil, calendar.Position{Year: 2024, Week: 1, Day: 1})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPreviousWeekAlwaysOverdue(t *testing.T) {
	for today := 1; today <= 7; today++ {
		now := calendar.Position{Year: 2024, Week: 20, Day: today}
		days := []*int{nil}
		for d := 1; d <= 7; d++ {
			days = append(days, day(d))
		}
		for _, d := range days {
			task := wt("prev", 19, d, false)
			require.True(t, IsOverdue(&task, now), "today=%d day=%v", today, d)
			got := Classify([]weekly.Task{task}, now)
			require.Len(t, got, 1)
			assert.GreaterOrEqual(t, got[0].DaysOverdue, 1, "today=%d day=%v", today, d)
		}
	}
}

func TestCompletedNeverOverdue(t *testing.T) {
	now := calendar.Position{Year: 2024, Week: 20, Day: 4}
	for week := 1; week <= 53; week++ {
		for d := 1; d <= 7; d++ {
			task := wt("done", week, day(d), true)
			assert.False(t, IsOverdue(&task, now))
			assert.Empty(t, Classify([]weekly.Task{task}, now))
		}
	}
}

func TestSameSlotIsNotOverdue(t *testing.T) {
	now := calendar.Position{Year: 2024, Week: 20, Day: 4}
	task := wt("today", 20, day(4), false)
	assert.False(t, IsOverdue(&task, now))
	assert.Equal(t, 0, DaysOverdue(&task, now))
}

func TestNoDayDueAtEndOfWeek(t *testing.T) {
	task := wt("nd", 20, nil, false)
	for d := 1; d <= 7; d++ {
		now := calendar.Position{Year: 2024, Week: 20, Day: d}
		assert.False(t, IsOverdue(&task, now), "day %d", d)
	}
	now := calendar.Position{Year: 2024, Week: 21, Day: 1}
	assert.True(t, IsOverdue(&task, now))
	assert.Equal(t, 1, DaysOverdue(&task, now))
}

func TestDaysOverdueNeverNegative(t *testing.T) {
	now := calendar.Position{Year: 2024, Week: 5, Day: 1}
	task := wt("future", 6, day(7), false)
	assert.Equal(t, 0, DaysOverdue(&task, now))
}
