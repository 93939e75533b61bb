// Package memstore provides in-memory weekly and task stores with the same
// semantics as the Postgres stores, for tests and local dry runs.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"weekplan/pkg/task"
	"weekplan/pkg/weekly"
)

// Faults injects errors per operation name ("Get", "Update", ...).
type Faults map[string]error

func (f Faults) check(op string) error {
	if f == nil {
		return nil
	}
	return f[op]
}

// Weekly is an in-memory weekly.Store.
type Weekly struct {
	mu     sync.Mutex
	seq    int
	tasks  map[string]*weekly.Task
	Faults Faults
}

// NewWeekly creates an empty Weekly store.
func NewWeekly() *Weekly {
	return &Weekly{tasks: make(map[string]*weekly.Task)}
}

func (s *Weekly) EnsureTable(context.Context) error { return nil }

func (s *Weekly) Create(_ context.Context, t *weekly.Task) (*weekly.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Faults.check("Create"); err != nil {
		return nil, err
	}
	s.seq++
	t.ID = fmt.Sprintf("wt-%d", s.seq)
	t.CreatedAt = time.Now().Add(time.Duration(s.seq) * time.Microsecond)
	t.UpdatedAt = t.CreatedAt
	if t.Priority == "" {
		t.Priority = task.PriorityMedium
	}
	cp := cloneWeekly(t)
	s.tasks[t.ID] = cp
	return cloneWeekly(cp), nil
}

func (s *Weekly) Get(_ context.Context, id string) (*weekly.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Faults.check("Get"); err != nil {
		return nil, err
	}
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("get weekly task %s: %w", id, weekly.ErrNotFound)
	}
	return cloneWeekly(t), nil
}

func (s *Weekly) Update(_ context.Context, id string, updates map[string]any) (*weekly.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Faults.check("Update"); err != nil {
		return nil, err
	}
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("update weekly task %s: %w", id, weekly.ErrNotFound)
	}
	next := cloneWeekly(t)
	for k, v := range updates {
		switch k {
		case weekly.ColTitle:
			next.Title = asString(v)
		case weekly.ColDescription:
			next.Description = asString(v)
		case weekly.ColPriority:
			next.Priority = task.Priority(asString(v))
		case weekly.ColIsCompleted:
			next.IsCompleted = v.(bool)
		case weekly.ColWeekNumber:
			next.WeekNumber = v.(int)
		case weekly.ColDayOfWeek:
			next.DayOfWeek = asIntPtr(v)
			if next.DayOfWeek != nil && (*next.DayOfWeek < 1 || *next.DayOfWeek > 7) {
				return nil, fmt.Errorf("update weekly task %s: day_of_week %d out of range", id, *next.DayOfWeek)
			}
		case weekly.ColTaskType:
			next.TaskType = weekly.Type(asString(v))
		case weekly.ColLinkedTaskID:
			next.LinkedTaskID = asString(v)
		}
	}
	next.UpdatedAt = time.Now()
	s.tasks[id] = next
	return cloneWeekly(next), nil
}

func (s *Weekly) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Faults.check("Delete"); err != nil {
		return err
	}
	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("delete weekly task %s: %w", id, weekly.ErrNotFound)
	}
	delete(s.tasks, id)
	return nil
}

func (s *Weekly) ByPlan(_ context.Context, planID string, week int) ([]weekly.Task, error) {
	return s.filter("ByPlan", func(t *weekly.Task) bool {
		return t.BusinessPlanID == planID && (week == 0 || t.WeekNumber == week)
	})
}

func (s *Weekly) Incomplete(_ context.Context, planID string) ([]weekly.Task, error) {
	return s.filter("Incomplete", func(t *weekly.Task) bool {
		return t.BusinessPlanID == planID && !t.IsCompleted
	})
}

func (s *Weekly) filter(op string, keep func(*weekly.Task) bool) ([]weekly.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Faults.check(op); err != nil {
		return nil, err
	}
	var out []weekly.Task
	for _, t := range s.tasks {
		if keep(t) {
			out = append(out, *cloneWeekly(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Len returns the number of stored weekly tasks.
func (s *Weekly) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func cloneWeekly(t *weekly.Task) *weekly.Task {
	cp := *t
	if t.DayOfWeek != nil {
		cp.DayOfWeek = weekly.IntPtr(*t.DayOfWeek)
	}
	return &cp
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case *string:
		if s == nil {
			return ""
		}
		return *s
	case fmt.Stringer:
		return s.String()
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func asIntPtr(v any) *int {
	switch n := v.(type) {
	case int:
		return &n
	case *int:
		if n == nil {
			return nil
		}
		c := *n
		return &c
	}
	return nil
}
