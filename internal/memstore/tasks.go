package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"weekplan/pkg/task"
)

// Tasks is an in-memory task.Store.
type Tasks struct {
	mu     sync.Mutex
	seq    int
	tasks  map[string]*task.Task
	Faults Faults
}

// NewTasks creates an empty Tasks store.
func NewTasks() *Tasks {
	return &Tasks{tasks: make(map[string]*task.Task)}
}

func (s *Tasks) EnsureTable(context.Context) error { return nil }

func (s *Tasks) Create(_ context.Context, t *task.Task) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Faults.check("Create"); err != nil {
		return nil, err
	}
	if t.SourceWeeklyTaskID != nil && s.bySource(*t.SourceWeeklyTaskID) != nil {
		return nil, fmt.Errorf("create task: duplicate source_weekly_task_id %s", *t.SourceWeeklyTaskID)
	}
	return s.insert(t), nil
}

func (s *Tasks) UpsertFromWeekly(_ context.Context, t *task.Task) (*task.Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Faults.check("UpsertFromWeekly"); err != nil {
		return nil, false, err
	}
	if t.SourceWeeklyTaskID == nil || *t.SourceWeeklyTaskID == "" {
		return nil, false, fmt.Errorf("upsert task: source weekly task id is required")
	}
	existing := s.bySource(*t.SourceWeeklyTaskID)
	if existing == nil {
		return s.insert(t), true, nil
	}
	existing.Title = t.Title
	existing.Description = t.Description
	existing.Priority = t.Priority
	existing.Status = t.Status
	existing.DueDate = t.DueDate
	existing.DayOfWeek = t.DayOfWeek
	existing.SourceWeekNumber = t.SourceWeekNumber
	existing.UpdatedAt = time.Now()
	return cloneTask(existing), false, nil
}

func (s *Tasks) Get(_ context.Context, id string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Faults.check("Get"); err != nil {
		return nil, err
	}
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("get task %s: %w", id, task.ErrNotFound)
	}
	return cloneTask(t), nil
}

func (s *Tasks) BySourceWeeklyTask(_ context.Context, weeklyTaskID string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Faults.check("BySourceWeeklyTask"); err != nil {
		return nil, err
	}
	t := s.bySource(weeklyTaskID)
	if t == nil {
		return nil, fmt.Errorf("task for weekly task %s: %w", weeklyTaskID, task.ErrNotFound)
	}
	return cloneTask(t), nil
}

func (s *Tasks) Update(_ context.Context, id string, updates map[string]any) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Faults.check("Update"); err != nil {
		return nil, err
	}
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("update task %s: %w", id, task.ErrNotFound)
	}
	next := cloneTask(t)
	for k, v := range updates {
		switch k {
		case "title":
			next.Title = asString(v)
		case "description":
			next.Description = asString(v)
		case "status":
			next.Status = task.Status(asString(v))
		case "priority":
			next.Priority = task.Priority(asString(v))
		case "due_date":
			if d := asString(v); d != "" {
				next.DueDate = &d
			} else {
				next.DueDate = nil
			}
		case "day_of_week":
			next.DayOfWeek = asIntPtr(v)
		case "source_week_number":
			next.SourceWeekNumber = asIntPtr(v)
		}
	}
	next.UpdatedAt = time.Now()
	s.tasks[id] = next
	return cloneTask(next), nil
}

func (s *Tasks) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Faults.check("Delete"); err != nil {
		return err
	}
	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("delete task %s: %w", id, task.ErrNotFound)
	}
	delete(s.tasks, id)
	return nil
}

func (s *Tasks) List(_ context.Context, projectID string, status task.Status, limit int) ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Faults.check("List"); err != nil {
		return nil, err
	}
	var out []task.Task
	for _, t := range s.tasks {
		if t.ProjectID == projectID && (status == "" || t.Status == status) {
			out = append(out, *cloneTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored tasks.
func (s *Tasks) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *Tasks) insert(t *task.Task) *task.Task {
	s.seq++
	t.ID = fmt.Sprintf("t-%d", s.seq)
	t.CreatedAt = time.Now().Add(time.Duration(s.seq) * time.Microsecond)
	t.UpdatedAt = t.CreatedAt
	if t.Status == "" {
		t.Status = task.StatusTodo
	}
	if t.Priority == "" {
		t.Priority = task.PriorityMedium
	}
	cp := cloneTask(t)
	s.tasks[t.ID] = cp
	return cloneTask(cp)
}

func (s *Tasks) bySource(weeklyTaskID string) *task.Task {
	for _, t := range s.tasks {
		if t.SourceWeeklyTaskID != nil && *t.SourceWeeklyTaskID == weeklyTaskID {
			return t
		}
	}
	return nil
}

func cloneTask(t *task.Task) *task.Task {
	cp := *t
	cp.DueDate = cloneStr(t.DueDate)
	cp.SourceWeeklyTaskID = cloneStr(t.SourceWeeklyTaskID)
	cp.SourceBusinessPlanID = cloneStr(t.SourceBusinessPlanID)
	cp.DayOfWeek = asIntPtr(t.DayOfWeek)
	cp.SourceWeekNumber = asIntPtr(t.SourceWeekNumber)
	return &cp
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
