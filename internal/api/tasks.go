package api

import (
	"net/http"

	"weekplan/pkg/calendar"
	"weekplan/pkg/task"
	"weekplan/pkg/tasksync"
)

func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	status := task.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, 400, "invalid status")
		return
	}
	limit := queryInt(r, "limit", 50)
	tasks, err := s.Tasks.List(r.Context(), r.URL.Query().Get("project_id"), status, limit)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	writeJSON(w, 200, tasks)
}

func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	t, err := s.Tasks.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, t)
}

// taskPatch is the body of PATCH /api/tasks/{id}. An empty due_date clears it.
type taskPatch struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Status      *task.Status   `json:"status"`
	Priority    *task.Priority `json:"priority"`
	DueDate     *string        `json:"due_date"`
	DayOfWeek   *int           `json:"day_of_week"`
}

func (p taskPatch) columns() (map[string]any, string) {
	cols := map[string]any{}
	if p.Title != nil {
		if *p.Title == "" {
			return nil, "title must not be empty"
		}
		cols["title"] = *p.Title
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return nil, "invalid status"
		}
		cols["status"] = string(*p.Status)
	}
	if p.Priority != nil {
		if !p.Priority.Valid() {
			return nil, "invalid priority"
		}
		cols["priority"] = string(*p.Priority)
	}
	if p.DueDate != nil {
		if *p.DueDate != "" {
			if _, err := calendar.ParseDate(*p.DueDate); err != nil {
				return nil, "due_date must be YYYY-MM-DD"
			}
		}
		cols["due_date"] = *p.DueDate
	}
	if p.DayOfWeek != nil {
		if *p.DayOfWeek < 1 || *p.DayOfWeek > 7 {
			return nil, "day_of_week must be between 1 and 7"
		}
		cols["day_of_week"] = *p.DayOfWeek
	}
	return cols, ""
}

// handleTaskUpdate patches a task and pushes title, priority, status and day
// back to the weekly task it mirrors.
func (s *Server) handleTaskUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var p taskPatch
	if !decode(w, r, &p) {
		return
	}
	cols, msg := p.columns()
	if msg != "" {
		writeError(w, 400, msg)
		return
	}
	if len(cols) == 0 {
		writeError(w, 400, "no updatable fields")
		return
	}

	if p.DayOfWeek != nil && p.DueDate == nil {
		cur, err := s.Tasks.Get(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		// A new day keeps the due date inside its current week.
		if cur.DueDate != nil {
			if due, ok := tasksync.RetargetDue(*cur.DueDate, *p.DayOfWeek); ok {
				cols["due_date"] = due
			}
		}
	}

	t, err := s.Tasks.Update(r.Context(), id, cols)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	u := tasksync.Updates{Title: p.Title, Priority: p.Priority, Status: p.Status, DayOfWeek: p.DayOfWeek}
	if err := s.Syncer.SyncTaskToWeekly(r.Context(), id, u); err != nil {
		s.Log.WithError(err).WithField("task_id", id).Warn("api: reverse sync")
	} else if !u.Empty() && t.SourceBusinessPlanID != nil {
		s.invalidate(r, *t.SourceBusinessPlanID)
	}
	writeJSON(w, 200, t)
}
