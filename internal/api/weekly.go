package api

import (
	"net/http"

	"weekplan/pkg/activity"
	"weekplan/pkg/task"
	"weekplan/pkg/weekly"
)

func (s *Server) handleWeeklyList(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.Weekly.ByPlan(r.Context(), r.PathValue("planID"), queryInt(r, "week", 0))
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	if tasks == nil {
		tasks = []weekly.Task{}
	}
	writeJSON(w, 200, tasks)
}

func (s *Server) handleWeeklyCreate(w http.ResponseWriter, r *http.Request) {
	var t weekly.Task
	if !decode(w, r, &t) {
		return
	}
	t.BusinessPlanID = r.PathValue("planID")
	if t.Title == "" {
		writeError(w, 400, "title is required")
		return
	}
	if t.WeekNumber < 1 || t.WeekNumber > weekly.MaxWeek {
		writeError(w, 400, "week_number must be between 1 and 53")
		return
	}
	if d := t.DayOfWeek; d != nil && (*d < 1 || *d > 7) {
		writeError(w, 400, "day_of_week must be between 1 and 7")
		return
	}
	if t.Priority == "" {
		t.Priority = task.PriorityMedium
	}
	if !t.Priority.Valid() {
		writeError(w, 400, "invalid priority")
		return
	}
	if !t.TaskType.Valid() {
		writeError(w, 400, "invalid task_type")
		return
	}
	t.IsCompleted = false
	t.LinkedTaskID = ""

	created, err := s.Weekly.Create(r.Context(), &t)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	s.invalidate(r, created.BusinessPlanID)
	writeJSON(w, 201, created)
}

func (s *Server) handleWeeklyGet(w http.ResponseWriter, r *http.Request) {
	t, err := s.Weekly.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, t)
}

// weeklyPatch is the body of PATCH /api/weekly-tasks/{id}. ClearDay removes
// the scheduled day.
type weeklyPatch struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Priority    *task.Priority `json:"priority"`
	IsCompleted *bool          `json:"is_completed"`
	WeekNumber  *int           `json:"week_number"`
	DayOfWeek   *int           `json:"day_of_week"`
	ClearDay    bool           `json:"clear_day"`
	TaskType    *weekly.Type   `json:"task_type"`
}

func (p weeklyPatch) columns() (map[string]any, string) {
	cols := map[string]any{}
	if p.Title != nil {
		if *p.Title == "" {
			return nil, "title must not be empty"
		}
		cols[weekly.ColTitle] = *p.Title
	}
	if p.Description != nil {
		cols[weekly.ColDescription] = *p.Description
	}
	if p.Priority != nil {
		if !p.Priority.Valid() {
			return nil, "invalid priority"
		}
		cols[weekly.ColPriority] = string(*p.Priority)
	}
	if p.IsCompleted != nil {
		cols[weekly.ColIsCompleted] = *p.IsCompleted
	}
	if p.WeekNumber != nil {
		if *p.WeekNumber < 1 || *p.WeekNumber > weekly.MaxWeek {
			return nil, "week_number must be between 1 and 53"
		}
		cols[weekly.ColWeekNumber] = *p.WeekNumber
	}
	switch {
	case p.ClearDay:
		cols[weekly.ColDayOfWeek] = (*int)(nil)
	case p.DayOfWeek != nil:
		if *p.DayOfWeek < 1 || *p.DayOfWeek > 7 {
			return nil, "day_of_week must be between 1 and 7"
		}
		cols[weekly.ColDayOfWeek] = *p.DayOfWeek
	}
	if p.TaskType != nil {
		if !p.TaskType.Valid() {
			return nil, "invalid task_type"
		}
		cols[weekly.ColTaskType] = string(*p.TaskType)
	}
	return cols, ""
}

func (s *Server) handleWeeklyUpdate(w http.ResponseWriter, r *http.Request) {
	var p weeklyPatch
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

	t, err := s.Weekly.Update(r.Context(), r.PathValue("id"), cols)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidate(r, t.BusinessPlanID)
	// The mirror keeps the year of its current due date.
	s.Syncer.WeeklyTaskChanged(r.Context(), t, 0)
	writeJSON(w, 200, t)
}

func (s *Server) handleWeeklyDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, err := s.Weekly.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if err := s.Syncer.DeleteWeeklyTask(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidate(r, t.BusinessPlanID)
	w.WriteHeader(http.StatusNoContent)
}

type syncRequest struct {
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id"`
	Year      int    `json:"year,omitempty"`
}

func (s *Server) handleWeeklySync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ProjectID == "" {
		writeError(w, 400, "project_id is required")
		return
	}
	if req.Year == 0 {
		req.Year = s.today().Year
	}

	t, err := s.Weekly.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	taskID, err := s.Syncer.SyncWeeklyTask(r.Context(), t, t.WeekNumber, req.Year, t.BusinessPlanID, req.ProjectID, req.UserID)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]string{"weekly_task_id": t.ID, "task_id": taskID})
}

func (s *Server) handleWeeklyActivity(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Activity.BySubject(r.Context(), r.PathValue("id"), queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	writeJSON(w, 200, entries)
}

func (s *Server) handlePlanActivity(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Activity.Recent(r.Context(), r.PathValue("planID"), queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	writeJSON(w, 200, entries)
}
