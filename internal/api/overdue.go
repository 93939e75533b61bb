package api

import (
	"net/http"

	"weekplan/pkg/overdue"
	"weekplan/pkg/weekly"
)

func (s *Server) handleOverdue(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.Overdue.Detect(r.Context(), r.PathValue("planID"))
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	if tasks == nil {
		tasks = []overdue.Task{}
	}
	writeJSON(w, 200, map[string]any{
		"today": s.today(),
		"count": len(tasks),
		"tasks": tasks,
	})
}

func (s *Server) handleReschedule(w http.ResponseWriter, r *http.Request) {
	var (
		t   *weekly.Task
		err error
	)
	switch to := r.URL.Query().Get("to"); to {
	case "today", "":
		t, err = s.Engine.RescheduleToToday(r.Context(), r.PathValue("id"))
	case "tomorrow":
		t, err = s.Engine.RescheduleToTomorrow(r.Context(), r.PathValue("id"))
	default:
		writeError(w, 400, "to must be today or tomorrow")
		return
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, t)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	t, err := s.Engine.Complete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, t)
}
