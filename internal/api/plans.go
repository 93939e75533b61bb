package api

import (
	"errors"
	"net/http"

	"weekplan/pkg/planner"
)

type generateRequest struct {
	Goals     []string `json:"goals"`
	Week      int      `json:"week"`
	Year      int      `json:"year,omitempty"`
	MaxTasks  int      `json:"max_tasks,omitempty"`
	ProjectID string   `json:"project_id,omitempty"`
	UserID    string   `json:"user_id,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.Planner == nil {
		writeError(w, 503, "planner is not configured")
		return
	}
	var req generateRequest
	if !decode(w, r, &req) {
		return
	}
	today := s.today()
	if req.Week == 0 {
		req.Week = today.Week
	}
	if req.Year == 0 {
		req.Year = today.Year
	}

	planID := r.PathValue("planID")
	created, err := s.Planner.GenerateWeek(r.Context(), planner.Request{
		PlanID:   planID,
		Goals:    req.Goals,
		Week:     req.Week,
		MaxTasks: req.MaxTasks,
	}, req.Year, req.ProjectID, req.UserID)
	switch {
	case errors.Is(err, planner.ErrInvalidRequest):
		writeError(w, 400, err.Error())
		return
	case errors.Is(err, planner.ErrNoTasks):
		writeError(w, 502, err.Error())
		return
	case err != nil && len(created) == 0:
		writeError(w, 500, err.Error())
		return
	case err != nil:
		s.Log.WithError(err).WithField("plan_id", planID).Warn("api: generate stopped early")
	}
	s.invalidate(r, planID)
	writeJSON(w, 201, created)
}
