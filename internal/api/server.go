package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"weekplan/pkg/activity"
	"weekplan/pkg/calendar"
	"weekplan/pkg/overdue"
	"weekplan/pkg/planner"
	"weekplan/pkg/task"
	"weekplan/pkg/tasksync"
	"weekplan/pkg/weekly"
)

// Deps are the collaborators the API is built from. Cache and Planner may be
// nil; without a Planner the generate route answers 503.
type Deps struct {
	Weekly   weekly.Store
	Tasks    task.Store
	Activity activity.Store
	Overdue  overdue.Source
	Cache    overdue.Invalidator
	Engine   *overdue.Engine
	Syncer   *tasksync.Syncer
	Planner  *planner.Service
	Clock    calendar.Clock
	Location *time.Location
	Log      logrus.FieldLogger
}

// Server is the HTTP API server.
type Server struct {
	Deps
	mux *http.ServeMux
}

// New creates a new Server.
func New(d Deps) *Server {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	s := &Server{
		Deps: d,
		mux:  http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	// Weekly plan
	s.mux.HandleFunc("GET /api/plans/{planID}/weekly-tasks", s.handleWeeklyList)
	s.mux.HandleFunc("POST /api/plans/{planID}/weekly-tasks", s.handleWeeklyCreate)
	s.mux.HandleFunc("POST /api/plans/{planID}/generate", s.handleGenerate)
	s.mux.HandleFunc("GET /api/plans/{planID}/overdue", s.handleOverdue)
	s.mux.HandleFunc("GET /api/plans/{planID}/activity", s.handlePlanActivity)

	// Weekly tasks
	s.mux.HandleFunc("GET /api/weekly-tasks/{id}", s.handleWeeklyGet)
	s.mux.HandleFunc("PATCH /api/weekly-tasks/{id}", s.handleWeeklyUpdate)
	s.mux.HandleFunc("DELETE /api/weekly-tasks/{id}", s.handleWeeklyDelete)
	s.mux.HandleFunc("POST /api/weekly-tasks/{id}/sync", s.handleWeeklySync)
	s.mux.HandleFunc("POST /api/weekly-tasks/{id}/reschedule", s.handleReschedule)
	s.mux.HandleFunc("POST /api/weekly-tasks/{id}/complete", s.handleComplete)
	s.mux.HandleFunc("GET /api/weekly-tasks/{id}/activity", s.handleWeeklyActivity)

	// Tasks
	s.mux.HandleFunc("GET /api/tasks", s.handleTaskList)
	s.mux.HandleFunc("GET /api/tasks/{id}", s.handleTaskGet)
	s.mux.HandleFunc("PATCH /api/tasks/{id}", s.handleTaskUpdate)

	// System
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/today", s.handleToday)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	today := s.today()
	writeJSON(w, 200, map[string]any{
		"position": today,
		"date":     today.Date(),
		"day_name": calendar.DayName(today.Day),
	})
}

func (s *Server) today() calendar.Position {
	return calendar.Today(s.Clock, s.Location)
}

func (s *Server) invalidate(r *http.Request, planID string) {
	if s.Cache != nil && planID != "" {
		s.Cache.Invalidate(r.Context(), planID)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("api: write json")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError answers 404 for missing rows and 500 for everything else.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, weekly.ErrNotFound) || errors.Is(err, task.ErrNotFound) {
		writeError(w, 404, err.Error())
		return
	}
	writeError(w, 500, err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
