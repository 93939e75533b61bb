// Package planner drafts a week of tasks from a business plan's quarterly
// goals with an LLM, then stores and mirrors them.
package planner

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"weekplan/pkg/activity"
	"weekplan/pkg/task"
	"weekplan/pkg/tasksync"
	"weekplan/pkg/weekly"
)

// ErrNoTasks is returned when the model response contains no task tags.
var ErrNoTasks = errors.New("planner: response contained no tasks")

// ErrInvalidRequest wraps every validation failure of a Request.
var ErrInvalidRequest = errors.New("planner: invalid request")

// DefaultMaxTasks caps how many tasks one week may receive.
const DefaultMaxTasks = 10

const systemPrompt = `You plan one week of work for a small business.
Turn the quarterly goals into concrete tasks for the given week.
Output one tag per task, each on its own line:
[TASK:title|description|priority|day|type]
priority is low, medium or high. day is 1 (Monday) to 7 (Sunday), or - for no fixed day.
type is project, strategy or action.
Output ONLY the tags.`

// Request describes the week to plan.
type Request struct {
	PlanID   string   `json:"plan_id"`
	Goals    []string `json:"goals"`
	Week     int      `json:"week"`
	MaxTasks int      `json:"max_tasks,omitempty"`
}

// Generator asks a Completer for a week of tasks.
type Generator struct {
	llm Completer
	log logrus.FieldLogger
}

// NewGenerator creates a Generator.
func NewGenerator(llm Completer, log logrus.FieldLogger) *Generator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Generator{llm: llm, log: log}
}

// Generate returns unsaved weekly tasks for req.
func (g *Generator) Generate(ctx context.Context, req Request) ([]weekly.Task, error) {
	if len(req.Goals) == 0 {
		return nil, fmt.Errorf("%w: at least one goal is required", ErrInvalidRequest)
	}
	if req.Week < 1 || req.Week > weekly.MaxWeek {
		return nil, fmt.Errorf("%w: week %d out of range", ErrInvalidRequest, req.Week)
	}

	var b strings.Builder
	b.WriteString(systemPrompt)
	fmt.Fprintf(&b, "\n\n---\n\nWeek: %d\nGoals:\n", req.Week)
	for _, goal := range req.Goals {
		fmt.Fprintf(&b, "- %s\n", strings.TrimSpace(goal))
	}

	resp, err := g.llm.Complete(ctx, b.String())
	if err != nil {
		return nil, fmt.Errorf("plan week %d: %w", req.Week, err)
	}

	tasks := parseTasks(resp, req.PlanID, req.Week)
	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}
	limit := req.MaxTasks
	if limit <= 0 {
		limit = DefaultMaxTasks
	}
	if len(tasks) > limit {
		g.log.WithFields(logrus.Fields{"plan_id": req.PlanID, "week": req.Week, "had": len(tasks)}).
			Warnf("planner: capped at %d tasks", limit)
		tasks = tasks[:limit]
	}
	return tasks, nil
}

// taskTagRe matches [TASK:title|description|priority|day|type] tags.
var taskTagRe = regexp.MustCompile(`\[TASK:([^|\]]+)\|([^|\]]*)\|([^|\]]*)\|([^|\]]*)\|([^\]]*)\]`)

func parseTasks(response, planID string, week int) []weekly.Task {
	var tasks []weekly.Task
	for _, m := range taskTagRe.FindAllStringSubmatch(response, -1) {
		title := strings.TrimSpace(m[1])
		if title == "" {
			continue
		}
		t := weekly.Task{
			Title:          title,
			Description:    strings.TrimSpace(m[2]),
			Priority:       task.Priority(strings.ToLower(strings.TrimSpace(m[3]))),
			WeekNumber:     week,
			TaskType:       weekly.Type(strings.ToLower(strings.TrimSpace(m[5]))),
			BusinessPlanID: planID,
		}
		if !t.Priority.Valid() {
			t.Priority = task.PriorityMedium
		}
		switch t.TaskType {
		case weekly.TypeProject, weekly.TypeStrategy, weekly.TypeAction:
		default:
			t.TaskType = weekly.TypeAction
		}
		if d, err := strconv.Atoi(strings.TrimSpace(m[4])); err == nil && d >= 1 && d <= 7 {
			t.DayOfWeek = weekly.IntPtr(d)
		}
		tasks = append(tasks, t)
	}
	return tasks
}

// Service generates a week, stores it and mirrors it into the task list.
type Service struct {
	gen      *Generator
	weekly   weekly.Store
	syncer   *tasksync.Syncer
	activity activity.Store
	log      logrus.FieldLogger
}

// NewService creates a Service. activity may be nil.
func NewService(gen *Generator, weeklyStore weekly.Store, syncer *tasksync.Syncer, activityStore activity.Store, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{gen: gen, weekly: weeklyStore, syncer: syncer, activity: activityStore, log: log}
}

// GenerateWeek plans, stores and syncs a week. A task that fails to sync is
// kept; its mirror can be created by syncing it again.
func (s *Service) GenerateWeek(ctx context.Context, req Request, year int, projectID, userID string) ([]weekly.Task, error) {
	drafts, err := s.gen.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{"plan_id": req.PlanID, "week": req.Week})
	var created []weekly.Task
	for i := range drafts {
		t, err := s.weekly.Create(ctx, &drafts[i])
		if err != nil {
			return created, fmt.Errorf("store generated task %q: %w", drafts[i].Title, err)
		}
		if projectID != "" {
			if _, err := s.syncer.SyncWeeklyTask(ctx, t, req.Week, year, req.PlanID, projectID, userID); err != nil {
				log.WithError(err).WithField("weekly_task_id", t.ID).Warn("planner: sync generated task")
			}
		}
		created = append(created, *t)
	}

	log.WithField("tasks", len(created)).Info("planner: week generated")
	if s.activity != nil {
		if _, err := s.activity.Append(ctx, activity.KindGenerated, "", req.PlanID, map[string]any{
			"week_number": req.Week,
			"tasks":       len(created),
		}); err != nil {
			log.WithError(err).Warn("planner: record activity")
		}
	}
	return created, nil
}
