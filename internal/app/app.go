// Package app wires the stores and services shared by the binaries.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"weekplan/internal/api"
	"weekplan/internal/config"
	"weekplan/internal/db"
	"weekplan/pkg/activity"
	"weekplan/pkg/calendar"
	"weekplan/pkg/overdue"
	"weekplan/pkg/planner"
	"weekplan/pkg/task"
	"weekplan/pkg/tasksync"
	"weekplan/pkg/weekly"
)

// App is the assembled service graph.
type App struct {
	Config   *config.Config
	Log      *logrus.Logger
	Clock    calendar.Clock
	Weekly   weekly.Store
	Tasks    task.Store
	Activity activity.Store
	Detector *overdue.Detector
	Cache    *overdue.Cache
	Engine   *overdue.Engine
	Syncer   *tasksync.Syncer
	Planner  *planner.Service

	pool  *pgxpool.Pool
	redis *redis.Client
}

// New connects to Postgres (and Redis when configured), ensures the tables
// exist and builds every service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := cfg.Logger()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	rdb, err := cfg.Redis()
	if err != nil {
		pool.Close()
		return nil, err
	}
	if rdb != nil {
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("app: redis unreachable, overdue cache disabled")
			_ = rdb.Close()
			rdb = nil
		}
	}

	a := &App{
		Config:   cfg,
		Log:      log,
		Clock:    calendar.SystemClock,
		Weekly:   weekly.NewPgStore(pool),
		Tasks:    task.NewPgStore(pool),
		Activity: activity.NewPgStore(pool),
		pool:     pool,
		redis:    rdb,
	}

	for _, t := range []struct {
		name   string
		ensure func(context.Context) error
	}{
		{"tasks", a.Tasks.EnsureTable},
		{"weekly_tasks", a.Weekly.EnsureTable},
		{"activity", a.Activity.EnsureTable},
	} {
		if err := t.ensure(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("ensure %s table: %w", t.name, err)
		}
	}

	a.wire()
	return a, nil
}

func (a *App) wire() {
	loc := a.Config.Location
	a.Syncer = tasksync.New(a.Weekly, a.Tasks, a.Activity, a.Log)
	a.Detector = overdue.NewDetector(a.Weekly, a.Clock, loc, a.Log)
	a.Cache = overdue.NewCache(a.Detector, a.redis, a.Config.OverdueCacheTTL, a.Detector.Now, a.Log)
	a.Engine = overdue.NewEngine(a.Weekly, a.Clock, loc, a.Log,
		overdue.WithActivity(a.Activity),
		overdue.WithInvalidator(a.Cache),
		overdue.WithObserver(a.Syncer),
	)
	llm := &planner.CommandCompleter{
		Command: a.Config.LLMCommand,
		Args:    a.Config.LLMArgs,
		Timeout: a.Config.LLMTimeout,
	}
	a.Planner = planner.NewService(planner.NewGenerator(llm, a.Log), a.Weekly, a.Syncer, a.Activity, a.Log)
}

// Today is the current position in the configured location.
func (a *App) Today() calendar.Position {
	return calendar.Today(a.Clock, a.Config.Location)
}

// API builds the HTTP handler over the graph.
func (a *App) API() *api.Server {
	return api.New(api.Deps{
		Weekly:   a.Weekly,
		Tasks:    a.Tasks,
		Activity: a.Activity,
		Overdue:  a.Cache,
		Cache:    a.Cache,
		Engine:   a.Engine,
		Syncer:   a.Syncer,
		Planner:  a.Planner,
		Clock:    a.Clock,
		Location: a.Config.Location,
		Log:      a.Log,
	})
}

// Close releases the connections.
func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.pool.Close()
}
