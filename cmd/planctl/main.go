package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"weekplan/internal/app"
	"weekplan/internal/config"
	"weekplan/pkg/calendar"
	"weekplan/pkg/planner"
)

// ctl holds the flag destinations of every subcommand.
type ctl struct {
	plan    string
	week    int
	year    int
	to      string
	project string
	user    string
	goals   []string
	max     int
	limit   int
}

func main() {
	c := &ctl{}
	root := &cli.Command{
		Name:  "planctl",
		Usage: "Inspect and adjust weekly business plans",
		Commands: []*cli.Command{
			c.todayCmd(),
			c.weekCmd(),
			c.overdueCmd(),
			c.rescheduleCmd(),
			c.completeCmd(),
			c.syncCmd(),
			c.generateCmd(),
			c.activityCmd(),
		},
	}
	if err := root.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "planctl: %v\n", err)
		os.Exit(1)
	}
}

// withApp runs fn against a freshly wired App.
func withApp(fn func(ctx context.Context, a *app.App, c *cli.Command) error) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		cfg, err := config.Load(os.Getenv)
		if err != nil {
			return err
		}
		a, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a, c)
	}
}

func planFlag(dst *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "plan",
		Aliases:     []string{"p"},
		Usage:       "business plan ID",
		Required:    true,
		Destination: dst,
	}
}

func argID(c *cli.Command) (string, error) {
	if c.NArg() < 1 {
		return "", fmt.Errorf("weekly task ID required")
	}
	return c.Args().Get(0), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (cmd *ctl) todayCmd() *cli.Command {
	return &cli.Command{
		Name:  "today",
		Usage: "Print today's week and day",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load(os.Getenv)
			if err != nil {
				return err
			}
			today := calendar.Today(calendar.SystemClock, cfg.Location)
			_, err = fmt.Fprintf(c.Root().Writer, "%s  %s  %s\n", today, today.Date(), dayLabel(today.Day))
			return err
		},
	}
}

func (cmd *ctl) weekCmd() *cli.Command {
	return &cli.Command{
		Name:      "week",
		Usage:     "List a plan's weekly tasks",
		UsageText: "planctl week --plan <id> [--week N]",
		Flags: []cli.Flag{
			planFlag(&cmd.plan),
			&cli.IntFlag{Name: "week", Aliases: []string{"w"}, Usage: "week number (default: all weeks)", Destination: &cmd.week},
		},
		Action: withApp(func(ctx context.Context, a *app.App, c *cli.Command) error {
			tasks, err := a.Weekly.ByPlan(ctx, cmd.plan, cmd.week)
			if err != nil {
				return fmt.Errorf("list weekly tasks: %w", err)
			}
			return writeWeek(c.Root().Writer, tasks)
		}),
	}
}

func (cmd *ctl) overdueCmd() *cli.Command {
	return &cli.Command{
		Name:      "overdue",
		Usage:     "List a plan's overdue tasks, most overdue first",
		UsageText: "planctl overdue --plan <id>",
		Flags:     []cli.Flag{planFlag(&cmd.plan)},
		Action: withApp(func(ctx context.Context, a *app.App, c *cli.Command) error {
			tasks, err := a.Cache.Detect(ctx, cmd.plan)
			if err != nil {
				return fmt.Errorf("detect overdue: %w", err)
			}
			return writeOverdue(c.Root().Writer, a.Today(), tasks)
		}),
	}
}

func (cmd *ctl) rescheduleCmd() *cli.Command {
	return &cli.Command{
		Name:      "reschedule",
		Usage:     "Move a weekly task to today or tomorrow",
		UsageText: "planctl reschedule [--to today|tomorrow] <id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to", Value: "today", Usage: "today or tomorrow", Destination: &cmd.to},
		},
		Action: withApp(func(ctx context.Context, a *app.App, c *cli.Command) error {
			id, err := argID(c)
			if err != nil {
				return err
			}
			switch cmd.to {
			case "today":
				t, err := a.Engine.RescheduleToToday(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(c.Root().Writer, t)
			case "tomorrow":
				t, err := a.Engine.RescheduleToTomorrow(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(c.Root().Writer, t)
			}
			return fmt.Errorf("--to must be today or tomorrow, got %q", cmd.to)
		}),
	}
}

func (cmd *ctl) completeCmd() *cli.Command {
	return &cli.Command{
		Name:      "complete",
		Usage:     "Mark a weekly task completed",
		UsageText: "planctl complete <id>",
		Action: withApp(func(ctx context.Context, a *app.App, c *cli.Command) error {
			id, err := argID(c)
			if err != nil {
				return err
			}
			t, err := a.Engine.Complete(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(c.Root().Writer, t)
		}),
	}
}

func (cmd *ctl) syncCmd() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Create or refresh the task mirroring a weekly task",
		UsageText: "planctl sync --project <id> [--user <id>] [--year N] <id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Usage: "project that owns the mirror", Required: true, Destination: &cmd.project},
			&cli.StringFlag{Name: "user", Usage: "user that owns the mirror", Destination: &cmd.user},
			&cli.IntFlag{Name: "year", Usage: "week-numbering year (default: current)", Destination: &cmd.year},
		},
		Action: withApp(func(ctx context.Context, a *app.App, c *cli.Command) error {
			id, err := argID(c)
			if err != nil {
				return err
			}
			t, err := a.Weekly.Get(ctx, id)
			if err != nil {
				return err
			}
			year := cmd.year
			if year == 0 {
				year = a.Today().Year
			}
			taskID, err := a.Syncer.SyncWeeklyTask(ctx, t, t.WeekNumber, year, t.BusinessPlanID, cmd.project, cmd.user)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(c.Root().Writer, "%s -> %s\n", t.ID, taskID)
			return err
		}),
	}
}

func (cmd *ctl) generateCmd() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Draft a week of tasks from goals with the LLM",
		UsageText: `planctl generate --plan <id> --goal "..." [--goal "..."] [--week N] [--project <id>]`,
		Flags: []cli.Flag{
			planFlag(&cmd.plan),
			&cli.StringSliceFlag{Name: "goal", Aliases: []string{"g"}, Usage: "quarterly goal (repeatable)", Required: true, Destination: &cmd.goals},
			&cli.IntFlag{Name: "week", Aliases: []string{"w"}, Usage: "week number (default: current)", Destination: &cmd.week},
			&cli.IntFlag{Name: "max", Usage: "maximum number of tasks", Value: planner.DefaultMaxTasks, Destination: &cmd.max},
			&cli.StringFlag{Name: "project", Usage: "mirror generated tasks into this project", Destination: &cmd.project},
			&cli.StringFlag{Name: "user", Usage: "user that owns the mirrors", Destination: &cmd.user},
		},
		Action: withApp(func(ctx context.Context, a *app.App, c *cli.Command) error {
			today := a.Today()
			week := cmd.week
			if week == 0 {
				week = today.Week
			}
			created, err := a.Planner.GenerateWeek(ctx, planner.Request{
				PlanID:   cmd.plan,
				Goals:    cmd.goals,
				Week:     week,
				MaxTasks: cmd.max,
			}, today.Year, cmd.project, cmd.user)
			if len(created) > 0 {
				a.Cache.Invalidate(ctx, cmd.plan)
				if werr := writeWeek(c.Root().Writer, created); werr != nil {
					return werr
				}
			}
			return err
		}),
	}
}

func (cmd *ctl) activityCmd() *cli.Command {
	return &cli.Command{
		Name:      "activity",
		Usage:     "Show recent activity for a plan",
		UsageText: "planctl activity --plan <id> [--limit N]",
		Flags: []cli.Flag{
			planFlag(&cmd.plan),
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Destination: &cmd.limit},
		},
		Action: withApp(func(ctx context.Context, a *app.App, c *cli.Command) error {
			entries, err := a.Activity.Recent(ctx, cmd.plan, cmd.limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if err := json.NewEncoder(c.Root().Writer).Encode(e); err != nil {
					return err
				}
			}
			return nil
		}),
	}
}
