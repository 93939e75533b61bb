package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dateLayout = "2006-01-02"

const columns = `id, title, description, status, priority, due_date, day_of_week, source_weekly_task_id, source_week_number, source_business_plan_id, project_id, user_id, created_at, updated_at`

// updatable lists the columns Update may write, in SET order.
var updatable = []string{
	"title", "description", "status", "priority", "due_date", "day_of_week",
	"source_week_number",
}

// PgStore is a PostgreSQL-backed task store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTable creates the tasks table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id                      TEXT PRIMARY KEY,
			title                   TEXT NOT NULL,
			description             TEXT NOT NULL DEFAULT '',
			status                  TEXT NOT NULL DEFAULT 'todo',
			priority                TEXT NOT NULL DEFAULT 'medium',
			due_date                DATE,
			day_of_week             INTEGER CHECK (day_of_week BETWEEN 1 AND 7),
			source_weekly_task_id   TEXT,
			source_week_number      INTEGER,
			source_business_plan_id TEXT,
			project_id              TEXT NOT NULL DEFAULT '',
			user_id                 TEXT NOT NULL DEFAULT '',
			created_at              TIMESTAMPTZ DEFAULT NOW(),
			updated_at              TIMESTAMPTZ DEFAULT NOW()
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_project_status ON tasks(project_id, status)`)
	if err != nil {
		return err
	}
	// One mirror per weekly task; the upsert below conflicts on this index.
	_, err = s.pool.Exec(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_source_weekly ON tasks(source_weekly_task_id) WHERE source_weekly_task_id IS NOT NULL`)
	return err
}

// Create inserts a new task.
func (s *PgStore) Create(ctx context.Context, t *Task) (*Task, error) {
	prepare(t)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tasks (`+columns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		t.ID, t.Title, t.Description, string(t.Status), string(t.Priority), dateArg(t.DueDate), t.DayOfWeek,
		t.SourceWeeklyTaskID, t.SourceWeekNumber, t.SourceBusinessPlanID, t.ProjectID, t.UserID, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// UpsertFromWeekly writes the mirror of a weekly task. The lookup and the
// branch happen inside one statement, so concurrent syncs of the same weekly
// task converge on a single row.
func (s *PgStore) UpsertFromWeekly(ctx context.Context, t *Task) (*Task, bool, error) {
	if t.SourceWeeklyTaskID == nil || *t.SourceWeeklyTaskID == "" {
		return nil, false, errors.New("upsert task: source weekly task id is required")
	}
	prepare(t)

	var inserted bool
	row := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (`+columns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (source_weekly_task_id) WHERE source_weekly_task_id IS NOT NULL
		DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			priority = EXCLUDED.priority,
			status = EXCLUDED.status,
			due_date = EXCLUDED.due_date,
			day_of_week = EXCLUDED.day_of_week,
			source_week_number = EXCLUDED.source_week_number,
			updated_at = EXCLUDED.updated_at
		RETURNING `+columns+`, (xmax = 0)`,
		t.ID, t.Title, t.Description, string(t.Status), string(t.Priority), dateArg(t.DueDate), t.DayOfWeek,
		t.SourceWeeklyTaskID, t.SourceWeekNumber, t.SourceBusinessPlanID, t.ProjectID, t.UserID, t.CreatedAt, t.UpdatedAt)

	out, err := scanTask(row, &inserted)
	if err != nil {
		return nil, false, fmt.Errorf("upsert task for weekly task %s: %w", *t.SourceWeeklyTaskID, err)
	}
	return out, inserted, nil
}

// Get retrieves a single task by ID.
func (s *PgStore) Get(ctx context.Context, id string) (*Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `SELECT `+columns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

// BySourceWeeklyTask returns the task whose source_weekly_task_id matches.
func (s *PgStore) BySourceWeeklyTask(ctx context.Context, weeklyTaskID string) (*Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `SELECT `+columns+` FROM tasks WHERE source_weekly_task_id = $1`, weeklyTaskID))
	if err != nil {
		return nil, fmt.Errorf("task for weekly task %s: %w", weeklyTaskID, err)
	}
	return t, nil
}

// Update modifies task fields. Supported keys: title, description, status,
// priority, due_date, day_of_week, source_week_number.
func (s *PgStore) Update(ctx context.Context, id string, updates map[string]any) (*Task, error) {
	now := time.Now().Truncate(time.Microsecond)

	var set strings.Builder
	set.WriteString("updated_at = $1")
	args := []any{now}
	for _, col := range updatable {
		v, ok := updates[col]
		if !ok {
			continue
		}
		if col == "due_date" {
			v = dateArg(v)
		}
		args = append(args, v)
		fmt.Fprintf(&set, ", %s = $%d", col, len(args))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d RETURNING %s", set.String(), len(args), columns)
	t, err := scanTask(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}
	return t, nil
}

// Delete removes a task.
func (s *PgStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete task %s: %w", id, ErrNotFound)
	}
	return nil
}

// List returns a project's tasks filtered by status (empty = all), ordered by
// due date then creation time. A limit of 0 means no limit.
func (s *PgStore) List(ctx context.Context, projectID string, status Status, limit int) ([]Task, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if status != "" {
		rows, err = s.pool.Query(ctx, `SELECT `+columns+` FROM tasks
			WHERE project_id = $1 AND status = $2
			ORDER BY due_date ASC NULLS LAST, created_at ASC LIMIT NULLIF($3, 0)`, projectID, string(status), limit)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT `+columns+` FROM tasks
			WHERE project_id = $1
			ORDER BY due_date ASC NULLS LAST, created_at ASC LIMIT NULLIF($2, 0)`, projectID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return tasks, nil
}

// dateArg turns a YYYY-MM-DD string (or pointer to one) into a date
// parameter. Empty or unparsable values become NULL.
func dateArg(v any) any {
	var s string
	switch d := v.(type) {
	case string:
		s = d
	case *string:
		if d == nil {
			return nil
		}
		s = *d
	case time.Time, *time.Time:
		return d
	default:
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func prepare(t *Task) {
	t.ID = uuid.Must(uuid.NewV7()).String()
	now := time.Now().Truncate(time.Microsecond)
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
}

// scanTask reads one row in column order. Extra destinations are scanned
// after the task columns.
func scanTask(row pgx.Row, extra ...any) (*Task, error) {
	var t Task
	var due *time.Time
	dest := []any{&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &due, &t.DayOfWeek,
		&t.SourceWeeklyTaskID, &t.SourceWeekNumber, &t.SourceBusinessPlanID, &t.ProjectID, &t.UserID, &t.CreatedAt, &t.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if due != nil {
		d := due.Format(dateLayout)
		t.DueDate = &d
	}
	return &t, nil
}
