package weekly

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

const columns = `id, title, description, priority, is_completed, week_number, day_of_week, task_type, business_plan_id, linked_task_id, created_at, updated_at`

// PgStore is a PostgreSQL-backed weekly task store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTable creates the weekly_tasks table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS weekly_tasks (
			id               TEXT PRIMARY KEY,
			title            TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			priority         TEXT NOT NULL DEFAULT 'medium',
			is_completed     BOOLEAN NOT NULL DEFAULT false,
			week_number      INTEGER NOT NULL CHECK (week_number >= 1),
			day_of_week      INTEGER CHECK (day_of_week BETWEEN 1 AND 7),
			task_type        TEXT,
			business_plan_id TEXT NOT NULL,
			linked_task_id   TEXT,
			created_at       TIMESTAMPTZ DEFAULT NOW(),
			updated_at       TIMESTAMPTZ DEFAULT NOW()
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_weekly_tasks_plan_week ON weekly_tasks(business_plan_id, week_number)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_weekly_tasks_open ON weekly_tasks(business_plan_id) WHERE NOT is_completed`)
	return err
}

// Create inserts a new weekly task.
func (s *PgStore) Create(ctx context.Context, t *Task) (*Task, error) {
	t.ID = uuid.Must(uuid.NewV7()).String()
	now := time.Now().Truncate(time.Microsecond)
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Priority == "" {
		t.Priority = "medium"
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO weekly_tasks (`+columns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.Title, t.Description, string(t.Priority), t.IsCompleted, t.WeekNumber, t.DayOfWeek,
		nilIfEmpty(string(t.TaskType)), t.BusinessPlanID, nilIfEmpty(t.LinkedTaskID), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create weekly task: %w", err)
	}
	return t, nil
}

// Get retrieves a single weekly task by ID.
func (s *PgStore) Get(ctx context.Context, id string) (*Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `SELECT `+columns+` FROM weekly_tasks WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get weekly task %s: %w", id, err)
	}
	return t, nil
}

// Update applies a sparse patch. Only keys present in updates are written.
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
		switch col {
		case ColTaskType, ColLinkedTaskID:
			v = nullableString(v)
		}
		args = append(args, v)
		fmt.Fprintf(&set, ", %s = $%d", col, len(args))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE weekly_tasks SET %s WHERE id = $%d RETURNING %s", set.String(), len(args), columns)
	t, err := scanTask(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("update weekly task %s: %w", id, err)
	}
	return t, nil
}

// Delete removes a weekly task.
func (s *PgStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM weekly_tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete weekly task %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete weekly task %s: %w", id, ErrNotFound)
	}
	return nil
}

// ByPlan returns a plan's tasks ordered by their slot in the schedule.
func (s *PgStore) ByPlan(ctx context.Context, planID string, week int) ([]Task, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if week > 0 {
		rows, err = s.pool.Query(ctx, `SELECT `+columns+` FROM weekly_tasks
			WHERE business_plan_id = $1 AND week_number = $2
			ORDER BY day_of_week NULLS LAST, created_at ASC`, planID, week)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT `+columns+` FROM weekly_tasks
			WHERE business_plan_id = $1
			ORDER BY week_number ASC, day_of_week NULLS LAST, created_at ASC`, planID)
	}
	if err != nil {
		return nil, fmt.Errorf("weekly tasks by plan: %w", err)
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// Incomplete returns the plan's tasks that are not completed.
func (s *PgStore) Incomplete(ctx context.Context, planID string) ([]Task, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+columns+` FROM weekly_tasks
		WHERE business_plan_id = $1 AND NOT is_completed
		ORDER BY week_number ASC, day_of_week NULLS LAST, created_at ASC`, planID)
	if err != nil {
		return nil, fmt.Errorf("incomplete weekly tasks: %w", err)
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	var taskType, linked *string
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.IsCompleted, &t.WeekNumber, &t.DayOfWeek,
		&taskType, &t.BusinessPlanID, &linked, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if taskType != nil {
		t.TaskType = Type(*taskType)
	}
	if linked != nil {
		t.LinkedTaskID = *linked
	}
	return &t, nil
}

func scanTaskRows(rows pgx.Rows) ([]Task, error) {
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

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullableString maps "" (and typed string aliases of it) to NULL.
func nullableString(v any) any {
	switch s := v.(type) {
	case nil:
		return nil
	case string:
		return nilIfEmpty(s)
	case Type:
		return nilIfEmpty(string(s))
	case *string:
		if s == nil {
			return nil
		}
		return nilIfEmpty(*s)
	}
	return v
}
