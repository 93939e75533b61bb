package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed activity log.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTable creates the activity table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS activity (
			id               TEXT PRIMARY KEY,
			kind             TEXT NOT NULL,
			subject_id       TEXT NOT NULL DEFAULT '',
			business_plan_id TEXT NOT NULL DEFAULT '',
			detail           JSONB NOT NULL DEFAULT '{}',
			created_at       TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_activity_subject ON activity(subject_id, created_at)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_activity_plan ON activity(business_plan_id, created_at)`)
	return err
}

// Append records an entry.
func (s *PgStore) Append(ctx context.Context, kind, subjectID, planID string, detail map[string]any) (*Entry, error) {
	if detail == nil {
		detail = map[string]any{}
	}
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return nil, fmt.Errorf("marshal detail: %w", err)
	}

	e := &Entry{
		ID:             uuid.Must(uuid.NewV7()).String(),
		Kind:           kind,
		SubjectID:      subjectID,
		BusinessPlanID: planID,
		Detail:         detail,
		CreatedAt:      time.Now().Truncate(time.Microsecond),
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO activity (id, kind, subject_id, business_plan_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6)`,
		e.ID, e.Kind, e.SubjectID, e.BusinessPlanID, string(detailJSON), e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("append activity: %w", err)
	}
	return e, nil
}

// BySubject returns a task's activity in chronological order. A limit of 0
// means no limit.
func (s *PgStore) BySubject(ctx context.Context, subjectID string, limit int) ([]Entry, error) {
	return s.scanMany(ctx, `
		SELECT id, kind, subject_id, business_plan_id, detail, created_at
		FROM activity WHERE subject_id = $1 ORDER BY created_at ASC, id ASC LIMIT NULLIF($2, 0)`, subjectID, limit)
}

// Recent returns a plan's most recent activity, newest first.
func (s *PgStore) Recent(ctx context.Context, planID string, limit int) ([]Entry, error) {
	return s.scanMany(ctx, `
		SELECT id, kind, subject_id, business_plan_id, detail, created_at
		FROM activity WHERE business_plan_id = $1 ORDER BY created_at DESC, id DESC LIMIT NULLIF($2, 0)`, planID, limit)
}

func (s *PgStore) scanMany(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var detailJSON []byte
		if err := rows.Scan(&e.ID, &e.Kind, &e.SubjectID, &e.BusinessPlanID, &detailJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(detailJSON, &e.Detail); err != nil {
			e.Detail = map[string]any{"_raw": string(detailJSON)}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return entries, nil
}
