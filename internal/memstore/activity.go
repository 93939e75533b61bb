package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"weekplan/pkg/activity"
)

// Activity is an in-memory activity.Store.
type Activity struct {
	mu      sync.Mutex
	entries []activity.Entry
	Faults  Faults
}

// NewActivity creates an empty Activity store.
func NewActivity() *Activity { return &Activity{} }

func (s *Activity) EnsureTable(context.Context) error { return nil }

func (s *Activity) Append(_ context.Context, kind, subjectID, planID string, detail map[string]any) (*activity.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Faults.check("Append"); err != nil {
		return nil, err
	}
	e := activity.Entry{
		ID:             fmt.Sprintf("a-%d", len(s.entries)+1),
		Kind:           kind,
		SubjectID:      subjectID,
		BusinessPlanID: planID,
		Detail:         detail,
		CreatedAt:      time.Now(),
	}
	s.entries = append(s.entries, e)
	return &e, nil
}

func (s *Activity) BySubject(_ context.Context, subjectID string, limit int) ([]activity.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []activity.Entry
	for _, e := range s.entries {
		if e.SubjectID == subjectID {
			out = append(out, e)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Activity) Recent(_ context.Context, planID string, limit int) ([]activity.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []activity.Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].BusinessPlanID == planID {
			out = append(out, s.entries[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
