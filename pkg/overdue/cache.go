package overdue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"weekplan/pkg/calendar"
)

// Cache wraps a Source with a Redis-backed copy of each plan's view. An entry
// is only served on the day it was computed.
type Cache struct {
	base  Source
	redis *redis.Client
	ttl   time.Duration
	now   func() calendar.Position
	log   logrus.FieldLogger
}

type cachedView struct {
	Position calendar.Position `json:"position"`
	Tasks    []Task            `json:"tasks"`
}

// NewCache creates a caching Source. A nil client disables caching.
func NewCache(base Source, client *redis.Client, ttl time.Duration, now func() calendar.Position, log logrus.FieldLogger) *Cache {
	if base == nil {
		panic("overdue.NewCache: base source is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Cache{base: base, redis: client, ttl: ttl, now: now, log: log}
}

// Detect serves the plan's view from Redis when fresh, otherwise from base.
// A view read from base is only written back if no Invalidate ran since the
// read started.
func (c *Cache) Detect(ctx context.Context, planID string) ([]Task, error) {
	today := c.now()
	if tasks, ok := c.load(ctx, planID, today); ok {
		return tasks, nil
	}

	gen, genOK := c.generation(ctx, planID)
	tasks, err := c.base.Detect(ctx, planID)
	if err != nil {
		return nil, err
	}
	if genOK {
		c.store(ctx, planID, today, gen, tasks)
	}
	return tasks, nil
}

// Invalidate drops the plan's cached view and bumps its generation, so a
// Detect that read the store before the change cannot write it back.
func (c *Cache) Invalidate(ctx context.Context, planID string) {
	if c.redis == nil {
		return
	}
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(planID))
		pipe.Del(ctx, cacheKey(planID))
		return nil
	})
	if err != nil {
		c.log.WithError(err).WithField("plan_id", planID).Warn("overdue: evict cached view")
	}
}

func (c *Cache) load(ctx context.Context, planID string, today calendar.Position) ([]Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	log := c.log.WithField("plan_id", planID)
	data, err := c.redis.Get(ctx, cacheKey(planID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.WithError(err).Warn("overdue: read cached view")
		}
		return nil, false
	}
	var view cachedView
	if err := json.Unmarshal(data, &view); err != nil {
		log.WithError(err).Warn("overdue: decode cached view")
		if err := c.redis.Del(ctx, cacheKey(planID)).Err(); err != nil {
			log.WithError(err).Warn("overdue: drop corrupt view")
		}
		return nil, false
	}
	if view.Position != today {
		return nil, false
	}
	return view.Tasks, true
}

// generation returns the plan's current generation. ok is false when the
// cache is off or Redis could not be read, in which case nothing is stored.
func (c *Cache) generation(ctx context.Context, planID string) (int64, bool) {
	if c.redis == nil || c.ttl == 0 {
		return 0, false
	}
	gen, err := c.redis.Get(ctx, generationKey(planID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		c.log.WithError(err).WithField("plan_id", planID).Warn("overdue: read view generation")
		return 0, false
	}
	return gen, true
}

// store writes the view only while the plan is still at generation gen.
func (c *Cache) store(ctx context.Context, planID string, today calendar.Position, gen int64, tasks []Task) {
	log := c.log.WithField("plan_id", planID)
	data, err := json.Marshal(cachedView{Position: today, Tasks: tasks})
	if err != nil {
		log.WithError(err).Warn("overdue: encode view")
		return
	}

	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, generationKey(planID)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleView
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cacheKey(planID), data, c.ttl)
			return nil
		})
		return err
	}, generationKey(planID))
	switch {
	case err == nil:
	case errors.Is(err, errStaleView), errors.Is(err, redis.TxFailedErr):
		log.Debug("overdue: view changed while reading, not cached")
	default:
		log.WithError(err).Warn("overdue: write cached view")
	}
}

var errStaleView = errors.New("overdue: view is stale")

func cacheKey(planID string) string {
	return "overdue:" + planID
}

func generationKey(planID string) string {
	return "overdue:gen:" + planID
}
