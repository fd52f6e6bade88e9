package redisx

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lathitha/eyecare-orders/internal/orders"
)

// CachedRegistry serves stage lookups from Redis and falls through to the
// wrapped registry on a miss. Cache errors are logged and never fail a lookup.
type CachedRegistry struct {
	orders.Registry
	Cache  KV
	Logger *zap.Logger
}

func NewCachedRegistry(reg orders.Registry, cache KV, logger *zap.Logger) *CachedRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedRegistry{Registry: reg, Cache: cache, Logger: logger}
}

func stageKey(id string) string { return fmt.Sprintf(KeyOrderStage, id) }

func (c *CachedRegistry) Stage(ctx context.Context, id string) (int, error) {
	v, err := c.Cache.Get(ctx, stageKey(id)).Result()
	switch {
	case err == nil:
		if idx, convErr := strconv.Atoi(v); convErr == nil {
			return idx, nil
		}
		c.Logger.Warn("bad cached stage, refetching", zap.String("order_id", id), zap.String("value", v))
		_ = c.Cache.Del(ctx, stageKey(id)).Err()
	case !errors.Is(err, redis.Nil):
		c.Logger.Warn("stage cache read failed", zap.String("order_id", id), zap.Error(err))
	}

	idx, err := c.Registry.Stage(ctx, id)
	if err != nil {
		return 0, err
	}
	c.fill(ctx, id, idx)
	return idx, nil
}

// fill only writes an empty key. A Create or Advance that finished while the
// backend read was in flight has already cached a newer stage.
func (c *CachedRegistry) fill(ctx context.Context, id string, idx int) {
	if err := c.Cache.SetNX(ctx, stageKey(id), strconv.Itoa(idx), TTLStageCache).Err(); err != nil {
		c.Logger.Warn("stage cache fill failed", zap.String("order_id", id), zap.Error(err))
	}
}

func (c *CachedRegistry) Create(ctx context.Context, o orders.Order) error {
	if err := c.Registry.Create(ctx, o); err != nil {
		return err
	}
	c.store(ctx, o.ID, o.StageIndex)
	return nil
}

func (c *CachedRegistry) Advance(ctx context.Context, id string) (orders.Order, error) {
	o, err := c.Registry.Advance(ctx, id)
	if err != nil {
		return o, err
	}
	c.store(ctx, o.ID, o.StageIndex)
	return o, nil
}

func (c *CachedRegistry) store(ctx context.Context, id string, idx int) {
	if err := c.Cache.Set(ctx, stageKey(id), strconv.Itoa(idx), TTLStageCache).Err(); err != nil {
		c.Logger.Warn("stage cache write failed", zap.String("order_id", id), zap.Error(err))
		// a stale value must not outlive the write that replaced it
		_ = c.Cache.Del(ctx, stageKey(id)).Err()
	}
}

// Dedup remembers processed event ids per service.
type Dedup struct {
	KV      KV
	Service string
}

// First reports whether eventID is seen for the first time and marks it.
// If Redis is unreachable the event is treated as new.
func (d Dedup) First(ctx context.Context, eventID string) (bool, error) {
	ok, err := d.KV.SetNX(ctx, fmt.Sprintf(KeyDedup, d.Service, eventID), "1", TTLDedup).Result()
	if err != nil {
		return true, err
	}
	return ok, nil
}

// Forget clears the mark so a failed event can be processed again.
func (d Dedup) Forget(ctx context.Context, eventID string) error {
	return d.KV.Del(ctx, fmt.Sprintf(KeyDedup, d.Service, eventID)).Err()
}
