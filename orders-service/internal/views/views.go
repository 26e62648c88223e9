// Package views caches the admin read models of the orders table in Redis.
//
// Each named view is a Redis hash; its fields hold variants of the view (a
// page of the order list, a window of daily analytics). Invalidating a view
// deletes the whole hash.
package views

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	OrdersList      = "orders:list"
	OrdersStats     = "orders:stats"
	OrdersAnalytics = "orders:analytics"
	DailyAnalytics  = "analytics:daily"
)

// All lists every view touched by a new order.
var All = []string{OrdersList, OrdersStats, OrdersAnalytics, DailyAnalytics}

var ErrCacheMiss = errors.New("cache miss")

type Cache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewCache(client *redis.Client, baseTTL time.Duration) *Cache {
	if baseTTL <= 0 {
		baseTTL = 5 * time.Minute
	}
	return &Cache{client: client, baseTTL: baseTTL}
}

func (c *Cache) Get(ctx context.Context, view, variant string, dst any) error {
	data, err := c.client.HGet(ctx, view, variant).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis hget failed: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", view, err)
	}
	return nil
}

// Set stores v and refreshes the expiry of the whole view with some jitter.
func (c *Cache) Set(ctx context.Context, view, variant string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", view, err)
	}

	jitter := time.Duration(rand.Int63n(int64(c.baseTTL/5) + 1))
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, view, variant, data)
	pipe.Expire(ctx, view, c.baseTTL+jitter)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis hset failed: %w", err)
	}
	return nil
}

func (c *Cache) Invalidate(ctx context.Context, views ...string) error {
	if len(views) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, views...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Views serves read models from the cache, loading misses once per key
// across concurrent callers.
type Views struct {
	cache  *Cache
	sfg    singleflight.Group
	logger *slog.Logger
}

func New(cache *Cache, logger *slog.Logger) *Views {
	return &Views{cache: cache, logger: logger}
}

// Fetch returns the cached variant of view or computes it with load. Cache
// faults are logged and fall through to load.
func Fetch[T any](ctx context.Context, v *Views, view, variant string, load func(context.Context) (T, error)) (T, error) {
	res, err, _ := v.sfg.Do(view+"|"+variant, func() (interface{}, error) {
		var cached T
		err := v.cache.Get(ctx, view, variant, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			v.logger.WarnContext(ctx, "view cache read failed", "view", view, "err", err)
		}

		fresh, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := v.cache.Set(ctx, view, variant, fresh); err != nil {
			v.logger.WarnContext(ctx, "view cache write failed", "view", view, "err", err)
		}
		return fresh, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

// Invalidate drops the given views, or all of them when none are named.
func (v *Views) Invalidate(ctx context.Context, views ...string) {
	if len(views) == 0 {
		views = All
	}
	if err := v.cache.Invalidate(ctx, views...); err != nil {
		v.logger.ErrorContext(ctx, "view invalidation failed", "views", views, "err", err)
		return
	}
	v.logger.DebugContext(ctx, "views invalidated", "views", views)
}
