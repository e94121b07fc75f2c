package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
)

// Cache stores assembled week views. Writers call Invalidate after every commit that touches a date.
type Cache interface {
	Get(ctx context.Context, providerID string, monday time.Time) (WeekView, bool, error)
	Put(ctx context.Context, view WeekView) error
	Invalidate(ctx context.Context, providerID string, dates ...time.Time) error
}

type RedisCache struct {
	redis redis.Cmdable
	ttl   time.Duration
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisCache{redis: client, ttl: ttl}
}

func (c *RedisCache) key(providerID string, monday time.Time) string {
	return fmt.Sprintf("agenda:week:%s:%s", providerID, domain.FormatDate(monday))
}

func (c *RedisCache) Get(ctx context.Context, providerID string, monday time.Time) (WeekView, bool, error) {
	data, err := c.redis.Get(ctx, c.key(providerID, monday)).Bytes()
	if errors.Is(err, redis.Nil) {
		return WeekView{}, false, nil
	}
	if err != nil {
		return WeekView{}, false, fmt.Errorf("week cache: get: %w", err)
	}
	var view WeekView
	if err := json.Unmarshal(data, &view); err != nil {
		return WeekView{}, false, fmt.Errorf("week cache: unmarshal: %w", err)
	}
	return view, true, nil
}

func (c *RedisCache) Put(ctx context.Context, view WeekView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("week cache: marshal: %w", err)
	}
	if err := c.redis.Set(ctx, c.key(view.ProviderID, view.WeekStart), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("week cache: set: %w", err)
	}
	return nil
}

// Invalidate drops the weeks containing dates.
func (c *RedisCache) Invalidate(ctx context.Context, providerID string, dates ...time.Time) error {
	if len(dates) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(dates))
	keys := make([]string, 0, len(dates))
	for _, d := range dates {
		k := c.key(providerID, domain.WeekStart(d))
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("week cache: del: %w", err)
	}
	return nil
}

// InvalidateProvider drops every cached week of a provider. Used when its business hours change.
func (c *RedisCache) InvalidateProvider(ctx context.Context, providerID string) error {
	iter := c.redis.Scan(ctx, 0, fmt.Sprintf("agenda:week:%s:*", providerID), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("week cache: scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("week cache: del: %w", err)
	}
	return nil
}
