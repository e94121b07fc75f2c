package hours

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
)

// RedisStore keeps per-provider hours as JSON. Providers without an entry use the fallback.
type RedisStore struct {
	redis    redis.Cmdable
	fallback Provider
	grid     int
}

type StoreOption func(*RedisStore)

// WithGrid makes Set reject hours whose bounds are not multiples of step minutes.
func WithGrid(step int) StoreOption {
	return func(s *RedisStore) { s.grid = step }
}

func NewRedisStore(client redis.Cmdable, fallback Provider, opts ...StoreOption) *RedisStore {
	s := &RedisStore{redis: client, fallback: fallback}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(providerID string) string {
	return fmt.Sprintf("agenda:hours:%s", providerID)
}

func (s *RedisStore) BusinessHours(ctx context.Context, providerID string) (domain.BusinessHours, error) {
	data, err := s.redis.Get(ctx, s.key(providerID)).Bytes()
	if err == redis.Nil {
		if s.fallback == nil {
			return domain.BusinessHours{}, nil
		}
		return s.fallback.BusinessHours(ctx, providerID)
	}
	if err != nil {
		return nil, fmt.Errorf("hours: get: %w", err)
	}

	var days map[string]string
	if err := json.Unmarshal(data, &days); err != nil {
		return nil, fmt.Errorf("hours: unmarshal: %w", err)
	}
	h, err := ParseWeek(days)
	if err != nil {
		return nil, fmt.Errorf("hours: %s: %w", providerID, err)
	}
	return h, nil
}

// Set replaces the hours of a provider.
func (s *RedisStore) Set(ctx context.Context, providerID string, h domain.BusinessHours) error {
	if err := h.Validate(); err != nil {
		return err
	}
	if s.grid > 0 {
		if err := h.AlignedTo(s.grid); err != nil {
			return err
		}
	}
	data, err := json.Marshal(FormatWeek(h))
	if err != nil {
		return fmt.Errorf("hours: marshal: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(providerID), data, 0).Err(); err != nil {
		return fmt.Errorf("hours: set: %w", err)
	}
	return nil
}

// Reset drops the provider entry so the fallback applies again.
func (s *RedisStore) Reset(ctx context.Context, providerID string) error {
	if err := s.redis.Del(ctx, s.key(providerID)).Err(); err != nil {
		return fmt.Errorf("hours: reset: %w", err)
	}
	return nil
}
