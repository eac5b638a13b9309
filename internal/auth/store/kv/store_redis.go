package kv

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"sessiongate/internal/platform/metrics"
	"sessiongate/pkg/platform/sentinel"
)

// RedisStore keeps session keys in Redis with native expiry.
type RedisStore struct {
	client  redis.UniversalClient
	metrics *metrics.Metrics
}

type RedisOption func(*RedisStore)

// WithMetrics records per-operation latency.
func WithMetrics(m *metrics.Metrics) RedisOption {
	return func(s *RedisStore) {
		s.metrics = m
	}
}

func NewRedis(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Get returns ("", false, nil) when the key is absent or expired.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	defer s.observe("get", time.Now())

	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set writes with SET key value EX ttl. A non-positive ttl is rejected so no
// session can be stored without expiry.
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return sentinel.ErrInvalidState
	}
	defer s.observe("set", time.Now())
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	defer s.observe("del", time.Now())
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) IsAlive(ctx context.Context) bool {
	return s.client.Ping(ctx).Err() == nil
}

func (s *RedisStore) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStoreOp("redis", op, start)
	}
}
