package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the pending slot in a single Redis key so several
// collector replicas share it. GETDEL makes the drain atomic.
type RedisStore struct {
	rdb *redis.Client
	key string
}

type RedisOption func(*RedisStore)

func WithKey(key string) RedisOption {
	return func(s *RedisStore) {
		if k := strings.TrimSpace(key); k != "" {
			s.key = k
		}
	}
}

func NewRedisStore(rdb *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb: rdb,
		key: "ves:pending",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Set(ctx context.Context, list json.RawMessage) error {
	value := normalize(list)
	if value == nil {
		if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
			return fmt.Errorf("error clearing pending command list: %w", err)
		}
		return nil
	}

	if err := s.rdb.Set(ctx, s.key, []byte(value), 0).Err(); err != nil {
		return fmt.Errorf("error storing pending command list: %w", err)
	}
	return nil
}

func (s *RedisStore) Peek(ctx context.Context) (json.RawMessage, error) {
	value, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading pending command list: %w", err)
	}
	return json.RawMessage(value), nil
}

func (s *RedisStore) Drain(ctx context.Context) (json.RawMessage, error) {
	value, err := s.rdb.GetDel(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error draining pending command list: %w", err)
	}
	return json.RawMessage(value), nil
}
