package pending

import (
	"context"
	"fmt"
	"time"

	"vescollector/internal/models"

	"github.com/redis/go-redis/v9"
)

// Open builds the store selected by the configuration. The returned close
// function releases any connection the store holds.
func Open(ctx context.Context, cfg models.Pending) (Store, func() error, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), func() error { return nil }, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis ping error: %w", err)
		}

		return NewRedisStore(rdb, WithKey(cfg.Redis.Key)), rdb.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown pending backend: %s", cfg.Backend)
	}
}
