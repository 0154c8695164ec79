// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"cattle-chatbot/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// NewRedis creates the client backing the cow catalog cache. Connection
// problems surface on first use; the cache treats them as misses.
func NewRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

// PingRedis tests the Redis connection
func PingRedis(ctx context.Context, rdb *redis.Client) error {
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
