package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"cattle-chatbot/internal/common/logger"
	"cattle-chatbot/internal/common/metrics"
	"cattle-chatbot/internal/models"
)

// RedisCatalog caches the cow list as JSON. Redis being down only costs a
// trip to the database; it never fails a question.
type RedisCatalog struct {
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisCatalog(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisCatalog {
	return &RedisCatalog{
		redis:  client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "catalog-cache"}),
	}
}

func (c *RedisCatalog) Get(ctx context.Context, key string) ([]models.Entity, bool) {
	val, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CatalogCacheTotal.WithLabelValues("miss").Inc()
		} else {
			metrics.CatalogCacheTotal.WithLabelValues("error").Inc()
			c.logger.Warn("catalog cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
		return nil, false
	}

	var entities []models.Entity
	if err := json.Unmarshal(val, &entities); err != nil {
		metrics.CatalogCacheTotal.WithLabelValues("error").Inc()
		c.logger.Warn("catalog cache entry is corrupt", map[string]interface{}{"key": key, "error": err.Error()})
		return nil, false
	}

	metrics.CatalogCacheTotal.WithLabelValues("hit").Inc()
	return entities, true
}

func (c *RedisCatalog) Set(ctx context.Context, key string, entities []models.Entity) {
	data, err := json.Marshal(entities)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

// Invalidate drops the cached list so the next lookup hits the database.
func (c *RedisCatalog) Invalidate(ctx context.Context, key string) error {
	return c.redis.Del(ctx, key).Err()
}
