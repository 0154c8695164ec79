// Package app assembles the chatbot and its data store from configuration.
// The server, the CLI and the end-to-end tests share it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cattle-chatbot/internal/chatbot"
	"cattle-chatbot/internal/chatbot/querybuilder"
	"cattle-chatbot/internal/common/config"
	"cattle-chatbot/internal/common/database"
	"cattle-chatbot/internal/common/logger"
	"cattle-chatbot/internal/store"
)

type App struct {
	Config  *config.Config
	DB      *database.SQLClient
	Redis   *redis.Client
	Store   *store.SQLStore
	Chatbot *chatbot.Chatbot
}

// Options control startup behaviour.
type Options struct {
	// ConnectAttempts is how many times the store is pinged before giving up.
	ConnectAttempts int
	ConnectDelay    time.Duration
	ChatbotOptions  []chatbot.Option
}

// New opens the configured store, checks it answers and builds the chatbot.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*App, error) {
	driver := database.NormalizeDriver(cfg.Database.Driver)
	dialect, err := querybuilder.DialectFor(driver)
	if err != nil {
		return nil, err
	}
	schema := querybuilder.Schema{
		ReadingsTable: cfg.Database.Schema.ReadingsTable,
		EntitiesTable: cfg.Database.Schema.EntitiesTable,
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	client, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, DB: client}

	var storeOpts []store.Option
	if cfg.Database.Redis.Enabled {
		if rdb := connectRedis(ctx, cfg.Database.Redis, log); rdb != nil {
			a.Redis = rdb
			ttl := config.GetDuration(cfg.Chatbot.CatalogCacheTTL)
			storeOpts = append(storeOpts, store.WithCatalog(store.NewRedisCatalog(rdb, ttl, log)))
		}
	}
	a.Store = store.New(client.DB, schema, log, storeOpts...)

	attempts := opts.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}
	err = RetryWithBackoff(ctx, func() error {
		count, err := a.Store.Ping(ctx)
		if err == nil {
			log.Info("data store reachable", map[string]interface{}{
				"driver": driver,
				"cows":   count,
			})
		}
		return err
	}, attempts, opts.ConnectDelay, log, fmt.Sprintf("%s connection", driver))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Chatbot = chatbot.New(chatbot.Config{
		QueryTimeout: config.GetDuration(cfg.Chatbot.QueryTimeout),
		Markdown:     cfg.Chatbot.Markdown,
	}, querybuilder.NewBuilder(dialect, schema), a.Store, log, opts.ChatbotOptions...)
	return a, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// connectRedis returns nil when the cache is unreachable; the catalog then
// reads straight from the store.
func connectRedis(ctx context.Context, cfg config.RedisConfig, log logger.Logger) *redis.Client {
	rdb := database.NewRedis(cfg)
	if err := database.PingRedis(ctx, rdb); err != nil {
		log.Warn("catalog cache disabled", map[string]interface{}{
			"address": cfg.Address,
			"error":   err.Error(),
		})
		rdb.Close()
		return nil
	}
	return rdb
}

// RetryWithBackoff runs operation up to maxRetries times, doubling the delay
// after each failure.
func RetryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%s cancelled: %w", operationName, ctx.Err())
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
