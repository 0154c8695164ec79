package app

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cattle-chatbot/internal/common/config"
	"cattle-chatbot/internal/common/logger"
	"cattle-chatbot/internal/store/storetest"
)

func sqliteConfig(path string) *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{
			Driver: "sqlite3",
			SQLite: config.SQLiteConfig{Path: path},
			Schema: config.SchemaConfig{ReadingsTable: "cattle_inference", EntitiesTable: "cattle_devices"},
		},
		Chatbot: config.ChatbotConfig{QueryTimeout: 2000, CatalogCacheTTL: 60000},
	}
}

// ==========================
// Assembly Tests
// ==========================

func TestNew_SQLite(t *testing.T) {
	a, err := New(context.Background(), sqliteConfig(storetest.NewFile(t)), logger.NewTestLogger(t), Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Redis)
	assert.Equal(t, "🌡️ Bessie currently has a temperature of 38.7°C",
		a.Chatbot.Handle(context.Background(), "What's the temperature of cow_101?"))
}

func TestNew_RedisCatalog(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := sqliteConfig(storetest.NewFile(t))
	cfg.Database.Redis = config.RedisConfig{Enabled: true, Address: mr.Addr()}

	a, err := New(context.Background(), cfg, logger.NewTestLogger(t), Options{})
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Redis)
	cows, err := a.Chatbot.Catalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, cows, 3)
	assert.True(t, mr.Exists("chatbot:catalog:cattle_devices"))
}

func TestNew_RedisUnreachableDisablesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := sqliteConfig(storetest.NewFile(t))
	cfg.Database.Redis = config.RedisConfig{Enabled: true, Address: addr}

	a, err := New(context.Background(), cfg, logger.NewTestLogger(t), Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Redis)
	cows, err := a.Chatbot.Catalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, cows, 3)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unsupported driver", func(c *config.Config) { c.Database.Driver = "oracle" }},
		{"hostile table name", func(c *config.Config) { c.Database.Schema.ReadingsTable = "readings; DROP TABLE x" }},
		{"missing tables", func(c *config.Config) { c.Database.SQLite.Path = filepath.Join(t.TempDir(), "empty.db") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := sqliteConfig(storetest.NewFile(t))
			tt.mutate(cfg)

			_, err := New(context.Background(), cfg, logger.NewTestLogger(t), Options{
				ConnectAttempts: 2,
				ConnectDelay:    time.Millisecond,
			})
			assert.Error(t, err)
		})
	}
}

// ==========================
// Retry Tests
// ==========================

func TestRetryWithBackoff(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return stderrors.New("connection refused")
		}
		return nil
	}, 5, time.Millisecond, logger.NewTestLogger(t), "sqlite connection")

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_GivesUp(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), func() error {
		calls++
		return stderrors.New("connection refused")
	}, 3, time.Millisecond, logger.NewTestLogger(t), "sqlite connection")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		return stderrors.New("connection refused")
	}, 5, time.Hour, logger.NewTestLogger(t), "sqlite connection")

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
