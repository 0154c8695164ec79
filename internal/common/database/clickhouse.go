package database

import (
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"cattle-chatbot/internal/common/config"
)

// NewClickHouse opens a database/sql handle over the native protocol so the
// same scanning code serves every engine.
func NewClickHouse(cfg config.ClickHouseConfig) *SQLClient {
	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr: cfg.Addresses,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": cfg.MaxExecutionS,
		},
		DialTimeout: config.GetDuration(cfg.DialTimeout),
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(time.Hour)

	return &SQLClient{DB: db, Driver: DriverClickHouse}
}
