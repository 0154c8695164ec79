package database

import (
	"context"

	"cattle-chatbot/internal/common/config"
	apperrors "cattle-chatbot/internal/common/errors"
)

const (
	DriverPostgres   = "postgres"
	DriverSQLite     = "sqlite"
	DriverClickHouse = "clickhouse"
)

// NormalizeDriver folds driver aliases onto the names above.
func NormalizeDriver(driver string) string {
	switch driver {
	case "postgres", "postgresql", "pq":
		return DriverPostgres
	case "sqlite", "sqlite3":
		return DriverSQLite
	case "clickhouse", "ch":
		return DriverClickHouse
	}
	return driver
}

// Open connects to the engine named by cfg.Driver. The handle is not pinged;
// callers check reachability with Ping so startup can retry.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*SQLClient, error) {
	switch NormalizeDriver(cfg.Driver) {
	case DriverPostgres:
		c, err := NewPostgres(cfg.Postgres)
		if err != nil {
			return nil, apperrors.NewDatabaseConnectionFailedError(err)
		}
		return c, nil
	case DriverSQLite:
		c, err := NewSQLite(ctx, cfg.SQLite)
		if err != nil {
			return nil, apperrors.NewDatabaseConnectionFailedError(err)
		}
		return c, nil
	case DriverClickHouse:
		return NewClickHouse(cfg.ClickHouse), nil
	}
	return nil, apperrors.NewUnsupportedDatabaseDriverError(cfg.Driver)
}
