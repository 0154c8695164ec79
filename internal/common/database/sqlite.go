package database

import (
	"context"
	"database/sql"
	"fmt"

	"cattle-chatbot/internal/common/config"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLite opens the SQLite file written by the inference pipeline.
// WAL lets the chatbot read while new readings are being inserted.
func NewSQLite(ctx context.Context, cfg config.SQLiteConfig) (*SQLClient, error) {
	db, err := sql.Open("sqlite3", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{"PRAGMA busy_timeout = 5000"}
	if !cfg.ReadOnly {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	// The in-memory shared cache disappears with its last connection.
	if cfg.Path == ":memory:" {
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	return &SQLClient{DB: db, Driver: DriverSQLite}, nil
}
