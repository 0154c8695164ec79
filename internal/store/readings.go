// Package store implements the chatbot's read-only DataStore over
// database/sql, with an optional Redis cache in front of the cow list.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cattle-chatbot/internal/chatbot/querybuilder"
	apperrors "cattle-chatbot/internal/common/errors"
	"cattle-chatbot/internal/common/logger"
	"cattle-chatbot/internal/common/metrics"
	"cattle-chatbot/internal/models"
)

const (
	opReadings = "readings"
	opEntities = "entities"
	opCount    = "count_entities"
)

// Catalog caches the entity list.
type Catalog interface {
	Get(ctx context.Context, key string) ([]models.Entity, bool)
	Set(ctx context.Context, key string, entities []models.Entity)
	Invalidate(ctx context.Context, key string) error
}

// SQLStore runs compiled QuerySpecs against a pooled *sql.DB.
type SQLStore struct {
	db      *sql.DB
	schema  querybuilder.Schema
	catalog Catalog
	logger  logger.Logger
}

type Option func(*SQLStore)

// WithCatalog puts a cache in front of ListKnownEntities.
func WithCatalog(c Catalog) Option {
	return func(s *SQLStore) { s.catalog = c }
}

func New(db *sql.DB, schema querybuilder.Schema, log logger.Logger, opts ...Option) *SQLStore {
	s := &SQLStore{
		db:     db,
		schema: schema,
		logger: log.WithFields(map[string]interface{}{"component": "store"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunReadOnlyQuery executes spec.Statement with its bound arguments.
func (s *SQLStore) RunReadOnlyQuery(ctx context.Context, spec models.QuerySpec) ([]models.Reading, error) {
	start := time.Now()
	defer observe(opReadings, start)

	rows, err := s.db.QueryContext(ctx, spec.Statement, spec.Args()...)
	if err != nil {
		return nil, classify(ctx, opReadings, err)
	}
	defer rows.Close()

	readings := make([]models.Reading, 0, spec.Limit)
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError(opReadings, err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(ctx, opReadings, err)
	}

	s.logger.Debug("readings fetched", map[string]interface{}{
		"rows":     len(readings),
		"duration": time.Since(start).Milliseconds(),
	})
	return readings, nil
}

// ListKnownEntities returns every registered cow ordered by id.
func (s *SQLStore) ListKnownEntities(ctx context.Context) ([]models.Entity, error) {
	key := s.catalogKey()
	if s.catalog != nil {
		if cached, ok := s.catalog.Get(ctx, key); ok {
			return cached, nil
		}
	}

	entities, err := s.queryEntities(ctx)
	if err != nil {
		return nil, err
	}

	if s.catalog != nil {
		s.catalog.Set(ctx, key, entities)
	}
	return entities, nil
}

// RefreshCatalog drops the cached cow list and reloads it.
func (s *SQLStore) RefreshCatalog(ctx context.Context) ([]models.Entity, error) {
	if s.catalog != nil {
		if err := s.catalog.Invalidate(ctx, s.catalogKey()); err != nil {
			s.logger.Warn("catalog invalidation failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return s.ListKnownEntities(ctx)
}

func (s *SQLStore) queryEntities(ctx context.Context) ([]models.Entity, error) {
	start := time.Now()
	defer observe(opEntities, start)

	query := fmt.Sprintf("SELECT device_id, cow_name FROM %s ORDER BY device_id", s.schema.EntitiesTable)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewCatalogLookupFailedError(classify(ctx, opEntities, err))
	}
	defer rows.Close()

	var entities []models.Entity
	for rows.Next() {
		var id string
		var name sql.NullString
		if err := rows.Scan(&id, &name); err != nil {
			return nil, apperrors.NewCatalogLookupFailedError(err)
		}
		entities = append(entities, models.Entity{ID: id, DisplayName: name.String})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewCatalogLookupFailedError(err)
	}
	return entities, nil
}

// Ping checks that the store is reachable and the entities table answers.
// It returns the number of registered cows.
func (s *SQLStore) Ping(ctx context.Context) (int, error) {
	start := time.Now()
	defer observe(opCount, start)

	if err := s.db.PingContext(ctx); err != nil {
		return 0, apperrors.NewDatabaseConnectionFailedError(err)
	}

	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.schema.EntitiesTable)
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, classify(ctx, opCount, err)
	}
	return count, nil
}

func (s *SQLStore) catalogKey() string {
	return "chatbot:catalog:" + s.schema.EntitiesTable
}

func observe(operation string, start time.Time) {
	metrics.DataStoreQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func classify(ctx context.Context, operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewQueryTimeoutError(operation, err)
	}
	return apperrors.NewQueryExecutionFailedError(operation, err)
}
