// internal/chatbot/querybuilder/dialect.go
package querybuilder

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var ErrUnsupportedDialect = errors.New("UNSUPPORTED_DATABASE_DRIVER")

// Dialect covers the few places where the supported engines disagree:
// placeholder syntax, the latest-row-per-cow filter, calendar-day
// comparison and how time values are bound.
type Dialect interface {
	Name() string
	Placeholder(n int) string
	LatestPerEntity(s Schema) string
	DayEquals() string
	BindTime(t time.Time) interface{}
	BindDate(t time.Time) interface{}
}

// DialectFor returns the dialect registered for a database driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "postgresql":
		return Postgres{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	case "clickhouse":
		return ClickHouse{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, driver)
}

const dateLayout = "2006-01-02"

func correlatedLatest(s Schema) string {
	return fmt.Sprintf("ci.timestamp = (SELECT MAX(timestamp) FROM %s WHERE device_id = ci.device_id)", s.ReadingsTable)
}

// Postgres uses numbered placeholders and binds time.Time directly.
type Postgres struct{}

func (Postgres) Name() string                     { return "postgres" }
func (Postgres) Placeholder(n int) string         { return "$" + strconv.Itoa(n) }
func (Postgres) LatestPerEntity(s Schema) string  { return correlatedLatest(s) }
func (Postgres) DayEquals() string                { return "CAST(ci.timestamp AS DATE) = ?" }
func (Postgres) BindTime(t time.Time) interface{} { return t.UTC() }
func (Postgres) BindDate(t time.Time) interface{} { return t.UTC().Format(dateLayout) }

// SQLite stores timestamps as text, so bound times are formatted the same way.
type SQLite struct{}

func (SQLite) Name() string                     { return "sqlite" }
func (SQLite) Placeholder(int) string           { return "?" }
func (SQLite) LatestPerEntity(s Schema) string  { return correlatedLatest(s) }
func (SQLite) DayEquals() string                { return "DATE(ci.timestamp) = ?" }
func (SQLite) BindTime(t time.Time) interface{} { return t.UTC().Format("2006-01-02 15:04:05") }
func (SQLite) BindDate(t time.Time) interface{} { return t.UTC().Format(dateLayout) }

// ClickHouse has no correlated subqueries; the latest row per cow is
// selected with a tuple IN over a grouped max.
type ClickHouse struct{}

func (ClickHouse) Name() string           { return "clickhouse" }
func (ClickHouse) Placeholder(int) string { return "?" }
func (ClickHouse) LatestPerEntity(s Schema) string {
	return fmt.Sprintf("(ci.device_id, ci.timestamp) IN (SELECT device_id, max(timestamp) FROM %s GROUP BY device_id)", s.ReadingsTable)
}
func (ClickHouse) DayEquals() string                { return "toDate(ci.timestamp) = ?" }
func (ClickHouse) BindTime(t time.Time) interface{} { return t.UTC() }
func (ClickHouse) BindDate(t time.Time) interface{} { return t.UTC().Format(dateLayout) }
