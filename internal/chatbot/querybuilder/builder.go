// internal/chatbot/querybuilder/builder.go
package querybuilder

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"cattle-chatbot/internal/models"
)

// RowLimit caps every generated statement.
const RowLimit = 10

// timeNow can be swapped in tests to pin the bound window edges.
var timeNow = time.Now

var (
	ErrInvalidSchema = errors.New("INVALID_SCHEMA")

	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
)

// Schema names the two relations the chatbot reads from.
type Schema struct {
	ReadingsTable string `mapstructure:"readings_table"`
	EntitiesTable string `mapstructure:"entities_table"`
}

// DefaultSchema matches the cattle monitoring database.
var DefaultSchema = Schema{
	ReadingsTable: "cattle_inference",
	EntitiesTable: "cattle_devices",
}

// Validate rejects table names that are not plain identifiers, since
// they are the only part of a statement not passed as a bound value.
func (s Schema) Validate() error {
	for _, name := range []string{s.ReadingsTable, s.EntitiesTable} {
		if !identPattern.MatchString(name) {
			return fmt.Errorf("%w: table name %q", ErrInvalidSchema, name)
		}
	}
	return nil
}

var projection = []string{
	"ci.device_id", "cd.cow_name", "ci.timestamp",
	"ci.predicted_behavior", "ci.confidence", "ci.temperature",
	"ci.location_lat", "ci.location_lng", "ci.activity_level",
	"ci.AccX", "ci.AccY", "ci.AccZ",
}

// Builder compiles intents into parameterized statements for one dialect.
type Builder struct {
	dialect Dialect
	schema  Schema
}

func NewBuilder(dialect Dialect, schema Schema) *Builder {
	return &Builder{dialect: dialect, schema: schema}
}

func (b *Builder) Dialect() Dialect { return b.dialect }

func (b *Builder) Schema() Schema { return b.schema }

// predicateList accumulates WHERE clauses written with "?" and renumbers
// them into the dialect's placeholder style as they are added.
type predicateList struct {
	dialect Dialect
	next    int
	items   []models.Predicate
}

func (pl *predicateList) add(kind models.PredicateKind, clause string, args ...interface{}) {
	var sb strings.Builder
	for _, r := range clause {
		if r == '?' {
			pl.next++
			sb.WriteString(pl.dialect.Placeholder(pl.next))
			continue
		}
		sb.WriteRune(r)
	}
	pl.items = append(pl.items, models.Predicate{Kind: kind, Clause: sb.String(), Args: args})
}

// Build never fails. The only inputs that vary between calls with the same
// intent are the bound "now"-relative values.
func (b *Builder) Build(intent models.Intent) models.QuerySpec {
	pl := &predicateList{dialect: b.dialect}

	if intent.HasEntity() {
		pl.add(models.PredicateEntity, "ci.device_id = ?", intent.Entity())
	}
	b.addTimePredicate(pl, intent.TimeWindow)

	spec := models.QuerySpec{
		Projection: append([]string(nil), projection...),
		From: fmt.Sprintf("%s ci LEFT JOIN %s cd ON ci.device_id = cd.device_id",
			b.schema.ReadingsTable, b.schema.EntitiesTable),
		Predicates: pl.items,
		OrderBy:    "ci.timestamp DESC",
		Limit:      RowLimit,
	}
	spec.Statement = render(spec)
	return spec
}

func (b *Builder) addTimePredicate(pl *predicateList, window models.TimeWindow) {
	now := timeNow()
	switch window {
	case models.TimeWindowToday:
		pl.add(models.PredicateTime, b.dialect.DayEquals(), b.dialect.BindDate(now))
	case models.TimeWindowYesterday:
		pl.add(models.PredicateTime, b.dialect.DayEquals(), b.dialect.BindDate(now.AddDate(0, 0, -1)))
	case models.TimeWindowLastHour:
		pl.add(models.PredicateTime, "ci.timestamp >= ?", b.dialect.BindTime(now.Add(-time.Hour)))
	case models.TimeWindowLastWeek:
		pl.add(models.PredicateTime, "ci.timestamp >= ?", b.dialect.BindTime(now.AddDate(0, 0, -7)))
	default:
		pl.add(models.PredicateTime, b.dialect.LatestPerEntity(b.schema))
	}
}

func render(spec models.QuerySpec) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(spec.Projection, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(spec.From)
	if where := spec.Where(); where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	fmt.Fprintf(&sb, " ORDER BY %s LIMIT %d", spec.OrderBy, spec.Limit)
	return sb.String()
}
