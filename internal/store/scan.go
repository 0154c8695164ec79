package store

import (
	"database/sql"
	"fmt"
	"time"

	"cattle-chatbot/internal/models"
)

const timestampLayout = "2006-01-02 15:04:05"

// timestampText accepts the engine-specific timestamp representations:
// time.Time from postgres and clickhouse, TEXT from sqlite.
type timestampText struct {
	Value string
	Valid bool
}

func (t *timestampText) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		t.Value, t.Valid = "", false
	case time.Time:
		t.Value, t.Valid = v.UTC().Format(timestampLayout), true
	case string:
		t.Value, t.Valid = v, true
	case []byte:
		t.Value, t.Valid = string(v), true
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanReading reads one row in projection order. Every column may be NULL.
func scanReading(row scanner) (models.Reading, error) {
	var (
		deviceID, cowName, behavior sql.NullString
		ts                          timestampText
		confidence, temperature     sql.NullFloat64
		lat, lng, activity          sql.NullFloat64
		accX, accY, accZ            sql.NullFloat64
	)

	if err := row.Scan(
		&deviceID, &cowName, &ts,
		&behavior, &confidence, &temperature,
		&lat, &lng, &activity,
		&accX, &accY, &accZ,
	); err != nil {
		return models.Reading{}, err
	}

	r := models.Reading{
		DeviceID:          nullString(deviceID),
		CowName:           nullString(cowName),
		PredictedBehavior: nullString(behavior),
		Confidence:        nullFloat(confidence),
		Temperature:       nullFloat(temperature),
		LocationLat:       nullFloat(lat),
		LocationLng:       nullFloat(lng),
		ActivityLevel:     nullFloat(activity),
		AccX:              nullFloat(accX),
		AccY:              nullFloat(accY),
		AccZ:              nullFloat(accZ),
	}
	if ts.Valid {
		r.Timestamp = models.StringPtr(ts.Value)
	}
	return r, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return models.StringPtr(ns.String)
}

func nullFloat(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	return models.FloatPtr(nf.Float64)
}
