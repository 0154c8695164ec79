// Package storetest creates small SQLite herds for tests.
package storetest

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// Schema mirrors the tables written by the inference pipeline.
const Schema = `
CREATE TABLE cattle_devices (
	device_id TEXT PRIMARY KEY,
	cow_name TEXT
);
CREATE TABLE cattle_inference (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	device_id TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	predicted_behavior TEXT,
	confidence REAL,
	temperature REAL,
	location_lat REAL,
	location_lng REAL,
	activity_level REAL,
	AccX REAL,
	AccY REAL,
	AccZ REAL
);`

const timestampLayout = "2006-01-02 15:04:05"

// Reading is one seeded row, aged relative to now.
type Reading struct {
	Device   string
	Age      time.Duration
	Temp     float64
	Behavior string
}

var Cows = map[string]string{
	"cow-101": "Bessie",
	"cow-102": "Daisy",
	"cow-103": "Moobert",
}

// Herd is the default data set: Bessie is fine, Daisy ran a fever
// yesterday and Moobert has not reported for a month.
var Herd = []Reading{
	{"cow-101", 2 * time.Hour, 38.1, "grazing"},
	{"cow-101", 10 * time.Minute, 38.7, "grazing"},
	{"cow-102", 24 * time.Hour, 39.9, "lying"},
	{"cow-102", 3 * 24 * time.Hour, 39.0, "walking"},
	{"cow-103", 30 * 24 * time.Hour, 38.5, "ruminating"},
}

// Seed creates the tables in db and inserts Cows and Herd. Timestamps are
// relative to the real clock since the query builder binds window edges
// from time.Now.
func Seed(t testing.TB, db *sql.DB) {
	t.Helper()

	_, err := db.Exec(Schema)
	require.NoError(t, err)

	for id, name := range Cows {
		_, err := db.Exec(`INSERT INTO cattle_devices (device_id, cow_name) VALUES (?, ?)`, id, name)
		require.NoError(t, err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	insert := `INSERT INTO cattle_inference
		(device_id, timestamp, predicted_behavior, confidence, temperature, location_lat, location_lng, activity_level, AccX, AccY, AccZ)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, r := range Herd {
		_, err := db.Exec(insert, r.Device, now.Add(-r.Age).Format(timestampLayout), r.Behavior, 0.9, r.Temp, 51.5, -0.12, 0.4, 0.1, 0.2, 9.8)
		require.NoError(t, err)
	}
}

// NewFile writes a seeded database under t.TempDir and returns its path.
func NewFile(t testing.TB) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cattle_monitoring.db")
	db, err := sql.Open("sqlite3", "file:"+path)
	require.NoError(t, err)
	defer db.Close()

	Seed(t, db)
	return path
}
