// internal/chatbot/intent/extractor_test.go
package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cattle-chatbot/internal/models"
)

// ==========================
// Entity Extraction Tests
// ==========================

func TestExtractor_EntityID(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected *string
	}{
		{name: "hyphenated", text: "What is the temperature of cow-7?", expected: models.StringPtr("cow-7")},
		{name: "underscore", text: "temperature of cow_7 please", expected: models.StringPtr("cow-7")},
		{name: "no separator", text: "cow7 temperature", expected: models.StringPtr("cow-7")},
		{name: "upper case", text: "Where is COW-101", expected: models.StringPtr("cow-101")},
		{name: "first match wins", text: "compare cow-3 with cow-4", expected: models.StringPtr("cow-3")},
		{name: "space is not a separator", text: "where is cow 7", expected: nil},
		{name: "no id at all", text: "where is bessie", expected: nil},
		{name: "empty text", text: "", expected: nil},
	}

	e := NewExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.text)
			if tt.expected == nil {
				assert.Nil(t, got.EntityID)
				assert.False(t, got.HasEntity())
				return
			}
			require.NotNil(t, got.EntityID)
			assert.Equal(t, *tt.expected, *got.EntityID)
		})
	}
}

// ==========================
// Metric Table Tests
// ==========================

func TestExtractor_Metric(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected models.Metric
	}{
		{"temperature keyword", "What is the temperature of cow-101?", models.MetricTemperature},
		{"fever keyword", "does cow-2 have a fever", models.MetricTemperature},
		{"behaviour british spelling", "behaviour of cow-2", models.MetricBehavior},
		{"location keyword", "Where is cow-12", models.MetricLocation},
		{"accelerometer keyword", "show accz for cow-1", models.MetricAccelerometer},
		{"health keyword", "Is cow-102 healthy?", models.MetricHealth},
		{"no keyword", "tell me about cow-5", models.MetricGeneral},
		{"temperature beats behavior", "is cow-3 hot while grazing", models.MetricTemperature},
		{"behavior beats location", "what is cow-3 doing at that place", models.MetricBehavior},
		{"location beats accelerometer", "movement and position of cow-4", models.MetricLocation},
		{"accelerometer beats health", "movement of cow-4 and its health", models.MetricAccelerometer},
	}

	e := NewExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, e.Extract(tt.text).Metric)
		})
	}
}

// ==========================
// Time Window Table Tests
// ==========================

func TestExtractor_TimeWindow(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected models.TimeWindow
	}{
		{"default", "temperature of cow-1", models.TimeWindowCurrent},
		{"latest", "latest temperature of cow-1", models.TimeWindowCurrent},
		{"today aliases current", "temperature of cow-1 today", models.TimeWindowCurrent},
		{"yesterday", "Where was cow-12 yesterday?", models.TimeWindowYesterday},
		{"last hour", "temperature of cow-1 in the last hour", models.TimeWindowLastHour},
		{"past hour", "behavior of cow-1 over the past hour", models.TimeWindowLastHour},
		{"last week", "location of cow-1 last week", models.TimeWindowLastWeek},
		{"past week", "past week behaviour of cow-9", models.TimeWindowLastWeek},
		{"current beats yesterday", "latest reading from yesterday for cow-1", models.TimeWindowCurrent},
	}

	e := NewExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, e.Extract(tt.text).TimeWindow)
		})
	}
}

// ==========================
// Scenario Tests
// ==========================

func TestExtractor_TemperatureScenario(t *testing.T) {
	text := "What is the temperature of cow-101?"
	got := NewExtractor().Extract(text)

	require.True(t, got.HasEntity())
	assert.Equal(t, "cow-101", got.Entity())
	assert.Equal(t, models.MetricTemperature, got.Metric)
	assert.Equal(t, models.TimeWindowCurrent, got.TimeWindow)
	assert.Equal(t, text, got.RawText)
}

func TestExtractor_IsDeterministic(t *testing.T) {
	e := NewExtractor()
	text := "Is cow_42 sick since last week?"
	assert.Equal(t, e.Extract(text), e.Extract(text))
}

func BenchmarkExtractor_Extract(b *testing.B) {
	e := NewExtractor()
	for i := 0; i < b.N; i++ {
		e.Extract("What was the temperature of cow-101 in the past hour?")
	}
}
