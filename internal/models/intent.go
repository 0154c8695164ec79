// internal/models/intent.go
package models

// Metric is the facet of a reading a question asks about.
type Metric string

const (
	MetricTemperature   Metric = "temperature"
	MetricBehavior      Metric = "behavior"
	MetricLocation      Metric = "location"
	MetricAccelerometer Metric = "accelerometer"
	MetricHealth        Metric = "health"
	MetricGeneral       Metric = "general"
)

// TimeWindow is the temporal scope of a question.
type TimeWindow string

const (
	TimeWindowCurrent   TimeWindow = "current"
	TimeWindowToday     TimeWindow = "today"
	TimeWindowYesterday TimeWindow = "yesterday"
	TimeWindowLastHour  TimeWindow = "last_hour"
	TimeWindowLastWeek  TimeWindow = "last_week"
)

// ParseTimeWindow maps an override value onto a TimeWindow.
// The second return is false for unknown values.
func ParseTimeWindow(s string) (TimeWindow, bool) {
	switch tw := TimeWindow(s); tw {
	case TimeWindowCurrent, TimeWindowToday, TimeWindowYesterday, TimeWindowLastHour, TimeWindowLastWeek:
		return tw, true
	}
	return "", false
}

// Intent is the structured reading of one utterance.
type Intent struct {
	EntityID   *string    `json:"entityId"`
	Metric     Metric     `json:"metric"`
	TimeWindow TimeWindow `json:"timeWindow"`
	RawText    string     `json:"rawText"`
}

// HasEntity reports whether a cow id was recognised.
func (i Intent) HasEntity() bool {
	return i.EntityID != nil && *i.EntityID != ""
}

// Entity returns the cow id or "" when absent.
func (i Intent) Entity() string {
	if i.EntityID == nil {
		return ""
	}
	return *i.EntityID
}
