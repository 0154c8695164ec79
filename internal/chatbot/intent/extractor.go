// internal/chatbot/intent/extractor.go
package intent

import (
	"regexp"
	"strings"

	"cattle-chatbot/internal/models"
)

var cowPattern = regexp.MustCompile(`cow[_-]?(\d+)`)

type metricRule struct {
	metric   models.Metric
	keywords []string
}

type windowRule struct {
	window   models.TimeWindow
	keywords []string
}

// Evaluated top to bottom; the first rule with a matching keyword wins.
var metricTable = []metricRule{
	{models.MetricTemperature, []string{"temperature", "temp", "fever", "hot", "cold"}},
	{models.MetricBehavior, []string{"behavior", "behaviour", "activity", "doing", "grazing", "walking", "resting"}},
	{models.MetricLocation, []string{"location", "where", "position", "place"}},
	{models.MetricAccelerometer, []string{"accelerometer", "accx", "accy", "accz", "acceleration", "movement"}},
	{models.MetricHealth, []string{"health", "healthy", "sick", "wellness", "fine", "okay"}},
}

// "today" resolves to the current window here; the calendar-day window is
// only reachable through an explicit override.
var windowTable = []windowRule{
	{models.TimeWindowCurrent, []string{"current", "now", "present", "latest", "today"}},
	{models.TimeWindowYesterday, []string{"yesterday"}},
	{models.TimeWindowLastHour, []string{"last hour", "past hour"}},
	{models.TimeWindowLastWeek, []string{"last week", "past week"}},
}

// Extractor turns free text into an Intent using keyword tables.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract never fails: unmatched parts fall back to general/current.
func (e *Extractor) Extract(text string) models.Intent {
	lower := strings.ToLower(text)
	return models.Intent{
		EntityID:   extractEntityID(lower),
		Metric:     extractMetric(lower),
		TimeWindow: extractTimeWindow(lower),
		RawText:    text,
	}
}

func extractEntityID(lower string) *string {
	m := cowPattern.FindStringSubmatch(lower)
	if m == nil {
		return nil
	}
	id := "cow-" + m[1]
	return &id
}

func extractMetric(lower string) models.Metric {
	for _, rule := range metricTable {
		if containsAny(lower, rule.keywords) {
			return rule.metric
		}
	}
	return models.MetricGeneral
}

func extractTimeWindow(lower string) models.TimeWindow {
	for _, rule := range windowTable {
		if containsAny(lower, rule.keywords) {
			return rule.window
		}
	}
	return models.TimeWindowCurrent
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
