// internal/chatbot/response/health.go
package response

import "fmt"

const (
	HighTemperatureThreshold = 39.5
	LowTemperatureThreshold  = 38.0
)

// AssessHealth returns the alert flags for a body temperature reading.
// A zero or missing temperature means no reading and raises nothing.
func AssessHealth(temperature *float64) []string {
	if temperature == nil {
		return nil
	}

	t := *temperature
	var flags []string
	switch {
	case t > HighTemperatureThreshold:
		flags = append(flags, fmt.Sprintf("high temperature (%s)", celsius(t)))
	case t < LowTemperatureThreshold && t > 0:
		flags = append(flags, fmt.Sprintf("low temperature (%s)", celsius(t)))
	}
	return flags
}
