// internal/chatbot/response/renderer.go
package response

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"cattle-chatbot/internal/models"
)

const (
	ErrorMessage  = "🔧 Something went wrong. Please try again."
	noDataMessage = "❌ Sorry, I couldn't find data for that cow. Available cows: %s"
	noneFound     = "None found"

	unknownLabel = "Unknown"
	notAvailable = "N/A"
)

type Options struct {
	// Markdown wraps names and headline values in **bold** markers.
	Markdown bool
}

// Renderer turns the freshest row of a result into one sentence.
type Renderer struct {
	markdown bool
}

func NewRenderer(opts Options) *Renderer {
	return &Renderer{markdown: opts.Markdown}
}

// Render always returns a non-empty string. Only the first row is used.
func (r *Renderer) Render(intent models.Intent, rows []models.Reading, catalog []models.Entity) (out string) {
	defer func() {
		if rec := recover(); rec != nil || out == "" {
			out = ErrorMessage
		}
	}()

	if len(rows) == 0 {
		return NoData(catalog)
	}

	row := rows[0]
	name := r.em(textOr(row.CowName, unknownLabel))

	switch intent.Metric {
	case models.MetricTemperature:
		return fmt.Sprintf("🌡️ %s currently has a temperature of %s", name, r.em(temperatureText(row.Temperature)))

	case models.MetricBehavior:
		return fmt.Sprintf("🐄 %s is currently %s (confidence: %s)",
			name, r.em(textOr(row.PredictedBehavior, unknownLabel)), percent(row.Confidence))

	case models.MetricLocation:
		coords := fmt.Sprintf("(%.4f, %.4f)", floatOr(row.LocationLat), floatOr(row.LocationLng))
		return fmt.Sprintf("📍 %s is at coordinates %s", name, r.em(coords))

	case models.MetricAccelerometer:
		return fmt.Sprintf("📊 %s accelerometer: X=%.3fg, Y=%.3fg, Z=%.3fg",
			name, floatOr(row.AccX), floatOr(row.AccY), floatOr(row.AccZ))

	case models.MetricHealth:
		if flags := AssessHealth(row.Temperature); len(flags) > 0 {
			return fmt.Sprintf("⚠️ %s health alert: %s", name, strings.Join(flags, ", "))
		}
		return fmt.Sprintf("✅ %s appears healthy (temp: %s)", name, temperatureText(row.Temperature))

	default:
		return fmt.Sprintf("📊 %s: %s, %s, Activity: %s",
			name, textOr(row.PredictedBehavior, unknownLabel), temperatureText(row.Temperature), percent(row.ActivityLevel))
	}
}

// NoData lists the known cow ids for an empty result.
func NoData(catalog []models.Entity) string {
	if len(catalog) == 0 {
		return fmt.Sprintf(noDataMessage, noneFound)
	}
	ids := make([]string, len(catalog))
	for i, e := range catalog {
		ids[i] = e.ID
	}
	return fmt.Sprintf(noDataMessage, strings.Join(ids, ", "))
}

func (r *Renderer) em(s string) string {
	if r.markdown {
		return "**" + s + "**"
	}
	return s
}

func textOr(p *string, fallback string) string {
	if p == nil || *p == "" {
		return fallback
	}
	return *p
}

func floatOr(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// celsius prints the stored value as-is, without rounding. Whole numbers
// keep one decimal so 39.0 reads as 39.0°C.
func celsius(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !math.IsNaN(v) && !math.IsInf(v, 0) && !strings.Contains(s, ".") {
		s += ".0"
	}
	return s + "°C"
}

func temperatureText(p *float64) string {
	if p == nil {
		return notAvailable
	}
	return celsius(*p)
}

func percent(p *float64) string {
	return fmt.Sprintf("%.1f%%", floatOr(p)*100)
}
