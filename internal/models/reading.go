// internal/models/reading.go
package models

// Reading is one sensor/inference row joined with the cow's display name.
// Any projected column can be NULL, so every field is optional.
type Reading struct {
	DeviceID          *string  `json:"deviceId,omitempty"`
	CowName           *string  `json:"cowName,omitempty"`
	Timestamp         *string  `json:"timestamp,omitempty"`
	PredictedBehavior *string  `json:"predictedBehavior,omitempty"`
	Confidence        *float64 `json:"confidence,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	LocationLat       *float64 `json:"locationLat,omitempty"`
	LocationLng       *float64 `json:"locationLng,omitempty"`
	ActivityLevel     *float64 `json:"activityLevel,omitempty"`
	AccX              *float64 `json:"accX,omitempty"`
	AccY              *float64 `json:"accY,omitempty"`
	AccZ              *float64 `json:"accZ,omitempty"`
}

// Entity maps a device id to the cow's display name.
type Entity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// StringPtr and FloatPtr build optional fields for fixtures and scanners.
func StringPtr(s string) *string { return &s }

func FloatPtr(f float64) *float64 { return &f }
