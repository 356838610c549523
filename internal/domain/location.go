package domain

import "time"

// CourierLocation is a single timestamped location sample for a courier.
// Samples are append-only; matching only ever reads the most recent sample
// inside the freshness window.
type CourierLocation struct {
	CourierID  string
	Lat        float64
	Lng        float64
	SpeedKmh   float64 // 0 when not reported
	Heading    float64 // degrees, 0 when not reported
	RecordedAt time.Time
}
