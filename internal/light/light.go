// Package light maintains a rolling estimate of ambient light at the site.
//
// The monitor runs on its own cadence, faster than any capture interval, so
// that settings decisions on the scheduler tick almost never need a fresh
// metering pass. It is the only writer of the current sample; readers get
// atomically swapped snapshots and can never observe a half-written value.
package light

import (
	"context"
	"time"
)

// Sample is one ambient light observation.
type Sample struct {
	// Timestamp when the sample was taken
	Timestamp time.Time `json:"timestamp"`
	// Lux is the estimated ambient illuminance
	Lux float64 `json:"lux"`
	// GoldenHour is true while the sun sits in the golden-hour elevation band
	GoldenHour bool `json:"golden_hour"`
	// BlueHour is true while the sun sits in the blue-hour elevation band
	BlueHour bool `json:"blue_hour"`
}

// Age returns how old the sample is relative to now.
func (s Sample) Age(now time.Time) time.Duration {
	return now.Sub(s.Timestamp)
}

// Sensor is the capability interface the monitor polls. A camera metering
// endpoint and a deterministic test double both implement it.
type Sensor interface {
	// Sample takes one light reading
	Sample(ctx context.Context) (Sample, error)
	// Name identifies the sensor for logging and health reporting
	Name() string
}
