package light

import (
	"context"
	"math"
	"time"

	"github.com/alpenglow-labs/ridgecam/internal/astro"
)

// SimulatedSensor derives a deterministic diurnal lux curve from the sun's
// elevation at the site. It stands in for real metering hardware during
// development and in the camera simulator.
type SimulatedSensor struct {
	lat, lon float64
	now      func() time.Time
}

// NewSimulatedSensor creates a simulated sensor for a site. now may be nil,
// in which case time.Now is used; tests inject a fixed clock.
func NewSimulatedSensor(lat, lon float64, now func() time.Time) *SimulatedSensor {
	if now == nil {
		now = time.Now
	}
	return &SimulatedSensor{lat: lat, lon: lon, now: now}
}

// Sample implements Sensor.
func (s *SimulatedSensor) Sample(ctx context.Context) (Sample, error) {
	t := s.now()
	elev := astro.Elevation(t, s.lat, s.lon)

	return Sample{
		Timestamp:  t,
		Lux:        luxFromElevation(elev),
		GoldenHour: astro.IsGoldenHour(elev),
		BlueHour:   astro.IsBlueHour(elev),
	}, nil
}

// Name implements Sensor.
func (s *SimulatedSensor) Name() string {
	return "simulated"
}

// luxFromElevation maps solar elevation to an approximate illuminance.
// Night ~1 lx, civil twilight climbing to ~80 lx at the horizon, then a
// sine-law rise toward ~100k lx at high sun.
func luxFromElevation(elev float64) float64 {
	switch {
	case elev <= -6:
		return 1
	case elev < 0:
		return 1 + (elev+6)/6*79
	default:
		return 80 + 100000*math.Sin(elev*math.Pi/180)
	}
}

var _ Sensor = (*SimulatedSensor)(nil)
