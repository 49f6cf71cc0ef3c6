package camera

import (
	"context"
	"time"

	"github.com/alpenglow-labs/ridgecam/internal/astro"
	"github.com/alpenglow-labs/ridgecam/internal/light"
)

// MeteringSensor adapts the device metering endpoint to the light.Sensor
// capability, classifying the reading with the sun's elevation at the site.
type MeteringSensor struct {
	client   *Client
	lat, lon float64
}

// NewMeteringSensor creates a sensor backed by the device's /meter endpoint.
func NewMeteringSensor(client *Client, lat, lon float64) *MeteringSensor {
	return &MeteringSensor{client: client, lat: lat, lon: lon}
}

// Sample implements light.Sensor.
func (s *MeteringSensor) Sample(ctx context.Context) (light.Sample, error) {
	reading, err := s.client.Meter(ctx)
	if err != nil {
		return light.Sample{}, err
	}

	ts := reading.MeasuredAt
	if ts.IsZero() {
		ts = time.Now()
	}
	elev := astro.Elevation(ts, s.lat, s.lon)

	return light.Sample{
		Timestamp:  ts,
		Lux:        reading.Lux,
		GoldenHour: astro.IsGoldenHour(elev),
		BlueHour:   astro.IsBlueHour(elev),
	}, nil
}

// Name implements light.Sensor.
func (s *MeteringSensor) Name() string {
	return "camera-metering"
}

var _ light.Sensor = (*MeteringSensor)(nil)
