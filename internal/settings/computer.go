package settings

import (
	"context"

	"github.com/alpenglow-labs/ridgecam/internal/camera"
	"github.com/alpenglow-labs/ridgecam/internal/light"
)

// Focuser is the slice of the camera client the cache needs for refocusing.
type Focuser interface {
	Refocus(ctx context.Context) (*camera.FocusResult, error)
}

// DeviceComputer implements Computer against the real capture device:
// metering through the device's light sensor, focusing through its
// autofocus endpoint.
type DeviceComputer struct {
	sensor  light.Sensor
	focuser Focuser
}

// NewDeviceComputer wires the device-backed computer.
func NewDeviceComputer(sensor light.Sensor, focuser Focuser) *DeviceComputer {
	return &DeviceComputer{sensor: sensor, focuser: focuser}
}

// Meter implements Computer.
func (dc *DeviceComputer) Meter(ctx context.Context) (light.Sample, error) {
	return dc.sensor.Sample(ctx)
}

// Refocus implements Computer.
func (dc *DeviceComputer) Refocus(ctx context.Context) (float64, error) {
	result, err := dc.focuser.Refocus(ctx)
	if err != nil {
		return 0, err
	}
	return result.LensPosition, nil
}

var _ Computer = (*DeviceComputer)(nil)
