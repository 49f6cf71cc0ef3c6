package camera

import (
	"errors"
	"fmt"
)

// ErrDeviceUnreachable marks transport-level failures: connection refused,
// DNS, timeout. The scheduler records these and retries on the next tick;
// there is no inline retry.
var ErrDeviceUnreachable = errors.New("camera: device unreachable")

// DeviceError is a non-2xx response from the device.
type DeviceError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *DeviceError) Error() string {
	return fmt.Sprintf("camera: device returned %d: %s", e.StatusCode, e.Body)
}
