// Package camera talks to the physical capture device over HTTP and tracks
// its health.
package camera

import "time"

// Settings is the full parameter set sent to the device for one capture.
type Settings struct {
	// ISO sensitivity
	ISO int `json:"iso"`
	// ShutterSpeed in seconds
	ShutterSpeed float64 `json:"shutter_speed"`
	// ExposureComp in EV stops
	ExposureComp float64 `json:"exposure_comp"`
	// AWBMode selects the white balance mode (auto, daylight, manual)
	AWBMode string `json:"awb_mode"`
	// WBTempK is the manual white balance temperature in Kelvin
	WBTempK int `json:"wb_temp_k"`
	// HDRMode selects the HDR capture mode (off, auto, bracket)
	HDRMode string `json:"hdr_mode"`
	// BracketCount is the number of bracketed exposures when HDRMode is bracket
	BracketCount int `json:"bracket_count"`
	// AFMode selects the autofocus mode (auto, manual, continuous)
	AFMode string `json:"af_mode"`
	// LensPosition is the manual focus position in diopters
	LensPosition float64 `json:"lens_position"`
	// Sharpness, Contrast, Saturation are image tuning values
	Sharpness  float64 `json:"sharpness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
}

// CaptureRequest is the payload for POST /capture.
type CaptureRequest struct {
	// ProfileID names the capture profile this request belongs to
	ProfileID string `json:"profile_id"`
	// Schedule names the triggering schedule, for device-side tagging
	Schedule string `json:"schedule,omitempty"`
	Settings
}

// CaptureResult is the metadata the device returns on success.
type CaptureResult struct {
	// ImageID is the device-assigned identifier of the stored frame
	ImageID string `json:"image_id"`
	// CapturedAt is the device-side capture timestamp
	CapturedAt time.Time `json:"captured_at"`
	// ExposureUs is the actual exposure the device used, microseconds
	ExposureUs int64 `json:"exposure_us,omitempty"`
}

// MeterReading is the response of the device metering endpoint.
type MeterReading struct {
	// Lux is the measured scene illuminance
	Lux float64 `json:"lux"`
	// MeasuredAt is the device-side timestamp
	MeasuredAt time.Time `json:"measured_at"`
}

// FocusResult is the response of the device refocus endpoint.
type FocusResult struct {
	// LensPosition the autofocus pass settled on, in diopters
	LensPosition float64 `json:"lens_position"`
	// DurationMs is how long the focus sweep took
	DurationMs int64 `json:"duration_ms,omitempty"`
}
