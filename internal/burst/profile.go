// Package burst fans one capture trigger out into a sequence of per-profile
// capture requests against the device.
package burst

import (
	"github.com/alpenglow-labs/ridgecam/internal/camera"
)

// CurveName selects an adaptive adjustment curve.
type CurveName string

const (
	// CurveWarm biases toward warmer rendition / lifted exposure
	CurveWarm CurveName = "warm"
	// CurveBalanced applies moderate adjustment in the transition hours
	CurveBalanced CurveName = "balanced"
	// CurveConservative applies half-strength adjustments
	CurveConservative CurveName = "conservative"
	// CurveAdaptive derives the adjustment fully from the light sample
	CurveAdaptive CurveName = "adaptive"
)

// AdaptiveWB configures white-balance adaptation for a profile.
type AdaptiveWB struct {
	Enabled bool
	Curve   CurveName
}

// AdaptiveEV configures exposure-compensation adaptation for a profile.
type AdaptiveEV struct {
	Enabled bool
	Curve   CurveName
}

// Overrides are the per-profile settings laid over the base settings.
// Nil fields leave the base value untouched.
type Overrides struct {
	ISO          *int
	ShutterSpeed *float64
	AWBMode      *string
	WBTempK      *int
	HDRMode      *string
	BracketCount *int
	AFMode       *string
	LensPosition *float64
	Sharpness    *float64
	Contrast     *float64
	Saturation   *float64
}

// Profile is a named set of parameter overrides and curve selections.
// Config-owned and immutable at runtime; hot reload swaps the whole table.
type Profile struct {
	ID         string
	Name       string
	Enabled    bool
	Base       Overrides
	AdaptiveWB AdaptiveWB
	AdaptiveEV AdaptiveEV
}

// merge lays the profile overrides over the base settings.
func merge(base camera.Settings, o Overrides) camera.Settings {
	s := base
	if o.ISO != nil {
		s.ISO = *o.ISO
	}
	if o.ShutterSpeed != nil {
		s.ShutterSpeed = *o.ShutterSpeed
	}
	if o.AWBMode != nil {
		s.AWBMode = *o.AWBMode
	}
	if o.WBTempK != nil {
		s.WBTempK = *o.WBTempK
	}
	if o.HDRMode != nil {
		s.HDRMode = *o.HDRMode
	}
	if o.BracketCount != nil {
		s.BracketCount = *o.BracketCount
	}
	if o.AFMode != nil {
		s.AFMode = *o.AFMode
	}
	if o.LensPosition != nil {
		s.LensPosition = *o.LensPosition
	}
	if o.Sharpness != nil {
		s.Sharpness = *o.Sharpness
	}
	if o.Contrast != nil {
		s.Contrast = *o.Contrast
	}
	if o.Saturation != nil {
		s.Saturation = *o.Saturation
	}
	return s
}
