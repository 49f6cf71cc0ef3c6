package settings

import (
	"math"

	"github.com/alpenglow-labs/ridgecam/internal/camera"
	"github.com/alpenglow-labs/ridgecam/internal/light"
)

// Exposure model constants. The fixed aperture matches the lens fitted to
// the site camera; the EV reference follows the standard 2.5 lx·s·100
// incident-light calibration.
const (
	fixedAperture = 2.8
	evCalibration = 2.5

	minShutter = 1.0 / 8000
	maxShutter = 30.0
)

// computeFromLight derives full capture settings from one light sample.
// Pure; the expensive part of "full recalculation" is obtaining a trusted
// sample, not this arithmetic.
func computeFromLight(sample light.Sample, lensPosition float64) camera.Settings {
	lux := math.Max(sample.Lux, 0.01)
	ev := math.Log2(lux / evCalibration)

	iso := isoForEV(ev)

	// EV = log2(N^2 / t) at ISO 100; solve for t and rescale by ISO.
	shutter := fixedAperture * fixedAperture / math.Exp2(ev) * (100 / float64(iso))
	shutter = clamp(shutter, minShutter, maxShutter)

	s := camera.Settings{
		ISO:          iso,
		ShutterSpeed: shutter,
		AWBMode:      "auto",
		HDRMode:      "off",
		AFMode:       "manual",
		LensPosition: lensPosition,
		Sharpness:    1.0,
		Contrast:     1.0,
		Saturation:   1.0,
	}

	switch {
	case sample.GoldenHour:
		// Lock WB so consecutive frames don't drift as the color shifts.
		s.AWBMode = "daylight"
		s.WBTempK = 5500
		s.HDRMode = "bracket"
		s.BracketCount = 3
	case sample.BlueHour:
		s.AWBMode = "manual"
		s.WBTempK = 8500
	}

	return s
}

// isoForEV steps sensitivity up as the scene darkens, trading noise for
// shutter times short enough to freeze cloud motion.
func isoForEV(ev float64) int {
	switch {
	case ev < 2:
		return 1600
	case ev < 5:
		return 800
	case ev < 8:
		return 400
	case ev < 10:
		return 200
	default:
		return 100
	}
}

// adaptToLight scales a cached exposure proportionally to the lux change
// without a metering pass. Reciprocity: halving the light doubles the
// shutter time.
func adaptToLight(cached camera.Settings, basis, current light.Sample) camera.Settings {
	adapted := cached

	basisLux := math.Max(basis.Lux, 0.01)
	currentLux := math.Max(current.Lux, 0.01)
	adapted.ShutterSpeed = clamp(cached.ShutterSpeed*basisLux/currentLux, minShutter, maxShutter)

	return adapted
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
