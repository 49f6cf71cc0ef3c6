package burst

import (
	"math"

	"github.com/alpenglow-labs/ridgecam/internal/camera"
	"github.com/alpenglow-labs/ridgecam/internal/light"
)

// applyAdaptiveWB rewrites the white-balance fields of s per the curve and
// the current light. The base temperature is the merged profile value, or
// neutral daylight when the profile left it unset.
func applyAdaptiveWB(s *camera.Settings, curve CurveName, sample light.Sample) {
	base := s.WBTempK
	if base == 0 {
		base = 5500
	}

	switch curve {
	case CurveWarm:
		if sample.GoldenHour || sample.BlueHour {
			base += 600
		} else {
			base += 300
		}
	case CurveBalanced:
		if sample.GoldenHour {
			base += 300
		}
	case CurveConservative:
		if sample.GoldenHour {
			base += 150
		}
	case CurveAdaptive:
		base = ambientColorTemp(sample)
	}

	s.AWBMode = "manual"
	s.WBTempK = base
}

// ambientColorTemp estimates the scene color temperature from the sample.
// Golden light is warm, blue hour skews heavily cold, and deep night sits
// near tungsten from artificial sources.
func ambientColorTemp(sample light.Sample) int {
	switch {
	case sample.BlueHour:
		return 9000
	case sample.GoldenHour:
		return 4800
	case sample.Lux < 10:
		return 4000
	default:
		return 5600
	}
}

// applyAdaptiveEV adds a curve-dependent exposure compensation in stops.
func applyAdaptiveEV(s *camera.Settings, curve CurveName, sample light.Sample) {
	var delta float64

	switch curve {
	case CurveWarm:
		delta = 0.3
	case CurveBalanced:
		delta = transitionLift(sample)
	case CurveConservative:
		delta = transitionLift(sample) / 2
	case CurveAdaptive:
		// Pull the exposure toward a mid-brightness target; bounded so a
		// bad meter reading cannot blow out the frame.
		lux := math.Max(sample.Lux, 0.1)
		delta = clampStops(math.Log2(1000/lux)/4, -1, 1)
	}

	s.ExposureComp = clampStops(s.ExposureComp+delta, -2, 2)
}

// transitionLift compensates for the meter under-reading backlit transition
// skies.
func transitionLift(sample light.Sample) float64 {
	switch {
	case sample.BlueHour:
		return 0.7
	case sample.GoldenHour:
		return 0.3
	default:
		return 0
	}
}

func clampStops(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
