// Package settings produces capture settings under a sub-second decision
// budget. A full metering-and-recompute pass costs several seconds, so the
// cache tries four strategies in cost order: reuse the cached result, adapt
// it proportionally to the light change, recompute from a fresh metering
// pass, or refocus and then recompute. The tier table is an ordered list of
// predicate/action pairs; the first applicable tier wins.
package settings

import (
	"context"
	"time"

	"github.com/alpenglow-labs/ridgecam/internal/camera"
	"github.com/alpenglow-labs/ridgecam/internal/light"
)

// Tier is one of the four cost levels for producing settings.
type Tier string

const (
	// TierCached reuses the last computed settings verbatim
	TierCached Tier = "cached"
	// TierLightAdapt scales the cached exposure to the light change
	TierLightAdapt Tier = "light_adapt"
	// TierFullRecalc recomputes from a fresh metering pass
	TierFullRecalc Tier = "full_recalc"
	// TierRefocus runs an autofocus sweep before recomputing
	TierRefocus Tier = "refocus"
)

// Computer is the expensive device-facing capability behind the cache.
// The real implementation talks to the camera; tests use a deterministic
// double.
type Computer interface {
	// Meter performs a full metering pass
	Meter(ctx context.Context) (light.Sample, error)
	// Refocus runs an autofocus sweep and returns the lens position
	Refocus(ctx context.Context) (float64, error)
}

// Result is what the scheduler receives per trigger.
type Result struct {
	// Settings to send to the device
	Settings camera.Settings
	// Tier that produced the settings
	Tier Tier
	// Degraded is true when every tier failed and the last known-good
	// settings were returned instead
	Degraded bool
	// ComputedAt is when the underlying settings were computed
	ComputedAt time.Time
}

// Thresholds tune the tier decision tree. Light deltas are relative
// fractions of the basis lux.
type Thresholds struct {
	// ReuseDelta: below this the cached entry is reused verbatim
	ReuseDelta float64
	// AdaptDelta: below this the cached entry is proportionally adapted
	AdaptDelta float64
	// FocusJumpDelta: at or above this the light change is treated as a
	// focus-invalidating event
	FocusJumpDelta float64
	// MaxStaleness bounds how old a cache entry may be for tiers 1 and 2
	MaxStaleness time.Duration
	// FocusInterval is the elapsed time since the last focus that forces
	// a refocus pass
	FocusInterval time.Duration
	// FocusMinInterval rate-limits refocus passes (wall clock)
	FocusMinInterval time.Duration
}

// DefaultThresholds returns the tuning used in production.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ReuseDelta:       0.10,
		AdaptDelta:       0.35,
		FocusJumpDelta:   2.0,
		MaxStaleness:     10 * time.Minute,
		FocusInterval:    time.Hour,
		FocusMinInterval: 10 * time.Minute,
	}
}

// entry is the single cache slot. Replaced wholesale, never merged.
type entry struct {
	computedAt time.Time
	basis      light.Sample
	settings   camera.Settings
	tier       Tier
}

// lightDelta is the relative change between the basis and current lux.
func lightDelta(basis, current float64) float64 {
	ref := basis
	if ref < 1 {
		ref = 1
	}
	d := current - basis
	if d < 0 {
		d = -d
	}
	return d / ref
}
