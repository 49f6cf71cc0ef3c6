// Package schedule resolves declarative capture schedules into concrete
// time windows and decides when a capture is due.
package schedule

import (
	"time"
)

// Kind distinguishes how a schedule's window is anchored.
type Kind string

const (
	// KindSolarRelative anchors the window to a solar event of the day
	KindSolarRelative Kind = "solar_relative"
	// KindFixedTime anchors the window to a wall-clock time of day
	KindFixedTime Kind = "fixed_time"
)

// Anchor names the solar event a solar-relative schedule hangs off.
type Anchor string

const (
	// AnchorSunrise anchors to the day's sunrise
	AnchorSunrise Anchor = "sunrise"
	// AnchorSunset anchors to the day's sunset
	AnchorSunset Anchor = "sunset"
	// AnchorSolarNoon anchors to the day's solar noon
	AnchorSolarNoon Anchor = "solar_noon"
)

// Definition is an immutable, config-owned capture schedule. The engine
// never mutates definitions after load.
type Definition struct {
	// Name uniquely identifies the schedule
	Name string
	// Kind selects solar-relative or fixed-time anchoring
	Kind Kind
	// Anchor is the solar event for KindSolarRelative
	Anchor Anchor
	// Offset shifts the window start relative to the anchor. For
	// KindFixedTime it is the offset from local midnight.
	Offset time.Duration
	// Duration is the window length
	Duration time.Duration
	// Interval is the minimum spacing between captures inside the window
	Interval time.Duration
	// Enabled gates the schedule without removing it from config
	Enabled bool
	// Profiles lists the capture profile IDs fired per trigger, in order
	Profiles []string
}

// Window is the ephemeral, per-day realization of a Definition.
// Invariant: Start is never after End.
type Window struct {
	// Name of the originating schedule
	Name string
	// Start and End bound the window in local time
	Start time.Time
	End   time.Time
	// Interval is the capture spacing carried over from the definition
	Interval time.Duration
	// Profiles carried over from the definition
	Profiles []string
}

// Contains reports whether t falls inside the window (inclusive bounds).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// IsDue reports whether a capture should fire now for this window: now must
// be inside the window and either no capture has happened yet or at least
// Interval has elapsed since the last one.
func IsDue(w Window, lastCapture *time.Time, now time.Time) bool {
	if !w.Contains(now) {
		return false
	}
	if lastCapture == nil {
		return true
	}
	return now.Sub(*lastCapture) >= w.Interval
}
