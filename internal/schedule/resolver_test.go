package schedule

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpenglow-labs/ridgecam/internal/astro"
)

// fixedSolar returns the same clock times for every requested day, anchored
// to that day's date. calls counts ephemeris computations.
func fixedSolar(calls *atomic.Int32) SolarFunc {
	return func(date time.Time) (astro.SolarTimes, error) {
		if calls != nil {
			calls.Add(1)
		}
		y, m, d := date.Date()
		mk := func(h, min int) time.Time {
			return time.Date(y, m, d, h, min, 0, 0, time.UTC)
		}
		return astro.SolarTimes{
			Sunrise:   mk(6, 30),
			Sunset:    mk(21, 0),
			SolarNoon: mk(13, 15),
		}, nil
	}
}

func TestResolveSunriseOffsetWindow(t *testing.T) {
	r := NewResolverWithSolar(fixedSolar(nil), time.UTC, nil)

	defs := []Definition{{
		Name:     "sunrise",
		Kind:     KindSolarRelative,
		Anchor:   AnchorSunrise,
		Offset:   -30 * time.Minute,
		Duration: 60 * time.Minute,
		Interval: 5 * time.Second,
		Enabled:  true,
		Profiles: []string{"a", "b"},
	}}

	now := time.Date(2026, 8, 24, 6, 15, 0, 0, time.UTC)
	windows := r.ResolveWindows(defs, now)
	require.Len(t, windows, 1)

	// anchor=sunrise(06:30), offset=-30min, duration=60min
	assert.Equal(t, time.Date(2026, 8, 24, 6, 0, 0, 0, time.UTC), windows[0].Start)
	assert.Equal(t, time.Date(2026, 8, 24, 7, 0, 0, 0, time.UTC), windows[0].End)
	assert.Equal(t, []string{"a", "b"}, windows[0].Profiles)
}

func TestResolveFixedTimeWindow(t *testing.T) {
	r := NewResolverWithSolar(fixedSolar(nil), time.UTC, nil)

	defs := []Definition{{
		Name:     "midday",
		Kind:     KindFixedTime,
		Offset:   12 * time.Hour,
		Duration: 2 * time.Hour,
		Interval: time.Minute,
		Enabled:  true,
	}}

	inside := time.Date(2026, 8, 24, 13, 0, 0, 0, time.UTC)
	require.Len(t, r.ResolveWindows(defs, inside), 1)

	outside := time.Date(2026, 8, 24, 15, 0, 0, 0, time.UTC)
	assert.Empty(t, r.ResolveWindows(defs, outside))
}

func TestResolveSkipsDisabled(t *testing.T) {
	r := NewResolverWithSolar(fixedSolar(nil), time.UTC, nil)

	defs := []Definition{{
		Name:     "off",
		Kind:     KindFixedTime,
		Offset:   0,
		Duration: 24 * time.Hour,
		Enabled:  false,
	}}

	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	assert.Empty(t, r.ResolveWindows(defs, now))
}

func TestResolveOverlappingWindowsBothActive(t *testing.T) {
	r := NewResolverWithSolar(fixedSolar(nil), time.UTC, nil)

	defs := []Definition{
		{Name: "wide", Kind: KindFixedTime, Offset: 10 * time.Hour, Duration: 4 * time.Hour, Enabled: true},
		{Name: "narrow", Kind: KindFixedTime, Offset: 11 * time.Hour, Duration: 1 * time.Hour, Enabled: true},
	}

	now := time.Date(2026, 8, 24, 11, 30, 0, 0, time.UTC)
	windows := r.ResolveWindows(defs, now)
	require.Len(t, windows, 2)
}

func TestResolveMidnightSpanUsesPreviousDayAnchor(t *testing.T) {
	r := NewResolverWithSolar(fixedSolar(nil), time.UTC, nil)

	// sunset 21:00 + 2h offset, 4h duration: active 23:00 through 03:00 the
	// next day. At 00:30 the window from yesterday's sunset must still fire.
	defs := []Definition{{
		Name:     "night",
		Kind:     KindSolarRelative,
		Anchor:   AnchorSunset,
		Offset:   2 * time.Hour,
		Duration: 4 * time.Hour,
		Interval: 10 * time.Minute,
		Enabled:  true,
	}}

	now := time.Date(2026, 8, 25, 0, 30, 0, 0, time.UTC)
	windows := r.ResolveWindows(defs, now)
	require.Len(t, windows, 1)

	assert.Equal(t, time.Date(2026, 8, 24, 23, 0, 0, 0, time.UTC), windows[0].Start)
	assert.Equal(t, time.Date(2026, 8, 25, 3, 0, 0, 0, time.UTC), windows[0].End)
}

func TestSolarAnchorsCachedPerDay(t *testing.T) {
	var calls atomic.Int32
	r := NewResolverWithSolar(fixedSolar(&calls), time.UTC, nil)

	defs := []Definition{{
		Name:     "sunrise",
		Kind:     KindSolarRelative,
		Anchor:   AnchorSunrise,
		Duration: time.Hour,
		Enabled:  true,
	}}

	now := time.Date(2026, 8, 24, 6, 45, 0, 0, time.UTC)
	r.ResolveWindows(defs, now)
	afterFirst := calls.Load()

	for i := 0; i < 10; i++ {
		r.ResolveWindows(defs, now.Add(time.Duration(i)*time.Second))
	}

	assert.Equal(t, afterFirst, calls.Load(), "repeated ticks must hit the per-day cache")
}

func TestResolveSolarErrorSkipsSchedule(t *testing.T) {
	failing := func(date time.Time) (astro.SolarTimes, error) {
		return astro.SolarTimes{}, errors.New("ephemeris unavailable")
	}
	r := NewResolverWithSolar(failing, time.UTC, nil)

	defs := []Definition{{
		Name:     "sunrise",
		Kind:     KindSolarRelative,
		Anchor:   AnchorSunrise,
		Duration: time.Hour,
		Enabled:  true,
	}}

	now := time.Date(2026, 8, 24, 6, 45, 0, 0, time.UTC)
	assert.Empty(t, r.ResolveWindows(defs, now))
}

func TestIsDue(t *testing.T) {
	w := Window{
		Name:     "sunrise",
		Start:    time.Date(2026, 8, 24, 6, 0, 0, 0, time.UTC),
		End:      time.Date(2026, 8, 24, 7, 0, 0, 0, time.UTC),
		Interval: 5 * time.Second,
	}

	at := func(h, m, s int) time.Time {
		return time.Date(2026, 8, 24, h, m, s, 0, time.UTC)
	}

	t.Run("first capture inside window", func(t *testing.T) {
		assert.True(t, IsDue(w, nil, at(6, 0, 3)))
	})

	t.Run("interval not yet elapsed", func(t *testing.T) {
		last := at(6, 0, 1)
		assert.False(t, IsDue(w, &last, at(6, 0, 3)))
	})

	t.Run("interval elapsed", func(t *testing.T) {
		last := at(6, 0, 1)
		assert.True(t, IsDue(w, &last, at(6, 0, 6)))
	})

	t.Run("outside window", func(t *testing.T) {
		assert.False(t, IsDue(w, nil, at(7, 30, 0)))
	})

	t.Run("boundary instants are inside", func(t *testing.T) {
		assert.True(t, IsDue(w, nil, w.Start))
		assert.True(t, IsDue(w, nil, w.End))
	})
}
