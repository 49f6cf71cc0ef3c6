package astro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Site used throughout: a mountain camera in the Tyrolean Alps.
const (
	tyrolLat = 47.2692
	tyrolLon = 11.4041
)

var cest = time.FixedZone("CEST", 2*3600)

func TestComputeSummerSolstice(t *testing.T) {
	date := time.Date(2026, 6, 21, 0, 0, 0, 0, cest)

	times, err := Compute(date, tyrolLat, tyrolLon, cest)
	require.NoError(t, err)

	assert.True(t, times.Sunrise.Before(times.SolarNoon))
	assert.True(t, times.SolarNoon.Before(times.Sunset))

	// Solar noon at 11.4E is about 11:14 UTC (13:14 CEST), give or take the
	// equation of time.
	expectedNoon := time.Date(2026, 6, 21, 13, 14, 0, 0, cest)
	assert.InDelta(t, 0, times.SolarNoon.Sub(expectedNoon).Minutes(), 25)

	// Day length at 47N on the solstice is just under 16 hours.
	dayLength := times.Sunset.Sub(times.Sunrise)
	assert.InDelta(t, 15.9, dayLength.Hours(), 0.5)
}

func TestComputeWinterSolstice(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	date := time.Date(2026, 12, 21, 0, 0, 0, 0, cet)

	times, err := Compute(date, tyrolLat, tyrolLon, cet)
	require.NoError(t, err)

	dayLength := times.Sunset.Sub(times.Sunrise)
	assert.InDelta(t, 8.3, dayLength.Hours(), 0.5)
}

func TestComputeDeterministic(t *testing.T) {
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	a, err := Compute(date, tyrolLat, tyrolLon, time.UTC)
	require.NoError(t, err)
	b, err := Compute(date, tyrolLat, tyrolLon, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestComputeInvalidLocation(t *testing.T) {
	date := time.Date(2026, 6, 21, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		lat, lon float64
	}{
		{"latitude too high", 91, 0},
		{"latitude too low", -90.5, 0},
		{"longitude too high", 47, 181},
		{"longitude too low", 47, -180.1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compute(date, tc.lat, tc.lon, time.UTC)
			assert.ErrorIs(t, err, ErrInvalidLocation)
		})
	}
}

func TestElevationPeaksNearNoon(t *testing.T) {
	date := time.Date(2026, 6, 21, 0, 0, 0, 0, cest)
	times, err := Compute(date, tyrolLat, tyrolLon, cest)
	require.NoError(t, err)

	atNoon := Elevation(times.SolarNoon, tyrolLat, tyrolLon)
	threeLater := Elevation(times.SolarNoon.Add(3*time.Hour), tyrolLat, tyrolLon)
	atMidnight := Elevation(times.SolarNoon.Add(12*time.Hour), tyrolLat, tyrolLon)

	// Max elevation on the June solstice at 47.3N is about 66 degrees.
	assert.InDelta(t, 66, atNoon, 2)
	assert.Greater(t, atNoon, threeLater)
	assert.Less(t, atMidnight, 0.0)
}

func TestElevationNearZeroAtSunrise(t *testing.T) {
	date := time.Date(2026, 6, 21, 0, 0, 0, 0, cest)
	times, err := Compute(date, tyrolLat, tyrolLon, cest)
	require.NoError(t, err)

	elev := Elevation(times.Sunrise, tyrolLat, tyrolLon)
	assert.InDelta(t, -0.833, elev, 1.0)
}

func TestHourBands(t *testing.T) {
	assert.True(t, IsGoldenHour(3))
	assert.True(t, IsGoldenHour(-4))
	assert.False(t, IsGoldenHour(10))
	assert.True(t, IsBlueHour(-5))
	assert.False(t, IsBlueHour(-4))
	assert.False(t, IsBlueHour(-7))
	assert.False(t, IsGoldenHour(-7))
}
