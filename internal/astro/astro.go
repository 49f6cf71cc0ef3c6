// Package astro computes solar event times and sun position for a site.
//
// The calculations follow the NOAA/sunrise-equation formulas. Results are
// accurate to roughly a minute, which is well inside the tolerance of a
// capture window anchored minutes away from the event. All functions are
// pure and perform no I/O.
package astro

import (
	"errors"
	"math"
	"time"
)

// ErrInvalidLocation is returned when coordinates fall outside
// [-90,90] latitude or [-180,180] longitude.
var ErrInvalidLocation = errors.New("astro: invalid coordinates")

// SolarTimes holds the solar events for one calendar day at a site.
type SolarTimes struct {
	Sunrise   time.Time
	Sunset    time.Time
	SolarNoon time.Time
}

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi

	// j2000 is the Julian date of the J2000 epoch.
	j2000 = 2451545.0

	// obliquity of the ecliptic, degrees
	obliquity = 23.4397

	// standard sunrise/sunset zenith correction, degrees below horizon
	sunriseAltitude = -0.833
)

// ValidateLocation checks that the coordinates are in range.
func ValidateLocation(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 ||
		math.IsNaN(lat) || math.IsNaN(lon) {
		return ErrInvalidLocation
	}
	return nil
}

// Compute returns the solar times for the calendar day containing date,
// expressed in the supplied location. Longitude is positive east.
func Compute(date time.Time, lat, lon float64, loc *time.Location) (SolarTimes, error) {
	if err := ValidateLocation(lat, lon); err != nil {
		return SolarTimes{}, err
	}
	if loc == nil {
		loc = time.UTC
	}

	y, m, d := date.In(loc).Date()
	jd := julianDayNumber(y, int(m), d)

	// Mean solar time at the site, days since J2000.
	n := float64(jd) - j2000 + 0.0008 - lon/360

	// Solar mean anomaly, degrees.
	ma := math.Mod(357.5291+0.98560028*n, 360)
	maRad := ma * degToRad

	// Equation of the center.
	center := 1.9148*math.Sin(maRad) + 0.0200*math.Sin(2*maRad) + 0.0003*math.Sin(3*maRad)

	// Ecliptic longitude, degrees.
	eclLon := math.Mod(ma+center+180+102.9372, 360)
	eclRad := eclLon * degToRad

	// Solar transit (local solar noon), Julian date.
	jTransit := j2000 + n + 0.0053*math.Sin(maRad) - 0.0069*math.Sin(2*eclRad)

	// Declination of the sun.
	decl := math.Asin(math.Sin(eclRad) * math.Sin(obliquity*degToRad))

	// Hour angle for the sunrise altitude.
	latRad := lat * degToRad
	cosH := (math.Sin(sunriseAltitude*degToRad) - math.Sin(latRad)*math.Sin(decl)) /
		(math.Cos(latRad) * math.Cos(decl))

	// Polar day/night: clamp so the window collapses onto solar noon.
	if cosH > 1 {
		cosH = 1
	} else if cosH < -1 {
		cosH = -1
	}
	hourAngle := math.Acos(cosH) * radToDeg

	return SolarTimes{
		Sunrise:   julianToTime(jTransit - hourAngle/360).In(loc),
		Sunset:    julianToTime(jTransit + hourAngle/360).In(loc),
		SolarNoon: julianToTime(jTransit).In(loc),
	}, nil
}

// Elevation returns the sun's elevation above the horizon in degrees at the
// given instant and site.
func Elevation(t time.Time, lat, lon float64) float64 {
	d := daysSinceJ2000(t)

	ma := degToRad * (357.5291 + 0.98560028*d)
	eclLon := ma + degToRad*(1.9148*math.Sin(ma)+0.02*math.Sin(2*ma)+0.0003*math.Sin(3*ma)) +
		degToRad*102.9372 + math.Pi

	e := degToRad * obliquity
	decl := math.Asin(math.Sin(eclLon) * math.Sin(e))
	ra := math.Atan2(math.Sin(eclLon)*math.Cos(e), math.Cos(eclLon))

	lw := degToRad * -lon
	sidereal := degToRad*(280.16+360.9856235*d) - lw
	h := sidereal - ra

	latRad := lat * degToRad
	elev := math.Asin(math.Sin(latRad)*math.Sin(decl) + math.Cos(latRad)*math.Cos(decl)*math.Cos(h))
	return elev * radToDeg
}

// Golden hour and blue hour bands in degrees of solar elevation. The bands
// match the classification the capture profiles key off.
const (
	goldenHourUpper = 6.0
	goldenHourLower = -4.0
	blueHourLower   = -6.0
)

// IsGoldenHour reports whether the sun elevation falls in the golden-hour band.
func IsGoldenHour(elevation float64) bool {
	return elevation >= goldenHourLower && elevation <= goldenHourUpper
}

// IsBlueHour reports whether the sun elevation falls in the blue-hour band.
func IsBlueHour(elevation float64) bool {
	return elevation >= blueHourLower && elevation < goldenHourLower
}

// julianDayNumber converts a calendar date to the Julian day number at noon.
func julianDayNumber(year, month, day int) int {
	a := (14 - month) / 12
	y := year + 4800 - a
	m := month + 12*a - 3
	return day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
}

// julianToTime converts a Julian date to UTC wall time.
func julianToTime(jd float64) time.Time {
	secs := (jd - 2440587.5) * 86400
	return time.Unix(int64(secs), int64((secs-math.Floor(secs))*1e9)).UTC()
}

// daysSinceJ2000 returns fractional days since the J2000 epoch.
func daysSinceJ2000(t time.Time) float64 {
	return float64(t.UnixMilli())/86400000.0 - 10957.5
}
