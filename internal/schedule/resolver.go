package schedule

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alpenglow-labs/ridgecam/internal/astro"
)

// SolarFunc returns the solar event times for the calendar day containing
// date. Injected so tests can supply fixed ephemerides.
type SolarFunc func(date time.Time) (astro.SolarTimes, error)

// Resolver turns schedule definitions plus "now" into the set of currently
// active windows. Solar anchors are computed once per calendar day and
// cached; every tick after that is a map lookup.
type Resolver struct {
	solar  SolarFunc
	loc    *time.Location
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]astro.SolarTimes // keyed by yyyy-mm-dd in loc
}

// NewResolver creates a resolver for a site. Latitude/longitude are
// validated up front; a bad site configuration fails here, not on the first
// tick.
func NewResolver(lat, lon float64, loc *time.Location, logger *zap.Logger) (*Resolver, error) {
	if err := astro.ValidateLocation(lat, lon); err != nil {
		return nil, fmt.Errorf("resolver site: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Resolver{
		solar: func(date time.Time) (astro.SolarTimes, error) {
			return astro.Compute(date, lat, lon, loc)
		},
		loc:    loc,
		logger: logger.With(zap.String("component", "schedule_resolver")),
		cache:  make(map[string]astro.SolarTimes),
	}, nil
}

// NewResolverWithSolar creates a resolver with a custom solar source.
func NewResolverWithSolar(solar SolarFunc, loc *time.Location, logger *zap.Logger) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		solar:  solar,
		loc:    loc,
		logger: logger.With(zap.String("component", "schedule_resolver")),
		cache:  make(map[string]astro.SolarTimes),
	}
}

// ResolveWindows returns every window that contains now. Disabled
// definitions are skipped. Each definition is evaluated against both the
// previous and the current calendar day so that windows spanning local
// midnight stay anchored to the day they started on.
func (r *Resolver) ResolveWindows(defs []Definition, now time.Time) []Window {
	now = now.In(r.loc)
	days := []time.Time{now.AddDate(0, 0, -1), now}

	var active []Window
	for _, def := range defs {
		if !def.Enabled {
			continue
		}

		for _, day := range days {
			w, err := r.windowFor(def, day)
			if err != nil {
				r.logger.Warn("Failed to resolve window",
					zap.String("schedule", def.Name),
					zap.Error(err))
				continue
			}
			if w.Contains(now) {
				active = append(active, w)
				break // one firing window per schedule
			}
		}
	}

	r.pruneCache(now)
	return active
}

// windowFor realizes a definition for one calendar day.
func (r *Resolver) windowFor(def Definition, day time.Time) (Window, error) {
	var start time.Time

	switch def.Kind {
	case KindFixedTime:
		y, m, d := day.In(r.loc).Date()
		midnight := time.Date(y, m, d, 0, 0, 0, 0, r.loc)
		start = midnight.Add(def.Offset)
	case KindSolarRelative:
		anchor, err := r.anchorTime(def.Anchor, day)
		if err != nil {
			return Window{}, err
		}
		start = anchor.Add(def.Offset)
	default:
		return Window{}, fmt.Errorf("unknown schedule kind %q", def.Kind)
	}

	return Window{
		Name:     def.Name,
		Start:    start,
		End:      start.Add(def.Duration),
		Interval: def.Interval,
		Profiles: def.Profiles,
	}, nil
}

// anchorTime returns the named solar event for a day, from cache when the
// day has been computed before.
func (r *Resolver) anchorTime(anchor Anchor, day time.Time) (time.Time, error) {
	times, err := r.solarTimes(day)
	if err != nil {
		return time.Time{}, err
	}

	switch anchor {
	case AnchorSunrise:
		return times.Sunrise, nil
	case AnchorSunset:
		return times.Sunset, nil
	case AnchorSolarNoon:
		return times.SolarNoon, nil
	default:
		return time.Time{}, fmt.Errorf("unknown solar anchor %q", anchor)
	}
}

func (r *Resolver) solarTimes(day time.Time) (astro.SolarTimes, error) {
	key := day.In(r.loc).Format("2006-01-02")

	r.mu.Lock()
	cached, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	times, err := r.solar(day)
	if err != nil {
		return astro.SolarTimes{}, err
	}

	r.mu.Lock()
	r.cache[key] = times
	r.mu.Unlock()

	r.logger.Debug("Solar anchors computed",
		zap.String("date", key),
		zap.Time("sunrise", times.Sunrise),
		zap.Time("sunset", times.Sunset))

	return times, nil
}

// pruneCache drops solar entries older than two days so the cache stays at
// a handful of entries over a long-running process.
func (r *Resolver) pruneCache(now time.Time) {
	cutoff := now.AddDate(0, 0, -2).Format("2006-01-02")

	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.cache {
		if key < cutoff {
			delete(r.cache, key)
		}
	}
}
