package settings

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/alpenglow-labs/ridgecam/internal/camera"
	"github.com/alpenglow-labs/ridgecam/internal/light"
)

// ErrNoSettings is returned when every tier failed and no known-good entry
// exists to degrade to. Only possible before the first successful compute.
var ErrNoSettings = errors.New("settings: no settings available")

// Cache holds the single settings entry and the tier decision table.
// The scheduler goroutine is the only caller of Acquire (single writer);
// Status may be read from anywhere.
type Cache struct {
	computer   Computer
	thresholds Thresholds
	logger     *zap.Logger
	now        func() time.Time

	mu           chanLock
	entry        *entry
	lensPosition float64
	lastFocusAt  time.Time
	lastAttempt  time.Time // last refocus attempt, successful or not

	tiers []tierRule
}

// chanLock is a mutex that Status can try without blocking behind a slow
// device call in Acquire.
type chanLock chan struct{}

func newChanLock() chanLock {
	l := make(chanLock, 1)
	return l
}

func (l chanLock) lock()   { l <- struct{}{} }
func (l chanLock) unlock() { <-l }
func (l chanLock) tryLock() bool {
	select {
	case l <- struct{}{}:
		return true
	default:
		return false
	}
}

// decision is the snapshot the tier predicates evaluate against.
type decision struct {
	current    light.Sample
	now        time.Time
	ent        *entry
	delta      float64
	age        time.Duration
	refocusDue bool
}

// tierRule pairs a tier with its applicability predicate and its action.
// Rules are ordered cheapest first; adding a tier or tuning a threshold
// touches exactly one rule.
type tierRule struct {
	tier    Tier
	applies func(d decision) bool
	run     func(ctx context.Context, d decision) (camera.Settings, light.Sample, error)
}

// NewCache creates a settings cache over the given computer.
func NewCache(computer Computer, thresholds Thresholds, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Cache{
		computer:   computer,
		thresholds: thresholds,
		logger:     logger.With(zap.String("component", "settings_cache")),
		now:        time.Now,
		mu:         newChanLock(),
	}
	c.tiers = []tierRule{
		{
			tier: TierCached,
			applies: func(d decision) bool {
				return d.ent != nil && d.age <= thresholds.MaxStaleness &&
					d.delta < thresholds.ReuseDelta && !d.refocusDue
			},
			run: c.runCached,
		},
		{
			tier: TierLightAdapt,
			applies: func(d decision) bool {
				return d.ent != nil && d.age <= thresholds.MaxStaleness &&
					d.delta < thresholds.AdaptDelta && !d.refocusDue
			},
			run: c.runLightAdapt,
		},
		{
			tier: TierFullRecalc,
			applies: func(d decision) bool {
				return !d.refocusDue
			},
			run: c.runFullRecalc,
		},
		{
			tier: TierRefocus,
			applies: func(d decision) bool {
				// Also the fallback when full recalculation errored, as
				// long as the rate limit allows another attempt.
				return d.now.Sub(c.lastAttempt) >= thresholds.FocusMinInterval || c.lastAttempt.IsZero()
			},
			run: c.runRefocus,
		},
	}
	return c
}

// Acquire selects the cheapest applicable tier and returns its settings.
// On a tier failure it falls through to the next more expensive tier; when
// everything fails it returns the last known-good settings flagged
// Degraded instead of blocking the capture.
func (c *Cache) Acquire(ctx context.Context, current light.Sample) (Result, error) {
	c.mu.lock()
	defer c.mu.unlock()

	now := c.now()
	d := c.buildDecision(current, now)

	for _, rule := range c.tiers {
		if !rule.applies(d) {
			continue
		}

		settings, basis, err := rule.run(ctx, d)
		if err != nil {
			c.logger.Warn("Settings tier failed, escalating",
				zap.String("tier", string(rule.tier)),
				zap.Error(err))
			continue
		}

		computedAt := now
		if rule.tier == TierCached {
			computedAt = d.ent.computedAt
		} else {
			c.entry = &entry{
				computedAt: now,
				basis:      basis,
				settings:   settings,
				tier:       rule.tier,
			}
		}

		c.logger.Debug("Settings acquired",
			zap.String("tier", string(rule.tier)),
			zap.Float64("light_delta", d.delta))

		return Result{
			Settings:   settings,
			Tier:       rule.tier,
			ComputedAt: computedAt,
		}, nil
	}

	if c.entry != nil {
		c.logger.Warn("All settings tiers failed, serving degraded cache",
			zap.Time("computed_at", c.entry.computedAt))
		return Result{
			Settings:   c.entry.settings,
			Tier:       c.entry.tier,
			Degraded:   true,
			ComputedAt: c.entry.computedAt,
		}, nil
	}

	return Result{}, ErrNoSettings
}

func (c *Cache) buildDecision(current light.Sample, now time.Time) decision {
	d := decision{current: current, now: now, ent: c.entry}

	if c.entry != nil {
		d.delta = lightDelta(c.entry.basis.Lux, current.Lux)
		d.age = now.Sub(c.entry.computedAt)
	}

	focusOverdue := c.lastFocusAt.IsZero() ||
		now.Sub(c.lastFocusAt) >= c.thresholds.FocusInterval ||
		(c.entry != nil && d.delta >= c.thresholds.FocusJumpDelta)
	rateLimited := !c.lastAttempt.IsZero() && now.Sub(c.lastAttempt) < c.thresholds.FocusMinInterval

	d.refocusDue = focusOverdue && !rateLimited
	return d
}

func (c *Cache) runCached(ctx context.Context, d decision) (camera.Settings, light.Sample, error) {
	return d.ent.settings, d.ent.basis, nil
}

func (c *Cache) runLightAdapt(ctx context.Context, d decision) (camera.Settings, light.Sample, error) {
	adapted := adaptToLight(d.ent.settings, d.ent.basis, d.current)
	return adapted, d.current, nil
}

func (c *Cache) runFullRecalc(ctx context.Context, d decision) (camera.Settings, light.Sample, error) {
	fresh, err := c.computer.Meter(ctx)
	if err != nil {
		return camera.Settings{}, light.Sample{}, err
	}
	return computeFromLight(fresh, c.lensPosition), fresh, nil
}

func (c *Cache) runRefocus(ctx context.Context, d decision) (camera.Settings, light.Sample, error) {
	c.lastAttempt = d.now

	lens, err := c.computer.Refocus(ctx)
	if err != nil {
		return camera.Settings{}, light.Sample{}, err
	}
	c.lensPosition = lens
	c.lastFocusAt = d.now

	return c.runFullRecalc(ctx, d)
}

// Status describes the cache for the status endpoint.
type Status struct {
	HasEntry     bool      `json:"has_entry"`
	Tier         Tier      `json:"tier,omitempty"`
	ComputedAt   time.Time `json:"computed_at,omitempty"`
	BasisLux     float64   `json:"basis_lux,omitempty"`
	LensPosition float64   `json:"lens_position"`
	LastFocusAt  time.Time `json:"last_focus_at,omitempty"`
	Busy         bool      `json:"busy"`
}

// SnapshotStatus returns the cache state without blocking behind an
// in-flight recomputation; Busy is true when one is running.
func (c *Cache) SnapshotStatus() Status {
	if !c.mu.tryLock() {
		return Status{Busy: true}
	}
	defer c.mu.unlock()

	s := Status{
		LensPosition: c.lensPosition,
		LastFocusAt:  c.lastFocusAt,
	}
	if c.entry != nil {
		s.HasEntry = true
		s.Tier = c.entry.tier
		s.ComputedAt = c.entry.computedAt
		s.BasisLux = c.entry.basis.Lux
	}
	return s
}
