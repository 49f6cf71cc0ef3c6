// Package scheduler runs the engine's main loop: on every tick it resolves
// the active capture windows, decides which schedules are due, and drives
// each due schedule through settings acquisition and a profile burst.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alpenglow-labs/ridgecam/internal/burst"
	"github.com/alpenglow-labs/ridgecam/internal/light"
	"github.com/alpenglow-labs/ridgecam/internal/schedule"
	"github.com/alpenglow-labs/ridgecam/internal/settings"
	"github.com/alpenglow-labs/ridgecam/pkg/api"
	"github.com/alpenglow-labs/ridgecam/pkg/healthcheck"
)

// DefaultTick is the loop cadence when none is configured.
const DefaultTick = 30 * time.Second

// WindowSource resolves the currently active windows.
type WindowSource interface {
	ResolveWindows(defs []schedule.Definition, now time.Time) []schedule.Window
}

// LightSource provides the most recent ambient light sample.
type LightSource interface {
	Snapshot() (light.Sample, bool)
}

// SettingsSource produces capture settings for a trigger.
type SettingsSource interface {
	Acquire(ctx context.Context, current light.Sample) (settings.Result, error)
}

// BurstRunner executes the per-profile capture sequence.
type BurstRunner interface {
	Run(ctx context.Context, scheduleName string, profiles []burst.Profile, acquired settings.Result, sample light.Sample) []burst.Outcome
}

// DeviceHealth receives one record per burst.
type DeviceHealth interface {
	RecordSuccess(at time.Time)
	RecordFailure(err error)
}

// OutcomeSink receives every outcome of a burst.
type OutcomeSink interface {
	RecordAll(ctx context.Context, outcomes []burst.Outcome)
}

// Deps bundles the collaborators the scheduler drives.
type Deps struct {
	Windows  WindowSource
	Light    LightSource
	Settings SettingsSource
	Bursts   BurstRunner
	Health   DeviceHealth
	History  OutcomeSink
}

// Config holds the loop tuning and the immutable schedule/profile tables.
type Config struct {
	Tick        time.Duration
	Definitions []schedule.Definition
	Profiles    []burst.Profile
}

// scheduleState is the per-schedule mutable state. Guarded by Scheduler.mu.
type scheduleState struct {
	lastCapture *time.Time
	rotation    int
	inFlight    bool
}

// Scheduler is the orchestrating coordinator. One goroutine runs the tick
// loop; each due schedule's burst runs in its own goroutine so a slow
// device never stalls other schedules (single-flight per schedule).
type Scheduler struct {
	cfg          Config
	deps         Deps
	logger       *zap.Logger
	now          func() time.Time
	profilesByID map[string]burst.Profile

	mu            sync.Mutex
	states        map[string]*scheduleState
	lastTick      time.Time
	activeWindows []schedule.Window
	running       bool
	stopCh        chan struct{}

	wg sync.WaitGroup
}

// New creates a scheduler. Tick defaults when zero.
func New(cfg Config, deps Deps, logger *zap.Logger) (*Scheduler, error) {
	if deps.Windows == nil || deps.Light == nil || deps.Settings == nil ||
		deps.Bursts == nil || deps.Health == nil || deps.History == nil {
		return nil, fmt.Errorf("scheduler dependencies incomplete")
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	byID := make(map[string]burst.Profile, len(cfg.Profiles))
	for _, p := range cfg.Profiles {
		byID[p.ID] = p
	}

	return &Scheduler{
		cfg:          cfg,
		deps:         deps,
		logger:       logger.With(zap.String("component", "scheduler")),
		now:          time.Now,
		profilesByID: byID,
		states:       make(map[string]*scheduleState),
		stopCh:       make(chan struct{}),
	}, nil
}

// Start runs the tick loop until ctx is cancelled or Stop is called. It
// ticks once immediately so a restart inside an active window does not wait
// a full cadence. Run it in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	stopCh := s.stopCh
	s.mu.Unlock()

	s.logger.Info("Starting scheduler",
		zap.Duration("tick", s.cfg.Tick),
		zap.Int("schedules", len(s.cfg.Definitions)),
		zap.Int("profiles", len(s.cfg.Profiles)))

	s.tick(ctx)

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.setStopped()
			s.logger.Info("Scheduler stopped (context)")
			return nil
		case <-stopCh:
			s.setStopped()
			s.logger.Info("Scheduler stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Stop signals the loop to exit and waits for in-flight bursts, bounded by
// ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		close(s.stopCh)
		s.stopCh = make(chan struct{})
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler shutdown: bursts still in flight: %w", ctx.Err())
	}
}

func (s *Scheduler) setStopped() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning reports whether the tick loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// tick resolves windows and launches a burst for every due schedule.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	windows := s.deps.Windows.ResolveWindows(s.cfg.Definitions, now)

	s.mu.Lock()
	s.lastTick = now
	s.activeWindows = windows

	var launched int
	for _, w := range windows {
		st := s.states[w.Name]
		if st == nil {
			st = &scheduleState{}
			s.states[w.Name] = st
		}
		if st.inFlight {
			continue
		}
		if !schedule.IsDue(w, st.lastCapture, now) {
			continue
		}

		st.inFlight = true
		launched++
		s.wg.Add(1)
		go s.runBurst(ctx, w, now)
	}
	s.mu.Unlock()

	s.logger.Debug("Tick processed",
		zap.Int("active_windows", len(windows)),
		zap.Int("bursts_launched", launched))
}

// runBurst drives one due schedule through settings and capture. Exactly
// one health-tracker record is made per burst, success or failure.
func (s *Scheduler) runBurst(ctx context.Context, w schedule.Window, triggeredAt time.Time) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.states[w.Name].inFlight = false
		s.mu.Unlock()
	}()

	sample, ok := s.deps.Light.Snapshot()
	if !ok {
		// Cold start before the monitor's first reading; the settings
		// cache will meter inline.
		s.logger.Warn("No light sample yet, acquiring settings without one",
			zap.String("schedule", w.Name))
	}

	result, err := s.deps.Settings.Acquire(ctx, sample)
	if err != nil {
		s.deps.Health.RecordFailure(err)
		s.logger.Error("Settings acquisition failed, skipping burst",
			zap.String("schedule", w.Name),
			zap.Error(err))
		return
	}

	profiles := s.profilesFor(w.Profiles)
	outcomes := s.deps.Bursts.Run(ctx, w.Name, profiles, result, sample)
	if len(outcomes) == 0 {
		s.logger.Warn("Schedule has no enabled profiles",
			zap.String("schedule", w.Name))
		return
	}

	s.deps.History.RecordAll(ctx, outcomes)

	if burst.OverallSuccess(outcomes) {
		s.deps.Health.RecordSuccess(s.now())
		s.mu.Lock()
		st := s.states[w.Name]
		st.rotation++
		t := triggeredAt
		st.lastCapture = &t
		s.mu.Unlock()

		s.logger.Info("Burst completed",
			zap.String("schedule", w.Name),
			zap.Int("profiles", len(outcomes)),
			zap.String("tier", string(result.Tier)))
		return
	}

	// Failed bursts do not advance lastCapture: the schedule retries on
	// the next tick instead of waiting out its interval.
	s.deps.Health.RecordFailure(firstFailure(outcomes))
	s.logger.Warn("Burst failed",
		zap.String("schedule", w.Name),
		zap.Int("profiles", len(outcomes)))
}

// profilesFor maps the window's profile IDs onto the profile table,
// preserving the window's declared order. IDs are validated at config load.
func (s *Scheduler) profilesFor(ids []string) []burst.Profile {
	profiles := make([]burst.Profile, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.profilesByID[id]; ok {
			profiles = append(profiles, p)
		}
	}
	return profiles
}

func firstFailure(outcomes []burst.Outcome) error {
	for _, o := range outcomes {
		if !o.Success && o.Error != "" {
			return errors.New(o.Error)
		}
	}
	return errors.New("burst failed")
}

// WindowStatus describes one active window for the status endpoint.
type WindowStatus struct {
	Name     string        `json:"name"`
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Interval time.Duration `json:"interval"`
}

// ScheduleStatus describes one schedule's rotation state.
type ScheduleStatus struct {
	Name        string     `json:"name"`
	Rotation    int        `json:"rotation"`
	InFlight    bool       `json:"in_flight"`
	LastCapture *time.Time `json:"last_capture,omitempty"`
}

// Status is the scheduler's externally visible state.
type Status struct {
	Running       bool             `json:"running"`
	LastTick      time.Time        `json:"last_tick"`
	ActiveWindows []WindowStatus   `json:"active_windows"`
	Schedules     []ScheduleStatus `json:"schedules"`
}

// Status returns a copy of the loop state for the status endpoint.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Running:       s.running,
		LastTick:      s.lastTick,
		ActiveWindows: make([]WindowStatus, 0, len(s.activeWindows)),
		Schedules:     make([]ScheduleStatus, 0, len(s.cfg.Definitions)),
	}
	for _, w := range s.activeWindows {
		status.ActiveWindows = append(status.ActiveWindows, WindowStatus{
			Name:     w.Name,
			Start:    w.Start,
			End:      w.End,
			Interval: w.Interval,
		})
	}
	for _, def := range s.cfg.Definitions {
		ss := ScheduleStatus{Name: def.Name}
		if st := s.states[def.Name]; st != nil {
			ss.Rotation = st.rotation
			ss.InFlight = st.inFlight
			if st.lastCapture != nil {
				t := *st.lastCapture
				ss.LastCapture = &t
			}
		}
		status.Schedules = append(status.Schedules, ss)
	}
	return status
}

// Check implements healthcheck.Checker.
func (s *Scheduler) Check(ctx context.Context) *healthcheck.Result {
	s.mu.Lock()
	running := s.running
	lastTick := s.lastTick
	active := len(s.activeWindows)
	inFlight := 0
	for _, st := range s.states {
		if st.inFlight {
			inFlight++
		}
	}
	s.mu.Unlock()

	status := healthcheck.StatusHealthy
	message := "Scheduler is healthy"
	if !running {
		status = healthcheck.StatusUnhealthy
		message = "Scheduler loop is not running"
	} else if !lastTick.IsZero() && time.Since(lastTick) > 3*s.cfg.Tick {
		status = healthcheck.StatusDegraded
		message = "Scheduler tick is overdue"
	}

	return &healthcheck.Result{
		ComponentName: s.Name(),
		Status:        status,
		Message:       message,
		Timestamp:     time.Now(),
		Details: map[string]interface{}{
			"running":        running,
			"active_windows": active,
			"bursts_in_flight": inFlight,
		},
	}
}

// Name returns the component name for health registration.
func (s *Scheduler) Name() string {
	return "scheduler"
}

var _ healthcheck.Checker = (*Scheduler)(nil)
var _ api.Coordinator = (*Scheduler)(nil)
