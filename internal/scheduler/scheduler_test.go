package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpenglow-labs/ridgecam/internal/burst"
	"github.com/alpenglow-labs/ridgecam/internal/light"
	"github.com/alpenglow-labs/ridgecam/internal/schedule"
	"github.com/alpenglow-labs/ridgecam/internal/settings"
)

type fakeWindows struct {
	windows []schedule.Window
}

func (f *fakeWindows) ResolveWindows(defs []schedule.Definition, now time.Time) []schedule.Window {
	return f.windows
}

type fakeLight struct {
	sample light.Sample
	ok     bool
}

func (f *fakeLight) Snapshot() (light.Sample, bool) { return f.sample, f.ok }

type fakeSettings struct {
	result settings.Result
	err    error
	calls  int
}

func (f *fakeSettings) Acquire(ctx context.Context, current light.Sample) (settings.Result, error) {
	f.calls++
	if f.err != nil {
		return settings.Result{}, f.err
	}
	return f.result, nil
}

type fakeBursts struct {
	mu       sync.Mutex
	runs     [][]string // profile IDs per run
	failAll  bool
	blockCh  chan struct{} // when set, Run blocks until closed
}

func (f *fakeBursts) Run(ctx context.Context, scheduleName string, profiles []burst.Profile, acquired settings.Result, sample light.Sample) []burst.Outcome {
	f.mu.Lock()
	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	f.runs = append(f.runs, ids)
	block := f.blockCh
	f.mu.Unlock()

	if block != nil {
		<-block
	}

	outcomes := make([]burst.Outcome, 0, len(profiles))
	for _, p := range profiles {
		o := burst.Outcome{ID: "o-" + p.ID, Schedule: scheduleName, ProfileID: p.ID, Success: !f.failAll}
		if f.failAll {
			o.Error = "device returned 503"
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func (f *fakeBursts) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}

type fakeHealth struct {
	mu        sync.Mutex
	successes int
	failures  int
	lastErr   error
}

func (f *fakeHealth) RecordSuccess(at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.successes++
}

func (f *fakeHealth) RecordFailure(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures++
	f.lastErr = err
}

type fakeSink struct {
	mu       sync.Mutex
	outcomes []burst.Outcome
}

func (f *fakeSink) RecordAll(ctx context.Context, outcomes []burst.Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcomes...)
}

type harness struct {
	scheduler *Scheduler
	windows   *fakeWindows
	lights    *fakeLight
	settings  *fakeSettings
	bursts    *fakeBursts
	health    *fakeHealth
	sink      *fakeSink
}

var tickT0 = time.Date(2026, 8, 24, 6, 0, 3, 0, time.UTC)

func newHarness(t *testing.T, windows []schedule.Window) *harness {
	t.Helper()

	h := &harness{
		windows:  &fakeWindows{windows: windows},
		lights:   &fakeLight{sample: light.Sample{Lux: 1000, Timestamp: tickT0}, ok: true},
		settings: &fakeSettings{result: settings.Result{Tier: settings.TierCached}},
		bursts:   &fakeBursts{},
		health:   &fakeHealth{},
		sink:     &fakeSink{},
	}

	cfg := Config{
		Tick: time.Second,
		Definitions: []schedule.Definition{
			{Name: "morning", Kind: schedule.KindFixedTime, Enabled: true, Profiles: []string{"a", "b"}},
		},
		Profiles: []burst.Profile{
			{ID: "a", Enabled: true},
			{ID: "b", Enabled: true},
		},
	}

	s, err := New(cfg, Deps{
		Windows:  h.windows,
		Light:    h.lights,
		Settings: h.settings,
		Bursts:   h.bursts,
		Health:   h.health,
		History:  h.sink,
	}, nil)
	require.NoError(t, err)
	s.now = func() time.Time { return tickT0 }

	h.scheduler = s
	return h
}

func morningWindow() schedule.Window {
	return schedule.Window{
		Name:     "morning",
		Start:    time.Date(2026, 8, 24, 6, 0, 0, 0, time.UTC),
		End:      time.Date(2026, 8, 24, 7, 0, 0, 0, time.UTC),
		Interval: 5 * time.Second,
		Profiles: []string{"a", "b"},
	}
}

func (h *harness) tickAndWait(t *testing.T) {
	t.Helper()
	h.scheduler.tick(context.Background())
	h.scheduler.wg.Wait()
}

func TestNoActiveWindowNoCapture(t *testing.T) {
	h := newHarness(t, nil)

	h.tickAndWait(t)

	assert.Equal(t, 0, h.bursts.runCount())
	assert.Equal(t, 0, h.settings.calls)

	status := h.scheduler.Status()
	require.Len(t, status.Schedules, 1)
	assert.Equal(t, 0, status.Schedules[0].Rotation)
}

func TestDueWindowCapturesProfilesInOrder(t *testing.T) {
	h := newHarness(t, []schedule.Window{morningWindow()})

	h.tickAndWait(t)

	require.Equal(t, 1, h.bursts.runCount())
	assert.Equal(t, []string{"a", "b"}, h.bursts.runs[0])

	require.Len(t, h.sink.outcomes, 2)
	assert.Equal(t, "a", h.sink.outcomes[0].ProfileID)
	assert.Equal(t, "b", h.sink.outcomes[1].ProfileID)
}

func TestRotationAdvancesOnlyOnOverallSuccess(t *testing.T) {
	h := newHarness(t, []schedule.Window{morningWindow()})
	h.bursts.failAll = true

	h.tickAndWait(t)

	status := h.scheduler.Status()
	assert.Equal(t, 0, status.Schedules[0].Rotation, "failed burst must not advance rotation")
	assert.Nil(t, status.Schedules[0].LastCapture)

	h.bursts.failAll = false
	h.tickAndWait(t)

	status = h.scheduler.Status()
	assert.Equal(t, 1, status.Schedules[0].Rotation)
	require.NotNil(t, status.Schedules[0].LastCapture)
	assert.Equal(t, tickT0, *status.Schedules[0].LastCapture)
}

func TestAllProfileFailureRecordsOneHealthFailure(t *testing.T) {
	h := newHarness(t, []schedule.Window{morningWindow()})
	h.bursts.failAll = true

	h.tickAndWait(t)

	assert.Equal(t, 1, h.health.failures, "one health record per burst, not per profile")
	assert.Equal(t, 0, h.health.successes)
	assert.Contains(t, h.health.lastErr.Error(), "503")
	assert.Len(t, h.sink.outcomes, 2, "every profile outcome still recorded")
}

func TestSuccessfulBurstRecordsOneHealthSuccess(t *testing.T) {
	h := newHarness(t, []schedule.Window{morningWindow()})

	h.tickAndWait(t)

	assert.Equal(t, 1, h.health.successes)
	assert.Equal(t, 0, h.health.failures)
}

func TestIntervalGatesRepeatCaptures(t *testing.T) {
	h := newHarness(t, []schedule.Window{morningWindow()})

	h.tickAndWait(t)
	require.Equal(t, 1, h.bursts.runCount())

	// Same instant: interval has not elapsed since the successful capture.
	h.tickAndWait(t)
	assert.Equal(t, 1, h.bursts.runCount())

	// Past the interval: due again.
	h.scheduler.now = func() time.Time { return tickT0.Add(6 * time.Second) }
	h.tickAndWait(t)
	assert.Equal(t, 2, h.bursts.runCount())
}

func TestFailedBurstRetriesNextTick(t *testing.T) {
	h := newHarness(t, []schedule.Window{morningWindow()})
	h.bursts.failAll = true

	h.tickAndWait(t)
	h.tickAndWait(t)

	assert.Equal(t, 2, h.bursts.runCount(), "failures retry on the next tick instead of waiting out the interval")
	assert.Equal(t, 2, h.health.failures)
}

func TestSingleFlightPerSchedule(t *testing.T) {
	h := newHarness(t, []schedule.Window{morningWindow()})
	block := make(chan struct{})
	h.bursts.blockCh = block

	h.scheduler.tick(context.Background())

	// The burst is still in flight; another tick must not double-fire.
	assert.Eventually(t, func() bool { return h.bursts.runCount() == 1 }, time.Second, time.Millisecond)
	h.scheduler.tick(context.Background())
	assert.Equal(t, 1, h.bursts.runCount())

	status := h.scheduler.Status()
	assert.True(t, status.Schedules[0].InFlight)

	close(block)
	h.scheduler.wg.Wait()
	assert.False(t, h.scheduler.Status().Schedules[0].InFlight)
}

func TestSettingsFailureSkipsBurstAndRecordsFailure(t *testing.T) {
	h := newHarness(t, []schedule.Window{morningWindow()})
	h.settings.err = errors.New("no settings available")

	h.tickAndWait(t)

	assert.Equal(t, 0, h.bursts.runCount())
	assert.Equal(t, 1, h.health.failures)
	assert.Empty(t, h.sink.outcomes)
}

func TestStatusReportsActiveWindows(t *testing.T) {
	w := morningWindow()
	h := newHarness(t, []schedule.Window{w})

	h.tickAndWait(t)

	status := h.scheduler.Status()
	require.Len(t, status.ActiveWindows, 1)
	assert.Equal(t, "morning", status.ActiveWindows[0].Name)
	assert.Equal(t, w.Start, status.ActiveWindows[0].Start)
	assert.Equal(t, tickT0, status.LastTick)
}

func TestStartStopLifecycle(t *testing.T) {
	h := newHarness(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.scheduler.Start(ctx) }()

	assert.Eventually(t, func() bool { return h.scheduler.IsRunning() }, time.Second, time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, h.scheduler.Stop(stopCtx))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.False(t, h.scheduler.IsRunning())
}
