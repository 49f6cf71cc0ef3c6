package light

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpenglow-labs/ridgecam/pkg/healthcheck"
)

// stubSensor is a scriptable test double for Sensor.
type stubSensor struct {
	mu      sync.Mutex
	samples []Sample
	errs    []error
	calls   int
}

func (s *stubSensor) Sample(ctx context.Context) (Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return Sample{}, s.errs[i]
	}
	if i < len(s.samples) {
		return s.samples[i], nil
	}
	return Sample{Timestamp: time.Now(), Lux: 100}, nil
}

func (s *stubSensor) Name() string { return "stub" }

func (s *stubSensor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestMonitorSnapshotBeforeFirstSample(t *testing.T) {
	m, err := NewMonitor(&stubSensor{}, time.Second, nil, nil)
	require.NoError(t, err)

	_, ok := m.Snapshot()
	assert.False(t, ok)
}

func TestMonitorSamplesAndPublishes(t *testing.T) {
	want := Sample{Timestamp: time.Now(), Lux: 4200, GoldenHour: true}
	sensor := &stubSensor{samples: []Sample{want}}

	var mu sync.Mutex
	var published []Sample
	publish := func(s Sample) error {
		mu.Lock()
		defer mu.Unlock()
		published = append(published, s)
		return nil
	}

	m, err := NewMonitor(sensor, 50*time.Millisecond, publish, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = m.Start(ctx)
		close(done)
	}()

	// The immediate startup sample makes the snapshot available without
	// waiting a full cadence.
	require.Eventually(t, func() bool {
		_, ok := m.Snapshot()
		return ok
	}, time.Second, 5*time.Millisecond)

	got, ok := m.Snapshot()
	require.True(t, ok)
	assert.Equal(t, want.Lux, got.Lux)
	assert.True(t, got.GoldenHour)

	mu.Lock()
	assert.NotEmpty(t, published)
	mu.Unlock()

	cancel()
	<-done
}

func TestMonitorKeepsLastSampleOnSensorError(t *testing.T) {
	good := Sample{Timestamp: time.Now(), Lux: 900}
	sensor := &stubSensor{
		samples: []Sample{good},
		errs:    []error{nil, errors.New("metering timeout"), errors.New("metering timeout")},
	}

	m, err := NewMonitor(sensor, 20*time.Millisecond, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = m.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return sensor.callCount() >= 3 }, time.Second, 5*time.Millisecond)

	got, ok := m.Snapshot()
	require.True(t, ok)
	assert.Equal(t, good.Lux, got.Lux, "failed reads must not clobber the last good sample")

	cancel()
	<-done
}

func TestMonitorStop(t *testing.T) {
	m, err := NewMonitor(&stubSensor{}, 10*time.Millisecond, nil, nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		_ = m.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, m.IsRunning, time.Second, time.Millisecond)
	m.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.False(t, m.IsRunning())
}

func TestMonitorHealthCheck(t *testing.T) {
	m, err := NewMonitor(&stubSensor{}, time.Second, nil, nil)
	require.NoError(t, err)

	t.Run("unhealthy before first sample", func(t *testing.T) {
		result := m.Check(context.Background())
		assert.Equal(t, healthcheck.StatusUnhealthy, result.Status)
	})

	t.Run("degraded on stale sample", func(t *testing.T) {
		stale := Sample{Timestamp: time.Now().Add(-time.Minute), Lux: 10}
		m.current.Store(&stale)
		result := m.Check(context.Background())
		assert.Equal(t, healthcheck.StatusDegraded, result.Status)
	})

	t.Run("healthy on fresh sample", func(t *testing.T) {
		fresh := Sample{Timestamp: time.Now(), Lux: 10}
		m.current.Store(&fresh)
		result := m.Check(context.Background())
		assert.Equal(t, healthcheck.StatusHealthy, result.Status)
	})
}

func TestSimulatedSensorDiurnalCurve(t *testing.T) {
	noon := time.Date(2026, 6, 21, 11, 15, 0, 0, time.UTC)
	midnight := time.Date(2026, 6, 21, 23, 30, 0, 0, time.UTC)

	sensor := NewSimulatedSensor(47.2692, 11.4041, func() time.Time { return noon })
	day, err := sensor.Sample(context.Background())
	require.NoError(t, err)

	sensor = NewSimulatedSensor(47.2692, 11.4041, func() time.Time { return midnight })
	night, err := sensor.Sample(context.Background())
	require.NoError(t, err)

	assert.Greater(t, day.Lux, 50000.0)
	assert.Less(t, night.Lux, 100.0)
	assert.False(t, day.GoldenHour)
}
