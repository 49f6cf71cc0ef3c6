package light

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/alpenglow-labs/ridgecam/pkg/healthcheck"
)

// PublishFunc forwards a fresh sample to an external sink (MQTT). A nil
// publisher disables forwarding. Publish failures are logged, never fatal:
// the monitor must not stall on a slow broker.
type PublishFunc func(sample Sample) error

// Monitor polls a Sensor on a fixed cadence and holds the latest sample.
type Monitor struct {
	sensor    Sensor
	interval  time.Duration
	logger    *zap.Logger
	publisher PublishFunc

	current atomic.Pointer[Sample]

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	failures atomic.Int32
}

// NewMonitor creates a light monitor. interval defaults to 5s when zero.
func NewMonitor(sensor Sensor, interval time.Duration, publisher PublishFunc, logger *zap.Logger) (*Monitor, error) {
	if sensor == nil {
		return nil, fmt.Errorf("sensor cannot be nil")
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Monitor{
		sensor:    sensor,
		interval:  interval,
		publisher: publisher,
		logger:    logger.With(zap.String("component", "light_monitor")),
		stopCh:    make(chan struct{}),
	}, nil
}

// Start begins sampling. It takes one immediate sample so consumers have a
// snapshot before the first tick, then samples on the cadence until ctx is
// cancelled or Stop is called. Run it in its own goroutine.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("light monitor already running")
	}
	m.running = true
	stopCh := m.stopCh
	m.mu.Unlock()

	m.logger.Info("Starting light monitor",
		zap.String("sensor", m.sensor.Name()),
		zap.Duration("interval", m.interval))

	m.sampleOnce(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.setStopped()
			m.logger.Info("Light monitor stopped (context)")
			return nil
		case <-stopCh:
			m.setStopped()
			m.logger.Info("Light monitor stopped")
			return nil
		case <-ticker.C:
			m.sampleOnce(ctx)
		}
	}
}

// Stop signals the monitor loop to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	close(m.stopCh)
	m.stopCh = make(chan struct{})
}

// IsRunning reports whether the sampling loop is active.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) setStopped() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
}

// sampleOnce takes a single reading, bounded so one slow sensor read cannot
// push the cadence. On failure the previous snapshot stays in place and
// consumers see it age instead of blocking.
func (m *Monitor) sampleOnce(ctx context.Context) {
	sampleCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	sample, err := m.sensor.Sample(sampleCtx)
	if err != nil {
		m.failures.Add(1)
		m.logger.Warn("Light sample failed", zap.Error(err))
		return
	}
	m.failures.Store(0)

	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now()
	}
	m.current.Store(&sample)

	m.logger.Debug("Light sample taken",
		zap.Float64("lux", sample.Lux),
		zap.Bool("golden_hour", sample.GoldenHour),
		zap.Bool("blue_hour", sample.BlueHour))

	if m.publisher != nil {
		if err := m.publisher(sample); err != nil {
			m.logger.Warn("Failed to publish light sample", zap.Error(err))
		}
	}
}

// Snapshot returns a copy of the latest sample. ok is false until the first
// successful reading.
func (m *Monitor) Snapshot() (Sample, bool) {
	p := m.current.Load()
	if p == nil {
		return Sample{}, false
	}
	return *p, true
}

// Check implements healthcheck.Checker. The monitor degrades when samples
// go stale (two missed cadences) and is unhealthy when it has never sampled.
func (m *Monitor) Check(ctx context.Context) *healthcheck.Result {
	status := healthcheck.StatusHealthy
	message := "Light monitor is healthy"
	details := make(map[string]interface{})

	sample, ok := m.Snapshot()
	details["running"] = m.IsRunning()
	details["sensor"] = m.sensor.Name()
	details["consecutive_failures"] = m.failures.Load()

	switch {
	case !ok:
		status = healthcheck.StatusUnhealthy
		message = "No light sample available yet"
	case sample.Age(time.Now()) > 2*m.interval:
		status = healthcheck.StatusDegraded
		message = "Light sample is stale"
		details["sample_age_seconds"] = sample.Age(time.Now()).Seconds()
	default:
		details["lux"] = sample.Lux
	}

	return &healthcheck.Result{
		ComponentName: m.Name(),
		Status:        status,
		Message:       message,
		Timestamp:     time.Now(),
		Details:       details,
	}
}

// Name returns the component name for health registration.
func (m *Monitor) Name() string {
	return "light-monitor"
}

var _ healthcheck.Checker = (*Monitor)(nil)
