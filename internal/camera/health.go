package camera

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alpenglow-labs/ridgecam/pkg/healthcheck"
)

// DefaultFailureThreshold is the consecutive-failure count that flips the
// device unhealthy.
const DefaultFailureThreshold = 3

// HealthSnapshot is the read-only view handed to health endpoints.
type HealthSnapshot struct {
	Healthy             bool       `json:"healthy"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastSuccess         *time.Time `json:"last_success"`
	LastError           string     `json:"last_error,omitempty"`
}

// HealthTracker maintains the device's rolling success/failure status.
// Writes come from a single goroutine (the scheduler); reads may come from
// anywhere and always see a consistent snapshot. State survives for the
// process lifetime and is never reset except by restart.
type HealthTracker struct {
	mu                  sync.RWMutex
	threshold           int
	consecutiveFailures int
	healthy             bool
	lastSuccess         *time.Time
	lastError           error
	logger              *zap.Logger
}

// NewHealthTracker creates a tracker. threshold defaults to
// DefaultFailureThreshold when zero or negative.
func NewHealthTracker(threshold int, logger *zap.Logger) *HealthTracker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthTracker{
		threshold: threshold,
		healthy:   true,
		logger:    logger.With(zap.String("component", "device_health")),
	}
}

// RecordSuccess resets the failure counter, clears the last error and flips
// the device healthy immediately.
func (t *HealthTracker) RecordSuccess(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	wasUnhealthy := !t.healthy
	t.consecutiveFailures = 0
	t.healthy = true
	t.lastError = nil
	ts := at
	t.lastSuccess = &ts

	if wasUnhealthy {
		t.logger.Info("Device recovered")
	}
}

// RecordFailure increments the consecutive-failure counter and stores the
// error. Crossing the threshold flips the device unhealthy. Health is not
// cleared until the next success.
func (t *HealthTracker) RecordFailure(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.consecutiveFailures++
	t.lastError = err

	if t.healthy && t.consecutiveFailures >= t.threshold {
		t.healthy = false
		t.logger.Warn("Device marked unhealthy",
			zap.Int("consecutive_failures", t.consecutiveFailures),
			zap.Error(err))
	}
}

// Snapshot returns an immutable copy of the current state.
func (t *HealthTracker) Snapshot() HealthSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := HealthSnapshot{
		Healthy:             t.healthy,
		ConsecutiveFailures: t.consecutiveFailures,
	}
	if t.lastSuccess != nil {
		ts := *t.lastSuccess
		snap.LastSuccess = &ts
	}
	if t.lastError != nil {
		snap.LastError = t.lastError.Error()
	}
	return snap
}

// Check implements healthcheck.Checker so the device feeds the aggregate
// component health. A failing device is distinct from "no active window":
// the tracker only changes on actual capture attempts.
func (t *HealthTracker) Check(ctx context.Context) *healthcheck.Result {
	snap := t.Snapshot()

	status := healthcheck.StatusHealthy
	message := "Capture device is healthy"
	if !snap.Healthy {
		status = healthcheck.StatusUnhealthy
		message = "Capture device is failing"
	} else if snap.ConsecutiveFailures > 0 {
		status = healthcheck.StatusDegraded
		message = "Capture device has recent failures"
	}

	details := map[string]interface{}{
		"consecutive_failures": snap.ConsecutiveFailures,
	}
	if snap.LastSuccess != nil {
		details["last_success"] = snap.LastSuccess.Format(time.RFC3339)
	}
	if snap.LastError != "" {
		details["last_error"] = snap.LastError
	}

	return &healthcheck.Result{
		ComponentName: t.Name(),
		Status:        status,
		Message:       message,
		Timestamp:     time.Now(),
		Details:       details,
	}
}

// Name returns the component name for health registration.
func (t *HealthTracker) Name() string {
	return "capture-device"
}

var _ healthcheck.Checker = (*HealthTracker)(nil)
