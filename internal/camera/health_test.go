package camera

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpenglow-labs/ridgecam/pkg/healthcheck"
)

func TestHealthTrackerStartsHealthy(t *testing.T) {
	tracker := NewHealthTracker(3, nil)

	snap := tracker.Snapshot()
	assert.True(t, snap.Healthy)
	assert.Zero(t, snap.ConsecutiveFailures)
	assert.Nil(t, snap.LastSuccess)
	assert.Empty(t, snap.LastError)
}

func TestHealthTrackerThreeFailuresFlipUnhealthy(t *testing.T) {
	tracker := NewHealthTracker(3, nil)
	failure := errors.New("device returned 503")

	tracker.RecordFailure(failure)
	tracker.RecordFailure(failure)
	assert.True(t, tracker.Snapshot().Healthy, "below threshold must stay healthy")

	tracker.RecordFailure(failure)
	snap := tracker.Snapshot()
	assert.False(t, snap.Healthy)
	assert.Equal(t, 3, snap.ConsecutiveFailures)
	assert.Equal(t, "device returned 503", snap.LastError)
}

func TestHealthTrackerSuccessResets(t *testing.T) {
	tracker := NewHealthTracker(3, nil)
	failure := errors.New("timeout")

	for i := 0; i < 5; i++ {
		tracker.RecordFailure(failure)
	}
	require.False(t, tracker.Snapshot().Healthy)

	at := time.Date(2026, 8, 24, 6, 0, 3, 0, time.UTC)
	tracker.RecordSuccess(at)

	snap := tracker.Snapshot()
	assert.True(t, snap.Healthy, "one success flips the device back healthy")
	assert.Zero(t, snap.ConsecutiveFailures)
	assert.Empty(t, snap.LastError)
	require.NotNil(t, snap.LastSuccess)
	assert.Equal(t, at, *snap.LastSuccess)
}

func TestHealthTrackerFailureKeepsLastSuccess(t *testing.T) {
	tracker := NewHealthTracker(3, nil)

	at := time.Date(2026, 8, 24, 6, 0, 3, 0, time.UTC)
	tracker.RecordSuccess(at)
	tracker.RecordFailure(errors.New("timeout"))

	snap := tracker.Snapshot()
	require.NotNil(t, snap.LastSuccess)
	assert.Equal(t, at, *snap.LastSuccess)
	assert.Equal(t, 1, snap.ConsecutiveFailures)
	assert.True(t, snap.Healthy)
}

func TestHealthTrackerDefaultThreshold(t *testing.T) {
	tracker := NewHealthTracker(0, nil)
	failure := errors.New("boom")

	tracker.RecordFailure(failure)
	tracker.RecordFailure(failure)
	assert.True(t, tracker.Snapshot().Healthy)

	tracker.RecordFailure(failure)
	assert.False(t, tracker.Snapshot().Healthy)
}

func TestHealthTrackerCheck(t *testing.T) {
	tracker := NewHealthTracker(2, nil)

	result := tracker.Check(context.Background())
	assert.Equal(t, healthcheck.StatusHealthy, result.Status)

	tracker.RecordFailure(errors.New("flaky"))
	result = tracker.Check(context.Background())
	assert.Equal(t, healthcheck.StatusDegraded, result.Status)

	tracker.RecordFailure(errors.New("flaky"))
	result = tracker.Check(context.Background())
	assert.Equal(t, healthcheck.StatusUnhealthy, result.Status)
	assert.Equal(t, 2, result.Details["consecutive_failures"])
}
