package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpenglow-labs/ridgecam/internal/burst"
	"github.com/alpenglow-labs/ridgecam/internal/camera"
	"github.com/alpenglow-labs/ridgecam/internal/scheduler"
	"github.com/alpenglow-labs/ridgecam/internal/settings"
	"github.com/alpenglow-labs/ridgecam/pkg/healthcheck"
)

type stubDevice struct{ snap camera.HealthSnapshot }

func (s *stubDevice) Snapshot() camera.HealthSnapshot { return s.snap }

type stubHealth struct{ result *healthcheck.AggregatedResult }

func (s *stubHealth) CheckAll(ctx context.Context) *healthcheck.AggregatedResult { return s.result }

type stubHistory struct {
	outcomes  []burst.Outcome
	lastLimit int
}

func (s *stubHistory) Recent(limit int) []burst.Outcome {
	s.lastLimit = limit
	if limit > 0 && limit < len(s.outcomes) {
		return s.outcomes[:limit]
	}
	return s.outcomes
}

type stubScheduler struct{ status scheduler.Status }

func (s *stubScheduler) Status() scheduler.Status { return s.status }

type stubSettings struct{ status settings.Status }

func (s *stubSettings) SnapshotStatus() settings.Status { return s.status }

type apiHarness struct {
	server    *Server
	device    *stubDevice
	health    *stubHealth
	history   *stubHistory
	scheduler *stubScheduler
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	h := &apiHarness{
		device: &stubDevice{snap: camera.HealthSnapshot{Healthy: true}},
		health: &stubHealth{result: &healthcheck.AggregatedResult{
			OverallStatus: healthcheck.StatusHealthy,
			Components:    map[string]*healthcheck.Result{},
			Timestamp:     time.Now(),
		}},
		history:   &stubHistory{},
		scheduler: &stubScheduler{},
	}

	server, err := NewServer(Config{}, Deps{
		Device:    h.device,
		Health:    h.health,
		History:   h.history,
		Scheduler: h.scheduler,
		Settings:  &stubSettings{},
	}, nil)
	require.NoError(t, err)

	h.server = server
	return h
}

func (h *apiHarness) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.server.setupRouter().ServeHTTP(rec, req)
	return rec
}

func TestDeviceHealthHealthy(t *testing.T) {
	h := newAPIHarness(t)
	ts := time.Date(2026, 8, 24, 6, 30, 0, 0, time.UTC)
	h.device.snap = camera.HealthSnapshot{
		Healthy:     true,
		LastSuccess: &ts,
	}

	rec := h.get(t, "/health/device")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["healthy"])
	assert.Equal(t, "2026-08-24T06:30:00Z", body["last_success"])
}

func TestDeviceHealthUnhealthyIs503(t *testing.T) {
	h := newAPIHarness(t)
	h.device.snap = camera.HealthSnapshot{
		Healthy:             false,
		ConsecutiveFailures: 4,
		LastError:           "connection refused",
	}

	rec := h.get(t, "/health/device")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(4), body["consecutive_failures"])
	assert.Nil(t, body["last_success"], "never-succeeded device serves null")
	assert.Equal(t, "connection refused", body["last_error"])
}

func TestHealthzAggregates(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	h.health.result.OverallStatus = healthcheck.StatusUnhealthy
	rec = h.get(t, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h.health.result.OverallStatus = healthcheck.StatusDegraded
	rec = h.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code, "degraded still serves traffic")
}

func TestHistoryEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	h.history.outcomes = []burst.Outcome{
		{ID: "o-2", ProfileID: "standard", Success: true},
		{ID: "o-1", ProfileID: "hdr", Success: false},
	}

	rec := h.get(t, "/history")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultHistoryLimit, h.history.lastLimit)

	var body struct {
		Count    int             `json:"count"`
		Outcomes []burst.Outcome `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "o-2", body.Outcomes[0].ID)
}

func TestHistoryLimitValidation(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.get(t, "/history?limit=1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, h.history.lastLimit)

	rec = h.get(t, "/history?limit=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.get(t, "/history?limit=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduleStatusEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	h.scheduler.status = scheduler.Status{
		Running: true,
		ActiveWindows: []scheduler.WindowStatus{
			{Name: "morning"},
		},
		Schedules: []scheduler.ScheduleStatus{
			{Name: "morning", Rotation: 7},
		},
	}

	rec := h.get(t, "/schedule/status")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Scheduler scheduler.Status `json:"scheduler"`
		Settings  settings.Status  `json:"settings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Scheduler.Running)
	require.Len(t, body.Scheduler.Schedules, 1)
	assert.Equal(t, 7, body.Scheduler.Schedules[0].Rotation)
}

func TestNewServerRequiresDeps(t *testing.T) {
	_, err := NewServer(Config{}, Deps{}, nil)
	assert.Error(t, err)
}
