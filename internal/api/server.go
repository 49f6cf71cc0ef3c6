// Package api serves the engine's status HTTP surface: device health,
// aggregated component health, capture history and schedule state.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alpenglow-labs/ridgecam/internal/burst"
	"github.com/alpenglow-labs/ridgecam/internal/camera"
	"github.com/alpenglow-labs/ridgecam/internal/scheduler"
	"github.com/alpenglow-labs/ridgecam/internal/settings"
	"github.com/alpenglow-labs/ridgecam/pkg/healthcheck"
)

// DeviceHealthSource serves the capture device's health snapshot.
type DeviceHealthSource interface {
	Snapshot() camera.HealthSnapshot
}

// HealthAggregator runs the component health checks.
type HealthAggregator interface {
	CheckAll(ctx context.Context) *healthcheck.AggregatedResult
}

// HistorySource serves recent capture outcomes.
type HistorySource interface {
	Recent(limit int) []burst.Outcome
}

// ScheduleSource serves the scheduler's state.
type ScheduleSource interface {
	Status() scheduler.Status
}

// SettingsStatusSource serves the settings cache state.
type SettingsStatusSource interface {
	SnapshotStatus() settings.Status
}

// Deps bundles the data sources behind the endpoints.
type Deps struct {
	Device    DeviceHealthSource
	Health    HealthAggregator
	History   HistorySource
	Scheduler ScheduleSource
	Settings  SettingsStatusSource
}

// Config holds the HTTP server settings.
type Config struct {
	ListenAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the status HTTP server.
type Server struct {
	config Config
	deps   Deps
	logger *zap.Logger
	stopCh chan struct{}
}

const defaultHistoryLimit = 50

// NewServer creates the status server.
func NewServer(config Config, deps Deps, logger *zap.Logger) (*Server, error) {
	if deps.Device == nil || deps.Health == nil || deps.History == nil ||
		deps.Scheduler == nil || deps.Settings == nil {
		return nil, fmt.Errorf("api server dependencies incomplete")
	}
	if config.ListenAddr == "" {
		config.ListenAddr = ":8080"
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 10 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		config: config,
		deps:   deps,
		logger: logger.With(zap.String("component", "api_server")),
		stopCh: make(chan struct{}),
	}, nil
}

// Start runs the HTTP server until ctx is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRouter()

	httpServer := &http.Server{
		Addr:         s.config.ListenAddr,
		Handler:      router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server starting", zap.String("address", httpServer.Addr))
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("Shutdown signal received")
	case <-s.stopCh:
		s.logger.Info("Server stop requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Error during HTTP server shutdown", zap.Error(err))
	}
	return nil
}

// Stop initiates a graceful shutdown.
func (s *Server) Stop() {
	close(s.stopCh)
}

func (s *Server) setupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(s.logger))

	router.GET("/health/device", s.handleDeviceHealth)
	router.GET("/healthz", s.handleHealthz)
	router.GET("/history", s.handleHistory)
	router.GET("/schedule/status", s.handleScheduleStatus)

	return router
}

// handleDeviceHealth serves the device tracker snapshot. The response is
// about the device only; an idle engine with no active window still
// reports a healthy device here.
func (s *Server) handleDeviceHealth(c *gin.Context) {
	snap := s.deps.Device.Snapshot()

	status := http.StatusOK
	if !snap.Healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, snap)
}

// handleHealthz serves the aggregated component health.
func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	result := s.deps.Health.CheckAll(ctx)

	status := http.StatusOK
	if result.OverallStatus == healthcheck.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, result)
}

// handleHistory serves recent capture outcomes, newest first.
func (s *Server) handleHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	outcomes := s.deps.History.Recent(limit)
	c.JSON(http.StatusOK, gin.H{
		"count":    len(outcomes),
		"outcomes": outcomes,
	})
}

// handleScheduleStatus serves the scheduler and settings-cache state.
func (s *Server) handleScheduleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"scheduler": s.deps.Scheduler.Status(),
		"settings":  s.deps.Settings.SnapshotStatus(),
	})
}

// loggingMiddleware logs each request with latency and status.
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
