// Package main runs a virtual capture device for local development: it
// implements the device HTTP surface the engine talks to, with adjustable
// failure injection.
package main

import (
	"context"
	"flag"
	"math"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alpenglow-labs/ridgecam/internal/astro"
	"github.com/alpenglow-labs/ridgecam/internal/camera"
)

type simulator struct {
	logger       *zap.Logger
	lat, lon     float64
	captureDelay time.Duration

	mu           sync.Mutex
	failNext     int
	lensPosition float64
}

func main() {
	listenAddr := flag.String("listen", ":9000", "Listen address")
	latitude := flag.Float64("latitude", 47.2692, "Simulated site latitude")
	longitude := flag.Float64("longitude", 11.4041, "Simulated site longitude")
	captureDelay := flag.Duration("capture-delay", 300*time.Millisecond, "Simulated exposure duration")
	logLevel := flag.String("log-level", "info", "Log level (debug, info)")
	flag.Parse()

	var logger *zap.Logger
	var err error
	switch *logLevel {
	case "debug":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	sim := &simulator{
		logger:       logger.With(zap.String("component", "camera_simulator")),
		lat:          *latitude,
		lon:          *longitude,
		captureDelay: *captureDelay,
		lensPosition: 3.5,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/capture", sim.handleCapture)
	router.GET("/meter", sim.handleMeter)
	router.POST("/focus", sim.handleFocus)
	router.POST("/simulator/fail", sim.handleInjectFailure)

	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: router,
	}

	go func() {
		sim.logger.Info("Camera simulator listening", zap.String("address", *listenAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sim.logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	sim.logger.Info("Camera simulator stopped")
}

// shouldFail consumes one injected failure if any are pending.
func (s *simulator) shouldFail() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext > 0 {
		s.failNext--
		return true
	}
	return false
}

func (s *simulator) handleCapture(c *gin.Context) {
	var req camera.CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid capture payload: " + err.Error()})
		return
	}

	if s.shouldFail() {
		s.logger.Warn("Injected capture failure", zap.String("profile", req.ProfileID))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "injected failure"})
		return
	}

	time.Sleep(s.captureDelay)

	result := camera.CaptureResult{
		ImageID:    uuid.NewString(),
		CapturedAt: time.Now().UTC(),
		ExposureUs: int64(req.ShutterSpeed * 1e6),
	}

	s.logger.Info("Capture simulated",
		zap.String("profile", req.ProfileID),
		zap.String("schedule", req.Schedule),
		zap.Int("iso", req.ISO),
		zap.String("image_id", result.ImageID))

	c.JSON(http.StatusOK, result)
}

// handleMeter derives a plausible lux value from the sun's elevation at the
// simulated site, with a little jitter so the engine's delta logic gets
// exercised.
func (s *simulator) handleMeter(c *gin.Context) {
	if s.shouldFail() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "injected failure"})
		return
	}

	now := time.Now()
	elev := astro.Elevation(now, s.lat, s.lon)

	var lux float64
	switch {
	case elev <= -6:
		lux = 1
	case elev < 0:
		lux = 1 + (elev+6)/6*79
	default:
		lux = 80 + 100000*math.Sin(elev*math.Pi/180)
	}
	lux *= 1 + (rand.Float64()-0.5)*0.04

	c.JSON(http.StatusOK, camera.MeterReading{
		Lux:        lux,
		MeasuredAt: now.UTC(),
	})
}

func (s *simulator) handleFocus(c *gin.Context) {
	if s.shouldFail() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "injected failure"})
		return
	}

	// An autofocus sweep is the slow path the engine rate-limits.
	time.Sleep(2 * s.captureDelay)

	s.mu.Lock()
	s.lensPosition = 2.5 + rand.Float64()*2
	lens := s.lensPosition
	s.mu.Unlock()

	c.JSON(http.StatusOK, camera.FocusResult{
		LensPosition: lens,
		DurationMs:   (2 * s.captureDelay).Milliseconds(),
	})
}

// handleInjectFailure arms the simulator to fail the next N device calls.
func (s *simulator) handleInjectFailure(c *gin.Context) {
	var req struct {
		Count int `json:"count"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Count < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "count must be a non-negative integer"})
		return
	}

	s.mu.Lock()
	s.failNext = req.Count
	s.mu.Unlock()

	s.logger.Info("Failure injection armed", zap.Int("count", req.Count))
	c.JSON(http.StatusOK, gin.H{"fail_next": req.Count})
}
