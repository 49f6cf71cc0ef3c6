package burst

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alpenglow-labs/ridgecam/internal/camera"
	"github.com/alpenglow-labs/ridgecam/internal/light"
	"github.com/alpenglow-labs/ridgecam/internal/settings"
)

const (
	// DefaultRequestTimeout bounds a single capture request.
	DefaultRequestTimeout = 15 * time.Second
	// DefaultBurstDeadline bounds the whole burst; profiles not reached
	// before it fires are recorded as failed.
	DefaultBurstDeadline = 2 * time.Minute
)

// Outcome is the record of one profile's capture attempt within a burst.
type Outcome struct {
	ID        string        `json:"id"`
	Schedule  string        `json:"schedule"`
	ProfileID string        `json:"profile_id"`
	Timestamp time.Time     `json:"timestamp"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	ImageID   string        `json:"image_id,omitempty"`
	Tier      settings.Tier `json:"tier"`
	Degraded  bool          `json:"degraded"`
	Latency   time.Duration `json:"latency"`
}

// Capturer is the slice of the camera client the controller needs.
type Capturer interface {
	Capture(ctx context.Context, req camera.CaptureRequest) (*camera.CaptureResult, error)
}

// Controller runs the per-profile capture sequence for one trigger.
// Captures are sequential: the device serializes exposures and an
// interleaved burst would fight over the sensor.
type Controller struct {
	capturer       Capturer
	logger         *zap.Logger
	requestTimeout time.Duration
	burstDeadline  time.Duration
}

// NewController creates a burst controller over the given capturer.
func NewController(capturer Capturer, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		capturer:       capturer,
		logger:         logger.With(zap.String("component", "burst_controller")),
		requestTimeout: DefaultRequestTimeout,
		burstDeadline:  DefaultBurstDeadline,
	}
}

// WithTimeouts overrides the per-request timeout and burst deadline.
// Zero values keep the defaults.
func (c *Controller) WithTimeouts(requestTimeout, burstDeadline time.Duration) *Controller {
	if requestTimeout > 0 {
		c.requestTimeout = requestTimeout
	}
	if burstDeadline > 0 {
		c.burstDeadline = burstDeadline
	}
	return c
}

// Run captures once per enabled profile, in table order, against the
// acquired settings. One profile failing does not abort the rest; every
// enabled profile gets exactly one outcome.
func (c *Controller) Run(ctx context.Context, scheduleName string, profiles []Profile, acquired settings.Result, sample light.Sample) []Outcome {
	burstCtx, cancel := context.WithTimeout(ctx, c.burstDeadline)
	defer cancel()

	outcomes := make([]Outcome, 0, len(profiles))
	for _, p := range profiles {
		if !p.Enabled {
			continue
		}
		outcomes = append(outcomes, c.captureProfile(burstCtx, scheduleName, p, acquired, sample))
	}

	return outcomes
}

func (c *Controller) captureProfile(ctx context.Context, scheduleName string, p Profile, acquired settings.Result, sample light.Sample) Outcome {
	outcome := Outcome{
		ID:        uuid.NewString(),
		Schedule:  scheduleName,
		ProfileID: p.ID,
		Timestamp: time.Now().UTC(),
		Tier:      acquired.Tier,
		Degraded:  acquired.Degraded,
	}

	// The burst deadline fired before this profile's turn.
	if err := ctx.Err(); err != nil {
		outcome.Error = "burst deadline exceeded: " + err.Error()
		c.logger.Warn("Profile skipped, burst deadline exceeded",
			zap.String("schedule", scheduleName),
			zap.String("profile_id", p.ID))
		return outcome
	}

	merged := merge(acquired.Settings, p.Base)
	if p.AdaptiveWB.Enabled {
		applyAdaptiveWB(&merged, p.AdaptiveWB.Curve, sample)
	}
	if p.AdaptiveEV.Enabled {
		applyAdaptiveEV(&merged, p.AdaptiveEV.Curve, sample)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	start := time.Now()
	result, err := c.capturer.Capture(reqCtx, camera.CaptureRequest{
		ProfileID: p.ID,
		Schedule:  scheduleName,
		Settings:  merged,
	})
	outcome.Latency = time.Since(start)

	if err != nil {
		outcome.Error = err.Error()
		c.logger.Warn("Profile capture failed",
			zap.String("schedule", scheduleName),
			zap.String("profile_id", p.ID),
			zap.Duration("latency", outcome.Latency),
			zap.Error(err))
		return outcome
	}

	outcome.Success = true
	outcome.ImageID = result.ImageID
	c.logger.Info("Profile captured",
		zap.String("schedule", scheduleName),
		zap.String("profile_id", p.ID),
		zap.String("image_id", result.ImageID),
		zap.Duration("latency", outcome.Latency))
	return outcome
}

// OverallSuccess reports whether the burst as a whole succeeded: at least
// one outcome and no failures. The scheduler advances its rotation index
// only on an overall success.
func OverallSuccess(outcomes []Outcome) bool {
	if len(outcomes) == 0 {
		return false
	}
	for _, o := range outcomes {
		if !o.Success {
			return false
		}
	}
	return true
}
