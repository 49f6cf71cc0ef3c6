// Package config loads and validates the engine's YAML configuration and
// converts it into the typed structures the components consume.
package config

import (
	"fmt"
	"time"

	"github.com/alpenglow-labs/ridgecam/internal/burst"
	"github.com/alpenglow-labs/ridgecam/internal/schedule"
	"github.com/alpenglow-labs/ridgecam/internal/settings"
)

// ValidationError is a fatal configuration error. The daemon refuses to
// start on any ValidationError.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: invalid %s: %s", e.Field, e.Reason)
}

// Config is the full engine configuration document.
type Config struct {
	Site      SiteConfig       `mapstructure:"site"`
	Schedules []ScheduleConfig `mapstructure:"schedules"`
	Profiles  []ProfileConfig  `mapstructure:"profiles"`
	Camera    CameraConfig     `mapstructure:"camera"`
	Scheduler SchedulerConfig  `mapstructure:"scheduler"`
	Light     LightConfig      `mapstructure:"light"`
	MQTT      MQTTConfig       `mapstructure:"mqtt"`
	History   HistoryConfig    `mapstructure:"history"`
	API       APIConfig        `mapstructure:"api"`
}

// SiteConfig locates the installation for solar calculations.
type SiteConfig struct {
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	Timezone  string  `mapstructure:"timezone"`
}

// ScheduleConfig is the YAML shape of one capture schedule.
type ScheduleConfig struct {
	Name     string        `mapstructure:"name"`
	Kind     string        `mapstructure:"kind"`
	Anchor   string        `mapstructure:"anchor"`
	Offset   time.Duration `mapstructure:"offset"`
	Duration time.Duration `mapstructure:"duration"`
	Interval time.Duration `mapstructure:"interval"`
	Enabled  bool          `mapstructure:"enabled"`
	Profiles []string      `mapstructure:"profiles"`
}

// ProfileConfig is the YAML shape of one capture profile.
type ProfileConfig struct {
	ID         string          `mapstructure:"id"`
	Name       string          `mapstructure:"name"`
	Enabled    bool            `mapstructure:"enabled"`
	Settings   OverridesConfig `mapstructure:"settings"`
	AdaptiveWB CurveConfig     `mapstructure:"adaptive_wb"`
	AdaptiveEV CurveConfig     `mapstructure:"adaptive_ev"`
}

// CurveConfig enables an adaptive curve for a profile.
type CurveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Curve   string `mapstructure:"curve"`
}

// OverridesConfig holds the per-profile settings overrides; nil means the
// base value passes through.
type OverridesConfig struct {
	ISO          *int     `mapstructure:"iso"`
	ShutterSpeed *float64 `mapstructure:"shutter_speed"`
	AWBMode      *string  `mapstructure:"awb_mode"`
	WBTempK      *int     `mapstructure:"wb_temp_k"`
	HDRMode      *string  `mapstructure:"hdr_mode"`
	BracketCount *int     `mapstructure:"bracket_count"`
	AFMode       *string  `mapstructure:"af_mode"`
	LensPosition *float64 `mapstructure:"lens_position"`
	Sharpness    *float64 `mapstructure:"sharpness"`
	Contrast     *float64 `mapstructure:"contrast"`
	Saturation   *float64 `mapstructure:"saturation"`
}

// CameraConfig points at the capture device.
type CameraConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SchedulerConfig tunes the orchestrator loop.
type SchedulerConfig struct {
	Tick         time.Duration `mapstructure:"tick"`
	BurstTimeout time.Duration `mapstructure:"burst_timeout"`
}

// LightConfig tunes the light monitor and the tier thresholds.
type LightConfig struct {
	Interval   time.Duration    `mapstructure:"interval"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
}

// ThresholdsConfig is the YAML shape of the tier thresholds; zero values
// fall back to the production defaults.
type ThresholdsConfig struct {
	ReuseDelta       float64       `mapstructure:"reuse_delta"`
	AdaptDelta       float64       `mapstructure:"adapt_delta"`
	FocusJumpDelta   float64       `mapstructure:"focus_jump_delta"`
	MaxStaleness     time.Duration `mapstructure:"max_staleness"`
	FocusInterval    time.Duration `mapstructure:"focus_interval"`
	FocusMinInterval time.Duration `mapstructure:"focus_min_interval"`
}

// MQTTConfig configures the broker connection for outcome and health
// publishing. Disabled means the engine runs without a broker.
type MQTTConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BrokerURL      string        `mapstructure:"broker_url"`
	ClientID       string        `mapstructure:"client_id"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	KeepAlive      time.Duration `mapstructure:"keep_alive"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// HistoryConfig configures outcome retention. An empty DatabaseURL
// disables the Postgres store.
type HistoryConfig struct {
	Retention   int    `mapstructure:"retention"`
	DatabaseURL string `mapstructure:"database_url"`
}

// APIConfig configures the status HTTP server.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return nil, &ValidationError{Field: "site.timezone", Reason: err.Error()}
	}
	return loc, nil
}

// ScheduleDefinitions converts the schedule section into resolver input.
// Call only after Validate.
func (c *Config) ScheduleDefinitions() []schedule.Definition {
	defs := make([]schedule.Definition, 0, len(c.Schedules))
	for _, sc := range c.Schedules {
		defs = append(defs, schedule.Definition{
			Name:     sc.Name,
			Kind:     schedule.Kind(sc.Kind),
			Anchor:   schedule.Anchor(sc.Anchor),
			Offset:   sc.Offset,
			Duration: sc.Duration,
			Interval: sc.Interval,
			Enabled:  sc.Enabled,
			Profiles: sc.Profiles,
		})
	}
	return defs
}

// BurstProfiles converts the profile section into the burst controller's
// profile table, preserving declaration order.
func (c *Config) BurstProfiles() []burst.Profile {
	profiles := make([]burst.Profile, 0, len(c.Profiles))
	for _, pc := range c.Profiles {
		profiles = append(profiles, burst.Profile{
			ID:      pc.ID,
			Name:    pc.Name,
			Enabled: pc.Enabled,
			Base: burst.Overrides{
				ISO:          pc.Settings.ISO,
				ShutterSpeed: pc.Settings.ShutterSpeed,
				AWBMode:      pc.Settings.AWBMode,
				WBTempK:      pc.Settings.WBTempK,
				HDRMode:      pc.Settings.HDRMode,
				BracketCount: pc.Settings.BracketCount,
				AFMode:       pc.Settings.AFMode,
				LensPosition: pc.Settings.LensPosition,
				Sharpness:    pc.Settings.Sharpness,
				Contrast:     pc.Settings.Contrast,
				Saturation:   pc.Settings.Saturation,
			},
			AdaptiveWB: burst.AdaptiveWB{
				Enabled: pc.AdaptiveWB.Enabled,
				Curve:   burst.CurveName(pc.AdaptiveWB.Curve),
			},
			AdaptiveEV: burst.AdaptiveEV{
				Enabled: pc.AdaptiveEV.Enabled,
				Curve:   burst.CurveName(pc.AdaptiveEV.Curve),
			},
		})
	}
	return profiles
}

// SettingsThresholds returns the tier thresholds with defaults filled in
// for unset fields.
func (c *Config) SettingsThresholds() settings.Thresholds {
	th := settings.DefaultThresholds()
	tc := c.Light.Thresholds
	if tc.ReuseDelta > 0 {
		th.ReuseDelta = tc.ReuseDelta
	}
	if tc.AdaptDelta > 0 {
		th.AdaptDelta = tc.AdaptDelta
	}
	if tc.FocusJumpDelta > 0 {
		th.FocusJumpDelta = tc.FocusJumpDelta
	}
	if tc.MaxStaleness > 0 {
		th.MaxStaleness = tc.MaxStaleness
	}
	if tc.FocusInterval > 0 {
		th.FocusInterval = tc.FocusInterval
	}
	if tc.FocusMinInterval > 0 {
		th.FocusMinInterval = tc.FocusMinInterval
	}
	return th
}
