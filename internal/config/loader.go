package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/alpenglow-labs/ridgecam/internal/astro"
	"github.com/alpenglow-labs/ridgecam/internal/burst"
	"github.com/alpenglow-labs/ridgecam/internal/history"
	"github.com/alpenglow-labs/ridgecam/internal/schedule"
)

// Load reads the YAML document at path, applies defaults and validates.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("site.timezone", "UTC")
	v.SetDefault("camera.timeout", 10*time.Second)
	v.SetDefault("scheduler.tick", 30*time.Second)
	v.SetDefault("scheduler.burst_timeout", 2*time.Minute)
	v.SetDefault("light.interval", 5*time.Second)
	v.SetDefault("mqtt.keep_alive", 30*time.Second)
	v.SetDefault("mqtt.connect_timeout", 10*time.Second)
	v.SetDefault("mqtt.client_id", "ridgecam-engine")
	v.SetDefault("history.retention", history.DefaultRetention)
	v.SetDefault("api.listen_addr", ":8080")
}

// Validate checks the whole document. The first problem found is returned
// as a *ValidationError; the daemon must not start on any error.
func (c *Config) Validate() error {
	if err := astro.ValidateLocation(c.Site.Latitude, c.Site.Longitude); err != nil {
		return &ValidationError{
			Field:  "site",
			Reason: fmt.Sprintf("latitude %.4f / longitude %.4f out of range", c.Site.Latitude, c.Site.Longitude),
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	if c.Camera.BaseURL == "" {
		return &ValidationError{Field: "camera.base_url", Reason: "must be set"}
	}
	if c.Scheduler.Tick <= 0 {
		return &ValidationError{Field: "scheduler.tick", Reason: "must be positive"}
	}

	profileIDs := make(map[string]bool, len(c.Profiles))
	for i, p := range c.Profiles {
		if p.ID == "" {
			return &ValidationError{
				Field:  fmt.Sprintf("profiles[%d].id", i),
				Reason: "must be set",
			}
		}
		if profileIDs[p.ID] {
			return &ValidationError{
				Field:  fmt.Sprintf("profiles[%d].id", i),
				Reason: fmt.Sprintf("duplicate profile id %q", p.ID),
			}
		}
		profileIDs[p.ID] = true

		if err := validateCurve(p.AdaptiveWB); err != nil {
			return &ValidationError{
				Field:  fmt.Sprintf("profiles[%d].adaptive_wb.curve", i),
				Reason: err.Error(),
			}
		}
		if err := validateCurve(p.AdaptiveEV); err != nil {
			return &ValidationError{
				Field:  fmt.Sprintf("profiles[%d].adaptive_ev.curve", i),
				Reason: err.Error(),
			}
		}
	}

	scheduleNames := make(map[string]bool, len(c.Schedules))
	for i, s := range c.Schedules {
		field := func(name string) string { return fmt.Sprintf("schedules[%d].%s", i, name) }

		if s.Name == "" {
			return &ValidationError{Field: field("name"), Reason: "must be set"}
		}
		if scheduleNames[s.Name] {
			return &ValidationError{Field: field("name"), Reason: fmt.Sprintf("duplicate schedule name %q", s.Name)}
		}
		scheduleNames[s.Name] = true

		switch schedule.Kind(s.Kind) {
		case schedule.KindSolarRelative:
			switch schedule.Anchor(s.Anchor) {
			case schedule.AnchorSunrise, schedule.AnchorSunset, schedule.AnchorSolarNoon:
			default:
				return &ValidationError{Field: field("anchor"), Reason: fmt.Sprintf("unknown anchor %q", s.Anchor)}
			}
		case schedule.KindFixedTime:
		default:
			return &ValidationError{Field: field("kind"), Reason: fmt.Sprintf("unknown kind %q", s.Kind)}
		}

		if s.Duration <= 0 {
			return &ValidationError{Field: field("duration"), Reason: "must be positive"}
		}
		if s.Interval <= 0 {
			return &ValidationError{Field: field("interval"), Reason: "must be positive"}
		}

		// A schedule naming a profile that does not exist is a config
		// authoring mistake, not a runtime condition.
		for _, id := range s.Profiles {
			if !profileIDs[id] {
				return &ValidationError{
					Field:  field("profiles"),
					Reason: fmt.Sprintf("unknown profile id %q", id),
				}
			}
		}
	}

	if c.MQTT.Enabled && c.MQTT.BrokerURL == "" {
		return &ValidationError{Field: "mqtt.broker_url", Reason: "must be set when mqtt is enabled"}
	}
	if c.History.Retention < 0 {
		return &ValidationError{Field: "history.retention", Reason: "must not be negative"}
	}

	return nil
}

func validateCurve(cc CurveConfig) error {
	if !cc.Enabled {
		return nil
	}
	switch burst.CurveName(cc.Curve) {
	case burst.CurveWarm, burst.CurveBalanced, burst.CurveConservative, burst.CurveAdaptive:
		return nil
	default:
		return fmt.Errorf("unknown curve %q", cc.Curve)
	}
}
