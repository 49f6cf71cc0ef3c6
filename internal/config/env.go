package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Env carries deployment-level overrides. Everything here also exists in
// the YAML document; the environment wins so operators can point one
// image at different devices and brokers without editing config files.
type Env struct {
	ConfigPath    string `envconfig:"CONFIG" default:"config.yaml"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	CameraBaseURL string `envconfig:"CAMERA_BASE_URL"`
	MQTTBrokerURL string `envconfig:"MQTT_BROKER_URL"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	ListenAddr    string `envconfig:"LISTEN_ADDR"`
}

// LoadEnv reads RIDGECAM_* environment variables.
func LoadEnv() (*Env, error) {
	var e Env
	if err := envconfig.Process("ridgecam", &e); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	return &e, nil
}

// Apply lays the non-empty overrides over the loaded config.
func (e *Env) Apply(cfg *Config) {
	if e.CameraBaseURL != "" {
		cfg.Camera.BaseURL = e.CameraBaseURL
	}
	if e.MQTTBrokerURL != "" {
		cfg.MQTT.BrokerURL = e.MQTTBrokerURL
	}
	if e.DatabaseURL != "" {
		cfg.History.DatabaseURL = e.DatabaseURL
	}
	if e.ListenAddr != "" {
		cfg.API.ListenAddr = e.ListenAddr
	}
}
