// Package mqtt defines topic conventions for ridgecam.
package mqtt

import (
	"fmt"
	"strings"
)

// Topic naming conventions.
// Format: ridgecam/engine/{component}/{action}/{resource}
const (
	// TopicPrefix is the root prefix for all ridgecam topics
	TopicPrefix = "ridgecam"

	// ComponentEngine groups topics emitted by the capture engine process
	ComponentEngine = "engine"

	// Actions
	ActionEvent  = "event"
	ActionStatus = "status"
	ActionHealth = "health"

	// Components
	ComponentCapture   = "capture"
	ComponentScheduler = "scheduler"
	ComponentDevice    = "device"
	ComponentLight     = "light"
)

// CaptureOutcomeTopic is the topic carrying per-attempt capture outcomes,
// consumed by the dashboard's history view.
func CaptureOutcomeTopic() string {
	return join(TopicPrefix, ComponentEngine, ComponentCapture, ActionEvent, "outcome")
}

// DeviceHealthTopic carries device health snapshots.
func DeviceHealthTopic() string {
	return join(TopicPrefix, ComponentEngine, ComponentDevice, ActionHealth, "status")
}

// EngineHealthTopic carries aggregated component health for a named engine instance.
func EngineHealthTopic(name string) string {
	return join(TopicPrefix, ComponentEngine, name, ActionHealth, "status")
}

// ScheduleStatusTopic carries active-window and rotation state.
func ScheduleStatusTopic() string {
	return join(TopicPrefix, ComponentEngine, ComponentScheduler, ActionStatus, "windows")
}

// LightSampleTopic carries ambient light samples from the monitor.
func LightSampleTopic() string {
	return join(TopicPrefix, ComponentEngine, ComponentLight, ActionEvent, "sample")
}

func join(parts ...string) string {
	return strings.Join(parts, "/")
}

// ParseTopic extracts segments from a topic string.
func ParseTopic(topic string) ([]string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 || parts[0] != TopicPrefix {
		return nil, fmt.Errorf("invalid topic format: must start with %s", TopicPrefix)
	}
	return parts[1:], nil
}

// ValidateTopic checks if a topic follows ridgecam conventions.
func ValidateTopic(topic string) bool {
	parts := strings.Split(topic, "/")
	return len(parts) >= 3 && parts[0] == TopicPrefix
}
