package history

import (
	"context"
	"fmt"

	"github.com/alpenglow-labs/ridgecam/internal/burst"
	"github.com/alpenglow-labs/ridgecam/pkg/mqtt"
)

// Publisher is the slice of the MQTT client the sink needs.
type Publisher interface {
	PublishJSON(topic string, qos byte, retained bool, payload interface{}) error
	IsConnected() bool
}

// MQTTSink publishes every outcome to the capture outcome topic, wrapped
// in the standard message envelope. QoS 1 gives at-least-once delivery to
// the dashboard; consumers dedupe on the outcome ID.
type MQTTSink struct {
	publisher Publisher
	source    string
}

// NewMQTTSink creates a sink publishing from the given source identity.
func NewMQTTSink(publisher Publisher, source string) *MQTTSink {
	return &MQTTSink{publisher: publisher, source: source}
}

// Write implements Sink.
func (s *MQTTSink) Write(ctx context.Context, outcome burst.Outcome) error {
	if !s.publisher.IsConnected() {
		return fmt.Errorf("mqtt sink: broker not connected")
	}

	msg, err := mqtt.NewMessage(mqtt.MessageTypeEvent, s.source, outcome)
	if err != nil {
		return fmt.Errorf("mqtt sink: envelope outcome: %w", err)
	}

	return s.publisher.PublishJSON(mqtt.CaptureOutcomeTopic(), 1, false, msg)
}

// Name implements Sink.
func (s *MQTTSink) Name() string {
	return "mqtt"
}

var _ Sink = (*MQTTSink)(nil)
