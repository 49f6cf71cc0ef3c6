// Package mqtt defines message envelope structures for MQTT communication.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageType represents the type of message being sent.
type MessageType string

const (
	// MessageTypeEvent represents an event message (capture outcomes, window transitions)
	MessageTypeEvent MessageType = "event"
	// MessageTypeStatus represents a status update (health, schedule state)
	MessageTypeStatus MessageType = "status"
	// MessageTypeCommand represents a command message
	MessageTypeCommand MessageType = "command"
)

// Message is the envelope structure for all MQTT messages ridgecam emits.
type Message struct {
	// ID is a unique identifier for this message
	ID string `json:"id"`
	// Type indicates the message type
	Type MessageType `json:"type"`
	// Source identifies the sender (e.g., "engine:capture")
	Source string `json:"source"`
	// Timestamp when the message was created
	Timestamp time.Time `json:"timestamp"`
	// Payload contains the actual message data as JSON
	Payload json.RawMessage `json:"payload"`
}

// NewMessage creates a new message enveloping the given payload.
func NewMessage(msgType MessageType, source string, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Payload:   payloadBytes,
	}, nil
}

// UnmarshalPayload deserializes the payload into the provided structure.
func (m *Message) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(m.Payload, v)
}
