// Package mqtt provides MQTT publishing of channel changes and output commands,
// with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/sweeney/iono/internal/logic"
)

// Topic is the MQTT topic for channel change events.
const Topic = "iono/io/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "iono/io/system"

// TopicSetPrefix prefixes command topics; the last level is the channel id,
// e.g. iono/io/set/DO1.
const TopicSetPrefix = "iono/io/set/"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a channel event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// CommandSource delivers output commands received from the broker.
type CommandSource interface {
	Commands() <-chan Command
}

// Command asks for an output channel to be driven to Value.
type Command struct {
	Channel string
	Value   int
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Channel ChannelPayload `json:"channel"`
}

// ChannelPayload contains the channel event details.
type ChannelPayload struct {
	Timestamp string `json:"timestamp"`
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Value     int    `json:"value"`
}

// FormatPayload creates the JSON payload for a channel event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Channel: ChannelPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			ID:        event.Channel,
			Kind:      event.Kind.String(),
			Value:     event.Value,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// ParseCommand decodes a message on a set topic. The payload is a decimal
// integer, surrounding whitespace allowed.
func ParseCommand(topic string, payload []byte) (Command, error) {
	id := strings.TrimPrefix(topic, TopicSetPrefix)
	if id == topic || id == "" || strings.Contains(id, "/") {
		return Command{}, errors.Errorf("not a command topic: %q", topic)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(payload)))
	if err != nil {
		return Command{}, errors.Wrapf(err, "command for %s", id)
	}
	return Command{Channel: id, Value: v}, nil
}
