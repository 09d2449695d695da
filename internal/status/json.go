package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Ready         bool          `json:"ready"`
	LastError     string        `json:"last_error,omitempty"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Channels      []ChannelJSON `json:"channels"`
	Config        ConfigJSON    `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ChannelJSON is the JSON representation of one channel. Value is null
// until the channel has committed.
type ChannelJSON struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Value   *int   `json:"value"`
	Commits int    `json:"commits"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs          int64  `json:"poll_ms"`
	DigitalStableMs int64  `json:"digital_stable_ms"`
	AnalogStableMs  int64  `json:"analog_stable_ms"`
	MinVarMV        int    `json:"min_var_mv"`
	MinVarUA        int    `json:"min_var_ua"`
	HeartbeatMs     int64  `json:"heartbeat_ms"`
	Driver          string `json:"driver"`
	Broker          string `json:"broker"`
	HTTPAddr        string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	channels := make([]ChannelJSON, 0, len(snap.Channels))
	for _, ch := range snap.Channels {
		cj := ChannelJSON{ID: ch.ID, Kind: ch.Kind.String(), Commits: ch.Commits}
		if ch.Valid {
			v := ch.Value
			cj.Value = &v
		}
		channels = append(channels, cj)
	}

	c := snap.Config
	return StatusInner{
		Ready:         snap.Ready,
		LastError:     snap.LastError,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: c.Broker},
		Channels:      channels,
		Config: ConfigJSON{
			PollMs:          c.PollMs,
			DigitalStableMs: c.DigitalStableMs,
			AnalogStableMs:  c.AnalogStableMs,
			MinVarMV:        c.MinVarMV,
			MinVarUA:        c.MinVarUA,
			HeartbeatMs:     c.HeartbeatMs,
			Driver:          c.Driver,
			Broker:          c.Broker,
			HTTPAddr:        c.HTTPAddr,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
