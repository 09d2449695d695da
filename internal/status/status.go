// Package status provides a thread-safe status tracker for the iono-io daemon.
// It is written by the polling loop and read by HTTP handlers and MQTT
// lifecycle messages.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/iono/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs          int64
	DigitalStableMs int64
	AnalogStableMs  int64
	MinVarMV        int
	MinVarUA        int
	HeartbeatMs     int64
	Driver          string
	Broker          string
	HTTPAddr        string
}

// ChannelStatus is the filtered state of one channel.
type ChannelStatus struct {
	ID      string
	Kind    logic.Kind
	Value   int
	Valid   bool // false until the first commit
	Commits int
}

// ChannelsFrom reads the committed state of every engine channel, in
// registry order.
func ChannelsFrom(e *logic.Engine) []ChannelStatus {
	counts := e.Counts()
	chans := e.Channels()
	out := make([]ChannelStatus, 0, len(chans))
	for _, ch := range chans {
		v, ok := e.Value(ch.ID)
		out = append(out, ChannelStatus{
			ID:      ch.ID,
			Kind:    ch.Kind,
			Value:   v,
			Valid:   ok,
			Commits: counts[ch.ID],
		})
	}
	return out
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Channels      []ChannelStatus
	Ready         bool
	LastError     string
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update sets channel states and readiness.
// Called from the polling loop after every successful sweep.
func (t *Tracker) Update(channels []ChannelStatus, ready bool) {
	t.mu.Lock()
	t.snap.Channels = channels
	t.snap.Ready = ready
	t.snap.LastError = ""
	t.mu.Unlock()
}

// SetError records the last sweep failure. It is cleared by Update.
func (t *Tracker) SetError(err error) {
	t.mu.Lock()
	if err != nil {
		t.snap.LastError = err.Error()
	} else {
		t.snap.LastError = ""
	}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Channels = append([]ChannelStatus(nil), t.snap.Channels...)
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
