package logic

import (
	"time"
)

// filterState tracks debounce state for a single channel.
type filterState struct {
	// Whether a value has ever been committed
	committed bool
	// Last accepted, stable value
	value int
	// Last instant the channel was not mid-deviation
	ref uint32
	// Number of commits, including the first
	commits int
}

// params are the per-class filter parameters.
type params struct {
	stableMs uint32
	minVar   int
}

// Engine debounces every channel of a registry and reports committed changes.
// It is not safe for concurrent use; Process is meant to be called from a
// single polling loop.
type Engine struct {
	channels []Channel
	index    map[string]int
	states   []filterState
	params   []params
	now      Clock
}

// NewEngine creates a filter engine with one state per registry channel.
func NewEngine(reg *Registry, cfg FilterConfig, clock Clock) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = MonotonicClock()
	}

	channels := reg.Channels()
	e := &Engine{
		channels: channels,
		index:    make(map[string]int, len(channels)),
		states:   make([]filterState, len(channels)),
		params:   make([]params, len(channels)),
		now:      clock,
	}
	for i, ch := range channels {
		e.index[ch.ID] = i
		e.params[i] = paramsFor(ch.Kind, cfg)
	}
	return e, nil
}

func paramsFor(k Kind, cfg FilterConfig) params {
	switch k {
	case AnalogVoltageInput:
		return params{stableMs: uint32(cfg.AnalogStable.Milliseconds()), minVar: cfg.MinVarMV}
	case AnalogCurrentInput:
		return params{stableMs: uint32(cfg.AnalogStable.Milliseconds()), minVar: cfg.MinVarUA}
	case AnalogOutput:
		// Commanded writes show up on the next sweep.
		return params{}
	default:
		return params{stableMs: uint32(cfg.DigitalStable.Milliseconds())}
	}
}

// Process samples every channel once and returns the channels whose committed
// value changed, in registry order. The first sweep commits every channel.
//
// If any channel fails to sample, Process returns a *HardwareError and no
// filter state is modified.
func (e *Engine) Process() ([]Channel, error) {
	ts := e.now()

	samples := make([]int, len(e.channels))
	for i, ch := range e.channels {
		v, err := ch.Source.Sample()
		if err != nil {
			return nil, &HardwareError{Channel: ch.ID, Err: err}
		}
		samples[i] = v
	}

	var changed []Channel
	for i, v := range samples {
		if e.states[i].update(v, ts, e.params[i]) {
			changed = append(changed, e.channels[i])
		}
	}
	return changed, nil
}

// update applies one sample and reports whether it was committed.
func (s *filterState) update(val int, ts uint32, p params) bool {
	if s.committed && val == s.value {
		// At the stable value: any future deviation is timed from now.
		s.ref = ts
		return false
	}

	if s.committed && abs(s.value-val) < p.minVar {
		// Within the hysteresis band, no deviation in progress.
		s.ref = ts
		return false
	}

	if !s.committed || elapsed(s.ref, ts) >= p.stableMs {
		s.committed = true
		s.value = val
		s.ref = ts
		s.commits++
		return true
	}

	// Deviation still settling; ref keeps its original instant.
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Value returns the last committed value of a channel. ok is false for an
// unknown id or a channel that has not committed yet.
func (e *Engine) Value(id string) (value int, ok bool) {
	i, found := e.index[id]
	if !found || !e.states[i].committed {
		return 0, false
	}
	return e.states[i].value, true
}

// Channel returns the channel with the given id.
func (e *Engine) Channel(id string) (Channel, bool) {
	i, ok := e.index[id]
	if !ok {
		return Channel{}, false
	}
	return e.channels[i], true
}

// Channels returns the channels in registry order.
func (e *Engine) Channels() []Channel {
	out := make([]Channel, len(e.channels))
	copy(out, e.channels)
	return out
}

// Ready reports whether every channel has a committed value.
func (e *Engine) Ready() bool {
	for i := range e.states {
		if !e.states[i].committed {
			return false
		}
	}
	return true
}

// Counts returns a snapshot of commits per channel.
func (e *Engine) Counts() EventCounts {
	counts := make(EventCounts, len(e.channels))
	for i, ch := range e.channels {
		counts[ch.ID] = e.states[i].commits
	}
	return counts
}

// Events converts the result of Process into publishable events carrying the
// newly committed values.
func (e *Engine) Events(changed []Channel, at time.Time) []Event {
	events := make([]Event, 0, len(changed))
	for _, ch := range changed {
		v, _ := e.Value(ch.ID)
		events = append(events, Event{
			Timestamp: at,
			Channel:   ch.ID,
			Kind:      ch.Kind,
			Value:     v,
		})
	}
	return events
}
