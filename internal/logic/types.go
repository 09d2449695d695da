// Package logic contains the pure channel filtering logic for the I/O board.
// This package has NO hardware or network dependencies (no GPIO, ADC, MQTT, or
// time.Sleep). Time is always injectable via a Clock or time.Time parameters.
package logic

import (
	"time"

	"github.com/pkg/errors"
)

// Kind is the class of a channel. It selects the filter parameters.
type Kind int

const (
	DigitalInput Kind = iota
	DigitalOutput
	AnalogVoltageInput
	AnalogCurrentInput
	AnalogOutput
)

func (k Kind) String() string {
	switch k {
	case DigitalInput:
		return "DI"
	case DigitalOutput:
		return "DO"
	case AnalogVoltageInput:
		return "AV"
	case AnalogCurrentInput:
		return "AI"
	case AnalogOutput:
		return "AO"
	}
	return "UNKNOWN"
}

// IsOutput reports whether channels of this kind echo a commanded value.
func (k Kind) IsOutput() bool {
	return k == DigitalOutput || k == AnalogOutput
}

// RawChannel is the capability to read a channel's current raw value.
// Digital lines return 0 or 1, analog inputs return engineering units
// (mV or µA), outputs return the value they were last driven to.
type RawChannel interface {
	Sample() (int, error)
}

// Writer is implemented by raw channels that can be commanded.
type Writer interface {
	Write(value int) error
}

// Channel is one named logical I/O point on the board.
type Channel struct {
	ID     string
	Kind   Kind
	Source RawChannel
}

func (c Channel) String() string {
	return c.ID
}

// Errors returned by this package. Use errors.Is to test for them.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrHardwareIO    = errors.New("hardware i/o error")
)

// HardwareError reports a failed sample on a specific channel.
type HardwareError struct {
	Channel string
	Err     error
}

func (e *HardwareError) Error() string {
	return "sample " + e.Channel + ": " + e.Err.Error()
}

func (e *HardwareError) Unwrap() error { return e.Err }

// Is makes every HardwareError match ErrHardwareIO.
func (e *HardwareError) Is(target error) bool {
	return target == ErrHardwareIO
}

// Event is a committed value change to be published.
type Event struct {
	Timestamp time.Time
	Channel   string
	Kind      Kind
	Value     int
}

// EventCounts tracks the number of commits per channel id since startup.
type EventCounts map[string]int

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
