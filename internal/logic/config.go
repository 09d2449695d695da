package logic

import (
	"time"

	"github.com/pkg/errors"
)

// maxWindow is the longest stability window the wrapping millisecond clock can
// time. Elapsed values at or above half the clock range are ambiguous.
const maxWindow = time.Duration(1<<31) * time.Millisecond

// FilterConfig holds the debounce windows and hysteresis thresholds.
type FilterConfig struct {
	DigitalStable time.Duration
	AnalogStable  time.Duration
	MinVarMV      int
	MinVarUA      int
}

// DefaultFilterConfig returns the board defaults: 50ms windows, 100mV and 100µA
// thresholds.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		DigitalStable: 50 * time.Millisecond,
		AnalogStable:  50 * time.Millisecond,
		MinVarMV:      100,
		MinVarUA:      100,
	}
}

// Validate reports an ErrInvalidConfig error for negative values, windows with
// sub-millisecond parts, or windows too long for the millisecond clock.
func (c FilterConfig) Validate() error {
	if err := validateWindow("digital stable window", c.DigitalStable); err != nil {
		return err
	}
	if err := validateWindow("analog stable window", c.AnalogStable); err != nil {
		return err
	}
	if c.MinVarMV < 0 {
		return errors.Wrapf(ErrInvalidConfig, "voltage threshold %d mV is negative", c.MinVarMV)
	}
	if c.MinVarUA < 0 {
		return errors.Wrapf(ErrInvalidConfig, "current threshold %d uA is negative", c.MinVarUA)
	}
	return nil
}

func validateWindow(name string, d time.Duration) error {
	if d < 0 {
		return errors.Wrapf(ErrInvalidConfig, "%s %v is negative", name, d)
	}
	if d%time.Millisecond != 0 {
		return errors.Wrapf(ErrInvalidConfig, "%s %v is not a whole number of milliseconds", name, d)
	}
	if d >= maxWindow {
		return errors.Wrapf(ErrInvalidConfig, "%s %v exceeds clock range", name, d)
	}
	return nil
}

// Clock returns a monotonic millisecond timestamp that may wrap.
type Clock func() uint32

// MonotonicClock returns a Clock counting milliseconds since it was created.
func MonotonicClock() Clock {
	start := time.Now()
	return func() uint32 {
		return uint32(time.Since(start).Milliseconds())
	}
}

// elapsed returns the milliseconds from ref to now across clock wraparound.
func elapsed(ref, now uint32) uint32 {
	return now - ref
}
