//go:build !linux

package gpio

import "github.com/pkg/errors"

// CdevDriver is not available on non-Linux platforms.
type CdevDriver struct{ unsupported }

// NewCdevDriver returns an error on non-Linux platforms.
func NewCdevDriver(chip string) (*CdevDriver, error) {
	return nil, errors.New("gpio: cdev not supported on this platform (requires Linux)")
}

// RpioDriver is not available on non-Linux platforms.
type RpioDriver struct{ unsupported }

// NewRpioDriver returns an error on non-Linux platforms.
func NewRpioDriver() (*RpioDriver, error) {
	return nil, errors.New("gpio: rpio not supported on this platform (requires Linux)")
}

type unsupported struct{}

func (unsupported) Input(int) (Line, error) {
	return nil, errors.New("gpio: not supported")
}

func (unsupported) Output(int) (OutputLine, error) {
	return nil, errors.New("gpio: not supported")
}

func (unsupported) Close() error { return nil }
