// Package analog provides analog-to-digital and digital-to-analog converter
// access for the board's analog inputs and output.
package analog

import "github.com/pkg/errors"

// Input is one converter channel. Read returns the voltage at the converter
// pin in millivolts, before the board's front-end calibration.
type Input interface {
	Read() (float64, error)
}

// ADC is a multi-channel analog-to-digital converter shared by all inputs.
type ADC interface {
	Input(channel int) (Input, error)
}

// DAC drives the analog output, in millivolts at the output terminal.
type DAC interface {
	Write(mV int) error
}

// Driver opens converters.
type Driver interface {
	// ADC opens the converter. Callers open it once and share it.
	ADC() (ADC, error)
	DAC(pin int) (DAC, error)
	Close() error
}

// FullScaleMV is the analog output range, 0-10V.
const FullScaleMV = 10000

// ErrOutOfRange is returned for output values outside 0..FullScaleMV.
var ErrOutOfRange = errors.New("analog: value out of range")

func checkRange(mV int) error {
	if mV < 0 || mV > FullScaleMV {
		return errors.Wrapf(ErrOutOfRange, "%d mV", mV)
	}
	return nil
}
