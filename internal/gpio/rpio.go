//go:build linux

package gpio

import (
	"github.com/pkg/errors"
	"github.com/stianeikeland/go-rpio/v4"
)

// RpioDriver drives lines through BCM2835 register access (/dev/gpiomem).
// Reads and writes cannot fail once the memory is mapped.
type RpioDriver struct {
	outputs []rpio.Pin
}

// NewRpioDriver maps the GPIO registers.
func NewRpioDriver() (*RpioDriver, error) {
	if err := rpio.Open(); err != nil {
		return nil, errors.Wrap(err, "open rpio")
	}
	return &RpioDriver{}, nil
}

type rpioLine struct {
	pin rpio.Pin
}

func (l rpioLine) Read() (bool, error) {
	return l.pin.Read() == rpio.High, nil
}

func (l rpioLine) Write(high bool) error {
	if high {
		l.pin.High()
	} else {
		l.pin.Low()
	}
	return nil
}

// Input configures offset as an input.
func (d *RpioDriver) Input(offset int) (Line, error) {
	pin := rpio.Pin(offset)
	pin.Input()
	return rpioLine{pin: pin}, nil
}

// Output configures offset as an output, initially low.
func (d *RpioDriver) Output(offset int) (OutputLine, error) {
	pin := rpio.Pin(offset)
	pin.Output()
	pin.Low()
	d.outputs = append(d.outputs, pin)
	return rpioLine{pin: pin}, nil
}

// Close drives every output low and unmaps the registers.
func (d *RpioDriver) Close() error {
	for _, pin := range d.outputs {
		pin.Low()
		pin.Input()
	}
	d.outputs = nil
	return rpio.Close()
}
