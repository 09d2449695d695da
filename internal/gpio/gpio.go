// Package gpio provides digital line access with hardware abstraction.
// Real drivers use the Linux GPIO character device, periph.io, or direct
// BCM2835 register access. The fake driver allows testing without hardware.
package gpio

import "github.com/pkg/errors"

// Line reads a digital line. true means the line is high.
type Line interface {
	Read() (bool, error)
}

// OutputLine is a line that can also be driven.
type OutputLine interface {
	Line
	Write(high bool) error
}

// Driver hands out lines by offset (BCM numbering on a Raspberry Pi).
type Driver interface {
	Input(offset int) (Line, error)
	Output(offset int) (OutputLine, error)

	// Close releases all lines handed out by the driver.
	Close() error
}

// Driver names accepted by Open.
const (
	DriverCdev   = "cdev"
	DriverPeriph = "periph"
	DriverRpio   = "rpio"
	DriverMock   = "mock"
)

// DefaultChip is the gpiochip used by the cdev driver.
const DefaultChip = "gpiochip0"

// Open returns the named driver. chip is only used by the cdev driver.
func Open(name, chip string) (Driver, error) {
	var (
		d   Driver
		err error
	)
	switch name {
	case DriverCdev:
		d, err = NewCdevDriver(chip)
	case DriverPeriph:
		d, err = NewPeriphDriver()
	case DriverRpio:
		d, err = NewRpioDriver()
	case DriverMock:
		d = NewFakeDriver()
	default:
		return nil, errors.Errorf("gpio: unknown driver %q", name)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}
