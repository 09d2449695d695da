package gpio

import (
	"strconv"

	"github.com/pkg/errors"
	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphDriver looks lines up in the periph.io GPIO registry.
type PeriphDriver struct {
	outputs []pgpio.PinIO
}

// NewPeriphDriver initialises the periph host drivers.
func NewPeriphDriver() (*PeriphDriver, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "init periph host")
	}
	return &PeriphDriver{}, nil
}

type periphLine struct {
	pin pgpio.PinIO
}

func (l periphLine) Read() (bool, error) {
	return l.pin.Read() == pgpio.High, nil
}

func (l periphLine) Write(high bool) error {
	if err := l.pin.Out(pgpio.Level(high)); err != nil {
		return errors.Wrapf(err, "write %s", l.pin)
	}
	return nil
}

func lookup(offset int) (pgpio.PinIO, error) {
	p := gpioreg.ByName(strconv.Itoa(offset))
	if p == nil {
		return nil, errors.Errorf("no gpio pin %d", offset)
	}
	return p, nil
}

// Input configures offset as a floating input.
func (d *PeriphDriver) Input(offset int) (Line, error) {
	p, err := lookup(offset)
	if err != nil {
		return nil, err
	}
	if err := p.In(pgpio.Float, pgpio.NoEdge); err != nil {
		return nil, errors.Wrapf(err, "configure input %s", p)
	}
	return periphLine{pin: p}, nil
}

// Output configures offset as an output, initially low.
func (d *PeriphDriver) Output(offset int) (OutputLine, error) {
	p, err := lookup(offset)
	if err != nil {
		return nil, err
	}
	if err := p.Out(pgpio.Low); err != nil {
		return nil, errors.Wrapf(err, "configure output %s", p)
	}
	d.outputs = append(d.outputs, p)
	return periphLine{pin: p}, nil
}

// Close drives outputs low and halts them.
func (d *PeriphDriver) Close() error {
	var errs []error
	for _, p := range d.outputs {
		if err := p.Out(pgpio.Low); err != nil {
			errs = append(errs, err)
		}
		if err := p.Halt(); err != nil {
			errs = append(errs, err)
		}
	}
	d.outputs = nil
	if len(errs) > 0 {
		return errors.Errorf("close errors: %v", errs)
	}
	return nil
}
