//go:build linux

package gpio

import (
	"github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"
)

const consumer = "iono-io"

// CdevDriver requests lines from the Linux GPIO character device.
type CdevDriver struct {
	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line
}

// NewCdevDriver opens the named gpiochip.
func NewCdevDriver(chip string) (*CdevDriver, error) {
	if chip == "" {
		chip = DefaultChip
	}
	c, err := gpiocdev.NewChip(chip, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, errors.Wrapf(err, "open gpio chip %s", chip)
	}
	return &CdevDriver{chip: c}, nil
}

type cdevLine struct {
	line *gpiocdev.Line
}

func (l cdevLine) Read() (bool, error) {
	v, err := l.line.Value()
	if err != nil {
		return false, errors.Wrapf(err, "read line %d", l.line.Offset())
	}
	return v != 0, nil
}

func (l cdevLine) Write(high bool) error {
	v := 0
	if high {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return errors.Wrapf(err, "write line %d", l.line.Offset())
	}
	return nil
}

// Input requests offset as an input. The board has external pull resistors,
// so the line is left biased as-is.
func (d *CdevDriver) Input(offset int) (Line, error) {
	l, err := d.chip.RequestLine(offset, gpiocdev.AsInput)
	if err != nil {
		return nil, errors.Wrapf(err, "request input %d", offset)
	}
	d.lines = append(d.lines, l)
	return cdevLine{line: l}, nil
}

// Output requests offset as an output, initially low.
func (d *CdevDriver) Output(offset int) (OutputLine, error) {
	l, err := d.chip.RequestLine(offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, errors.Wrapf(err, "request output %d", offset)
	}
	d.lines = append(d.lines, l)
	return cdevLine{line: l}, nil
}

// Close releases GPIO resources.
// Reconfigures lines to input with pull-down (matching Pi boot defaults) before
// closing so outputs are not left driven after shutdown.
func (d *CdevDriver) Close() error {
	var errs []error

	for _, l := range d.lines {
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, errors.Wrapf(err, "reconfigure line %d", l.Offset()))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "close line %d", l.Offset()))
		}
	}
	d.lines = nil
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "close chip"))
		}
	}

	if len(errs) > 0 {
		return errors.Errorf("close errors: %v", errs)
	}
	return nil
}
