package board

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/sweeney/iono/internal/analog"
	"github.com/sweeney/iono/internal/gpio"
	"github.com/sweeney/iono/internal/logic"
)

type digitalInput struct {
	line gpio.Line
}

func (d digitalInput) Sample() (int, error) {
	high, err := d.line.Read()
	if err != nil {
		return 0, err
	}
	return boolToInt(high), nil
}

// digitalOutput echoes the level the line is driven to.
type digitalOutput struct {
	line gpio.OutputLine
}

func (d *digitalOutput) Sample() (int, error) {
	high, err := d.line.Read()
	if err != nil {
		return 0, err
	}
	return boolToInt(high), nil
}

func (d *digitalOutput) Write(value int) error {
	if value != 0 && value != 1 {
		return errors.Errorf("digital output value %d is not 0 or 1", value)
	}
	return d.line.Write(value == 1)
}

// analogInput applies the front-end calibration to a converter reading.
type analogInput struct {
	in analog.Input
	tf logic.LinearTransform
}

func (a analogInput) Sample() (int, error) {
	raw, err := a.in.Read()
	if err != nil {
		return 0, err
	}
	return a.tf.Apply(raw), nil
}

// analogOutput echoes the last value successfully written to the DAC.
type analogOutput struct {
	mu   sync.Mutex
	dac  analog.DAC
	last int
}

func (a *analogOutput) Sample() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last, nil
}

func (a *analogOutput) Write(mV int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.dac.Write(mV); err != nil {
		return err
	}
	a.last = mV
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
