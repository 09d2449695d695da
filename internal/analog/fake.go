package analog

import (
	"sync"

	"github.com/pkg/errors"
)

// FakeInput is a settable converter channel.
type FakeInput struct {
	mu    sync.Mutex
	value float64

	// ReadError, if set, will be returned by Read.
	ReadError error
}

// Read returns the current value.
func (f *FakeInput) Read() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	return f.value, nil
}

// Set changes the value returned by Read.
func (f *FakeInput) Set(mV float64) {
	f.mu.Lock()
	f.value = mV
	f.mu.Unlock()
}

// FakeADC hands out FakeInputs, one per channel.
type FakeADC struct {
	mu     sync.Mutex
	inputs map[int]*FakeInput
}

// Input returns the fake input for channel, creating it if needed.
func (a *FakeADC) Input(channel int) (Input, error) {
	return a.Channel(channel), nil
}

// Channel returns the concrete fake input for channel.
func (a *FakeADC) Channel(channel int) *FakeInput {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inputs == nil {
		a.inputs = make(map[int]*FakeInput)
	}
	in, ok := a.inputs[channel]
	if !ok {
		in = &FakeInput{}
		a.inputs[channel] = in
	}
	return in
}

// FakeDAC records written values.
type FakeDAC struct {
	mu sync.Mutex

	// Values contains every value written.
	Values []int

	// WriteError, if set, will be returned by Write.
	WriteError error
}

// Write records mV after the same range check as the real driver.
func (f *FakeDAC) Write(mV int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteError != nil {
		return f.WriteError
	}
	if err := checkRange(mV); err != nil {
		return err
	}
	f.Values = append(f.Values, mV)
	return nil
}

// FakeDriver is a Driver backed by a single FakeADC and per-pin FakeDACs.
type FakeDriver struct {
	Converter *FakeADC
	DACs      map[int]*FakeDAC

	// ADCOpens counts calls to ADC.
	ADCOpens int

	// ADCError, if set, will be returned by ADC.
	ADCError error

	Closed bool
}

// NewFakeDriver creates an empty FakeDriver.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		Converter: &FakeADC{},
		DACs:      make(map[int]*FakeDAC),
	}
}

// ADC returns the shared fake converter.
func (d *FakeDriver) ADC() (ADC, error) {
	d.ADCOpens++
	if d.ADCError != nil {
		return nil, d.ADCError
	}
	return d.Converter, nil
}

// DAC returns the fake DAC on pin.
func (d *FakeDriver) DAC(pin int) (DAC, error) {
	if d.Closed {
		return nil, errors.New("analog: driver closed")
	}
	dac, ok := d.DACs[pin]
	if !ok {
		dac = &FakeDAC{}
		d.DACs[pin] = dac
	}
	return dac, nil
}

// Close marks the driver as closed.
func (d *FakeDriver) Close() error {
	d.Closed = true
	return nil
}
