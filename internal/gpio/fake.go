package gpio

import (
	"sync"

	"github.com/pkg/errors"
)

// FakeLine is a test double for a digital line.
type FakeLine struct {
	mu sync.Mutex

	// Samples contains scripted values returned by Read. Each call consumes
	// the next sample; once exhausted the last sample repeats. When empty,
	// Read returns the current level.
	Samples []bool
	index   int

	level bool

	// ReadError, if set, will be returned by Read.
	ReadError error

	// WriteError, if set, will be returned by Write.
	WriteError error

	// Writes records every level written.
	Writes []bool
}

// Read returns the next scripted sample or the current level.
func (f *FakeLine) Read() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.Samples) == 0 {
		return f.level, nil
	}

	v := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return v, nil
}

// Write sets the level.
func (f *FakeLine) Write(high bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.WriteError != nil {
		return f.WriteError
	}
	f.level = high
	f.Writes = append(f.Writes, high)
	return nil
}

// Set changes the level as if driven externally.
func (f *FakeLine) Set(high bool) {
	f.mu.Lock()
	f.level = high
	f.mu.Unlock()
}

// FakeDriver hands out FakeLines, one per offset.
type FakeDriver struct {
	mu    sync.Mutex
	lines map[int]*FakeLine

	// Closed tracks if Close was called.
	Closed bool

	// Fail, if set, makes Input and Output fail for the listed offsets.
	Fail map[int]error
}

// NewFakeDriver creates an empty FakeDriver.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{lines: make(map[int]*FakeLine)}
}

// Line returns the fake line at offset, creating it if needed.
func (d *FakeDriver) Line(offset int) *FakeLine {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.lines[offset]
	if !ok {
		l = &FakeLine{}
		d.lines[offset] = l
	}
	return l
}

func (d *FakeDriver) request(offset int) (*FakeLine, error) {
	if d.Closed {
		return nil, errors.New("gpio: driver closed")
	}
	if err := d.Fail[offset]; err != nil {
		return nil, err
	}
	return d.Line(offset), nil
}

// Input returns the fake line at offset.
func (d *FakeDriver) Input(offset int) (Line, error) {
	l, err := d.request(offset)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Output returns the fake line at offset.
func (d *FakeDriver) Output(offset int) (OutputLine, error) {
	l, err := d.request(offset)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Close marks the driver as closed.
func (d *FakeDriver) Close() error {
	d.Closed = true
	return nil
}
