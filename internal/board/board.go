// Package board assembles the fixed channel topology of the I/O board: four
// digital outputs, four multi-mode inputs, two digital inputs and one analog
// output.
package board

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/sweeney/iono/internal/analog"
	"github.com/sweeney/iono/internal/gpio"
	"github.com/sweeney/iono/internal/logic"
)

// Mode selects what a multi-mode input slot measures. It is fixed when the
// board is assembled.
type Mode int

const (
	ModeDigital Mode = iota
	ModeVoltage
	ModeCurrent
)

func (m Mode) String() string {
	switch m {
	case ModeDigital:
		return "digital"
	case ModeVoltage:
		return "voltage"
	case ModeCurrent:
		return "current"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// kind returns the channel kind and id prefix for a slot in this mode.
func (m Mode) kind() (logic.Kind, string) {
	switch m {
	case ModeVoltage:
		return logic.AnalogVoltageInput, "AV"
	case ModeCurrent:
		return logic.AnalogCurrentInput, "AI"
	}
	return logic.DigitalInput, "DI"
}

// ParseMode accepts a mode name or its channel prefix, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "digital", "di":
		return ModeDigital, nil
	case "voltage", "av":
		return ModeVoltage, nil
	case "current", "ai":
		return ModeCurrent, nil
	}
	return 0, errors.Wrapf(logic.ErrInvalidConfig, "unknown input mode %q", s)
}

// UnmarshalText lets modes appear by name in config files.
func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MarshalText writes the mode name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Slots is the number of multi-mode inputs.
const Slots = 4

// Pinout maps board terminals to GPIO offsets and converter channels.
type Pinout struct {
	DO  [4]int     `yaml:"do"`
	In  [Slots]int `yaml:"in"`
	ADC [Slots]int `yaml:"adc"`
	DI5 int        `yaml:"di5"`
	DI6 int        `yaml:"di6"`
	AO  int        `yaml:"ao"`
}

// DefaultPinout is the wiring of the board on a Raspberry Pi header (BCM).
var DefaultPinout = Pinout{
	DO:  [4]int{17, 27, 22, 23},
	In:  [Slots]int{5, 6, 13, 19},
	ADC: [Slots]int{0, 1, 2, 3},
	DI5: 26,
	DI6: 16,
	AO:  18,
}

// Config selects the input modes and wiring.
type Config struct {
	Modes  [Slots]Mode `yaml:"modes"`
	Pinout Pinout      `yaml:"pinout"`
}

// DefaultConfig has every slot digital on the default pinout.
func DefaultConfig() Config {
	return Config{Pinout: DefaultPinout}
}

// ErrNotWritable is returned by Write for inputs and unknown channels.
var ErrNotWritable = errors.New("channel is not writable")

// Board is the assembled channel set.
type Board struct {
	registry *logic.Registry
	lines    gpio.Driver
	conv     analog.Driver
}

// New wires every channel to its line or converter. The ADC is opened once,
// only if some slot is analog, and shared by all analog channels.
// The board takes ownership of the drivers on success; on error the caller
// still has to close them.
func New(cfg Config, lines gpio.Driver, conv analog.Driver) (*Board, error) {
	var channels []logic.Channel

	for i, off := range cfg.Pinout.DO {
		l, err := lines.Output(off)
		if err != nil {
			return nil, errors.Wrapf(err, "DO%d", i+1)
		}
		channels = append(channels, logic.Channel{
			ID:     fmt.Sprintf("DO%d", i+1),
			Kind:   logic.DigitalOutput,
			Source: &digitalOutput{line: l},
		})
	}

	var adc analog.ADC
	for _, m := range cfg.Modes {
		if m != ModeDigital {
			a, err := conv.ADC()
			if err != nil {
				return nil, errors.Wrap(err, "open adc")
			}
			adc = a
			break
		}
	}

	for i, m := range cfg.Modes {
		ch, err := newSlot(i, m, cfg.Pinout, lines, adc)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}

	for _, in := range []struct {
		id  string
		off int
	}{{"DI5", cfg.Pinout.DI5}, {"DI6", cfg.Pinout.DI6}} {
		l, err := lines.Input(in.off)
		if err != nil {
			return nil, errors.Wrap(err, in.id)
		}
		channels = append(channels, logic.Channel{
			ID:     in.id,
			Kind:   logic.DigitalInput,
			Source: digitalInput{line: l},
		})
	}

	dac, err := conv.DAC(cfg.Pinout.AO)
	if err != nil {
		return nil, errors.Wrap(err, "AO1")
	}
	channels = append(channels, logic.Channel{
		ID:     "AO1",
		Kind:   logic.AnalogOutput,
		Source: &analogOutput{dac: dac},
	})

	reg, err := logic.NewRegistry(channels...)
	if err != nil {
		return nil, err
	}
	return &Board{registry: reg, lines: lines, conv: conv}, nil
}

func newSlot(i int, m Mode, p Pinout, lines gpio.Driver, adc analog.ADC) (logic.Channel, error) {
	kind, prefix := m.kind()
	id := fmt.Sprintf("%s%d", prefix, i+1)

	switch m {
	case ModeDigital:
		l, err := lines.Input(p.In[i])
		if err != nil {
			return logic.Channel{}, errors.Wrap(err, id)
		}
		return logic.Channel{ID: id, Kind: kind, Source: digitalInput{line: l}}, nil

	case ModeVoltage, ModeCurrent:
		in, err := adc.Input(p.ADC[i])
		if err != nil {
			return logic.Channel{}, errors.Wrap(err, id)
		}
		tf := logic.VoltageTransform()
		if m == ModeCurrent {
			tf = logic.CurrentTransform()
		}
		return logic.Channel{ID: id, Kind: kind, Source: analogInput{in: in, tf: tf}}, nil
	}
	return logic.Channel{}, errors.Wrapf(logic.ErrInvalidConfig, "slot %d: %v", i+1, m)
}

// Registry returns the channels in their fixed order.
func (b *Board) Registry() *logic.Registry {
	return b.registry
}

// Write commands an output channel. Digital outputs accept 0 or 1, the analog
// output accepts millivolts.
func (b *Board) Write(id string, value int) error {
	ch, ok := b.registry.Lookup(id)
	if !ok {
		return errors.Wrapf(ErrNotWritable, "unknown channel %s", id)
	}
	w, ok := ch.Source.(logic.Writer)
	if !ok {
		return errors.Wrapf(ErrNotWritable, "%s is an input", id)
	}
	if err := w.Write(value); err != nil {
		return errors.Wrapf(err, "write %s", id)
	}
	return nil
}

// Close releases the line and converter drivers.
func (b *Board) Close() error {
	lerr := b.lines.Close()
	cerr := b.conv.Close()
	if lerr != nil {
		return lerr
	}
	return cerr
}
