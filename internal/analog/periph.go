package analog

import (
	"strconv"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

// PeriphOpts configures the periph.io converters.
type PeriphOpts struct {
	// I2CBus is the bus name for i2creg; empty selects the first bus.
	I2CBus string
	// Address of the ADS1115.
	Address uint16
	// PWMFrequency of the analog output pin.
	PWMFrequency physic.Frequency
}

// DefaultPeriphOpts matches an ADS1115 at its default address and a 1kHz
// filtered PWM output.
var DefaultPeriphOpts = PeriphOpts{
	Address:      0x48,
	PWMFrequency: physic.KiloHertz,
}

// adcRange is the ADS1115 gain setting used for every channel.
const adcRange = 4096 * physic.MilliVolt

// PeriphDriver reads inputs from an ADS1115 over I2C and drives the analog
// output as PWM duty on a GPIO pin.
type PeriphDriver struct {
	opts  PeriphOpts
	buses []i2c.BusCloser
	devs  []*ads1x15.Dev
	pwms  []gpio.PinIO
}

// NewPeriphDriver initialises the periph host drivers.
func NewPeriphDriver(opts PeriphOpts) (*PeriphDriver, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "init periph host")
	}
	return &PeriphDriver{opts: opts}, nil
}

// ADC opens the I2C bus and the converter on it.
func (d *PeriphDriver) ADC() (ADC, error) {
	bus, err := i2creg.Open(d.opts.I2CBus)
	if err != nil {
		return nil, errors.Wrapf(err, "open i2c bus %q", d.opts.I2CBus)
	}
	dev, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: d.opts.Address})
	if err != nil {
		bus.Close()
		return nil, errors.Wrapf(err, "open ads1115 at %#x", d.opts.Address)
	}
	d.buses = append(d.buses, bus)
	d.devs = append(d.devs, dev)
	return &ads1115{dev: dev}, nil
}

type ads1115 struct {
	dev *ads1x15.Dev
}

var adsChannels = []ads1x15.Channel{ads1x15.Channel0, ads1x15.Channel1, ads1x15.Channel2, ads1x15.Channel3}

func (a *ads1115) Input(channel int) (Input, error) {
	if channel < 0 || channel >= len(adsChannels) {
		return nil, errors.Errorf("ads1115 has no channel %d", channel)
	}
	pin, err := a.dev.PinForChannel(adsChannels[channel], adcRange, 860*physic.Hertz, ads1x15.BestQuality)
	if err != nil {
		return nil, errors.Wrapf(err, "ads1115 channel %d", channel)
	}
	return adsInput{pin: pin, channel: channel}, nil
}

type adsInput struct {
	pin     ads1x15.PinADC
	channel int
}

func (in adsInput) Read() (float64, error) {
	s, err := in.pin.Read()
	if err != nil {
		return 0, errors.Wrapf(err, "read ads1115 channel %d", in.channel)
	}
	return float64(s.V) / float64(physic.MilliVolt), nil
}

// DAC configures pin for PWM output.
func (d *PeriphDriver) DAC(pin int) (DAC, error) {
	p := gpioreg.ByName(strconv.Itoa(pin))
	if p == nil {
		return nil, errors.Errorf("no gpio pin %d", pin)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, errors.Wrapf(err, "configure pwm pin %d", pin)
	}
	d.pwms = append(d.pwms, p)
	return pwmDAC{pin: p, freq: d.opts.PWMFrequency}, nil
}

type pwmDAC struct {
	pin  gpio.PinIO
	freq physic.Frequency
}

func (p pwmDAC) Write(mV int) error {
	if err := checkRange(mV); err != nil {
		return err
	}
	if err := p.pin.PWM(dutyFor(mV), p.freq); err != nil {
		return errors.Wrapf(err, "pwm %s", p.pin)
	}
	return nil
}

// dutyFor maps 0..FullScaleMV linearly onto 0..DutyMax.
func dutyFor(mV int) gpio.Duty {
	return gpio.Duty(int64(mV) * int64(gpio.DutyMax) / FullScaleMV)
}

// Close halts the converters and releases the buses.
func (d *PeriphDriver) Close() error {
	var errs []error
	for _, p := range d.pwms {
		if err := p.Out(gpio.Low); err != nil {
			errs = append(errs, err)
		}
	}
	for _, dev := range d.devs {
		if err := dev.Halt(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, b := range d.buses {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.pwms, d.devs, d.buses = nil, nil, nil
	if len(errs) > 0 {
		return errors.Errorf("close errors: %v", errs)
	}
	return nil
}
