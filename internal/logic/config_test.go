package logic

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultFilterConfig(t *testing.T) {
	cfg := DefaultFilterConfig()
	assert.Equal(t, 50*time.Millisecond, cfg.DigitalStable)
	assert.Equal(t, 50*time.Millisecond, cfg.AnalogStable)
	assert.Equal(t, 100, cfg.MinVarMV)
	assert.Equal(t, 100, cfg.MinVarUA)
	assert.NoError(t, cfg.Validate())
}

func TestFilterConfigValidate(t *testing.T) {
	cases := map[string]func(*FilterConfig){
		"negative digital window": func(c *FilterConfig) { c.DigitalStable = -time.Millisecond },
		"negative analog window":  func(c *FilterConfig) { c.AnalogStable = -time.Second },
		"negative mV threshold":   func(c *FilterConfig) { c.MinVarMV = -1 },
		"negative uA threshold":   func(c *FilterConfig) { c.MinVarUA = -100 },
		"window beyond clock":     func(c *FilterConfig) { c.AnalogStable = 30 * 24 * time.Hour },
		"sub-millisecond window":  func(c *FilterConfig) { c.DigitalStable = 900 * time.Microsecond },
		"fractional millisecond":  func(c *FilterConfig) { c.AnalogStable = 1999 * time.Microsecond },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultFilterConfig()
			mutate(&cfg)
			err := cfg.Validate()
			assert.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestZeroConfigIsValid(t *testing.T) {
	assert.NoError(t, FilterConfig{}.Validate())
}

func TestElapsedAcrossWrap(t *testing.T) {
	assert.Equal(t, uint32(10), elapsed(math.MaxUint32-5, 4))
	assert.Equal(t, uint32(0), elapsed(7, 7))
	assert.Equal(t, uint32(50), elapsed(100, 150))
}

func TestMonotonicClockAdvances(t *testing.T) {
	clk := MonotonicClock()
	a := clk()
	time.Sleep(5 * time.Millisecond)
	b := clk()
	assert.GreaterOrEqual(t, elapsed(a, b), uint32(5))
}
