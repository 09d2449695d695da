package logic

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	value int
	err   error
	reads int
}

func (s *fakeSource) Sample() (int, error) {
	s.reads++
	if s.err != nil {
		return 0, s.err
	}
	return s.value, nil
}

// Write lets a fakeSource stand in for an output channel.
func (s *fakeSource) Write(v int) error {
	s.value = v
	return nil
}

// testClock is a settable wrapping millisecond clock. Offsets are relative to
// base, which sits just below the wrap point so most tests cross it.
type testClock struct {
	base uint32
	now  uint32
}

func newTestClock() *testClock {
	base := uint32(math.MaxUint32 - 20)
	return &testClock{base: base, now: base}
}

func (c *testClock) at(ms int) {
	c.now = c.base + uint32(int32(ms))
}

func (c *testClock) Now() uint32 { return c.now }

func newTestEngine(t *testing.T, cfg FilterConfig, channels ...Channel) (*Engine, *testClock) {
	t.Helper()
	reg, err := NewRegistry(channels...)
	require.NoError(t, err)
	clk := newTestClock()
	e, err := NewEngine(reg, cfg, clk.Now)
	require.NoError(t, err)
	return e, clk
}

func ids(channels []Channel) []string {
	out := make([]string, 0, len(channels))
	for _, ch := range channels {
		out = append(out, ch.ID)
	}
	return out
}

func mustProcess(t *testing.T, e *Engine) []string {
	t.Helper()
	changed, err := e.Process()
	require.NoError(t, err)
	return ids(changed)
}

func TestFirstSweepCommitsEveryChannel(t *testing.T) {
	do1 := &fakeSource{value: 1}
	di1 := &fakeSource{value: 0}
	av2 := &fakeSource{value: 2400}
	ai3 := &fakeSource{value: 12000}
	ao1 := &fakeSource{value: 0}
	e, _ := newTestEngine(t, DefaultFilterConfig(),
		Channel{ID: "DO1", Kind: DigitalOutput, Source: do1},
		Channel{ID: "DI1", Kind: DigitalInput, Source: di1},
		Channel{ID: "AV2", Kind: AnalogVoltageInput, Source: av2},
		Channel{ID: "AI3", Kind: AnalogCurrentInput, Source: ai3},
		Channel{ID: "AO1", Kind: AnalogOutput, Source: ao1},
	)

	_, ok := e.Value("DI1")
	assert.False(t, ok, "no value before first sweep")
	assert.False(t, e.Ready())

	assert.Equal(t, []string{"DO1", "DI1", "AV2", "AI3", "AO1"}, mustProcess(t, e))
	assert.True(t, e.Ready())

	want := map[string]int{"DO1": 1, "DI1": 0, "AV2": 2400, "AI3": 12000, "AO1": 0}
	for id, v := range want {
		got, ok := e.Value(id)
		require.True(t, ok, id)
		assert.Equal(t, v, got, id)
	}
}

func TestNoOpSweepsAreIdempotent(t *testing.T) {
	di := &fakeSource{value: 1}
	av := &fakeSource{value: 3000}
	e, clk := newTestEngine(t, DefaultFilterConfig(),
		Channel{ID: "DI1", Kind: DigitalInput, Source: di},
		Channel{ID: "AV1", Kind: AnalogVoltageInput, Source: av},
	)
	mustProcess(t, e)

	for ms := 0; ms < 500; ms += 7 {
		clk.at(ms)
		assert.Empty(t, mustProcess(t, e), "t=%d", ms)
	}
	v, _ := e.Value("DI1")
	assert.Equal(t, 1, v)
	v, _ = e.Value("AV1")
	assert.Equal(t, 3000, v)
	assert.Equal(t, EventCounts{"DI1": 1, "AV1": 1}, e.Counts())
}

func TestDigitalDebounceBoundary(t *testing.T) {
	di := &fakeSource{value: 0}
	e, clk := newTestEngine(t, DefaultFilterConfig(),
		Channel{ID: "DI1", Kind: DigitalInput, Source: di},
	)

	clk.at(-10)
	require.Equal(t, []string{"DI1"}, mustProcess(t, e))

	// Transient high from t=0 to t=39.
	di.value = 1
	for _, ms := range []int{0, 10, 20, 30} {
		clk.at(ms)
		assert.Empty(t, mustProcess(t, e), "transient committed at t=%d", ms)
	}

	clk.at(40)
	di.value = 0
	assert.Empty(t, mustProcess(t, e))

	// Sustained high from t=41.
	di.value = 1
	for _, ms := range []int{41, 51, 61, 71, 81} {
		clk.at(ms)
		assert.Empty(t, mustProcess(t, e), "committed early at t=%d", ms)
		v, _ := e.Value("DI1")
		assert.Equal(t, 0, v)
	}

	clk.at(91)
	assert.Equal(t, []string{"DI1"}, mustProcess(t, e))
	v, _ := e.Value("DI1")
	assert.Equal(t, 1, v)
}

func TestAnalogHysteresisBoundary(t *testing.T) {
	av := &fakeSource{value: 1000}
	e, clk := newTestEngine(t, DefaultFilterConfig(),
		Channel{ID: "AV1", Kind: AnalogVoltageInput, Source: av},
	)

	clk.at(0)
	mustProcess(t, e)

	// 99mV away: re-arms on every sweep and never commits.
	av.value = 1099
	for ms := 10; ms <= 200; ms += 10 {
		clk.at(ms)
		assert.Empty(t, mustProcess(t, e), "t=%d", ms)
	}
	v, _ := e.Value("AV1")
	assert.Equal(t, 1000, v)

	// 100mV away: commits once the window has elapsed since the last re-arm.
	av.value = 1100
	for _, ms := range []int{210, 220, 230, 240} {
		clk.at(ms)
		assert.Empty(t, mustProcess(t, e), "t=%d", ms)
	}
	clk.at(250)
	assert.Equal(t, []string{"AV1"}, mustProcess(t, e))
	v, _ = e.Value("AV1")
	assert.Equal(t, 1100, v)
}

func TestAnalogCurrentUsesCurrentThreshold(t *testing.T) {
	cfg := DefaultFilterConfig()
	cfg.MinVarMV = 1000
	cfg.MinVarUA = 10
	ai := &fakeSource{value: 4000}
	e, clk := newTestEngine(t, cfg,
		Channel{ID: "AI1", Kind: AnalogCurrentInput, Source: ai},
	)

	clk.at(0)
	mustProcess(t, e)

	ai.value = 4010
	clk.at(10)
	assert.Empty(t, mustProcess(t, e))
	clk.at(60)
	assert.Equal(t, []string{"AI1"}, mustProcess(t, e))
}

func TestOscillatingDeviationCommitsSampleAtExpiry(t *testing.T) {
	av := &fakeSource{value: 1000}
	e, clk := newTestEngine(t, DefaultFilterConfig(),
		Channel{ID: "AV1", Kind: AnalogVoltageInput, Source: av},
	)

	clk.at(0)
	mustProcess(t, e)

	for i, v := range []int{1500, 1300, 1800, 1200} {
		av.value = v
		clk.at(10 * (i + 1))
		assert.Empty(t, mustProcess(t, e))
	}

	av.value = 1650
	clk.at(50)
	assert.Equal(t, []string{"AV1"}, mustProcess(t, e))
	v, _ := e.Value("AV1")
	assert.Equal(t, 1650, v)
}

func TestAnalogOutputEchoIsImmediate(t *testing.T) {
	ao := &fakeSource{}
	do := &fakeSource{}
	e, clk := newTestEngine(t, DefaultFilterConfig(),
		Channel{ID: "DO1", Kind: DigitalOutput, Source: do},
		Channel{ID: "AO1", Kind: AnalogOutput, Source: ao},
	)
	clk.at(0)
	mustProcess(t, e)

	require.NoError(t, ao.Write(5000))
	clk.at(1)
	assert.Equal(t, []string{"AO1"}, mustProcess(t, e))
	v, _ := e.Value("AO1")
	assert.Equal(t, 5000, v)

	// Digital outputs still respect the digital window.
	require.NoError(t, do.Write(1))
	clk.at(2)
	assert.Empty(t, mustProcess(t, e))
	clk.at(52)
	assert.Equal(t, []string{"DO1"}, mustProcess(t, e))
}

func TestChangesReportedInRegistryOrder(t *testing.T) {
	sources := map[string]*fakeSource{}
	var channels []Channel
	for _, id := range []string{"DO1", "DO2", "DI1", "DI2", "DI5", "AO1"} {
		src := &fakeSource{}
		sources[id] = src
		kind := DigitalInput
		switch id[:2] {
		case "DO":
			kind = DigitalOutput
		case "AO":
			kind = AnalogOutput
		}
		channels = append(channels, Channel{ID: id, Kind: kind, Source: src})
	}
	e, clk := newTestEngine(t, DefaultFilterConfig(), channels...)
	clk.at(0)
	mustProcess(t, e)

	// Flip in reverse order; the report order must not follow it.
	for _, id := range []string{"AO1", "DI5", "DI2", "DI1", "DO2", "DO1"} {
		sources[id].value = 1
	}
	clk.at(100)
	assert.Equal(t, []string{"DO1", "DO2", "DI1", "DI2", "DI5", "AO1"}, mustProcess(t, e))
}

func TestSampleErrorLeavesStateUntouched(t *testing.T) {
	fault := errors.New("adc timeout")
	di := &fakeSource{value: 1}
	av := &fakeSource{value: 2000, err: fault}
	e, clk := newTestEngine(t, DefaultFilterConfig(),
		Channel{ID: "DI1", Kind: DigitalInput, Source: di},
		Channel{ID: "AV2", Kind: AnalogVoltageInput, Source: av},
	)

	clk.at(0)
	changed, err := e.Process()
	require.Error(t, err)
	assert.Nil(t, changed)
	assert.True(t, errors.Is(err, ErrHardwareIO))
	assert.True(t, errors.Is(err, fault))

	var hwErr *HardwareError
	require.True(t, errors.As(err, &hwErr))
	assert.Equal(t, "AV2", hwErr.Channel)

	_, ok := e.Value("DI1")
	assert.False(t, ok, "DI1 must not commit during a failed sweep")

	av.err = nil
	clk.at(1)
	assert.Equal(t, []string{"DI1", "AV2"}, mustProcess(t, e))
}

func TestEventsCarryCommittedValues(t *testing.T) {
	di := &fakeSource{value: 1}
	av := &fakeSource{value: 4321}
	e, _ := newTestEngine(t, DefaultFilterConfig(),
		Channel{ID: "DI1", Kind: DigitalInput, Source: di},
		Channel{ID: "AV2", Kind: AnalogVoltageInput, Source: av},
	)
	changed, err := e.Process()
	require.NoError(t, err)

	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	events := e.Events(changed, at)
	require.Len(t, events, 2)
	assert.Equal(t, Event{Timestamp: at, Channel: "DI1", Kind: DigitalInput, Value: 1}, events[0])
	assert.Equal(t, Event{Timestamp: at, Channel: "AV2", Kind: AnalogVoltageInput, Value: 4321}, events[1])
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	reg, err := NewRegistry(Channel{ID: "DI1", Kind: DigitalInput, Source: &fakeSource{}})
	require.NoError(t, err)

	cfg := DefaultFilterConfig()
	cfg.MinVarUA = -1
	_, err = NewEngine(reg, cfg, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestEngineLookups(t *testing.T) {
	e, _ := newTestEngine(t, DefaultFilterConfig(),
		Channel{ID: "DI6", Kind: DigitalInput, Source: &fakeSource{}},
	)
	ch, ok := e.Channel("DI6")
	require.True(t, ok)
	assert.Equal(t, "DI6", ch.String())
	assert.Equal(t, DigitalInput, ch.Kind)

	_, ok = e.Channel("DI7")
	assert.False(t, ok)
	_, ok = e.Value("DI7")
	assert.False(t, ok)
	assert.Len(t, e.Channels(), 1)
}
