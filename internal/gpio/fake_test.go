package gpio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeLineScriptedSamples(t *testing.T) {
	l := &FakeLine{Samples: []bool{true, false, true}}

	for i, want := range []bool{true, false, true, true} {
		got, err := l.Read()
		require.NoError(t, err)
		assert.Equal(t, want, got, "read %d", i)
	}
}

func TestFakeLineLevel(t *testing.T) {
	l := &FakeLine{}
	got, err := l.Read()
	require.NoError(t, err)
	assert.False(t, got)

	l.Set(true)
	got, _ = l.Read()
	assert.True(t, got)

	require.NoError(t, l.Write(false))
	got, _ = l.Read()
	assert.False(t, got)
	assert.Equal(t, []bool{false}, l.Writes)
}

func TestFakeLineErrors(t *testing.T) {
	l := &FakeLine{ReadError: errors.New("simulated read"), WriteError: errors.New("simulated write")}

	_, err := l.Read()
	assert.EqualError(t, err, "simulated read")
	assert.EqualError(t, l.Write(true), "simulated write")
	assert.Empty(t, l.Writes)
}

func TestFakeDriverSharesLines(t *testing.T) {
	d := NewFakeDriver()
	out, err := d.Output(21)
	require.NoError(t, err)
	require.NoError(t, out.Write(true))

	// The same offset is the same line.
	in, err := d.Input(21)
	require.NoError(t, err)
	v, err := in.Read()
	require.NoError(t, err)
	assert.True(t, v)
	assert.Same(t, d.Line(21), out)
}

func TestFakeDriverFailAndClose(t *testing.T) {
	d := NewFakeDriver()
	d.Fail = map[int]error{13: errors.New("busy")}

	in, err := d.Input(13)
	assert.EqualError(t, err, "busy")
	assert.True(t, in == nil, "failed Input must return a nil interface")
	out, err := d.Output(13)
	assert.Error(t, err)
	assert.True(t, out == nil, "failed Output must return a nil interface")

	require.NoError(t, d.Close())
	assert.True(t, d.Closed)
	_, err = d.Input(14)
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	d, err := Open(DriverMock, "")
	require.NoError(t, err)
	assert.IsType(t, &FakeDriver{}, d)

	_, err = Open("bitbang", "")
	assert.Error(t, err)
}
