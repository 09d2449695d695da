package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payloads(msgs []bufferedMsg) []byte {
	var out []byte
	for _, m := range msgs {
		out = append(out, m.payload[0])
	}
	return out
}

func TestRingBufferEmptyDrain(t *testing.T) {
	rb := newRingBuffer(4)
	assert.Nil(t, rb.drainAll())
	assert.Equal(t, 0, rb.len())
}

func TestRingBufferPushAndDrain(t *testing.T) {
	rb := newRingBuffer(10)
	for i := 0; i < 5; i++ {
		assert.False(t, rb.push(bufferedMsg{topic: Topic, payload: []byte{byte(i)}}))
	}
	assert.Equal(t, 5, rb.len())

	assert.Equal(t, []byte{0, 1, 2, 3, 4}, payloads(rb.drainAll()))
	assert.Nil(t, rb.drainAll(), "second drain is empty")
}

func TestRingBufferOverflowDropsOldest(t *testing.T) {
	rb := newRingBuffer(5)
	dropped := 0
	for i := 0; i < 8; i++ {
		if rb.push(bufferedMsg{topic: Topic, payload: []byte{byte(i)}}) {
			dropped++
		}
	}
	assert.Equal(t, 3, dropped)
	assert.Equal(t, 3, rb.dropped)
	assert.Equal(t, []byte{3, 4, 5, 6, 7}, payloads(rb.drainAll()))
	assert.Equal(t, 0, rb.dropped)
}

func TestRingBufferReusableAfterDrain(t *testing.T) {
	rb := newRingBuffer(3)
	for i := 0; i < 4; i++ {
		rb.push(bufferedMsg{payload: []byte{byte(i)}})
	}
	rb.drainAll()

	rb.push(bufferedMsg{payload: []byte{9}})
	assert.Equal(t, []byte{9}, payloads(rb.drainAll()))
}

func TestRingBufferPreservesFields(t *testing.T) {
	rb := newRingBuffer(2)
	rb.push(bufferedMsg{topic: TopicSystem, payload: []byte("x"), qos: 1, retained: true})

	got := rb.drainAll()
	require.Len(t, got, 1)
	assert.Equal(t, bufferedMsg{topic: TopicSystem, payload: []byte("x"), qos: 1, retained: true}, got[0])
}

func TestRingBufferMinimumCapacity(t *testing.T) {
	rb := newRingBuffer(0)
	rb.push(bufferedMsg{payload: []byte{1}})
	rb.push(bufferedMsg{payload: []byte{2}})
	assert.Equal(t, []byte{2}, payloads(rb.drainAll()))
}
