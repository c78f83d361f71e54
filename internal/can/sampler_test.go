package can

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestSamplerWords(t *testing.T) {
	f, err := NewFrame(0x123, false, 0xAA)
	require.NoError(t, err)
	bits := f.Encode()

	for _, size := range []int{1, 7, 32} {
		events := SampleBits(bits, size)
		require.NotEmpty(t, events)
		assert.Equal(t, EventSof, events[0].Kind)
		assert.Equal(t, EventIfs, events[len(events)-1].Kind)

		var sampled Bits
		for _, ev := range events[1 : len(events)-1] {
			require.Equal(t, EventWord, ev.Kind)
			require.LessOrEqual(t, ev.Len, size)
			sampled = append(sampled, ev.Bits()...)
		}
		// Sampling stops at the seventh recessive bit in a row.
		require.Greater(t, len(sampled), 7)
		assert.Equal(t, bits[:len(sampled)].String(), sampled.String())
		assert.Equal(t, "1111111", sampled[len(sampled)-7:].String())
		assert.NotContains(t, sampled[:len(sampled)-1].String(), "1111111")
	}
}

func TestSamplerIdleAndIntermission(t *testing.T) {
	// Leading idle bits are ignored.
	events := SampleBits(ParseBits("11111 0 1111111"), 32)
	assert.Equal(t, []EventKind{EventSof, EventWord, EventIfs}, kinds(events))
	assert.Equal(t, "01111111", events[1].Bits().String())

	// A dominant bit less than 3 bits after Ifs is not a new frame.
	events = SampleBits(ParseBits("0 1111111 11 0 111 0 1111111"), 32)
	assert.Equal(t, []EventKind{EventSof, EventWord, EventIfs, EventSof, EventWord, EventIfs}, kinds(events))
	assert.Equal(t, 8, events[4].Len)
}

func TestSamplerFullWord(t *testing.T) {
	bits := ParseBits("0101010101010101010101010101010101")
	events := SampleBits(bits, 32)
	require.Len(t, events, 2)
	assert.Equal(t, WordEvent(0x55555555), events[1])
	assert.Equal(t, "word 55555555", events[1].String())
}

func TestEventBits(t *testing.T) {
	assert.Nil(t, SofEvent().Bits())
	assert.Equal(t, "101", PartialWordEvent(0xA0000000, 3).Bits().String())
	assert.Equal(t, 32, PartialWordEvent(0, 40).Len)
	assert.Len(t, Event{Kind: EventWord, Len: 40}.Bits(), 32)
	assert.Empty(t, Event{Kind: EventWord, Len: -1}.Bits())
	assert.Equal(t, "word A0000000/3", PartialWordEvent(0xA0000000, 3).String())
	assert.Equal(t, "ifs", IfsEvent().String())
}
