package can

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFrameBounds(t *testing.T) {
	_, err := NewFrame(0x1, false, make([]byte, 9)...)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	_, err = NewFrame(0x2000000, false)
	assert.ErrorIs(t, err, ErrIdentifierTooLarge)

	// Payload is checked first.
	_, err = NewFrame(0x2000000, false, make([]byte, 9)...)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	f, err := NewFrame(0x1FFFFFF, true, make([]byte, 8)...)
	require.NoError(t, err)
	assert.True(t, f.Extended)
	assert.True(t, f.RTR)

	f, err = NewFrame(0x7FF, false)
	require.NoError(t, err)
	assert.False(t, f.Extended)
	assert.NotNil(t, f.Data)
}

func TestNewFrameCopiesPayload(t *testing.T) {
	data := []byte{1, 2, 3}
	f, err := NewFrame(0x10, false, data...)
	require.NoError(t, err)
	data[0] = 0xFF
	assert.Equal(t, []byte{1, 2, 3}, f.Data)
}

func TestFrameBits(t *testing.T) {
	f, err := NewFrame(0x123, false, 0xAA)
	require.NoError(t, err)
	assert.Equal(t, "0 00100100011 0 0 0 0001 10101010", f.BitString())
	assert.Equal(t, 27, f.Size())
	assert.Len(t, f.Bits(), f.Size())
	assert.Equal(t, CRC15(f.Bits()), f.CRC)

	f, err = NewFrame(0xABCDEF, true)
	require.NoError(t, err)
	assert.Equal(t, "0 00000101010 1 1 111100110111101111 1 0 0 0000", f.BitString())
	assert.Equal(t, 39, f.Size())
}

func TestEncode(t *testing.T) {
	_, err := Encode(0x2000000, false, nil)
	assert.ErrorIs(t, err, ErrIdentifierTooLarge)
	buf, err := Encode(0x1, false, make([]byte, 9))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.Nil(t, buf)

	f, err := NewFrame(0x123, false, 0xAA)
	require.NoError(t, err)
	bits := f.Encode()
	assert.Zero(t, len(bits)%8)
	assert.Equal(t, Dominant, bits[0])

	buf, err = Encode(0x123, false, []byte{0xAA})
	require.NoError(t, err)
	assert.Equal(t, bits.Bytes(), buf)
	assert.Equal(t, bits.String(), BitsFromBytes(buf).String())

	// SOF through CRC delimiter is stuffed and followed by 9 recessive
	// bits plus padding.
	stuffed := Stuff(append(append(Bits{}, f.Bits()...).AppendUint(uint32(f.CRC), crcLen), Recessive))
	assert.Equal(t, stuffed.String(), bits[:len(stuffed)].String())
	for i, bit := range bits[len(stuffed):] {
		assert.Equal(t, Recessive, bit, "tail bit %d", i)
	}
	assert.Less(t, len(bits)-len(stuffed)-9, 8)
}

func TestEncodeStuffsHeader(t *testing.T) {
	// RTR, IDE, r0 and the top of the DLC give six dominant bits in a row.
	f, err := NewFrame(0x123, false, 0xAA)
	require.NoError(t, err)
	assert.Equal(t, "0001001000110000010110", f.Encode()[:22].String())
}
