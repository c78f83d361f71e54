package can

// Encode builds the transmit buffer for a frame: SOF through CRC delimiter
// stuffed, then ACK slot, ACK delimiter and EOF unstuffed, padded with
// recessive bits to a whole number of bytes.
func Encode(id uint32, rtr bool, payload []byte) ([]byte, error) {
	f, err := NewFrame(id, rtr, payload...)
	if err != nil {
		return nil, err
	}
	return f.Encode().Bytes(), nil
}

// Encode returns the frame as it is driven on the bus. The ACK slot is
// left recessive for a receiver to overwrite.
func (f *Frame) Encode() Bits {
	return assemble(f.Bits(), f.CRC)
}

func assemble(body Bits, crc uint16) Bits {
	bits := make(Bits, 0, len(body)+crcLen+1)
	bits = append(bits, body...)
	bits = bits.AppendUint(uint32(crc), crcLen)
	// The delimiter is stuffed together with the CRC, which standard
	// controllers do not do.
	bits = append(bits, Recessive)

	out := Stuff(bits)
	out = append(out, Recessive, Recessive) // ACK slot, ACK delimiter
	for range eofLen {
		out = append(out, Recessive)
	}
	for len(out)%8 != 0 {
		out = append(out, Recessive)
	}
	return out
}
