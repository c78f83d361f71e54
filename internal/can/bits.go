package can

import "strings"

const (
	Dominant  uint8 = 0
	Recessive uint8 = 1
)

// Bits is a sequence of bus levels in transmission order.
type Bits []uint8

func BitsFromBytes(b []byte) Bits {
	bits := make(Bits, 0, 8*len(b))
	for _, v := range b {
		bits = bits.AppendUint(uint32(v), 8)
	}
	return bits
}

// AppendUint appends the n low bits of v, most significant first.
func (b Bits) AppendUint(v uint32, n int) Bits {
	for i := n - 1; i >= 0; i-- {
		b = append(b, uint8((v>>i)&1))
	}
	return b
}

func (b Bits) Uint() uint32 {
	var v uint32
	for _, bit := range b {
		v = v<<1 | uint32(bit&1)
	}
	return v
}

// Bytes packs b most significant bit first. A trailing partial byte is
// padded with recessive bits.
func (b Bits) Bytes() []byte {
	out := make([]byte, (len(b)+7)/8)
	for i := range out {
		out[i] = 0xFF
	}
	for i, bit := range b {
		if bit == Dominant {
			out[i/8] &^= 0x80 >> (i % 8)
		}
	}
	return out
}

func (b Bits) String() string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, bit := range b {
		sb.WriteByte('0' + bit&1)
	}
	return sb.String()
}

// ParseBits reads a string of '0' and '1'. Any other character is skipped,
// so field separators are allowed.
func ParseBits(s string) Bits {
	bits := make(Bits, 0, len(s))
	for _, c := range s {
		switch c {
		case '0':
			bits = append(bits, Dominant)
		case '1':
			bits = append(bits, Recessive)
		}
	}
	return bits
}

const crcPoly = 0x4599

// CRC is a running CRC-15 register.
type CRC uint16

func (c CRC) Update(bits Bits) CRC {
	for _, bit := range bits {
		msb := (c >> 14) & 1
		c = (c << 1) & 0x7FFF
		if msb^CRC(bit&1) != 0 {
			c ^= crcPoly
		}
	}
	return c
}

func CRC15(bits Bits) uint16 {
	return uint16(CRC(0).Update(bits))
}

// Stuff inserts the complement after every run of 5 identical bits. The
// inserted bit does not count towards the next run.
func Stuff(bits Bits) Bits {
	out := make(Bits, 0, len(bits)+len(bits)/4)
	var (
		last uint8
		run  int
	)
	for _, bit := range bits {
		if run > 0 && bit == last {
			run++
		} else {
			last, run = bit, 1
		}
		out = append(out, bit)
		if run == 5 {
			out = append(out, last^1)
			run = 0
		}
	}
	return out
}

// StuffState is the destuffing state carried between chunks. The zero
// value is the state at the start of a frame.
type StuffState struct {
	Last    uint8 // level of the current run
	Run     int   // length of the current run, 0..4
	Pending bool  // the next bit is a stuff bit

	// Violation is set when the last stuff bit dropped had the level of
	// the run it ended.
	Violation bool
}

// Push consumes one stuffed bit and reports whether it is a data bit.
// The bit after a run of 5 is dropped whatever its level.
func (s *StuffState) Push(bit uint8) bool {
	if s.Pending {
		s.Pending = false
		s.Violation = bit == s.Last
		return false
	}
	if s.Run > 0 && bit == s.Last {
		s.Run++
	} else {
		s.Last, s.Run = bit, 1
	}
	if s.Run == 5 {
		s.Run, s.Pending = 0, true
	}
	return true
}

// Destuff removes stuff bits from bits, starting from st. The returned
// state continues the stream, so chunks can be destuffed one at a time.
func Destuff(bits Bits, st StuffState) (Bits, StuffState) {
	out := make(Bits, 0, len(bits))
	for _, bit := range bits {
		if st.Push(bit) {
			out = append(out, bit)
		}
	}
	return out, st
}
