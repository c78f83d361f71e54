package can

import (
	"fmt"
	"strings"
)

const (
	idALen = 11
	idBLen = 18
	dlcLen = 4
	crcLen = 15
	eofLen = 7

	maxStdID   = 0x7FF
	maxID      = 0x1FFFFFF
	maxDataLen = 8
)

// Frame is a CAN 2.0B data or remote frame.
type Frame struct {
	ID       uint32 // 11 bits (standard) or 29 bits (extended)
	Extended bool
	RTR      bool
	Data     []byte // 0-8 bytes
	CRC      uint16 // 15 bits
	Ack      bool   // ACK slot was dominant
}

// NewFrame validates a transmit request and returns the frame it
// describes. Identifiers above 0x7FF select the extended format. The
// payload is copied.
func NewFrame(id uint32, rtr bool, data ...uint8) (*Frame, error) {
	if len(data) > maxDataLen {
		return nil, ErrPayloadTooLarge
	}
	if id > maxID {
		return nil, ErrIdentifierTooLarge
	}
	f := &Frame{
		ID:       id,
		Extended: id > maxStdID,
		RTR:      rtr,
		Data:     make([]byte, len(data)),
	}
	copy(f.Data, data)
	f.CRC = CRC15(f.Bits())
	return f, nil
}

func (f *Frame) DLC() uint8 {
	return uint8(len(f.Data))
}

// Size is the number of unstuffed bits from SOF through the payload.
func (f *Frame) Size() int {
	if f.Extended {
		return 1 + idALen + 2 + idBLen + 3 + dlcLen + 8*len(f.Data)
	}
	return 1 + idALen + 3 + dlcLen + 8*len(f.Data)
}

// Bits returns the unstuffed SOF through payload bits, the region covered
// by the CRC.
func (f *Frame) Bits() Bits {
	bits := make(Bits, 0, f.Size()+crcLen+1)
	bits = append(bits, Dominant) // SOF
	if f.Extended {
		bits = bits.AppendUint(f.ID>>idBLen, idALen)
		bits = append(bits, Recessive, Recessive) // SRR, IDE
		bits = bits.AppendUint(f.ID, idBLen)
		bits = append(bits, level(f.RTR), Dominant, Dominant) // RTR, r1, r0
	} else {
		bits = bits.AppendUint(f.ID, idALen)
		bits = append(bits, level(f.RTR), Dominant, Dominant) // RTR, IDE, r0
	}
	bits = bits.AppendUint(uint32(f.DLC()), dlcLen)
	for _, b := range f.Data {
		bits = bits.AppendUint(uint32(b), 8)
	}
	return bits
}

// BitString renders the unstuffed bits with a space between fields.
func (f *Frame) BitString() string {
	bits := f.Bits()
	widths := []int{1, idALen, 1, 1, 1, dlcLen}
	if f.Extended {
		widths = []int{1, idALen, 1, 1, idBLen, 1, 1, 1, dlcLen}
	}
	for range f.Data {
		widths = append(widths, 8)
	}
	parts := make([]string, 0, len(widths))
	for _, w := range widths {
		parts = append(parts, bits[:w].String())
		bits = bits[w:]
	}
	return strings.Join(parts, " ")
}

func (f *Frame) String() string {
	kind := "std"
	if f.Extended {
		kind = "ext"
	}
	s := fmt.Sprintf("%s id=%X dlc=%d data=%s crc=%04X", kind, f.ID, f.DLC(), dataString(f.Data), f.CRC)
	if f.RTR {
		s += " rtr"
	}
	if f.Ack {
		s += " ack"
	}
	return s
}

func dataString(data []uint8) string {
	return fmt.Sprintf("%X", data)
}

func level(recessive bool) uint8 {
	if recessive {
		return Recessive
	}
	return Dominant
}
