package can

import "log/slog"

// Field names the next part of a frame the decoder is waiting for.
type Field int

const (
	FieldSOF Field = iota
	FieldIDA
	FieldControl // bit 12 (RTR or SRR) and IDE, read together
	FieldIDB
	FieldRTR
	FieldR1
	FieldR0
	FieldDLC
	FieldData
	FieldCRC
	FieldCRCDelimiter
	FieldACK
	FieldACKDelimiter
	FieldEOF
	FieldDone
)

func (f Field) String() string {
	switch f {
	case FieldSOF:
		return "SOF"
	case FieldIDA:
		return "ID_A"
	case FieldControl:
		return "RTR/SRR+IDE"
	case FieldIDB:
		return "ID_B"
	case FieldRTR:
		return "RTR"
	case FieldR1:
		return "r1"
	case FieldR0:
		return "r0"
	case FieldDLC:
		return "DLC"
	case FieldData:
		return "data"
	case FieldCRC:
		return "CRC"
	case FieldCRCDelimiter:
		return "CRC delimiter"
	case FieldACK:
		return "ACK"
	case FieldACKDelimiter:
		return "ACK delimiter"
	case FieldEOF:
		return "EOF"
	case FieldDone:
		return "done"
	}
	return "unknown"
}

// FieldCursor is the position of the next field in the destuffed buffer.
type FieldCursor struct {
	Field Field
	Pos   int
}

// Stuffed reports whether the next field is inside the stuffed region.
func (c FieldCursor) Stuffed() bool {
	return c.Field <= FieldCRCDelimiter
}

func (c FieldCursor) width(dlc uint8) int {
	switch c.Field {
	case FieldIDA:
		return idALen
	case FieldControl:
		return 2
	case FieldIDB:
		return idBLen
	case FieldDLC:
		return dlcLen
	case FieldData:
		return 8 * int(dlc)
	case FieldCRC:
		return crcLen
	case FieldDone:
		return 0
	}
	return 1
}

type fields struct {
	idA      uint32
	idB      uint32
	extended bool
	rtr      bool
	dlc      uint8
	data     []byte
	crc      uint16
	crcPos   int
	ack      bool
	eof      int
}

// Decoder reassembles frames from bit sampler events. A Decoder must be
// fed from a single goroutine.
type Decoder struct {
	strict     bool
	collecting bool

	buf    Bits
	stuff  StuffState
	cursor FieldCursor
	fields fields
}

func NewDecoder() *Decoder {
	return &Decoder{buf: make(Bits, 0, 128)}
}

// SetStrict makes events other than Sof report ErrInvalidSOF while idle
// instead of being ignored, and stuff bits with the level of the run they
// end report ErrStuffBit instead of being dropped.
func (d *Decoder) SetStrict(strict bool) {
	d.strict = strict
}

func (d *Decoder) Reset() {
	d.collecting = false
	d.buf = d.buf[:0]
	d.stuff = StuffState{}
	d.cursor = FieldCursor{}
	d.fields = fields{}
}

func (d *Decoder) Idle() bool {
	return !d.collecting
}

func (d *Decoder) Cursor() FieldCursor {
	return d.cursor
}

// AtAckSlot reports whether the next raw bit is the ACK slot.
func (d *Decoder) AtAckSlot() bool {
	return d.collecting && d.cursor.Field == FieldACK && !d.stuff.Pending
}

// Feed consumes one event. It returns a frame once Ifs follows a complete
// frame, an error if the frame is malformed, and nil, nil while more
// events are needed. After a frame or an error the decoder is idle.
func (d *Decoder) Feed(ev Event) (*Frame, error) {
	switch ev.Kind {
	case EventSof:
		if d.collecting {
			d.Reset()
			return nil, ErrInvalidSOF
		}
		d.collecting = true
		return nil, nil
	case EventWord:
		if !d.collecting {
			return nil, d.idleError()
		}
		for _, bit := range ev.Bits() {
			if err := d.push(bit); err != nil {
				slog.Debug("Frame error", "field", d.cursor.Field, "pos", d.cursor.Pos, "err", err)
				d.Reset()
				return nil, err
			}
		}
		return nil, nil
	case EventIfs:
		if !d.collecting {
			return nil, d.idleError()
		}
		if d.cursor.Field < FieldEOF {
			slog.Debug("Early interframe space", "field", d.cursor.Field)
			d.Reset()
			return nil, ErrInvalidIFS
		}
		f := d.frame()
		d.Reset()
		return f, nil
	}
	return nil, nil
}

func (d *Decoder) idleError() error {
	if d.strict {
		return ErrInvalidSOF
	}
	return nil
}

func (d *Decoder) push(bit uint8) error {
	if d.cursor.Field == FieldDone {
		return nil
	}
	// A stuff bit can still be pending after the CRC delimiter.
	if d.cursor.Stuffed() || d.stuff.Pending {
		if !d.stuff.Push(bit) {
			if d.strict && d.stuff.Violation {
				return ErrStuffBit
			}
			return nil
		}
	}
	d.buf = append(d.buf, bit)
	return d.advance()
}

func (d *Decoder) advance() error {
	for {
		w := d.cursor.width(d.fields.dlc)
		if w == 0 || len(d.buf)-d.cursor.Pos < w {
			return nil
		}
		v := d.buf[d.cursor.Pos : d.cursor.Pos+w]
		next, err := d.consume(d.cursor, v)
		if err != nil {
			return err
		}
		slog.Debug("Decoded field", "field", d.cursor.Field, "pos", d.cursor.Pos, "bits", v.String())
		d.cursor = FieldCursor{Field: next, Pos: d.cursor.Pos + w}
	}
}

// consume checks and records the field at c and returns the field that
// follows it.
func (d *Decoder) consume(c FieldCursor, v Bits) (Field, error) {
	f := &d.fields
	switch c.Field {
	case FieldSOF:
		if v[0] != Dominant {
			return 0, ErrInvalidSOF
		}
		return FieldIDA, nil
	case FieldIDA:
		f.idA = v.Uint()
		return FieldControl, nil
	case FieldControl:
		if v[1] == Dominant {
			f.rtr = v[0] == Recessive
			return FieldR0, nil
		}
		if v[0] != Recessive {
			return 0, ErrExpectedSRR
		}
		f.extended = true
		return FieldIDB, nil
	case FieldIDB:
		f.idB = v.Uint()
		return FieldRTR, nil
	case FieldRTR:
		f.rtr = v[0] == Recessive
		return FieldR1, nil
	case FieldR1:
		if v[0] != Dominant {
			return 0, ErrInvalidR1
		}
		return FieldR0, nil
	case FieldR0:
		if v[0] != Dominant {
			return 0, ErrInvalidR0
		}
		return FieldDLC, nil
	case FieldDLC:
		f.dlc = uint8(v.Uint())
		if f.dlc > maxDataLen {
			return 0, &DLCError{DLC: f.dlc}
		}
		if f.dlc == 0 {
			return FieldCRC, nil
		}
		return FieldData, nil
	case FieldData:
		f.data = make([]byte, f.dlc)
		for i := range f.data {
			f.data[i] = uint8(v[8*i : 8*i+8].Uint())
		}
		return FieldCRC, nil
	case FieldCRC:
		f.crc = uint16(v.Uint())
		f.crcPos = c.Pos
		return FieldCRCDelimiter, nil
	case FieldCRCDelimiter:
		if v[0] != Recessive {
			return 0, ErrInvalidCRCDelimiter
		}
		return FieldACK, nil
	case FieldACK:
		f.ack = v[0] == Dominant
		return FieldACKDelimiter, nil
	case FieldACKDelimiter:
		if v[0] != Recessive {
			return 0, ErrInvalidACKDelimiter
		}
		if computed := CRC15(d.buf[:f.crcPos]); computed != f.crc {
			return 0, &ChecksumError{Expected: f.crc, Computed: computed}
		}
		return FieldEOF, nil
	case FieldEOF:
		if v[0] != Recessive {
			return 0, ErrInvalidEOF
		}
		f.eof++
		if f.eof == eofLen {
			return FieldDone, nil
		}
		return FieldEOF, nil
	}
	return FieldDone, nil
}

func (d *Decoder) frame() *Frame {
	f := d.fields
	id := f.idA
	if f.extended {
		id = f.idA<<idBLen | f.idB
	}
	data := f.data
	if data == nil {
		data = []byte{}
	}
	return &Frame{
		ID:       id,
		Extended: f.extended,
		RTR:      f.rtr,
		Data:     data,
		CRC:      f.crc,
		Ack:      f.ack,
	}
}
