package shell

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"interrato.dev/diffcan/internal/can"
	"interrato.dev/diffcan/internal/sink"
)

// Session is the codec state behind the shell commands.
type Session struct {
	WordSize int
	Bitrate  int
	Sink     sink.Sink

	strict  bool
	decoder *can.Decoder
}

// NewSession creates a session sampling wordSize bits per event. A nil
// sink drops decoded frames.
func NewSession(wordSize int, strict bool, s sink.Sink) *Session {
	d := can.NewDecoder()
	d.SetStrict(strict)
	return &Session{WordSize: wordSize, Sink: s, strict: strict, decoder: d}
}

// Strict reports whether idle events are reported as errors.
func (s *Session) Strict() bool {
	return s.strict
}

func (s *Session) SetStrict(strict bool) {
	s.strict = strict
	s.decoder.SetStrict(strict)
}

// Idle reports whether no frame is being fed.
func (s *Session) Idle() bool {
	return s.decoder.Idle()
}

// Cursor is the position of the feed decoder.
func (s *Session) Cursor() can.FieldCursor {
	return s.decoder.Cursor()
}

// Reset drops the frame being fed.
func (s *Session) Reset() {
	s.decoder.Reset()
}

func (s *Session) publish(f *can.Frame) error {
	if s.Sink == nil {
		return nil
	}
	return s.Sink.Publish(f)
}

// ParseFrameArgs reads ID [rtr] [HEX]. The ID is hexadecimal with an
// optional 0x prefix.
func ParseFrameArgs(args []string) (id uint32, rtr bool, data []byte, err error) {
	if len(args) == 0 {
		return 0, false, nil, errors.New("missing frame ID")
	}
	id, err = parseHex32(args[0])
	if err != nil {
		return 0, false, nil, fmt.Errorf("frame ID %q: %w", args[0], err)
	}
	args = args[1:]
	if len(args) > 0 && strings.EqualFold(args[0], "rtr") {
		rtr, args = true, args[1:]
	}
	switch len(args) {
	case 0:
	case 1:
		data, err = parseHexBytes(args[0])
		if err != nil {
			return 0, false, nil, fmt.Errorf("payload %q: %w", args[0], err)
		}
	default:
		return 0, false, nil, fmt.Errorf("unexpected arguments %q", args[1:])
	}
	return id, rtr, data, nil
}

func parseHex32(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	v, err := strconv.ParseUint(s, 16, 32)
	return uint32(v), err
}

func parseHexBytes(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(strings.ToLower(s), "0x"))
}

// Encode builds a frame from ID [rtr] [HEX] and returns it with its
// transmit buffer.
func (s *Session) Encode(args []string) (*can.Frame, []byte, error) {
	id, rtr, data, err := ParseFrameArgs(args)
	if err != nil {
		return nil, nil, err
	}
	f, err := can.NewFrame(id, rtr, data...)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Encode().Bytes(), nil
}

// Decode samples a transmit buffer given in hex and decodes every frame
// in it. Decoded frames are published; decode errors are joined.
func (s *Session) Decode(hexBuf string) ([]*can.Frame, error) {
	buf, err := parseHexBytes(hexBuf)
	if err != nil {
		return nil, fmt.Errorf("buffer %q: %w", hexBuf, err)
	}
	d := can.NewDecoder()
	d.SetStrict(s.strict)
	var (
		frames []*can.Frame
		errs   []error
	)
	for _, ev := range can.SampleBits(can.BitsFromBytes(buf), s.WordSize) {
		f, err := d.Feed(ev)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if f != nil {
			frames = append(frames, f)
			if err := s.publish(f); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(frames) == 0 && len(errs) == 0 {
		errs = append(errs, errors.New("no frame in buffer"))
	}
	return frames, errors.Join(errs...)
}

// ParseEvent reads sof, ifs or word HEX [LEN].
func ParseEvent(args []string) (can.Event, error) {
	if len(args) == 0 {
		return can.Event{}, errors.New("missing event")
	}
	switch strings.ToLower(args[0]) {
	case "sof":
		return can.SofEvent(), nil
	case "ifs":
		return can.IfsEvent(), nil
	case "word":
		if len(args) < 2 || len(args) > 3 {
			return can.Event{}, errors.New("usage: word HEX [LEN]")
		}
		w, err := parseHex32(args[1])
		if err != nil {
			return can.Event{}, fmt.Errorf("word %q: %w", args[1], err)
		}
		if len(args) == 2 {
			return can.WordEvent(w), nil
		}
		n, err := strconv.Atoi(args[2])
		if err != nil || n < 1 || n > 32 {
			return can.Event{}, fmt.Errorf("word length %q out of range 1-32", args[2])
		}
		return can.PartialWordEvent(w, n), nil
	}
	return can.Event{}, fmt.Errorf("unknown event %q", args[0])
}

// Feed hands one event to the session decoder.
func (s *Session) Feed(args []string) (*can.Frame, error) {
	ev, err := ParseEvent(args)
	if err != nil {
		return nil, err
	}
	f, err := s.decoder.Feed(ev)
	if err != nil || f == nil {
		return nil, err
	}
	return f, s.publish(f)
}

// CRC computes the CRC-15 of a bit string.
func CRC(bits string) (uint16, error) {
	for _, c := range bits {
		if c != '0' && c != '1' && c != ' ' && c != '_' {
			return 0, fmt.Errorf("invalid bit %q", c)
		}
	}
	return can.CRC15(can.ParseBits(bits)), nil
}

// Loopback transmits a frame from ID [rtr] [HEX] on a simulated bus with
// an acknowledging receiver and returns what the receiver decoded.
func (s *Session) Loopback(ctx context.Context, args []string) (*can.Frame, error) {
	f, buf, err := s.Encode(args)
	if err != nil {
		return nil, err
	}
	bus := can.NewBus(s.Bitrate)
	tx, err := can.NewTransmitter(bus)
	if err != nil {
		return nil, err
	}
	rx, err := can.NewReceiver(bus)
	if err != nil {
		return nil, err
	}
	rx.SetAck(true)
	var (
		got   *can.Frame
		rxErr error
	)
	rx.SetFrameFunc(func(f *can.Frame) { got = f })
	rx.SetErrorFunc(func(err error) { rxErr = err })

	if err := tx.Enqueue(f.ID, f.RTR, f.Data...); err != nil {
		return nil, err
	}
	// Run the whole frame and a full interframe space past it.
	if err := bus.Run(ctx, 8*len(buf)+8); err != nil {
		return nil, err
	}
	if rxErr != nil {
		return nil, rxErr
	}
	if got == nil {
		return nil, errors.New("no frame received")
	}
	return got, s.publish(got)
}
