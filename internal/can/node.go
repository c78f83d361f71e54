package can

import (
	"fmt"
	"log/slog"
	"sync"
)

// intermissionLen is the number of recessive bits a transmitter leaves
// between frames.
const intermissionLen = 3

type queuedFrame struct {
	frame *Frame
	bits  Bits
}

// Transmitter drives queued frames onto a bus, one after the other.
type Transmitter struct {
	uid int

	sentFunc func(*Frame)
	queue    []queuedFrame
	mu       sync.Mutex

	current      *queuedFrame
	pos          int
	intermission int
}

func NewTransmitter(bus *Bus) (*Transmitter, error) {
	var err error
	t := &Transmitter{}
	t.uid, err = bus.Attach(t)
	if err != nil {
		return nil, fmt.Errorf("cannot attach to bus: %w", err)
	}
	return t, nil
}

func (t *Transmitter) SetSentFunc(sentFunc func(*Frame)) {
	t.sentFunc = sentFunc
}

// Enqueue encodes a frame and queues it for transmission. It is safe to
// call while the bus is running.
func (t *Transmitter) Enqueue(id uint32, rtr bool, data ...uint8) error {
	f, err := NewFrame(id, rtr, data...)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.queue = append(t.queue, queuedFrame{frame: f, bits: f.Encode()})
	t.mu.Unlock()
	return nil
}

func (t *Transmitter) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// Busy reports whether a frame or its intermission is being driven.
func (t *Transmitter) Busy() bool {
	return t.current != nil || t.intermission > 0
}

func (t *Transmitter) dequeue() *queuedFrame {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.queue) == 0 {
		return nil
	}
	q := t.queue[0]
	t.queue = t.queue[1:]
	return &q
}

func (t *Transmitter) Drive() uint8 {
	if t.current == nil {
		if t.intermission > 0 {
			t.intermission--
			return Recessive
		}
		t.current, t.pos = t.dequeue(), 0
		if t.current == nil {
			return Recessive
		}
		slog.Info("Data frame dequeue", "uid", t.uid, "df", t.current.frame.BitString())
	}
	bit := t.current.bits[t.pos]
	t.pos++
	if t.pos == len(t.current.bits) {
		f := t.current.frame
		t.current = nil
		t.intermission = intermissionLen
		slog.Info("Sent data", "uid", t.uid, "id", fmt.Sprintf("%X", f.ID), "queue_len", t.Pending())
		if t.sentFunc != nil {
			t.sentFunc(f)
		}
	}
	return bit
}

// Sense is a no-op: the transmitter does not check what it reads back.
func (t *Transmitter) Sense(uint8) {}

// Receiver samples the bus into a Decoder and, when enabled, drives the
// ACK slot dominant.
type Receiver struct {
	uid int
	ack bool

	sampler *Sampler
	decoder *Decoder

	frameFunc func(*Frame)
	errorFunc func(error)
}

func NewReceiver(bus *Bus) (*Receiver, error) {
	var err error
	// One bit per word keeps the decoder level with the bus, which the
	// ACK slot needs.
	r := &Receiver{sampler: NewSampler(1), decoder: NewDecoder()}
	r.uid, err = bus.Attach(r)
	if err != nil {
		return nil, fmt.Errorf("cannot attach to bus: %w", err)
	}
	return r, nil
}

func (r *Receiver) SetAck(ack bool) {
	r.ack = ack
}

func (r *Receiver) SetFrameFunc(frameFunc func(*Frame)) {
	r.frameFunc = frameFunc
}

func (r *Receiver) SetErrorFunc(errorFunc func(error)) {
	r.errorFunc = errorFunc
}

func (r *Receiver) Drive() uint8 {
	if r.ack && r.decoder.AtAckSlot() {
		return Dominant
	}
	return Recessive
}

func (r *Receiver) Sense(bit uint8) {
	for _, ev := range r.sampler.Sample(bit) {
		f, err := r.decoder.Feed(ev)
		switch {
		case err != nil:
			slog.Warn("Receive error", "uid", r.uid, "err", err)
			if r.errorFunc != nil {
				r.errorFunc(err)
			}
		case f != nil:
			slog.Info("Read frame", "uid", r.uid, "frame", f)
			if r.frameFunc != nil {
				r.frameFunc(f)
			}
		}
	}
}
