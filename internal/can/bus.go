package can

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Node is anything attached to a Bus. Drive returns the level the node
// puts on the line for the next bit; Sense delivers the resulting level.
type Node interface {
	Drive() uint8
	Sense(bit uint8)
}

// Bus is a wired-AND line: any dominant driver wins the bit.
type Bus struct {
	state uint8
	nodes []Node

	active  bool
	bitTime time.Duration
	bits    int
}

// NewBus returns a bus paced at bitrate bits per second. A bitrate of 0
// steps as fast as the caller asks.
func NewBus(bitrate int) *Bus {
	b := &Bus{state: Recessive}
	if bitrate > 0 {
		b.bitTime = time.Second / time.Duration(bitrate)
	}
	return b
}

func (b *Bus) BitTime() time.Duration {
	return b.bitTime
}

func (b *Bus) Bits() int {
	return b.bits
}

func (b *Bus) Attach(node Node) (int, error) {
	if b.active {
		return 0, fmt.Errorf("bus is active")
	}
	uid := len(b.nodes)
	b.nodes = append(b.nodes, node)
	return uid, nil
}

// Step runs one bit time and returns the level on the line.
func (b *Bus) Step() uint8 {
	b.state = Recessive
	for _, node := range b.nodes {
		b.state &= node.Drive()
	}
	for _, node := range b.nodes {
		node.Sense(b.state)
	}
	b.bits++
	return b.state
}

// Run steps n bit times, one per bit time when the bus is paced. It
// returns early with the context error if ctx is done.
func (b *Bus) Run(ctx context.Context, n int) error {
	if b.active {
		return fmt.Errorf("bus already active")
	}
	b.active = true
	defer func() { b.active = false }()
	slog.Debug("Bus is active", "bitTime", b.bitTime, "nodes", len(b.nodes), "bits", n)

	var tick <-chan time.Time
	if b.bitTime > 0 {
		t := time.NewTicker(b.bitTime)
		defer t.Stop()
		tick = t.C
	}
	for i := 0; i < n; i++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		b.Step()
	}
	slog.Debug("Bus run end", "state", b.state, "bits", b.bits)
	return nil
}
