package sink

import (
	"fmt"
	"log/slog"

	socketcan "github.com/brutella/can"

	"interrato.dev/diffcan/internal/can"
)

// SocketCAN identifier flags.
const (
	flagEFF = 0x80000000
	flagRTR = 0x40000000
)

// FramePublisher is the part of a SocketCAN bus used to send frames.
type FramePublisher interface {
	Publish(frame socketcan.Frame) error
}

// SocketCAN replays frames on a Linux CAN interface.
type SocketCAN struct {
	Bus FramePublisher
}

// SocketCANFrame converts a decoded frame to its SocketCAN form.
func SocketCANFrame(f *can.Frame) socketcan.Frame {
	out := socketcan.Frame{
		ID:     f.ID,
		Length: f.DLC(),
	}
	if f.Extended {
		out.ID |= flagEFF
	}
	if f.RTR {
		out.ID |= flagRTR
	}
	copy(out.Data[:], f.Data)
	return out
}

func (s *SocketCAN) Publish(f *can.Frame) error {
	if err := s.Bus.Publish(SocketCANFrame(f)); err != nil {
		return fmt.Errorf("socketcan publish %X: %w", f.ID, err)
	}
	return nil
}

// OpenSocketCAN opens iface and starts its read loop. Close the returned
// bus with Disconnect.
func OpenSocketCAN(iface string) (*SocketCAN, *socketcan.Bus, error) {
	bus, err := socketcan.NewBusForInterfaceWithName(iface)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open %s: %w", iface, err)
	}
	go func() {
		if err := bus.ConnectAndPublish(); err != nil {
			slog.Warn("SocketCAN read loop end", "iface", iface, "err", err)
		}
	}()
	slog.Info("SocketCAN open", "iface", iface)
	return &SocketCAN{Bus: bus}, bus, nil
}
