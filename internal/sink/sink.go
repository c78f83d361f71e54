// Package sink forwards decoded frames to logs, MQTT brokers and SocketCAN
// interfaces.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"interrato.dev/diffcan/internal/can"
)

// Sink receives decoded frames.
type Sink interface {
	Publish(f *can.Frame) error
}

// Multi publishes to every sink in order and joins their errors.
type Multi []Sink

func (m Multi) Publish(f *can.Frame) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes every frame as an slog record.
type Log struct {
	Logger *slog.Logger
	Level  slog.Level
}

func (l *Log) Publish(f *can.Frame) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(context.Background(), l.Level, "Frame",
		"id", fmt.Sprintf("%X", f.ID), "extended", f.Extended, "rtr", f.RTR,
		"data", fmt.Sprintf("%X", f.Data), "crc", fmt.Sprintf("%04X", f.CRC), "ack", f.Ack)
	return nil
}
