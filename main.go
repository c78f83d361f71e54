package main

import (
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"interrato.dev/diffcan/internal/config"
	"interrato.dev/diffcan/internal/shell"
	"interrato.dev/diffcan/internal/sink"
)

func main() {
	conf, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		slog.Error("Invalid configuration", "err", err)
		os.Exit(2)
	}

	var w io.Writer = os.Stderr
	if conf.LogFile != "" {
		f, err := os.Create(conf.LogFile)
		if err != nil {
			slog.Error("Failed to create log file", "err", err)
			os.Exit(1)
		}
		defer f.Close()
		w = io.MultiWriter(os.Stderr, f)
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      conf.LogLevel,
			TimeFormat: time.TimeOnly,
		}),
	))

	sinks := sink.Multi{&sink.Log{Level: slog.LevelInfo}}
	if conf.MQTTURL != "" {
		s, client, err := sink.DialMQTT(conf.MQTTURL, conf.MQTTClientID)
		if err != nil {
			slog.Error("Failed to connect MQTT broker", "err", err)
			os.Exit(1)
		}
		defer client.Disconnect(250)
		sinks = append(sinks, s)
	}
	if conf.CANInterface != "" {
		s, bus, err := sink.OpenSocketCAN(conf.CANInterface)
		if err != nil {
			slog.Error("Failed to open SocketCAN interface", "err", err)
			os.Exit(1)
		}
		defer bus.Disconnect()
		sinks = append(sinks, s)
	}

	session := shell.NewSession(conf.WordSize, conf.Strict, sinks)
	session.Bitrate = conf.Bitrate
	sh := shell.New(session)
	sh.Interactive = len(conf.Args) == 0
	if err := sh.Run(conf.Args...); err != nil {
		slog.Error("Command failed", "err", err)
		os.Exit(1)
	}
}
