// Package config holds the command line and environment settings of the
// diffcan command.
package config

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
)

// Config is the runtime configuration.
type Config struct {
	LogLevel slog.Level
	LogFile  string

	// Decoder
	Strict   bool
	WordSize int

	// Loopback bus pacing in bits per second, 0 for unpaced.
	Bitrate int

	MQTTURL      string
	MQTTClientID string
	CANInterface string

	// Args are the positional arguments left after the flags.
	Args []string
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		LogLevel: slog.LevelInfo,
		LogFile:  "log.txt",
		WordSize: 32,
	}
}

// Load parses args over the defaults. DIFFCAN_* environment variables
// are applied first, so flags win over them.
func Load(args []string) (*Config, error) {
	return load(args, os.Getenv, os.Stderr)
}

func load(args []string, getenv func(string) string, output io.Writer) (*Config, error) {
	c := Default()
	if err := c.fromEnv(getenv); err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet("diffcan", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.TextVar(&c.LogLevel, "level", c.LogLevel, "Log level (debug, info, warn, error).")
	fs.StringVar(&c.LogFile, "log", c.LogFile, "Log file, also written to stderr. Empty for stderr only.")
	fs.BoolVar(&c.Strict, "strict", c.Strict, "Report events received outside a frame.")
	fs.IntVar(&c.WordSize, "word", c.WordSize, "Bits per sampler word (1-32).")
	fs.IntVar(&c.Bitrate, "bitrate", c.Bitrate, "Loopback bus bitrate, 0 for unpaced.")
	fs.StringVar(&c.MQTTURL, "mqtt", c.MQTTURL, "MQTT broker URL to publish decoded frames to, e.g. mqtt://localhost:1883/can.")
	fs.StringVar(&c.MQTTClientID, "mqtt-client-id", c.MQTTClientID, "MQTT client ID, derived from the machine ID if empty.")
	fs.StringVar(&c.CANInterface, "can", c.CANInterface, "SocketCAN interface to publish decoded frames to, e.g. can0.")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	c.Args = fs.Args()
	return c, c.Validate()
}

func (c *Config) fromEnv(getenv func(string) string) error {
	if val := getenv("DIFFCAN_LOG_LEVEL"); val != "" {
		if err := c.LogLevel.UnmarshalText([]byte(val)); err != nil {
			return fmt.Errorf("DIFFCAN_LOG_LEVEL: %w", err)
		}
	}
	if val, ok := lookup(getenv, "DIFFCAN_LOG_FILE"); ok {
		c.LogFile = val
	}
	if val := getenv("DIFFCAN_STRICT"); val != "" {
		strict, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("DIFFCAN_STRICT: %w", err)
		}
		c.Strict = strict
	}
	if val := getenv("DIFFCAN_WORD_SIZE"); val != "" {
		size, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("DIFFCAN_WORD_SIZE: %w", err)
		}
		c.WordSize = size
	}
	if val := getenv("DIFFCAN_MQTT_URL"); val != "" {
		c.MQTTURL = val
	}
	if val := getenv("DIFFCAN_MQTT_CLIENT_ID"); val != "" {
		c.MQTTClientID = val
	}
	if val := getenv("DIFFCAN_CAN_INTERFACE"); val != "" {
		c.CANInterface = val
	}
	return nil
}

// lookup distinguishes a variable set to "none" from an unset one, so the
// log file can be turned off from the environment.
func lookup(getenv func(string) string, key string) (string, bool) {
	val := getenv(key)
	switch val {
	case "":
		return "", false
	case "none":
		return "", true
	}
	return val, true
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.WordSize < 1 || c.WordSize > 32 {
		return fmt.Errorf("word size %d out of range 1-32", c.WordSize)
	}
	if c.Bitrate < 0 {
		return fmt.Errorf("negative bitrate %d", c.Bitrate)
	}
	return nil
}
