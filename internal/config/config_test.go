package config

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestLoadDefaults(t *testing.T) {
	c, err := load(nil, env(nil), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, c.LogLevel)
	assert.Equal(t, "log.txt", c.LogFile)
	assert.Equal(t, 32, c.WordSize)
	assert.False(t, c.Strict)
	assert.Empty(t, c.Args)
}

func TestLoadFlagsOverEnv(t *testing.T) {
	c, err := load(
		[]string{"-level", "debug", "-word", "8", "-mqtt", "mqtt://broker:1883/badge", "encode", "123"},
		env(map[string]string{
			"DIFFCAN_LOG_LEVEL":     "warn",
			"DIFFCAN_STRICT":        "true",
			"DIFFCAN_WORD_SIZE":     "16",
			"DIFFCAN_CAN_INTERFACE": "vcan0",
			"DIFFCAN_LOG_FILE":      "none",
		}),
		io.Discard,
	)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, c.LogLevel)
	assert.Equal(t, 8, c.WordSize)
	assert.True(t, c.Strict)
	assert.Equal(t, "mqtt://broker:1883/badge", c.MQTTURL)
	assert.Equal(t, "vcan0", c.CANInterface)
	assert.Empty(t, c.LogFile)
	assert.Equal(t, []string{"encode", "123"}, c.Args)
}

func TestLoadInvalid(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{"word size", []string{"-word", "33"}, nil},
		{"zero word size", []string{"-word", "0"}, nil},
		{"bitrate", []string{"-bitrate", "-1"}, nil},
		{"unknown flag", []string{"-nope"}, nil},
		{"env level", nil, map[string]string{"DIFFCAN_LOG_LEVEL": "loud"}},
		{"env strict", nil, map[string]string{"DIFFCAN_STRICT": "maybe"}},
		{"env word size", nil, map[string]string{"DIFFCAN_WORD_SIZE": "x"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := load(tc.args, env(tc.env), io.Discard)
			assert.Error(t, err)
		})
	}
}
