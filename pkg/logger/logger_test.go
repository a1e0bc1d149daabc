package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log output: %s", buf.String())
	return entry
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", "json", "test")

	log.WithFields(map[string]interface{}{
		"as_of":    "2026-10-16",
		"ranked":   12,
		"excluded": 3,
	}).Info("Ranking completed")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "Ranking completed", entry["message"])
	assert.Equal(t, "laggard", entry["service"])
	assert.Equal(t, "test", entry["env"])
	assert.Equal(t, "2026-10-16", entry["as_of"])
	assert.Equal(t, float64(12), entry["ranked"])
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "console", "test")

	log.Info("test message")

	assert.True(t, strings.Contains(buf.String(), "test message"))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", "json", "test")

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Warnf("retry attempt: %d", 3)
	entry := decodeLine(t, &buf)
	assert.Equal(t, "retry attempt: 3", entry["message"])
}

func TestWithFieldAndError(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log := &Logger{zlog: zerolog.New(&buf)}

	log.WithField("code", "7203").WithError(errors.New("axis missing")).Error("qualitative scoring failed")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "7203", entry["code"])
	assert.Equal(t, "axis missing", entry["error"])
	assert.Equal(t, "error", entry["level"])
}

func TestNop(t *testing.T) {
	log := Nop()
	assert.NotPanics(t, func() {
		log.WithField("k", "v").Info("discarded")
		log.Debugf("discarded %d", 1)
	})
}
