package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "warn", "json")
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("Feed skipped", slog.Int64("feedID", 3))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Feed skipped", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.EqualValues(t, 3, entry["feedID"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "debug", "")
	require.NoError(t, err)

	log.Debug("Parsing feed")
	assert.Contains(t, buf.String(), "msg=\"Parsing feed\"")
}

func TestNewInvalid(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud", "text")
	assert.Error(t, err)

	_, err = New(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, expected := range tests {
		lvl, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, lvl, in)
	}
}
