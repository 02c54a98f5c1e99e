package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel("info"))
	require.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestNewHandler_JSON(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	log := slog.New(newHandler(&buf, "info", "json"))

	log.Debug("hidden")
	log.Info("message sent", "type", "group")

	var entry map[string]any
	req.NoError(json.Unmarshal(buf.Bytes(), &entry))
	req.Equal("message sent", entry["msg"])
	req.Equal("group", entry["type"])
}
