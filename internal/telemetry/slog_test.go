package telemetry

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "JSON", slog.LevelInfo))
	logger.Info("scan complete", "devices", 3)

	var obj map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &obj))
	assert.Equal(t, "scan complete", obj["msg"])
	assert.Equal(t, float64(3), obj["devices"])
}

func TestNewHandler_TextFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "text", slog.LevelWarn))
	logger.Info("hidden")
	logger.Warn("shown", "mac", "00:50:c2:00:00:01")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "mac=00:50:c2:00:00:01")
}

func TestSetupLogger_DoesNotPanic(t *testing.T) {
	for _, format := range []string{"json", "text", ""} {
		for _, level := range []string{"debug", "info", "warn", "error", ""} {
			assert.NotPanics(t, func() { SetupLogger(format, level) }, format+"/"+level)
		}
	}
	SetupLogger("text", "error")
}
