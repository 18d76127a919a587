package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/warpfront/warpfront-server-go/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"verbose": zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for name, want := range tests {
		assert.Equal(t, want, ParseLevel(name), name)
	}
}

func TestFileSinkHonoursLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	logger, level, err := New(config.LoggingConfig{Level: "warn", Format: "json", File: path})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", zap.String("game_id", "Ab12Cd34"))

	level.SetLevel(zapcore.DebugLevel)
	logger.Debug("now visible")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"game_id":"Ab12Cd34"`)
	assert.Contains(t, out, "now visible")
}

func TestConsoleOnly(t *testing.T) {
	logger, level, err := New(config.LoggingConfig{Level: "debug"})
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, level.Level())
	assert.NotNil(t, logger)
}
