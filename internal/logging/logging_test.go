package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesFileAndConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "trading_bot.log")
	var console bytes.Buffer

	logger, closer, err := New(Options{Path: path, ConsoleLevel: "info", MaxSizeMB: 1}, &console)
	require.NoError(t, err)

	logger.Debug("order response", "order_id", 42)
	logger.Info("order placed", "symbol", "BTCUSDT")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "order response")
	assert.Contains(t, string(data), "order placed")
	assert.Contains(t, string(data), "level=INFO")

	assert.Contains(t, console.String(), "order placed")
	assert.NotContains(t, console.String(), "order response")
}

func TestNew_AppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trading_bot.log")
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0o644))

	logger, closer, err := New(Options{Path: path, ConsoleLevel: "error", MaxSizeMB: 1}, &bytes.Buffer{})
	require.NoError(t, err)
	logger.Warn("balance asset missing")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "previous run")
	assert.Contains(t, string(data), "balance asset missing")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestFanout_WithAttrsReachesEverySink(t *testing.T) {
	var a, b bytes.Buffer
	logger := slog.New(NewFanout(
		slog.NewTextHandler(&a, nil),
		slog.NewTextHandler(&b, nil),
	)).With("component", "cli").WithGroup("order")

	logger.Info("submitted", "symbol", "ETHUSDT")

	for _, out := range []string{a.String(), b.String()} {
		assert.Contains(t, out, "component=cli")
		assert.Contains(t, out, "order.symbol=ETHUSDT")
	}
}
