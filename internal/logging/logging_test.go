package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

func TestSetupWritesFileAndConsole(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var console bytes.Buffer
	start := time.Date(2026, 3, 14, 9, 5, 7, 0, time.Local)

	run, err := Setup(types.LogConfig{Dir: dir, Level: "debug"}, &console, start)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "app_20260314_090507.log"), run.Path)

	run.Logger.Debug("ledger created", "order", "A100")
	require.NoError(t, run.Close())

	data, err := os.ReadFile(run.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "order=A100")
	assert.Contains(t, console.String(), "order=A100")
}

func TestSetupConsoleOnly(t *testing.T) {
	var console bytes.Buffer
	run, err := Setup(types.LogConfig{Level: "warn"}, &console, time.Now())
	require.NoError(t, err)
	assert.Empty(t, run.Path)

	run.Logger.Info("hidden")
	run.Logger.Warn("shown")
	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "shown")
	assert.NoError(t, run.Close())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, types.ErrLogLevelUnknown)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
