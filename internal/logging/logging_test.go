package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseLevel(tt.input), "level %q", tt.input)
	}
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kasane.log")

	cleanup, err := Setup(Config{Level: "info", FilePath: path, WriteToStderr: false})
	require.NoError(t, err)

	slog.Info("test_event", slog.String("key", "value"))
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "test_event", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestSetup_LevelFiltersDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kasane.log")

	cleanup, err := Setup(Config{Level: "warn", FilePath: path, WriteToStderr: false})
	require.NoError(t, err)

	slog.Debug("dropped")
	slog.Info("also dropped")
	slog.Warn("kept")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kept")
	assert.NotContains(t, string(data), "dropped")
}

func TestSetup_CreatesLogDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "logs", "kasane.log")

	cleanup, err := Setup(Config{Level: "info", FilePath: path, WriteToStderr: false})
	require.NoError(t, err)

	slog.Info("hello")
	cleanup()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestRotatingWriter_RotatesAtSizeLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kasane.log")

	// 1 MB threshold; two ~0.6 MB writes force one rotation.
	w, err := NewRotatingWriter(path, 1, 3)
	require.NoError(t, err)

	chunk := make([]byte, 600*1024)
	for i := range chunk {
		chunk[i] = 'x'
	}

	_, err = w.Write(chunk)
	require.NoError(t, err)
	_, err = w.Write(chunk)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
	_, err = os.Stat(path + ".1")
	assert.NoError(t, err)
}

func TestRotatingWriter_DropsOldestBeyondMaxFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kasane.log")

	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)

	chunk := make([]byte, 700*1024)
	for i := 0; i < 5; i++ {
		_, err = w.Write(chunk)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err)
	_, err = os.Stat(path + ".2")
	assert.NoError(t, err)
	_, err = os.Stat(path + ".3")
	assert.True(t, os.IsNotExist(err))
}
