// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("with config", func(t *testing.T) {
		logger := New(&Config{Level: slog.LevelDebug, Format: FormatJSON, Output: os.Stdout})
		require.NotNil(t, logger)
		_, ok := logger.(*slogLogger)
		assert.True(t, ok)
	})

	t.Run("with nil config", func(t *testing.T) {
		logger := New(nil)
		require.NotNil(t, logger)
	})
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.NotNil(t, config)
	assert.Equal(t, slog.LevelInfo, config.Level)
	assert.Equal(t, FormatText, config.Format)
	assert.Equal(t, os.Stderr, config.Output)
}

func TestSlogLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: slog.LevelInfo, Format: FormatJSON, Output: nil})
	_ = logger

	f, err := os.CreateTemp(t.TempDir(), "log")
	require.NoError(t, err)
	defer f.Close()

	logger = New(&Config{Level: slog.LevelInfo, Format: FormatJSON, Output: f})
	logger.Info("job schedule", "job", "j1", "state", "RUNNING")

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	buf.Write(data)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded))
	assert.Equal(t, "job schedule", decoded["msg"])
	assert.Equal(t, "j1", decoded["job"])
	assert.Equal(t, "bap", decoded["component"])
}

func TestWith(t *testing.T) {
	base := New(DefaultConfig())
	derived := base.With("run_id", "abc")
	require.NotNil(t, derived)
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NoOpLogger{}
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	assert.NotNil(t, l.With("k", "v"))
}
