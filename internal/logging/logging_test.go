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

func TestLogger(t *testing.T) {
	tests := []struct {
		name            string
		level           string
		loggingFunc     func(l *slog.Logger)
		expectedMessage string
	}{
		{
			name:            "Debug",
			level:           "debug",
			loggingFunc:     func(l *slog.Logger) { l.Debug("debug message") },
			expectedMessage: "debug message",
		},
		{
			name:            "Info",
			level:           "info",
			loggingFunc:     func(l *slog.Logger) { l.Info("info message") },
			expectedMessage: "info message",
		},
		{
			name:            "Warn",
			level:           "warning",
			loggingFunc:     func(l *slog.Logger) { l.Warn("warn message") },
			expectedMessage: "warn message",
		},
		{
			name:            "Error",
			level:           "prod",
			loggingFunc:     func(l *slog.Logger) { l.Error("error message") },
			expectedMessage: "error message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := New(tt.level, buf, "text")
			tt.loggingFunc(logger)
			assert.Contains(t, buf.String(), tt.expectedMessage)
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New("error", buf, "text")

	logger.Info("hidden")
	logger.Warn("hidden too")
	assert.Empty(t, buf.String())
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
	assert.Equal(t, slog.LevelDebug, ParseLevel(" DEV "))
}

func TestJSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	New("info", buf, "json").Info("hello", "client", "abc")

	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"client":"abc"`)
}

func TestNewClientLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.log")

	logger, closer, err := NewClientLogger(path, slog.Default())
	require.NoError(t, err)
	logger.Info("from browser", "client", "c1")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "from browser")
}
