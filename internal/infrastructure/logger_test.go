package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abrsqol/internal/config"
)

func readLastEntry(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestInitializeLogger(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "qol.log")
	cfg := config.LoggingConfig{
		Level:    "info",
		Output:   "file",
		FilePath: logFile,
	}

	logger, err := InitializeLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Same(t, logger, GetLogger())

	_, err = os.Stat(logFile)
	require.NoError(t, err, "log file and its directory should be created")

	logger.Info("quality of life measure generated", "converged", true)
	require.NoError(t, CloseLogFile())

	entry := readLastEntry(t, logFile)
	assert.Equal(t, "quality of life measure generated", entry["msg"])
	assert.Equal(t, true, entry["converged"])
	assert.Equal(t, "INFO", entry["level"])

	// A second call keeps the first logger.
	again, err := InitializeLogger(config.LoggingConfig{Level: "debug", Output: "console"})
	require.NoError(t, err)
	assert.Same(t, logger, again)
}

func TestNewLoggerErrors(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	_, err := NewLogger(config.LoggingConfig{Level: "info", Output: "file"})
	assert.Error(t, err)
}

func TestTraceIDInjection(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "test.log")
	_, err := InitializeLogger(config.LoggingConfig{
		Level:    "debug",
		Output:   "file",
		FilePath: logFile,
	})
	require.NoError(t, err)

	ctx := WithTraceID(context.Background(), "test-trace-123")
	GetLogger().InfoContext(ctx, "test with trace")
	require.NoError(t, CloseLogFile())

	entry := readLastEntry(t, logFile)
	assert.Equal(t, "test-trace-123", entry["trace_id"])
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLogLevel(tt.level))
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "test.log")
	logger, err := NewLogger(config.LoggingConfig{Level: "warn", Output: "file", FilePath: logFile})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("iteration cap reached before tolerance")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "dropped")
	assert.Contains(t, string(content), "iteration cap reached")
}

func TestTextFormat(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "text.log")
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: "text", Output: "file", FilePath: logFile})
	require.NoError(t, err)

	logger.InfoContext(WithTraceID(context.Background(), "run-7"), "column converged", slog.Int("iterations", 42))
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	line := string(content)
	assert.Contains(t, line, `msg="column converged"`)
	assert.Contains(t, line, "iterations=42")
	assert.Contains(t, line, "trace_id=run-7")
}

func TestContextHelpers(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	traceID := GetTraceID(ctx)
	require.NotEmpty(t, traceID)

	assert.Equal(t, traceID, GetTraceID(EnsureTraceID(ctx)), "existing trace ID must be kept")
	assert.NotEqual(t, traceID, GenerateTraceID())
	assert.Empty(t, GetTraceID(context.Background()))
}

func TestLoggerHelpers(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	var buf bytes.Buffer
	globalLogger = slog.New(slog.NewJSONHandler(&buf, nil))

	decode := func() map[string]interface{} {
		t.Helper()
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		buf.Reset()
		return entry
	}

	WithComponent(nil, "qol_service").Info("component test")
	assert.Equal(t, "qol_service", decode()["component"])

	WithError(GetLogger(), os.ErrNotExist).Info("error test")
	assert.Contains(t, decode()["error"], "file does not exist")

	assert.Same(t, GetLogger(), WithError(GetLogger(), nil))
}
