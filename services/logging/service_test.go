package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/drukhealth/ctgadmin/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedService(level zapcore.Level) (*Service, *observer.ObservedLogs) {
	core, recorded := observer.New(level)
	logger := zap.New(core)
	return &Service{logger: logger, sugar: logger.Sugar()}, recorded
}

func TestNewService(t *testing.T) {
	t.Run("json to stdout", func(t *testing.T) {
		service, err := NewService(Config{Level: Info, Format: "json", OutputPath: "stdout"})

		require.NoError(t, err)
		assert.NotNil(t, service.logger)
		assert.NotNil(t, service.sugar)
		assert.True(t, service.skipSync)
	})

	t.Run("console format", func(t *testing.T) {
		service, err := NewService(Config{Level: Debug, Format: "console", OutputPath: "stderr"})

		require.NoError(t, err)
		assert.NotNil(t, service.logger)
	})

	t.Run("rotating file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "ctgadmin.log")

		service, err := NewService(Config{Level: Info, Format: "json", OutputPath: logFile, MaxSizeMB: 1})
		require.NoError(t, err)
		assert.False(t, service.skipSync)

		service.Info("scan uploaded", zap.Uint("scan_id", 7))
		require.NoError(t, service.Sync())

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), "scan uploaded")
		assert.Contains(t, string(data), `"scan_id":7`)
	})

	t.Run("level filters lower entries", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "warn.log")

		service, err := NewService(Config{Level: Warn, Format: "json", OutputPath: logFile})
		require.NoError(t, err)

		service.Info("hidden")
		service.Warn("shown")
		require.NoError(t, service.Sync())

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "hidden")
		assert.Contains(t, string(data), "shown")
	})
}

func TestNewLoggingService(t *testing.T) {
	cfg := &config.Config{Log: config.LogConfig{Level: "debug", Format: "console", Output: "stdout"}}

	service, err := NewLoggingService(cfg)

	require.NoError(t, err)
	assert.NotNil(t, service)
	assert.Equal(t, Debug, ConfigFrom(cfg).Level)
}

func TestService_LoggingMethods(t *testing.T) {
	service, recorded := newObservedService(zapcore.DebugLevel)

	service.Debug("debug message", zap.String("key", "value"))
	service.Info("info message")
	service.Warn("warn message")
	service.Error("error message")
	service.Infow("infow message", "email", "a@b.bt")
	service.Warnw("warnw message", "attempts", 3)
	service.Errorw("errorw message", "err", "boom")

	logs := recorded.TakeAll()
	require.Len(t, logs, 7)
	assert.Equal(t, zapcore.DebugLevel, logs[0].Level)
	assert.Equal(t, "debug message", logs[0].Message)
	assert.Equal(t, zapcore.InfoLevel, logs[1].Level)
	assert.Equal(t, zapcore.WarnLevel, logs[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, logs[3].Level)
	assert.Equal(t, "a@b.bt", logs[4].ContextMap()["email"])
	assert.Equal(t, int64(3), logs[5].ContextMap()["attempts"])
	assert.Equal(t, zapcore.ErrorLevel, logs[6].Level)
}

func TestService_Named(t *testing.T) {
	service, recorded := newObservedService(zapcore.InfoLevel)

	service.Named("otp").Info("issued")

	logs := recorded.TakeAll()
	require.Len(t, logs, 1)
	assert.Equal(t, "otp", logs[0].ContextMap()["component"])

	var nilService *Service
	assert.Nil(t, nilService.Named("otp"))
}

func TestService_NilSafety(t *testing.T) {
	var service *Service

	assert.NotPanics(t, func() {
		service.Debug("test")
		service.Info("test")
		service.Warn("test")
		service.Error("test")
		service.Infow("test", "key", "value")
		service.Warnw("test", "key", "value")
		service.Errorw("test", "key", "value")
		assert.NoError(t, service.Sync())
		assert.Nil(t, service.Logger())
	})

	empty := &Service{}
	assert.NotPanics(t, func() {
		empty.Info("test")
		empty.Errorw("test")
		assert.NoError(t, empty.Sync())
	})
}

func TestNewNop(t *testing.T) {
	service := NewNop()

	assert.NotPanics(t, func() {
		service.Info("discarded")
	})
	assert.NoError(t, service.Sync())
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zapcore.Level
	}{
		{Debug, zapcore.DebugLevel},
		{Info, zapcore.InfoLevel},
		{Warn, zapcore.WarnLevel},
		{Error, zapcore.ErrorLevel},
		{LogLevel("unknown"), zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}
