package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	SetLogger(zap.New(core))
	t.Cleanup(func() {
		mu.Lock()
		categories = nil
		mu.Unlock()
		SetLogger(nil)
	})
	return logs
}

func TestCategoryLoggersAreNamed(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	Market("fetched %d candles for %s", 100, "BTCUSDT")
	SignalDebug("primary=%.2f", 1.5)

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, "market", entries[0].LoggerName)
	assert.Equal(t, "fetched 100 candles for BTCUSDT", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)

	assert.Equal(t, "signal", entries[1].LoggerName)
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
}

func TestLevelFiltering(t *testing.T) {
	logs := observe(t, zapcore.WarnLevel)

	MonitorDebug("hidden")
	Monitor("hidden too")
	MonitorWarn("visible")
	MonitorError("visible too")

	assert.Equal(t, 2, logs.Len())
}

func TestDisabledCategoryIsNoop(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	mu.Lock()
	categories = map[string]bool{"api": false, "store": true}
	mu.Unlock()

	assert.False(t, IsCategoryEnabled(CategoryAPI))
	assert.True(t, IsCategoryEnabled(CategoryStore))
	assert.True(t, IsCategoryEnabled(CategoryNotify), "unlisted categories stay enabled")

	API("should not appear")
	Store("should appear")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "store", entries[0].LoggerName)
}

func TestWithAttachesFields(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)

	Get(CategoryMarket).With("symbol", "ETHUSDT").Info("ok")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ETHUSDT", entries[0].ContextMap()["symbol"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestBuildWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "futureswatch.log")

	logger, err := Build(Options{Level: "debug", Format: "json", File: path})
	require.NoError(t, err)
	logger.Info("hello")
	_ = logger.Sync()

	assert.FileExists(t, path)
}
