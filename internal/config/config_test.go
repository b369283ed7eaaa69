package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv neutralizes overrides that may be set on the host.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BOT_TOKEN", "CHAT_ID",
		"FUTURESWATCH_SYMBOLS", "FUTURESWATCH_TIMEFRAME",
		"FUTURESWATCH_DB", "FUTURESWATCH_HTTP_ADDR",
		"FUTURESWATCH_LOG_LEVEL", "FUTURESWATCH_LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

// =============================================================================
// DEFAULTS AND PERSISTENCE
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "ADAUSDT", "SOLUSDT", "AVAXUSDT", "DOGEUSDT", "XRPUSDT"}, cfg.Symbols)
	assert.Equal(t, "4h", cfg.Timeframe)
	assert.Equal(t, 60*time.Second, cfg.GetInterval())
	assert.Equal(t, 10*time.Second, cfg.GetRequestTimeout())
	assert.InDelta(t, 0.02, cfg.MinStrength, 1e-12)
	assert.Equal(t, "MA_7", cfg.Strategy.Primary)
	assert.Equal(t, []string{"MA_25", "MA_99"}, cfg.Strategy.References)
	assert.Equal(t, 100, cfg.Request.LimitCandles)
	assert.Equal(t, 6, cfg.Display.PriceDecimals)
	assert.Len(t, cfg.AvailableMAs, 12)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "futureswatch.yaml")

	cfg := DefaultConfig()
	cfg.Timeframe = "1h"
	cfg.SetSymbols([]string{"BTCUSDT"})
	cfg.Strategy = NewStrategy("GOLDEN_CROSS", "MA_50", []string{"MA_200"}, "")
	cfg.Request.LimitCandles = 250
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "1h", loaded.Timeframe)
	assert.Equal(t, []string{"BTCUSDT"}, loaded.Symbols)
	assert.Equal(t, "MA_50 crossing MA_200", loaded.Strategy.Description)
	assert.Equal(t, 200, loaded.MaxPeriod())
	assert.NoError(t, loaded.Validate())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Symbols, cfg.Symbols)
}

func TestLoad_ParseError(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("symbols: [unterminated"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("CHAT_ID", "-100")
	t.Setenv("FUTURESWATCH_SYMBOLS", " btcusdt, ethusdt ,,")
	t.Setenv("FUTURESWATCH_TIMEFRAME", "15m")
	t.Setenv("FUTURESWATCH_HTTP_ADDR", ":8080")
	t.Setenv("FUTURESWATCH_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, "-100", cfg.Telegram.ChatID)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Symbols)
	assert.Equal(t, "15m", cfg.Timeframe)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.TelegramConfigured())
	assert.Empty(t, cfg.TelegramWarnings())
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
		wantMsg string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "no symbols", mutate: func(c *Config) { c.Symbols = nil }, wantErr: ErrNoSymbols},
		{name: "bad timeframe", mutate: func(c *Config) { c.Timeframe = "7m" }, wantErr: ErrInvalidTimeframe},
		{name: "bad interval", mutate: func(c *Config) { c.Interval = "soon" }, wantMsg: "invalid interval"},
		{name: "negative strength", mutate: func(c *Config) { c.MinStrength = -0.1 }, wantMsg: "min_strength"},
		{name: "too few candles", mutate: func(c *Config) { c.Request.LimitCandles = 99 }, wantMsg: "limit_candles"},
		{name: "strategy checked first", mutate: func(c *Config) {
			c.Symbols = nil
			c.Strategy.Primary = "MA_3"
		}, wantErr: ErrUnknownMA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantMsg)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestDurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Interval = "garbage"
	cfg.Request.Timeout = "-3s"

	assert.Equal(t, 60*time.Second, cfg.GetInterval())
	assert.Equal(t, 10*time.Second, cfg.GetRequestTimeout())
}

func TestTelegramWarnings(t *testing.T) {
	cfg := DefaultConfig()
	assert.Len(t, cfg.TelegramWarnings(), 2)
	assert.False(t, cfg.TelegramConfigured())

	cfg.Telegram.BotToken = "t"
	assert.Len(t, cfg.TelegramWarnings(), 1)
	assert.True(t, cfg.TelegramConfigured())

	cfg.Telegram.Enabled = false
	assert.False(t, cfg.TelegramConfigured())
}

// =============================================================================
// LOGGING
// =============================================================================

func TestLoggingOptions(t *testing.T) {
	lc := LoggingConfig{Level: "warn", Format: "json", Categories: map[string]bool{"api": false}}

	opts := lc.Options(false)
	assert.Equal(t, "warn", opts.Level)
	assert.Equal(t, "json", opts.Format)

	assert.Equal(t, "debug", lc.Options(true).Level)
	assert.Equal(t, map[string]bool{"api": false}, opts.Categories)
}
