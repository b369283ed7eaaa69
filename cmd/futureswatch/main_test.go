package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"futureswatch/internal/config"
	"futureswatch/internal/crossover"
	"futureswatch/internal/logging"
	"futureswatch/internal/notify"
	"futureswatch/internal/store"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T) *bytes.Buffer {
	t.Helper()
	logging.SetLogger(zap.NewNop())
	cfg = config.DefaultConfig()
	cfg.Store.Path = ""
	return new(bytes.Buffer)
}

func testCmd(out *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	return cmd
}

// klineServer serves the given closes as Binance klines, one hour apart.
func klineServer(t *testing.T, closes []float64) *httptest.Server {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	rows := make([]string, len(closes))
	for i, c := range closes {
		open := base + int64(i)*3600_000
		rows[i] = fmt.Sprintf(`[%d,"%g","%g","%g","%g","100",%d,"0",5]`, open, c, c, c, c, open+3599_999)
	}
	body := "[" + strings.Join(rows, ",") + "]"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func useSmallStrategy(srvURL string) {
	cfg.Binance.BaseURL = srvURL
	cfg.AvailableMAs = map[string]int{"MA_2": 2, "MA_4": 4}
	cfg.Strategy = config.NewStrategy("FAST", "MA_2", []string{"MA_4"}, "")
	cfg.Request.LimitCandles = 6
}

func TestRunCheck_PrintsCrossover(t *testing.T) {
	out := setup(t)
	srv := klineServer(t, []float64{10, 10, 10, 10, 9, 20})
	useSmallStrategy(srv.URL)

	require.NoError(t, runCheck(testCmd(out), []string{"btcusdt"}))

	got := out.String()
	assert.Contains(t, got, "BTCUSDT - BULLISH")
	assert.Contains(t, got, "LONG")
	assert.Contains(t, got, "Monitor active")
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "ADAUSDT", "SOLUSDT", "AVAXUSDT", "DOGEUSDT", "XRPUSDT"}, cfg.Symbols,
		"check must not change the loaded config")
}

func TestRunCheck_NoCrossover(t *testing.T) {
	out := setup(t)
	srv := klineServer(t, []float64{10, 10, 10, 10, 10, 10})
	useSmallStrategy(srv.URL)

	require.NoError(t, runCheck(testCmd(out), []string{"ETHUSDT", "SOLUSDT"}))
	assert.Contains(t, out.String(), "No strong crossovers across 2 symbols (0 failed).")
}

func TestRunCheck_InvalidConfig(t *testing.T) {
	out := setup(t)
	cfg.Timeframe = "7m"

	err := runCheck(testCmd(out), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidTimeframe)
}

func TestStrategiesCmd(t *testing.T) {
	out := setup(t)
	cfg.Strategy = config.ExampleStrategies()[1]

	require.NoError(t, strategiesCmd.RunE(testCmd(out), nil))

	got := out.String()
	assert.Contains(t, got, "* GOLDEN_CROSS")
	assert.Contains(t, got, "SCALPING")
	assert.Contains(t, got, "Current: GOLDEN_CROSS (MA_50 vs MA_200)")
}

func TestHistory(t *testing.T) {
	out := setup(t)
	cfg.Store.Path = filepath.Join(t.TempDir(), "history.db")

	s, err := store.Open(cfg.Store.Path)
	require.NoError(t, err)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, sym := range []string{"BTCUSDT", "ETHUSDT"} {
		require.NoError(t, s.SaveAlert(notify.Alert{
			ID:        sym,
			Symbol:    sym,
			Timeframe: "4h",
			Direction: crossover.Bearish,
			Price:     100,
			Strength:  2.5,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}, i == 0))
	}
	require.NoError(t, s.Close())

	historyLimit, historySymbol = 10, "ethusdt"
	t.Cleanup(func() { historyLimit, historySymbol = 20, "" })
	require.NoError(t, runHistory(testCmd(out), nil))

	got := out.String()
	assert.Contains(t, got, "ETHUSDT")
	assert.NotContains(t, got, "BTCUSDT")
	assert.Contains(t, got, "(not sent)")
}

func TestHistory_Disabled(t *testing.T) {
	out := setup(t)
	assert.Error(t, runHistory(testCmd(out), nil))
}

func TestConfigInit(t *testing.T) {
	out := setup(t)
	path := filepath.Join(t.TempDir(), "futureswatch.yaml")

	require.NoError(t, configInitCmd.RunE(testCmd(out), []string{path}))
	assert.Contains(t, out.String(), "Wrote default configuration")

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "MA_7", loaded.Strategy.Primary)

	assert.Error(t, configInitCmd.RunE(testCmd(out), []string{path}), "existing files are not overwritten")
}

func TestConfigShowAndValidate(t *testing.T) {
	out := setup(t)
	cfg.Telegram.BotToken = ""
	cfg.Telegram.ChatID = ""

	require.NoError(t, configShowCmd.RunE(testCmd(out), nil))
	assert.Contains(t, out.String(), "Primary:        MA_7(7)")
	assert.Contains(t, out.String(), "Min strength:   2.0%")

	out.Reset()
	require.NoError(t, configValidateCmd.RunE(testCmd(out), nil))
	assert.Contains(t, out.String(), "warning: BOT_TOKEN is not configured")
	assert.Contains(t, out.String(), "Configuration is valid.")
}

func TestNewTelegram(t *testing.T) {
	setup(t)
	cfg.Telegram.BotToken = ""
	assert.Nil(t, newTelegram(context.Background()), "no token means no notifier")

	var sends int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		atomic.AddInt32(&sends, 1)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	cfg.Telegram.BotToken = "123:abc"
	cfg.Telegram.ChatID = "42"
	cfg.Telegram.BaseURL = srv.URL

	tg := newTelegram(context.Background())
	require.NotNil(t, tg, "a failed connection check keeps the notifier")
	require.NoError(t, tg.SendAlert(context.Background(), notify.Alert{Symbol: "BTCUSDT", Direction: crossover.Bullish}))
	assert.Equal(t, int32(1), atomic.LoadInt32(&sends))
}
