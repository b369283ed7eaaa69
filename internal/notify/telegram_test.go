package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"futureswatch/internal/crossover"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAlert() Alert {
	return Alert{
		ID:         "a1",
		Symbol:     "BTCUSDT",
		Timeframe:  "4h",
		Direction:  crossover.Bullish,
		Price:      43210.123456,
		Strength:   4.3,
		CandleTime: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		CreatedAt:  time.Date(2024, 3, 1, 14, 5, 0, 0, time.UTC),
	}
}

func TestFormatAlert(t *testing.T) {
	want := "🟢 BTCUSDT - BULLISH\n\n" +
		"💰 Price: $43210.1235\n" +
		"📊 Strength: 4.3% (VERY STRONG ✅)\n" +
		"📏 Minimum: 2.0%\n" +
		"⏰ Time: 12:00 (4h)\n\n" +
		"🚀 ACTION: LONG NOW!"
	assert.Equal(t, want, FormatAlert(sampleAlert(), 0.02, "4h"))
}

func TestFormatAlert_TimeFallsBackToCreatedAt(t *testing.T) {
	a := sampleAlert()
	a.CandleTime = time.Time{}

	assert.Contains(t, FormatAlert(a, 0.02, "4h"), "⏰ Time: 14:05 (4h)")
}

func TestFormatAlert_Bearish(t *testing.T) {
	a := sampleAlert()
	a.Direction = crossover.Bearish
	a.Strength = 2.5

	msg := FormatAlert(a, 0.02, "1h")
	assert.Contains(t, msg, "🔴 BTCUSDT - BEARISH")
	assert.Contains(t, msg, "(VALID ✅)")
	assert.Contains(t, msg, "(1h)")
	assert.Contains(t, msg, "ACTION: SHORT NOW!")
}

func TestTelegram_SendAlert(t *testing.T) {
	var got map[string]any
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram("123:abc", "-100", WithBaseURL(srv.URL), WithMessageContext(0.02, "4h"))
	require.NoError(t, tg.SendAlert(context.Background(), sampleAlert()))

	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, "-100", got["chat_id"])
	assert.Contains(t, got["text"], "BTCUSDT - BULLISH")
	_, hasParseMode := got["parse_mode"]
	assert.False(t, hasParseMode)
}

func TestTelegram_SendAlertFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	tg := NewTelegram("t", "c", WithBaseURL(srv.URL))
	err := tg.SendAlert(context.Background(), sampleAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegram_NotConfigured(t *testing.T) {
	assert.ErrorIs(t, NewTelegram("", "c").SendAlert(context.Background(), sampleAlert()), ErrNotConfigured)
	assert.ErrorIs(t, NewTelegram("t", "").SendMessage(context.Background(), "hi"), ErrNotConfigured)
	assert.ErrorIs(t, NewTelegram("", "").Ping(context.Background()), ErrNotConfigured)
}

func TestTelegram_Ping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"ok", http.StatusOK, `{"ok":true,"result":{"username":"watch_bot"}}`, false},
		{"not ok", http.StatusOK, `{"ok":false,"description":"nope"}`, true},
		{"unauthorized", http.StatusUnauthorized, `{"ok":false}`, true},
		{"garbage", http.StatusOK, `<html>`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/botT/getMe", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewTelegram("T", "c", WithBaseURL(srv.URL)).Ping(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
