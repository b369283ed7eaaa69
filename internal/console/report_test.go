package console

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"futureswatch/internal/config"
	"futureswatch/internal/crossover"
	"futureswatch/internal/monitor"
	"futureswatch/internal/notify"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2024, 6, 1, 9, 5, 7, 0, time.UTC)

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "0:00:00", FormatUptime(0))
	assert.Equal(t, "0:00:59", FormatUptime(59*time.Second+900*time.Millisecond))
	assert.Equal(t, "1:02:03", FormatUptime(time.Hour+2*time.Minute+3*time.Second))
	assert.Equal(t, "27:00:00", FormatUptime(27*time.Hour))
	assert.Equal(t, "0:00:00", FormatUptime(-time.Second))
}

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		name   string
		snap   monitor.Snapshot
		active int
		want   string
	}{
		{
			name: "plain",
			snap: monitor.Snapshot{Uptime: 90 * time.Second, RequestsOK: 7},
			want: "Monitor active | 09:05:07 | Uptime: 0:01:30",
		},
		{
			name:   "active alerts",
			snap:   monitor.Snapshot{Uptime: time.Hour, RequestsOK: 5},
			active: 2,
			want:   "Monitor active | 09:05:07 | Uptime: 1:00:00 | Active alerts: 2",
		},
		{
			name: "every twelfth request adds totals",
			snap: monitor.Snapshot{RequestsOK: 24, SuccessRate: 96, AlertsSent: 3},
			want: "Monitor active | 09:05:07 | Uptime: 0:00:00 | Success: 96.0% | Alerts: 3",
		},
		{
			name: "zero requests",
			snap: monitor.Snapshot{},
			want: "Monitor active | 09:05:07 | Uptime: 0:00:00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatStatus(now, tt.snap, tt.active))
		})
	}
}

func TestBanner(t *testing.T) {
	cfg := config.DefaultConfig()
	out := Banner(cfg, false)

	assert.Contains(t, out, "7 (BTCUSDT, ETHUSDT")
	assert.Contains(t, out, "4h")
	assert.Contains(t, out, "2.0%")
	assert.Contains(t, out, "MA_7(7), MA_25(25), MA_99(99)")
	assert.Contains(t, out, "INACTIVE")
	assert.Contains(t, Banner(cfg, true), "ACTIVE")
}

func TestAlerts_SortsMAsByPeriod(t *testing.T) {
	cfg := config.DefaultConfig()
	alerts := []notify.Alert{{
		Symbol:     "BTCUSDT",
		Direction:  crossover.Bearish,
		Price:      1.23456789,
		Strength:   3.1,
		CandleTime: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
		MAs:        map[string]float64{"MA_99": 3, "MA_7": 1, "MA_25": 2},
	}}

	out := Alerts(now, cfg.StrategyInfo(), alerts, 4, cfg.RequiredMAs(), cfg.MinStrength)

	assert.Contains(t, out, "09:05:07")
	assert.Contains(t, out, "🔴 BTCUSDT - BEARISH")
	assert.Contains(t, out, "Price: 1.2346")
	assert.Contains(t, out, "(STRONG)")
	assert.Contains(t, out, "Action: SHORT")
	assert.Contains(t, out, "Candle: 2024-06-01 08:00:00")

	i7 := strings.Index(out, "MA_7:")
	i25 := strings.Index(out, "MA_25:")
	i99 := strings.Index(out, "MA_99:")
	assert.True(t, i7 < i25 && i25 < i99, "MAs out of order:\n%s", out)
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, config.DefaultConfig())

	p.Banner(true)
	p.Status(now, monitor.Snapshot{}, 0)
	p.FinalSummary(monitor.Snapshot{RequestsOK: 10, RequestsError: 2, AlertsSent: 1, Cycles: 3}, 1)

	out := buf.String()
	assert.Contains(t, out, "Monitor active | 09:05:07")
	assert.Contains(t, out, "FINAL SUMMARY")
	assert.Contains(t, out, "Failed requests: 2")
	assert.Contains(t, out, "Cycles: 3")
	assert.Contains(t, out, "Failed cycles: 0")
	assert.Contains(t, out, "MA7 crossing MA25 and MA99")
}
