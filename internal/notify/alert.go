// Package notify formats crossover alerts and delivers them to Telegram.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"futureswatch/internal/crossover"
)

// Alert is one detected crossover.
type Alert struct {
	ID         string              `json:"id"`
	Symbol     string              `json:"symbol"`
	Timeframe  string              `json:"timeframe"`
	Direction  crossover.Direction `json:"direction"`
	Price      float64             `json:"price"`
	Strength   float64             `json:"strength"` // percent
	CandleTime time.Time           `json:"candle_time"`
	MAs        map[string]float64  `json:"mas"`
	CreatedAt  time.Time           `json:"created_at"`
}

// Notifier delivers alerts.
type Notifier interface {
	SendAlert(ctx context.Context, alert Alert) error
}

// FormatAlert renders the plain-text alert message.
// minStrength is a fraction (0.02 = 2%). The time shown is the candle open time.
func FormatAlert(alert Alert, minStrength float64, timeframe string) string {
	minPercent := minStrength * 100
	class := crossover.Classify(alert.Strength, minPercent)
	at := alert.CandleTime
	if at.IsZero() {
		at = alert.CreatedAt
	}
	if at.IsZero() {
		at = time.Now()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s - %s\n\n", alert.Direction.Emoji(), alert.Symbol, alert.Direction.Label())
	fmt.Fprintf(&b, "💰 Price: $%.4f\n", alert.Price)
	fmt.Fprintf(&b, "📊 Strength: %.1f%% (%s ✅)\n", alert.Strength, class)
	fmt.Fprintf(&b, "📏 Minimum: %.1f%%\n", minPercent)
	fmt.Fprintf(&b, "⏰ Time: %s (%s)\n\n", at.Format("15:04"), timeframe)
	fmt.Fprintf(&b, "🚀 ACTION: %s NOW!", alert.Direction.Action())
	return b.String()
}
