package console

import (
	"fmt"
	"io"
	"strings"
	"time"

	"futureswatch/internal/config"
	"futureswatch/internal/crossover"
	"futureswatch/internal/monitor"
	"futureswatch/internal/notify"

	"github.com/charmbracelet/lipgloss"
)

// FormatUptime renders d as H:MM:SS. Hours keep counting past a day.
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}

// FormatStatus renders the one-line status shown after each cycle.
func FormatStatus(now time.Time, snap monitor.Snapshot, activeAlerts int) string {
	line := fmt.Sprintf("Monitor active | %s | Uptime: %s", now.Format("15:04:05"), FormatUptime(snap.Uptime))
	if activeAlerts > 0 {
		line += fmt.Sprintf(" | Active alerts: %d", activeAlerts)
	}
	if snap.RequestsOK > 0 && snap.RequestsOK%12 == 0 {
		line += fmt.Sprintf(" | Success: %.1f%% | Alerts: %d", snap.SuccessRate, snap.AlertsSent)
	}
	return line
}

func maLabels(mas map[string]int) string {
	names := config.SortedByPeriod(mas)
	labels := make([]string, len(names))
	for i, name := range names {
		labels[i] = fmt.Sprintf("%s(%d)", name, mas[name])
	}
	return strings.Join(labels, ", ")
}

// Banner renders the startup summary.
func Banner(cfg *config.Config, telegramActive bool) string {
	telegram := "INACTIVE"
	if telegramActive {
		telegram = "ACTIVE"
	}
	rows := [][2]string{
		{"📊 Symbols", fmt.Sprintf("%d (%s)", len(cfg.Symbols), strings.Join(cfg.Symbols, ", "))},
		{"⏰ Timeframe", cfg.Timeframe},
		{"🔄 Interval", cfg.GetInterval().String()},
		{"💪 Min strength", fmt.Sprintf("%.1f%%", cfg.MinStrength*100)},
		{"🎯 Strategy", cfg.Strategy.Description},
		{"📈 Moving averages", maLabels(cfg.RequiredMAs())},
		{"📱 Telegram", telegram},
		{"📝 Log level", cfg.Logging.Level},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("🚀 BINANCE FUTURES CROSSOVER MONITOR"))
	b.WriteString("\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(r[0]+":"), r[1])
	}
	return b.String()
}

func directionStyle(d crossover.Direction) lipgloss.Style {
	if d == crossover.Bearish {
		return bearStyle
	}
	return bullStyle
}

// Alerts renders the alerts of one cycle. MA values are listed by period.
func Alerts(now time.Time, strategy config.StrategyInfo, alerts []notify.Alert, decimals int, periods map[string]int, minStrength float64) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("🚨 %d CROSSOVER ALERT(S) - %s", len(alerts), now.Format("15:04:05"))))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Strategy:"), strategy.Description)

	names := config.SortedByPeriod(periods)
	for _, a := range alerts {
		title := fmt.Sprintf("%s %s - %s", a.Direction.Emoji(), a.Symbol, a.Direction.Label())
		b.WriteString("\n")
		b.WriteString(directionStyle(a.Direction).Render(title))
		b.WriteString("\n")
		fmt.Fprintf(&b, "   Price: %.*f\n", decimals, a.Price)
		fmt.Fprintf(&b, "   Strength: %.2f%% (%s)\n", a.Strength, crossover.Classify(a.Strength, minStrength*100))
		if !a.CandleTime.IsZero() {
			fmt.Fprintf(&b, "   Candle: %s\n", a.CandleTime.Format("2006-01-02 15:04:05"))
		}
		for _, name := range names {
			if v, ok := a.MAs[name]; ok {
				fmt.Fprintf(&b, "   %s: %.*f\n", name, decimals, v)
			}
		}
		fmt.Fprintf(&b, "   Action: %s\n", a.Direction.Action())
	}
	return b.String()
}

// FinalSummary renders the shutdown report.
func FinalSummary(snap monitor.Snapshot, activeAlerts int, strategy config.StrategyInfo) string {
	lines := []string{
		"📊 FINAL SUMMARY",
		fmt.Sprintf("Uptime: %s", FormatUptime(snap.Uptime)),
		fmt.Sprintf("Cycles: %d", snap.Cycles),
		fmt.Sprintf("Failed cycles: %d", snap.FailedCycles),
		fmt.Sprintf("Successful requests: %d", snap.RequestsOK),
		fmt.Sprintf("Failed requests: %d", snap.RequestsError),
		fmt.Sprintf("Success rate: %.1f%%", snap.SuccessRate),
		fmt.Sprintf("Alerts sent: %d", snap.AlertsSent),
		fmt.Sprintf("Active alerts: %d", activeAlerts),
		fmt.Sprintf("Strategy: %s", strategy.Description),
	}
	return summaryStyle.Render(strings.Join(lines, "\n")) + "\n"
}

// Printer writes the report to an io.Writer. It implements monitor.Reporter.
type Printer struct {
	out         io.Writer
	cfg         *config.Config
	strategy    config.StrategyInfo
	periods     map[string]int
	decimals    int
	minStrength float64
}

// NewPrinter creates a Printer for cfg.
func NewPrinter(out io.Writer, cfg *config.Config) *Printer {
	return &Printer{
		out:         out,
		cfg:         cfg,
		strategy:    cfg.StrategyInfo(),
		periods:     cfg.RequiredMAs(),
		decimals:    cfg.Display.PriceDecimals,
		minStrength: cfg.MinStrength,
	}
}

// Banner prints the startup summary.
func (p *Printer) Banner(telegramActive bool) {
	fmt.Fprintln(p.out, Banner(p.cfg, telegramActive))
}

// Alerts prints a cycle's alerts.
func (p *Printer) Alerts(now time.Time, alerts []notify.Alert) {
	fmt.Fprintln(p.out, Alerts(now, p.strategy, alerts, p.decimals, p.periods, p.minStrength))
}

// Status prints the status line.
func (p *Printer) Status(now time.Time, snap monitor.Snapshot, activeAlerts int) {
	fmt.Fprintln(p.out, statusStyle.Render(FormatStatus(now, snap, activeAlerts)))
}

// FinalSummary prints the shutdown report.
func (p *Printer) FinalSummary(snap monitor.Snapshot, activeAlerts int) {
	fmt.Fprintln(p.out, FinalSummary(snap, activeAlerts, p.strategy))
}
