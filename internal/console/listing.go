package console

import (
	"fmt"
	"strings"

	"futureswatch/internal/config"
	"futureswatch/internal/store"
)

// Strategies renders the preset strategies, marking the one in use.
func Strategies(presets []config.Strategy, current config.Strategy) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Available strategies") + "\n")
	for _, s := range presets {
		marker := "  "
		if s.Name == current.Name {
			marker = "* "
		}
		fmt.Fprintf(&b, "%s%-24s %s vs %s  %s\n",
			marker, s.Name, s.Primary, strings.Join(s.References, ", "),
			labelStyle.Render(s.Description))
	}
	fmt.Fprintf(&b, "\nCurrent: %s (%s vs %s)\n",
		current.Name, current.Primary, strings.Join(current.References, ", "))
	return b.String()
}

// History renders stored alerts, newest first.
func History(records []store.AlertRecord, decimals int) string {
	if len(records) == 0 {
		return "No alerts recorded yet.\n"
	}
	var b strings.Builder
	for _, r := range records {
		sent := ""
		if !r.Notified {
			sent = labelStyle.Render(" (not sent)")
		}
		fmt.Fprintf(&b, "%s  %-12s %-4s %s %-8s price=%.*f strength=%.2f%%%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Symbol, r.Timeframe, r.Direction.Emoji(),
			directionStyle(r.Direction).Render(r.Direction.Label()),
			decimals, r.Price, r.Strength, sent)
	}
	return b.String()
}

// ConfigSummary renders config.Summary as aligned lines.
func ConfigSummary(s config.Summary) string {
	lines := []string{
		fmt.Sprintf("Symbols:        %d", s.Symbols),
		fmt.Sprintf("Timeframe:      %s", s.Timeframe),
		fmt.Sprintf("Interval:       %s", s.Interval),
		fmt.Sprintf("Min strength:   %s", s.MinStrength),
		fmt.Sprintf("Strategy:       %s", s.Strategy),
		fmt.Sprintf("Primary:        %s", s.Primary),
		fmt.Sprintf("References:     %s", strings.Join(s.References, ", ")),
		fmt.Sprintf("Moving avgs:    %s", maLabels(s.MovingAvgs)),
		fmt.Sprintf("Catalog size:   %d", s.AvailableMAs),
	}
	return strings.Join(lines, "\n") + "\n"
}
