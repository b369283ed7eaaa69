package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"futureswatch/internal/api"
	"futureswatch/internal/config"
	"futureswatch/internal/console"
	"futureswatch/internal/logging"
	"futureswatch/internal/market"
	"futureswatch/internal/monitor"
	"futureswatch/internal/notify"
	"futureswatch/internal/store"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// runCmd starts the monitor loop
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Monitor every configured symbol until interrupted",
	Long: `Checks every configured symbol once per interval, sends a Telegram
message for each new strong crossover and prints a status line after
every cycle.

Cycles where every symbol failed or the cycle timed out are counted and
retried on the next interval. The process exits with an error after 5
consecutive unexpected failures.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for _, w := range cfg.TelegramWarnings() {
		logging.ConfigWarn("%s", w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats := monitor.NewStats(timeNow())
	deps := monitor.Deps{
		Fetcher:  newKlineClient(stats),
		Reporter: console.NewPrinter(cmd.OutOrStdout(), cfg),
		Stats:    stats,
	}

	if tg := newTelegram(ctx); tg != nil {
		deps.Notifier = tg
	}

	var history *store.Store
	if cfg.Store.Path != "" {
		s, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer s.Close()
		history = s
		deps.Store = s
	}

	var hub *api.Hub
	if cfg.HTTP.Addr != "" {
		hub = api.NewHub(0)
		deps.Publisher = hub
	}

	mon, err := monitor.New(cfg, deps)
	if err != nil {
		return err
	}

	watcher, err := config.NewWatcher(configPath, func(next *config.Config) {
		mon.SetSymbols(next.Symbols)
		if next.Strategy.Name != cfg.Strategy.Name || next.Timeframe != cfg.Timeframe {
			logging.ConfigWarn("strategy and timeframe changes apply after a restart")
		}
	})
	if err != nil {
		logging.ConfigWarn("hot reload disabled: %v", err)
	} else {
		if err := watcher.Start(ctx); err != nil {
			logging.ConfigWarn("hot reload disabled: %v", err)
		}
		defer watcher.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	if hub != nil {
		var hist api.AlertHistory
		if history != nil {
			hist = history
		}
		srv := api.NewServer(cfg.HTTP.Addr, mon, hist, hub)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}
	g.Go(func() error {
		return mon.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logging.MonitorError("monitor stopped: %v", err)
		return err
	}
	return nil
}

// newKlineClient builds the Binance client and feeds its outcomes into stats.
func newKlineClient(stats *monitor.Stats) *market.Client {
	mc := market.Config{
		BaseURL:    cfg.Binance.BaseURL,
		Endpoint:   cfg.Binance.KlinesEndpoint,
		Timeout:    cfg.GetRequestTimeout(),
		Limit:      cfg.Request.LimitCandles,
		MaxRetries: cfg.Request.MaxRetries,
	}
	return market.NewClient(mc, market.WithStats(market.Stats{
		OnSuccess: stats.RecordRequestOK,
		OnFailure: stats.RecordRequestError,
	}))
}

// newTelegram returns the notifier, or nil when Telegram is not configured.
// A failed connection check is logged and the notifier is kept.
func newTelegram(ctx context.Context) *notify.Telegram {
	if !cfg.TelegramConfigured() {
		logging.Notify("telegram disabled, alerts are printed only")
		return nil
	}

	opts := []notify.TelegramOption{notify.WithMessageContext(cfg.MinStrength, cfg.Timeframe)}
	if cfg.Telegram.BaseURL != "" {
		opts = append(opts, notify.WithBaseURL(cfg.Telegram.BaseURL))
	}
	tg := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, opts...)

	if err := tg.Ping(ctx); err != nil {
		logging.NotifyError("telegram connection check failed, will keep trying on each alert: %v", err)
		return tg
	}
	logging.Notify("telegram connected")
	return tg
}
