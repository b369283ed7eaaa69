package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"futureswatch/internal/config"
	"futureswatch/internal/console"
	"futureswatch/internal/monitor"
	"futureswatch/internal/store"

	"github.com/spf13/cobra"
)

var (
	historySymbol string
	historyLimit  int
)

// checkCmd runs one cycle without notifying
var checkCmd = &cobra.Command{
	Use:   "check [symbols...]",
	Short: "Run a single check and print any strong crossovers",
	Long: `Fetches klines once for the given symbols (or every configured symbol)
and prints the crossovers found. Nothing is sent to Telegram and the alert
history is left untouched.`,
	RunE: runCheck,
}

// strategiesCmd lists the strategy presets
var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List example strategies and the one in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(cmd.OutOrStdout(), console.Strategies(config.ExampleStrategies(), cfg.Strategy))
		return nil
	},
}

// historyCmd prints stored alerts
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show alerts recorded in the history database",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func runCheck(cmd *cobra.Command, args []string) error {
	checkCfg := *cfg
	if len(args) > 0 {
		symbols := make([]string, 0, len(args))
		for _, a := range args {
			symbols = append(symbols, strings.ToUpper(strings.TrimSpace(a)))
		}
		checkCfg.SetSymbols(symbols)
	}
	if err := checkCfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats := monitor.NewStats(timeNow())
	mon, err := monitor.New(&checkCfg, monitor.Deps{
		Fetcher:  newKlineClient(stats),
		Reporter: console.NewPrinter(cmd.OutOrStdout(), &checkCfg),
		Stats:    stats,
	})
	if err != nil {
		return err
	}

	res := mon.RunCycle(ctx)
	if res.Err != nil {
		return fmt.Errorf("check failed: %w", res.Err)
	}
	if len(res.Alerts) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No strong crossovers across %d symbols (%d failed).\n", res.Symbols, res.Failures)
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	if cfg.Store.Path == "" {
		return errors.New("alert history is disabled (store.path is empty)")
	}
	if historyLimit <= 0 {
		return fmt.Errorf("--limit must be positive, got %d", historyLimit)
	}

	s, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	var records []store.AlertRecord
	if historySymbol != "" {
		records, err = s.AlertsForSymbol(strings.ToUpper(historySymbol), historyLimit)
	} else {
		records, err = s.RecentAlerts(historyLimit)
	}
	if err != nil {
		return fmt.Errorf("failed to load alerts: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), console.History(records, cfg.Display.PriceDecimals))
	return nil
}
