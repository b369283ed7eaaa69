package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"futureswatch/internal/config"
	"futureswatch/internal/logging"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	envFile    string
	verbose    bool

	// Loaded in PersistentPreRunE
	cfg *config.Config

	timeNow = time.Now
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "futureswatch",
	Short: "Binance futures moving-average crossover monitor",
	Long: `futureswatch polls Binance USDT-M futures klines, computes the moving
averages of the configured strategy and alerts on strong crossovers.

A crossover is strong when the primary MA sits at least min_strength above
(bullish) or below (bearish) every reference MA after being on the other
side of at least one of them on the previous candle.

Run without arguments to start monitoring.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		n, err := config.LoadDotEnv(envFile)
		if err != nil && !errors.Is(err, config.ErrNoDotEnv) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		if err := logging.Initialize(cfg.Logging.Options(verbose)); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if n > 0 {
			logging.ConfigDebug("loaded %d variables from %s", n, envFile)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: monitor
		return runMonitor(cmd, args)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "futureswatch.yaml", "Config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file with BOT_TOKEN and CHAT_ID")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	// History flags
	historyCmd.Flags().StringVar(&historySymbol, "symbol", "", "Only alerts for this symbol")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of alerts to show")

	// Config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)

	// Add commands to root
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(strategiesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
