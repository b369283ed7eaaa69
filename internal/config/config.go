package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all futureswatch configuration.
type Config struct {
	// Telegram delivery
	Telegram TelegramConfig `yaml:"telegram"`

	// Symbols to monitor
	Symbols []string `yaml:"symbols"`

	// Kline interval used for analysis (1m, 5m, 15m, 30m, 1h, 2h, 4h, 6h, 8h, 12h, 1d)
	Timeframe string `yaml:"timeframe"`

	// Time between checks
	Interval string `yaml:"interval"`

	// Minimum crossover strength: the primary MA must sit this fraction
	// above/below every reference MA (0.02 = 2%).
	MinStrength float64 `yaml:"min_strength"`

	// Catalog of moving averages a strategy may reference, name -> period
	AvailableMAs map[string]int `yaml:"available_mas"`

	// Active crossover strategy
	Strategy Strategy `yaml:"strategy"`

	Binance BinanceConfig `yaml:"binance"`
	Request RequestConfig `yaml:"request"`
	Display DisplayConfig `yaml:"display"`
	Logging LoggingConfig `yaml:"logging"`
	Store   StoreConfig   `yaml:"store"`
	HTTP    HTTPConfig    `yaml:"http"`
}

// TelegramConfig configures the Telegram notifier.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	Enabled  bool   `yaml:"enabled"`
	BaseURL  string `yaml:"base_url"`
}

// BinanceConfig configures the futures REST endpoint.
type BinanceConfig struct {
	BaseURL        string `yaml:"base_url"`
	KlinesEndpoint string `yaml:"klines_endpoint"`
}

// RequestConfig configures kline requests.
type RequestConfig struct {
	Timeout      string `yaml:"timeout"`
	LimitCandles int    `yaml:"limit_candles"`
	MaxRetries   int    `yaml:"max_retries"`
}

// DisplayConfig configures console output.
type DisplayConfig struct {
	PriceDecimals int `yaml:"price_decimals"`
}

// StoreConfig configures the alert history database.
type StoreConfig struct {
	Path string `yaml:"path"` // empty disables persistence
}

// HTTPConfig configures the status API.
type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the server
}

var (
	// ErrNoSymbols is returned when the symbol list is empty.
	ErrNoSymbols = errors.New("no symbols configured")
	// ErrInvalidTimeframe is returned for a timeframe Binance does not serve.
	ErrInvalidTimeframe = errors.New("invalid timeframe")
)

// ValidTimeframes lists the kline intervals accepted by Binance futures.
var ValidTimeframes = []string{"1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "8h", "12h", "1d", "3d", "1w", "1M"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Enabled: true,
			BaseURL: "https://api.telegram.org",
		},

		Symbols: []string{
			"BTCUSDT", "ETHUSDT", "ADAUSDT", "SOLUSDT",
			"AVAXUSDT", "DOGEUSDT", "XRPUSDT",
		},
		Timeframe:   "4h",
		Interval:    "60s",
		MinStrength: 0.02,

		AvailableMAs: DefaultMACatalog(),
		Strategy: Strategy{
			Name:        "MA_RAPIDA_vs_MULTIPLAS",
			Primary:     "MA_7",
			References:  []string{"MA_25", "MA_99"},
			Description: "MA7 crossing MA25 and MA99",
		},

		Binance: BinanceConfig{
			BaseURL:        "https://fapi.binance.com",
			KlinesEndpoint: "/fapi/v1/klines",
		},
		Request: RequestConfig{
			Timeout:      "10s",
			LimitCandles: 100,
			MaxRetries:   3,
		},
		Display: DisplayConfig{
			PriceDecimals: 6,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Store: StoreConfig{
			Path: "data/futureswatch.db",
		},
	}
}

// DefaultMACatalog returns the built-in moving average catalog.
func DefaultMACatalog() map[string]int {
	return map[string]int{
		"MA_5": 5, "MA_7": 7, "MA_9": 9, "MA_12": 12, "MA_20": 20,
		"MA_25": 25, "MA_30": 30, "MA_50": 50, "MA_99": 99,
		"MA_100": 100, "MA_150": 150, "MA_200": 200,
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.AvailableMAs == nil {
		cfg.AvailableMAs = DefaultMACatalog()
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if token := os.Getenv("BOT_TOKEN"); token != "" {
		c.Telegram.BotToken = token
	}
	if chatID := os.Getenv("CHAT_ID"); chatID != "" {
		c.Telegram.ChatID = chatID
	}

	if symbols := os.Getenv("FUTURESWATCH_SYMBOLS"); symbols != "" {
		c.SetSymbols(splitList(symbols))
	}
	if tf := os.Getenv("FUTURESWATCH_TIMEFRAME"); tf != "" {
		c.Timeframe = tf
	}

	if path := os.Getenv("FUTURESWATCH_DB"); path != "" {
		c.Store.Path = path
	}
	if addr := os.Getenv("FUTURESWATCH_HTTP_ADDR"); addr != "" {
		c.HTTP.Addr = addr
	}

	if level := os.Getenv("FUTURESWATCH_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if format := os.Getenv("FUTURESWATCH_LOG_FORMAT"); format != "" {
		c.Logging.Format = format
	}
}

func splitList(s string) []string {
	var out []string
	for _, token := range strings.Split(s, ",") {
		if v := strings.ToUpper(strings.TrimSpace(token)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// SetSymbols replaces the monitored symbol list.
func (c *Config) SetSymbols(symbols []string) {
	c.Symbols = append([]string(nil), symbols...)
}

// GetInterval returns the check interval as a duration.
func (c *Config) GetInterval() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// GetRequestTimeout returns the kline request timeout as a duration.
func (c *Config) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Request.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.ValidateStrategy(); err != nil {
		return err
	}

	if len(c.Symbols) == 0 {
		return ErrNoSymbols
	}

	if !isValidTimeframe(c.Timeframe) {
		return fmt.Errorf("%w: %q (valid: %v)", ErrInvalidTimeframe, c.Timeframe, ValidTimeframes)
	}

	if d, err := time.ParseDuration(c.Interval); err != nil || d <= 0 {
		return fmt.Errorf("invalid interval: %q", c.Interval)
	}

	if c.MinStrength < 0 {
		return fmt.Errorf("min_strength must be >= 0, got %v", c.MinStrength)
	}

	// One extra candle so the previous row also has every MA.
	if need := c.MaxPeriod() + 1; c.Request.LimitCandles < need {
		return fmt.Errorf("request.limit_candles=%d is below the %d candles the strategy needs", c.Request.LimitCandles, need)
	}

	return nil
}

func isValidTimeframe(tf string) bool {
	for _, v := range ValidTimeframes {
		if tf == v {
			return true
		}
	}
	return false
}

// TelegramConfigured reports whether alerts can be delivered.
func (c *Config) TelegramConfigured() bool {
	return c.Telegram.Enabled && c.Telegram.BotToken != ""
}

// TelegramWarnings lists missing Telegram credentials.
func (c *Config) TelegramWarnings() []string {
	var warnings []string
	if c.Telegram.BotToken == "" {
		warnings = append(warnings, "BOT_TOKEN is not configured (set it in .env)")
	}
	if c.Telegram.ChatID == "" {
		warnings = append(warnings, "CHAT_ID is not configured (set it in .env)")
	}
	return warnings
}
