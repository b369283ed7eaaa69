// Package logging provides categorized, config-driven logging for futureswatch.
// Every category shares one zap core; categories can be switched off individually.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, shutdown
	CategoryConfig  Category = "config"  // Config loading and hot reload
	CategoryMarket  Category = "market"  // Kline fetching
	CategorySignal  Category = "signal"  // MA computation and crossover detection
	CategoryNotify  Category = "notify"  // Telegram delivery
	CategoryStore   Category = "store"   // SQLite history
	CategoryMonitor Category = "monitor" // Cycle orchestration
	CategoryAPI     Category = "api"     // Status HTTP server
)

// Options mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	Level      string          // debug, info, warn, error
	Format     string          // console, json
	File       string          // optional extra output path
	Categories map[string]bool // per-category toggles, missing = enabled
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu         sync.RWMutex
	base       = zap.NewNop()
	categories map[string]bool
	loggers    = make(map[Category]*Logger)
)

// ParseLevel maps a config level string to a zap level. Unknown values mean info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Build creates a zap logger from cfg without installing it.
func Build(cfg Options) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	zc.Sampling = nil
	zc.DisableStacktrace = true
	zc.Encoding = "console"
	if strings.EqualFold(cfg.Format, "json") {
		zc.Encoding = "json"
	}
	zc.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	zc.OutputPaths = []string{"stdout"}
	zc.ErrorOutputPaths = []string{"stderr"}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		zc.OutputPaths = append(zc.OutputPaths, cfg.File)
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// Initialize builds the shared logger from cfg and installs it.
// Should be called once at startup.
func Initialize(cfg Options) error {
	logger, err := Build(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	categories = cfg.Categories
	mu.Unlock()
	SetLogger(logger)

	Boot("logging initialized: level=%s format=%s", ParseLevel(cfg.Level), formatName(cfg.Format))
	return nil
}

func formatName(f string) string {
	if strings.EqualFold(f, "json") {
		return "json"
	}
	return "console"
}

// SetLogger replaces the shared zap logger and drops cached category loggers.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	base = l
	loggers = make(map[Category]*Logger)
}

// L returns the shared zap logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabledLocked(category)
}

func categoryEnabledLocked(category Category) bool {
	if categories == nil {
		return true
	}
	enabled, exists := categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	var z *zap.Logger
	if categoryEnabledLocked(category) {
		z = base.Named(string(category))
	} else {
		z = zap.NewNop()
	}
	l := &Logger{category: category, sugar: z.Sugar()}
	loggers[category] = l
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// With returns a logger that attaches key/value pairs to every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Sync flushes buffered entries of the shared logger.
func Sync() {
	_ = L().Sync()
}

// =============================================================================
// Category helpers
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootWarn(format string, args ...interface{})  { Get(CategoryBoot).Warn(format, args...) }
func BootError(format string, args ...interface{}) { Get(CategoryBoot).Error(format, args...) }

func Config(format string, args ...interface{})      { Get(CategoryConfig).Info(format, args...) }
func ConfigDebug(format string, args ...interface{}) { Get(CategoryConfig).Debug(format, args...) }
func ConfigWarn(format string, args ...interface{})  { Get(CategoryConfig).Warn(format, args...) }
func ConfigError(format string, args ...interface{}) { Get(CategoryConfig).Error(format, args...) }

func Market(format string, args ...interface{})      { Get(CategoryMarket).Info(format, args...) }
func MarketDebug(format string, args ...interface{}) { Get(CategoryMarket).Debug(format, args...) }
func MarketWarn(format string, args ...interface{})  { Get(CategoryMarket).Warn(format, args...) }
func MarketError(format string, args ...interface{}) { Get(CategoryMarket).Error(format, args...) }

func Signal(format string, args ...interface{})      { Get(CategorySignal).Info(format, args...) }
func SignalDebug(format string, args ...interface{}) { Get(CategorySignal).Debug(format, args...) }
func SignalWarn(format string, args ...interface{})  { Get(CategorySignal).Warn(format, args...) }

func Notify(format string, args ...interface{})      { Get(CategoryNotify).Info(format, args...) }
func NotifyDebug(format string, args ...interface{}) { Get(CategoryNotify).Debug(format, args...) }
func NotifyError(format string, args ...interface{}) { Get(CategoryNotify).Error(format, args...) }

func Store(format string, args ...interface{})      { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }
func StoreError(format string, args ...interface{}) { Get(CategoryStore).Error(format, args...) }

func Monitor(format string, args ...interface{})      { Get(CategoryMonitor).Info(format, args...) }
func MonitorDebug(format string, args ...interface{}) { Get(CategoryMonitor).Debug(format, args...) }
func MonitorWarn(format string, args ...interface{})  { Get(CategoryMonitor).Warn(format, args...) }
func MonitorError(format string, args ...interface{}) { Get(CategoryMonitor).Error(format, args...) }

func API(format string, args ...interface{})      { Get(CategoryAPI).Info(format, args...) }
func APIDebug(format string, args ...interface{}) { Get(CategoryAPI).Debug(format, args...) }
func APIError(format string, args ...interface{}) { Get(CategoryAPI).Error(format, args...) }
