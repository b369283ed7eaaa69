// Package monitor runs the periodic crossover scan across all symbols.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"futureswatch/internal/config"
	"futureswatch/internal/crossover"
	"futureswatch/internal/indicator"
	"futureswatch/internal/logging"
	"futureswatch/internal/market"
	"futureswatch/internal/notify"
	"futureswatch/internal/store"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// CycleTimeout bounds one pass over every symbol.
	CycleTimeout = 60 * time.Second
	// MaxConsecutiveFailures stops Run after this many failed cycles in a row.
	MaxConsecutiveFailures = 5
	maxFailureBackoff      = 60 * time.Second
)

var (
	// ErrTooManyFailures is returned by Run after MaxConsecutiveFailures failed cycles.
	ErrTooManyFailures = errors.New("too many consecutive cycle failures")
	// ErrCycleTimeout means the cycle budget expired before every symbol finished.
	ErrCycleTimeout = errors.New("cycle timed out")
	// ErrAllSymbolsFailed means no symbol could be checked in a cycle.
	ErrAllSymbolsFailed = errors.New("every symbol failed")
	// ErrCheckPanicked wraps a panic recovered while checking a symbol.
	ErrCheckPanicked = errors.New("symbol check panicked")
)

// Degraded reports whether a cycle error comes from the market side
// (an outage or a slow exchange) rather than from the monitor itself.
// Degraded cycles do not count towards MaxConsecutiveFailures.
func Degraded(err error) bool {
	return errors.Is(err, ErrAllSymbolsFailed) || errors.Is(err, ErrCycleTimeout)
}

// Fetcher loads klines for a symbol.
type Fetcher interface {
	FetchKlines(ctx context.Context, symbol, interval string, minCandles int) ([]market.Kline, error)
}

// AlertStore persists alerts and dedup state.
type AlertStore interface {
	SaveAlert(alert notify.Alert, notified bool) error
	SetActive(key string, dir crossover.Direction, at time.Time) error
	ClearActive(key string) error
	ActiveAlerts() ([]crossover.ActiveAlert, error)
	RecordCycle(c store.CycleRecord) error
}

// Publisher fans new alerts out to live subscribers.
type Publisher interface {
	PublishAlert(alert notify.Alert)
}

// Reporter renders human-facing progress.
type Reporter interface {
	Banner(telegramActive bool)
	Alerts(now time.Time, alerts []notify.Alert)
	Status(now time.Time, snap Snapshot, activeAlerts int)
	FinalSummary(snap Snapshot, activeAlerts int)
}

// Deps are the collaborators of a Monitor. Only Fetcher is required.
type Deps struct {
	Fetcher   Fetcher
	Notifier  notify.Notifier
	Store     AlertStore
	Publisher Publisher
	Reporter  Reporter
	Stats     *Stats
	Now       func() time.Time
	Sleep     func(ctx context.Context, d time.Duration) error
}

// CycleResult summarizes one RunCycle.
type CycleResult struct {
	StartedAt time.Time
	Duration  time.Duration
	Symbols   int
	Alerts    []notify.Alert
	Failures  int
	Err       error
}

// Status is the live state exposed to the API.
type Status struct {
	Stats        Snapshot                `json:"stats"`
	ActiveAlerts []crossover.ActiveAlert `json:"active_alerts"`
	Symbols      []string                `json:"symbols"`
	Timeframe    string                  `json:"timeframe"`
	Strategy     config.StrategyInfo     `json:"strategy"`
}

// Monitor checks every configured symbol for strong crossovers.
type Monitor struct {
	mu      sync.RWMutex
	symbols []string

	timeframe   string
	interval    time.Duration
	minStrength float64
	periods     map[string]int
	minCandles  int
	strategy    config.StrategyInfo
	detector    crossover.Detector

	tracker      *crossover.Tracker
	stats        *Stats
	cycleTimeout time.Duration
	deps         Deps
}

// New builds a Monitor from a validated config.
func New(cfg *config.Config, deps Deps) (*Monitor, error) {
	if deps.Fetcher == nil {
		return nil, errors.New("monitor requires a kline fetcher")
	}
	if err := cfg.ValidateStrategy(); err != nil {
		return nil, fmt.Errorf("invalid strategy: %w", err)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Sleep == nil {
		deps.Sleep = sleepContext
	}
	if deps.Stats == nil {
		deps.Stats = NewStats(deps.Now())
	}

	m := &Monitor{
		symbols:     append([]string(nil), cfg.Symbols...),
		timeframe:   cfg.Timeframe,
		interval:    cfg.GetInterval(),
		minStrength: cfg.MinStrength,
		periods:     cfg.RequiredMAs(),
		minCandles:  cfg.MaxPeriod(),
		strategy:    cfg.StrategyInfo(),
		detector: crossover.Detector{
			Primary:     cfg.Strategy.Primary,
			References:  append([]string(nil), cfg.Strategy.References...),
			MinStrength: cfg.MinStrength,
		},
		tracker:      crossover.NewTracker(),
		stats:        deps.Stats,
		cycleTimeout: CycleTimeout,
		deps:         deps,
	}
	return m, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Stats returns the live counters.
func (m *Monitor) Stats() *Stats { return m.stats }

// Tracker returns the active-alert registry.
func (m *Monitor) Tracker() *crossover.Tracker { return m.tracker }

// Symbols returns the current symbol list.
func (m *Monitor) Symbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.symbols...)
}

// SetSymbols replaces the symbol list from the next cycle on.
func (m *Monitor) SetSymbols(symbols []string) {
	m.mu.Lock()
	m.symbols = append([]string(nil), symbols...)
	m.mu.Unlock()
	logging.Monitor("symbol list updated: %d symbols", len(symbols))
}

// Status reports the live state.
func (m *Monitor) Status() Status {
	return Status{
		Stats:        m.stats.Snapshot(m.deps.Now()),
		ActiveAlerts: m.tracker.Snapshot(),
		Symbols:      m.Symbols(),
		Timeframe:    m.timeframe,
		Strategy:     m.strategy,
	}
}

// RestoreActive reloads dedup state from the store.
func (m *Monitor) RestoreActive() error {
	if m.deps.Store == nil {
		return nil
	}
	active, err := m.deps.Store.ActiveAlerts()
	if err != nil {
		return err
	}
	m.tracker.Restore(active)
	if len(active) > 0 {
		logging.Monitor("restored %d active alerts", len(active))
	}
	return nil
}

// Check evaluates one symbol. It returns the new alert, or nil.
func (m *Monitor) Check(ctx context.Context, symbol string) (*notify.Alert, error) {
	log := logging.Get(logging.CategorySignal)

	klines, err := m.deps.Fetcher.FetchKlines(ctx, symbol, m.timeframe, m.minCandles)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", symbol, err)
	}

	rows, err := indicator.Compute(klines, m.periods)
	if err != nil {
		return nil, fmt.Errorf("failed to compute MAs for %s: %w", symbol, err)
	}
	prev, curr := rows[0], rows[1]

	bullish, bearish, err := m.detector.Detect(prev, curr)
	if err != nil {
		log.Debug("%s: no detection: %v", symbol, err)
		return nil, nil
	}

	now := m.deps.Now()
	key := crossover.Key(symbol, m.timeframe)
	if m.tracker.Active(key) && !m.detector.HasStrength(curr) {
		m.tracker.Reset(key)
		if m.deps.Store != nil {
			if err := m.deps.Store.ClearActive(key); err != nil {
				logging.StoreError("%s: %v", key, err)
			}
		}
		log.Info("%s: MAs converged, alert reset", key)
	}

	var dir crossover.Direction
	switch {
	case bullish:
		dir = crossover.Bullish
	case bearish:
		dir = crossover.Bearish
	default:
		return nil, nil
	}

	if !m.tracker.Activate(key, dir, now) {
		log.Debug("%s: %s crossover already alerted", key, dir.Label())
		return nil, nil
	}

	mas := make(map[string]float64, len(curr.MAs))
	for name, v := range curr.MAs {
		mas[name] = v
	}
	alert := notify.Alert{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Timeframe:  m.timeframe,
		Direction:  dir,
		Price:      curr.Close,
		Strength:   m.detector.Strength(curr),
		CandleTime: curr.Time,
		MAs:        mas,
		CreatedAt:  now,
	}
	log.Info("%s: %s crossover, strength %.2f%%", symbol, dir.Label(), alert.Strength)

	notified := false
	if m.deps.Notifier != nil {
		if err := m.deps.Notifier.SendAlert(ctx, alert); err != nil {
			logging.NotifyError("%s: %v", symbol, err)
		} else {
			notified = true
			m.stats.RecordAlertSent()
		}
	}

	if m.deps.Store != nil {
		if err := m.deps.Store.SaveAlert(alert, notified); err != nil {
			logging.StoreError("%s: %v", symbol, err)
		}
		if err := m.deps.Store.SetActive(key, dir, now); err != nil {
			logging.StoreError("%s: %v", key, err)
		}
	}
	if m.deps.Publisher != nil {
		m.deps.Publisher.PublishAlert(alert)
	}

	return &alert, nil
}

// RunCycle checks every symbol concurrently within CycleTimeout.
func (m *Monitor) RunCycle(ctx context.Context) CycleResult {
	symbols := m.Symbols()
	start := m.deps.Now()
	res := CycleResult{StartedAt: start, Symbols: len(symbols)}
	if len(symbols) == 0 {
		res.Err = config.ErrNoSymbols
		return res
	}

	cycleCtx, cancel := context.WithTimeout(ctx, m.cycleTimeout)
	defer cancel()

	alerts := make([]*notify.Alert, len(symbols))
	errs := make([]error, len(symbols))

	var g errgroup.Group
	g.SetLimit(len(symbols))
	for i, symbol := range symbols {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("%w: %s: %v", ErrCheckPanicked, symbol, r)
				}
			}()
			alerts[i], errs[i] = m.Check(cycleCtx, symbol)
			return nil
		})
	}
	_ = g.Wait()

	var panicErr error
	for i, err := range errs {
		if err != nil {
			res.Failures++
			if panicErr == nil && errors.Is(err, ErrCheckPanicked) {
				panicErr = err
			}
			logging.MonitorWarn("%s: %v", symbols[i], err)
			continue
		}
		if alerts[i] != nil {
			res.Alerts = append(res.Alerts, *alerts[i])
		}
	}
	m.stats.recordCycle()

	now := m.deps.Now()
	res.Duration = now.Sub(start)
	switch {
	case ctx.Err() != nil:
		res.Err = ctx.Err()
	case panicErr != nil:
		res.Err = panicErr
	case errors.Is(cycleCtx.Err(), context.DeadlineExceeded):
		res.Err = fmt.Errorf("%w after %s", ErrCycleTimeout, m.cycleTimeout)
	case res.Failures == len(symbols):
		res.Err = fmt.Errorf("%w (%d)", ErrAllSymbolsFailed, res.Failures)
	}

	if res.Err != nil && ctx.Err() == nil {
		m.stats.recordFailedCycle()
	}

	if r := m.deps.Reporter; r != nil && ctx.Err() == nil {
		if len(res.Alerts) > 0 {
			r.Alerts(now, res.Alerts)
		}
		r.Status(now, m.stats.Snapshot(now), m.tracker.Len())
	}
	if m.deps.Store != nil {
		rec := store.CycleRecord{
			StartedAt: start,
			Duration:  res.Duration,
			Symbols:   res.Symbols,
			Alerts:    len(res.Alerts),
			Failures:  res.Failures,
		}
		if err := m.deps.Store.RecordCycle(rec); err != nil {
			logging.StoreError("failed to record cycle: %v", err)
		}
	}

	logging.MonitorDebug("cycle done in %s: %d alerts, %d failures", res.Duration, len(res.Alerts), res.Failures)
	return res
}

// Run loops until ctx is cancelled or too many cycles fail in a row.
// Degraded cycles keep the normal interval and never stop the loop.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.RestoreActive(); err != nil {
		logging.MonitorWarn("could not restore active alerts: %v", err)
	}
	if r := m.deps.Reporter; r != nil {
		r.Banner(m.deps.Notifier != nil)
	}
	logging.Monitor("monitoring %d symbols every %s on %s", len(m.Symbols()), m.interval, m.timeframe)

	var runErr error
	consecutive := 0
	for ctx.Err() == nil {
		start := m.deps.Now()
		res := m.RunCycle(ctx)
		if ctx.Err() != nil {
			break
		}

		if res.Err != nil && Degraded(res.Err) {
			logging.MonitorWarn("cycle degraded, retrying next interval: %v", res.Err)
		} else if res.Err != nil {
			consecutive++
			logging.MonitorError("cycle failed (%d/%d): %v", consecutive, MaxConsecutiveFailures, res.Err)
			if consecutive >= MaxConsecutiveFailures {
				runErr = fmt.Errorf("%w: %w", ErrTooManyFailures, res.Err)
				break
			}
			wait := time.Duration(consecutive) * 10 * time.Second
			if wait > maxFailureBackoff {
				wait = maxFailureBackoff
			}
			if err := m.deps.Sleep(ctx, wait); err != nil {
				break
			}
			continue
		}
		consecutive = 0

		wait := m.interval - m.deps.Now().Sub(start)
		if wait > 0 {
			if err := m.deps.Sleep(ctx, wait); err != nil {
				break
			}
		}
	}

	if r := m.deps.Reporter; r != nil {
		r.FinalSummary(m.stats.Snapshot(m.deps.Now()), m.tracker.Len())
	}
	logging.Monitor("monitor stopped")
	return runErr
}
