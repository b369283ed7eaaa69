// Package store persists alert history and active-alert state in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"futureswatch/internal/crossover"
	"futureswatch/internal/logging"
	"futureswatch/internal/notify"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed alert history.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// AlertRecord is a stored alert.
type AlertRecord struct {
	notify.Alert
	Notified bool `json:"notified"`
}

// CycleRecord summarizes one monitoring cycle.
type CycleRecord struct {
	StartedAt time.Time
	Duration  time.Duration
	Symbols   int
	Alerts    int
	Failures  int
}

// CycleStats aggregates every recorded cycle.
type CycleStats struct {
	Cycles      int           `json:"cycles"`
	Alerts      int           `json:"alerts"`
	Failures    int           `json:"failures"`
	AvgDuration time.Duration `json:"avg_duration"`
	LastCycle   time.Time     `json:"last_cycle"`
}

// Open opens (or creates) the database at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	logging.Store("opening alert store at %s", path)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.StoreError("failed to create directory %s: %v", dir, err)
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("failed to set sqlite busy_timeout: %v", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			logging.StoreDebug("failed to set sqlite journal_mode=WAL: %v", err)
		}
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.StoreDebug("alert store schema ready")
	return s, nil
}

func (s *Store) initialize() error {
	alertsTable := `
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		direction TEXT NOT NULL,
		price REAL NOT NULL,
		strength REAL NOT NULL,
		candle_time INTEGER NOT NULL,
		mas TEXT NOT NULL DEFAULT '{}',
		notified INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_symbol ON alerts(symbol);
	CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at);
	`

	activeTable := `
	CREATE TABLE IF NOT EXISTS active_alerts (
		key TEXT PRIMARY KEY,
		direction TEXT NOT NULL,
		since INTEGER NOT NULL
	);
	`

	cyclesTable := `
	CREATE TABLE IF NOT EXISTS cycles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		symbols INTEGER NOT NULL,
		alerts INTEGER NOT NULL,
		failures INTEGER NOT NULL
	);
	`

	tables := []struct{ name, ddl string }{
		{"alerts", alertsTable},
		{"active_alerts", activeTable},
		{"cycles", cyclesTable},
	}
	for _, t := range tables {
		if _, err := s.db.Exec(t.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}

	if _, err := RunMigrations(s.db); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SaveAlert stores an alert. notified records whether Telegram accepted it.
func (s *Store) SaveAlert(alert notify.Alert, notified bool) error {
	mas, err := json.Marshal(alert.MAs)
	if err != nil {
		return fmt.Errorf("failed to marshal moving averages: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO alerts (id, symbol, timeframe, direction, price, strength, candle_time, mas, notified, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, alert.Symbol, alert.Timeframe, string(alert.Direction), alert.Price, alert.Strength,
		alert.CandleTime.UnixMilli(), string(mas), boolToInt(notified), alert.CreatedAt.UnixMilli(),
	)
	if err != nil {
		logging.StoreError("failed to save alert %s: %v", alert.ID, err)
		return fmt.Errorf("failed to save alert: %w", err)
	}
	logging.StoreDebug("saved alert %s for %s", alert.ID, alert.Symbol)
	return nil
}

// RecentAlerts returns up to limit alerts, newest first.
func (s *Store) RecentAlerts(limit int) ([]AlertRecord, error) {
	return s.queryAlerts(`
		SELECT id, symbol, timeframe, direction, price, strength, candle_time, mas, notified, created_at
		FROM alerts ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
}

// AlertsForSymbol returns up to limit alerts for symbol, newest first.
func (s *Store) AlertsForSymbol(symbol string, limit int) ([]AlertRecord, error) {
	return s.queryAlerts(`
		SELECT id, symbol, timeframe, direction, price, strength, candle_time, mas, notified, created_at
		FROM alerts WHERE symbol = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, symbol, limit)
}

func (s *Store) queryAlerts(query string, args ...interface{}) ([]AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var out []AlertRecord
	for rows.Next() {
		var (
			rec                 AlertRecord
			direction, mas      string
			candleMs, createdMs int64
			notified            int
		)
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.Timeframe, &direction, &rec.Price, &rec.Strength,
			&candleMs, &mas, &notified, &createdMs); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		rec.Direction = crossover.Direction(direction)
		rec.CandleTime = time.UnixMilli(candleMs).UTC()
		rec.CreatedAt = time.UnixMilli(createdMs).UTC()
		rec.Notified = notified != 0
		if err := json.Unmarshal([]byte(mas), &rec.MAs); err != nil {
			logging.StoreDebug("alert %s has unreadable MAs: %v", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SetActive persists an active alert key.
func (s *Store) SetActive(key string, dir crossover.Direction, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT OR REPLACE INTO active_alerts (key, direction, since) VALUES (?, ?, ?)`,
		key, string(dir), at.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to set active alert: %w", err)
	}
	return nil
}

// ClearActive removes an active alert key.
func (s *Store) ClearActive(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM active_alerts WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to clear active alert: %w", err)
	}
	return nil
}

// ActiveAlerts returns every persisted active alert.
func (s *Store) ActiveAlerts() ([]crossover.ActiveAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT key, direction, since FROM active_alerts ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active alerts: %w", err)
	}
	defer rows.Close()

	var out []crossover.ActiveAlert
	for rows.Next() {
		var (
			a         crossover.ActiveAlert
			direction string
			sinceMs   int64
		)
		if err := rows.Scan(&a.Key, &direction, &sinceMs); err != nil {
			return nil, fmt.Errorf("failed to scan active alert: %w", err)
		}
		a.Direction = crossover.Direction(direction)
		a.Since = time.UnixMilli(sinceMs).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// RecordCycle stores a cycle summary.
func (s *Store) RecordCycle(c CycleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO cycles (started_at, duration_ms, symbols, alerts, failures) VALUES (?, ?, ?, ?, ?)`,
		c.StartedAt.UnixMilli(), c.Duration.Milliseconds(), c.Symbols, c.Alerts, c.Failures)
	if err != nil {
		return fmt.Errorf("failed to record cycle: %w", err)
	}
	return nil
}

// CycleStats aggregates the cycles table.
func (s *Store) CycleStats() (CycleStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		stats  CycleStats
		avgMs  sql.NullFloat64
		lastMs sql.NullInt64
	)
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(alerts), 0), COALESCE(SUM(failures), 0), AVG(duration_ms), MAX(started_at)
		FROM cycles`).Scan(&stats.Cycles, &stats.Alerts, &stats.Failures, &avgMs, &lastMs)
	if err != nil {
		return CycleStats{}, fmt.Errorf("failed to aggregate cycles: %w", err)
	}
	if avgMs.Valid {
		stats.AvgDuration = time.Duration(avgMs.Float64 * float64(time.Millisecond))
	}
	if lastMs.Valid {
		stats.LastCycle = time.UnixMilli(lastMs.Int64).UTC()
	}
	return stats, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
