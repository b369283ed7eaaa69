package store

import (
	"database/sql"
	"fmt"

	"futureswatch/internal/logging"
)

// Migration adds a column that older databases lack.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations handles tables that exist but predate newer columns.
// Added columns need a default since SQLite rejects NOT NULL without one.
var pendingMigrations = []Migration{
	// Candle context (added with the MA snapshot)
	{"alerts", "candle_time", "INTEGER NOT NULL DEFAULT 0"},
	{"alerts", "mas", "TEXT NOT NULL DEFAULT '{}'"},
	// Delivery flag
	{"alerts", "notified", "INTEGER NOT NULL DEFAULT 0"},
	// Failure count per cycle
	{"cycles", "failures", "INTEGER NOT NULL DEFAULT 0"},
}

// RunMigrations applies the pending column migrations. It returns how many
// columns were added.
func RunMigrations(db *sql.DB) (int, error) {
	applied := 0
	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			logging.StoreDebug("table missing, skipping migration: %s.%s", m.Table, m.Column)
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			continue
		}

		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(query); err != nil {
			return applied, fmt.Errorf("failed to add %s.%s: %w", m.Table, m.Column, err)
		}
		logging.Store("migration applied: added %s.%s", m.Table, m.Column)
		applied++
	}
	return applied, nil
}

func tableExists(db *sql.DB, table string) bool {
	return countRows(db, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table) > 0
}

func columnExists(db *sql.DB, table, column string) bool {
	return countRows(db, "SELECT COUNT(*) FROM pragma_table_info(?) WHERE name=?", table, column) > 0
}

// countRows runs a COUNT(*) query. Errors count as zero rows.
func countRows(db *sql.DB, query string, args ...interface{}) int {
	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		logging.StoreDebug("schema lookup %v failed: %v", args, err)
		return 0
	}
	return n
}
